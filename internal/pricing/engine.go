// Package pricing composes a slot price from the service base price, ordered
// pricing rules and the add-ons and options chosen with it.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"breezbook/internal/availability"
	"breezbook/internal/calendar"
	"breezbook/internal/models"
)

var half = decimal.New(5, -1)

// SlotInput is everything needed to price one slot.
type SlotInput struct {
	Slot    availability.Slot
	Service models.Service
	// Catalog is the tenant's add-on list used to resolve AddOns.
	Catalog []models.AddOn
	AddOns  []models.AddOnOrder
	Options []models.OptionOrder
}

type PricedAddOn struct {
	AddOnID   models.AddOnID
	Name      string
	UnitPrice models.Money
	Quantity  int
	Price     models.Money
}

type PricedOption struct {
	OptionID  models.OptionID
	Name      string
	UnitPrice models.Money
	Quantity  int
	Price     models.Money
}

type PriceBreakdown struct {
	Total         models.Money
	ServicePrice  models.Money
	PricedAddOns  []PricedAddOn
	PricedOptions []PricedOption
}

// AppliedAdjustment records one rule application. Item is "service" or the add-on id.
type AppliedAdjustment struct {
	RuleID   string
	RuleName string
	Item     string
	Before   models.Money
	After    models.Money
	Delta    models.Money
}

type PricedSlot struct {
	Slot      availability.Slot
	Total     models.Money
	Breakdown PriceBreakdown
	Applied   []AppliedAdjustment
}

// Engine resolves clock-relative scopes. It holds no other state.
type Engine struct {
	clock calendar.Clock
	loc   *time.Location
}

func NewEngine(clock calendar.Clock, loc *time.Location) *Engine {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{clock: clock, loc: loc}
}

// CalculatePrice starts from the service base price and applies every rule
// whose scope touches the slot, in list order. Amounts add; percentages
// multiply the running price, rounding half up to a minor unit each step. The
// running price never drops below zero. Add-ons and options are priced
// unit × quantity and only add-on-targeted rules adjust them.
func (e *Engine) CalculatePrice(in SlotInput, rules []Rule) (PricedSlot, error) {
	currency := in.Service.Price.Currency
	period := in.Slot.Period

	var matching []Rule
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return PricedSlot{}, err
		}
		if e.inScope(r.Scope, period) {
			matching = append(matching, r)
		}
	}

	var applied []AppliedAdjustment
	servicePrice, steps, err := apply(in.Service.Price, matching, TargetService, "service")
	if err != nil {
		return PricedSlot{}, err
	}
	applied = append(applied, steps...)

	breakdown := PriceBreakdown{
		ServicePrice:  servicePrice,
		PricedAddOns:  []PricedAddOn{},
		PricedOptions: []PricedOption{},
	}
	total := servicePrice

	for _, order := range in.AddOns {
		field := "add_ons[" + string(order.AddOnID) + "]"
		if order.Quantity <= 0 {
			return PricedSlot{}, models.Precondition(field, "quantity must be positive", nil)
		}
		addOn, err := lookupAddOn(in.Catalog, order.AddOnID)
		if err != nil {
			return PricedSlot{}, err
		}
		if !in.Service.PermitsAddOn(order.AddOnID) {
			return PricedSlot{}, models.Precondition(field, "add-on not permitted for service "+string(in.Service.ID), nil)
		}
		if addOn.Price.Currency != currency {
			return PricedSlot{}, models.Precondition(field, "price currency differs from the service", models.ErrCurrencyMismatch)
		}
		line, steps, err := apply(addOn.Price.Times(order.Quantity), matching, TargetAddOns, string(order.AddOnID))
		if err != nil {
			return PricedSlot{}, err
		}
		applied = append(applied, steps...)
		breakdown.PricedAddOns = append(breakdown.PricedAddOns, PricedAddOn{
			AddOnID:   addOn.ID,
			Name:      addOn.Name,
			UnitPrice: addOn.Price,
			Quantity:  order.Quantity,
			Price:     line,
		})
		if total, err = total.Add(line); err != nil {
			return PricedSlot{}, err
		}
	}

	for _, order := range in.Options {
		field := "options[" + string(order.OptionID) + "]"
		if order.Quantity <= 0 {
			return PricedSlot{}, models.Precondition(field, "quantity must be positive", nil)
		}
		opt, err := in.Service.Option(order.OptionID)
		if err != nil {
			return PricedSlot{}, err
		}
		if opt.Price.Currency != currency {
			return PricedSlot{}, models.Precondition(field, "price currency differs from the service", models.ErrCurrencyMismatch)
		}
		line := opt.Price.Times(order.Quantity)
		breakdown.PricedOptions = append(breakdown.PricedOptions, PricedOption{
			OptionID:  opt.ID,
			Name:      opt.Name,
			UnitPrice: opt.Price,
			Quantity:  order.Quantity,
			Price:     line,
		})
		if total, err = total.Add(line); err != nil {
			return PricedSlot{}, err
		}
	}

	breakdown.Total = total
	return PricedSlot{
		Slot:      in.Slot,
		Total:     total,
		Breakdown: breakdown,
		Applied:   applied,
	}, nil
}

// apply runs the rules aimed at target over price and records each step.
func apply(price models.Money, rules []Rule, target Target, item string) (models.Money, []AppliedAdjustment, error) {
	var steps []AppliedAdjustment
	running := price
	for _, r := range rules {
		if r.Target != target {
			continue
		}
		next := running
		switch a := r.Adjustment.(type) {
		case AmountAdjustment:
			if a.Amount.Currency != running.Currency {
				return models.Money{}, nil, models.Precondition("pricing_rules["+r.ID+"]", "amount currency differs from the price", models.ErrCurrencyMismatch)
			}
			next.Amount = running.Amount + a.Amount.Amount
		case PercentageAdjustment:
			factor := decimal.NewFromInt(1).Add(a.Ratio)
			next.Amount = decimal.NewFromInt(running.Amount).Mul(factor).Add(half).Floor().IntPart()
		}
		if next.Amount < 0 {
			next.Amount = 0
		}
		steps = append(steps, AppliedAdjustment{
			RuleID:   r.ID,
			RuleName: r.Name,
			Item:     item,
			Before:   running,
			After:    next,
			Delta:    models.NewMoney(next.Amount-running.Amount, running.Currency),
		})
		running = next
	}
	return running, steps, nil
}

// inScope matches inclusively: a window that only touches the slot on the same
// day still applies.
func (e *Engine) inScope(scope Scope, slot calendar.DayAndTimePeriod) bool {
	switch s := scope.(type) {
	case nil:
		return true
	case WindowScope:
		return calendar.Intersects(s.When, slot)
	case RelativeDayScope:
		day := calendar.Today(e.clock, e.loc).AddDays(s.DaysFromToday)
		return calendar.Intersects(calendar.NewDayAndTimePeriod(day, wholeDay(s.Period)), slot)
	case WeekdayScope:
		for _, d := range s.Days {
			if d == slot.Day.Weekday() {
				return calendar.Intersects(calendar.NewDayAndTimePeriod(slot.Day, wholeDay(s.Period)), slot)
			}
		}
		return false
	default:
		return false
	}
}

func lookupAddOn(catalog []models.AddOn, id models.AddOnID) (models.AddOn, error) {
	for _, a := range catalog {
		if a.ID == id {
			return a, nil
		}
	}
	return models.AddOn{}, models.NotFound("add-on", id)
}

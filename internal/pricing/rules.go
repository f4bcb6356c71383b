package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
)

// Adjustment is AmountAdjustment or PercentageAdjustment.
type Adjustment interface {
	isAdjustment()
}

// AmountAdjustment adds Amount (negative to subtract).
type AmountAdjustment struct {
	Amount models.Money
}

// PercentageAdjustment multiplies the running price by 1+Ratio; 0.1 is +10%.
type PercentageAdjustment struct {
	Ratio decimal.Decimal
}

func (AmountAdjustment) isAdjustment()     {}
func (PercentageAdjustment) isAdjustment() {}

func Amount(minor int64, currency string) AmountAdjustment {
	return AmountAdjustment{Amount: models.NewMoney(minor, currency)}
}

// Percent builds a PercentageAdjustment from a whole percentage, e.g. Percent(-15).
func Percent(p int64) PercentageAdjustment {
	return PercentageAdjustment{Ratio: decimal.New(p, -2)}
}

// Scope limits where a rule applies. A nil Scope applies everywhere.
type Scope interface {
	isScope()
}

// WindowScope applies to slots touching a fixed window.
type WindowScope struct {
	When calendar.DayAndTimePeriod
}

// RelativeDayScope applies to a day counted from today: 0 is today, 1 tomorrow.
// A zero Period covers the whole day.
type RelativeDayScope struct {
	DaysFromToday int
	Period        calendar.TimePeriod
}

// WeekdayScope applies on the listed weekdays. A zero Period covers the whole day.
type WeekdayScope struct {
	Days   []time.Weekday
	Period calendar.TimePeriod
}

func (WindowScope) isScope()      {}
func (RelativeDayScope) isScope() {}
func (WeekdayScope) isScope()     {}

// Target selects what a rule adjusts.
type Target int

const (
	TargetService Target = iota
	TargetAddOns
)

func (t Target) String() string {
	if t == TargetAddOns {
		return "add_ons"
	}
	return "service"
}

// ParseTarget accepts "service" or "add_ons"; empty means service.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "", "service":
		return TargetService, nil
	case "add_ons", "addons":
		return TargetAddOns, nil
	default:
		return TargetService, fmt.Errorf("unknown pricing target %q", s)
	}
}

// Rule is one step of price composition. Rules apply in list order.
type Rule struct {
	ID         string
	Name       string
	Adjustment Adjustment
	Scope      Scope
	Target     Target
}

func (r Rule) Validate() error {
	field := "pricing_rules[" + r.ID + "]"
	switch a := r.Adjustment.(type) {
	case AmountAdjustment:
		if a.Amount.Currency == "" {
			return models.Precondition(field, "amount currency is required", nil)
		}
	case PercentageAdjustment:
	case nil:
		return models.Precondition(field, "adjustment is required", nil)
	default:
		return models.Precondition(field, fmt.Sprintf("unsupported adjustment %T", a), nil)
	}

	switch s := r.Scope.(type) {
	case nil:
	case WindowScope:
		if err := s.When.Validate(); err != nil {
			return models.Precondition(field, "invalid window", err)
		}
	case RelativeDayScope:
		if !isWholeDay(s.Period) {
			if err := s.Period.Validate(); err != nil {
				return models.Precondition(field, "invalid period", err)
			}
		}
	case WeekdayScope:
		if len(s.Days) == 0 {
			return models.Precondition(field, "weekday scope needs at least one day", nil)
		}
		if !isWholeDay(s.Period) {
			if err := s.Period.Validate(); err != nil {
				return models.Precondition(field, "invalid period", err)
			}
		}
	default:
		return models.Precondition(field, fmt.Sprintf("unsupported scope %T", s), nil)
	}
	return nil
}

func isWholeDay(p calendar.TimePeriod) bool {
	return p == calendar.TimePeriod{}
}

func wholeDay(p calendar.TimePeriod) calendar.TimePeriod {
	if isWholeDay(p) {
		return calendar.TimePeriod{Start: calendar.NewTime24(0, 0), End: calendar.Time24FromMinutes(calendar.MinutesPerDay)}
	}
	return p
}

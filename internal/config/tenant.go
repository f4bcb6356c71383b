package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
)

// TenantFile is the stored and seeded form of a tenant's configuration.
// Times are "HH:MM", dates "YYYY-MM-DD", money in minor units.
type TenantFile struct {
	ID            string          `yaml:"id" json:"id"`
	Name          string          `yaml:"name" json:"name"`
	Currency      string          `yaml:"currency" json:"currency"`
	Timezone      string          `yaml:"timezone" json:"timezone,omitempty"`
	BusinessHours []HoursEntry    `yaml:"business_hours" json:"business_hours"`
	BlockedTime   []BlockedEntry  `yaml:"blocked_time" json:"blocked_time,omitempty"`
	Resources     []ResourceEntry `yaml:"resources" json:"resources"`
	Services      []ServiceEntry  `yaml:"services" json:"services"`
	AddOns        []AddOnEntry    `yaml:"add_ons" json:"add_ons,omitempty"`
	Timeslots     []TimeslotEntry `yaml:"timeslots" json:"timeslots,omitempty"`
	StartTimes    StartTimesEntry `yaml:"start_times" json:"start_times"`
	PricingRules  []RuleEntry     `yaml:"pricing_rules" json:"pricing_rules,omitempty"`
}

type HoursEntry struct {
	Days  []string `yaml:"days" json:"days"`
	Start string   `yaml:"start" json:"start"`
	End   string   `yaml:"end" json:"end"`
}

type BlockedEntry struct {
	Date  string `yaml:"date" json:"date"`
	Start string `yaml:"start" json:"start,omitempty"`
	End   string `yaml:"end" json:"end,omitempty"`
}

type BlockEntry struct {
	Date     string `yaml:"date" json:"date"`
	Start    string `yaml:"start" json:"start"`
	End      string `yaml:"end" json:"end"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

type ResourceEntry struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Type         string       `yaml:"type" json:"type"`
	Capacity     int          `yaml:"capacity" json:"capacity,omitempty"`
	Availability []BlockEntry `yaml:"availability" json:"availability,omitempty"`
}

// RequirementEntry names either a resource type or a specific resource.
type RequirementEntry struct {
	Type     string `yaml:"type" json:"type,omitempty"`
	Resource string `yaml:"resource" json:"resource,omitempty"`
}

type OptionEntry struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	Price           int64  `yaml:"price" json:"price"`
	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes,omitempty"`
}

type ServiceEntry struct {
	ID              string             `yaml:"id" json:"id"`
	Name            string             `yaml:"name" json:"name"`
	DurationMinutes int                `yaml:"duration_minutes" json:"duration_minutes"`
	Price           int64              `yaml:"price" json:"price"`
	Requirements    []RequirementEntry `yaml:"requirements" json:"requirements,omitempty"`
	AddOns          []string           `yaml:"add_ons" json:"add_ons,omitempty"`
	Options         []OptionEntry      `yaml:"options" json:"options,omitempty"`
	Slotting        string             `yaml:"slotting" json:"slotting,omitempty"`
	StartTimes      []string           `yaml:"start_times" json:"start_times,omitempty"`
}

type AddOnEntry struct {
	ID               string `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	Price            int64  `yaml:"price" json:"price"`
	RequiresQuantity bool   `yaml:"requires_quantity" json:"requires_quantity,omitempty"`
}

type TimeslotEntry struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
	Start       string `yaml:"start" json:"start"`
	End         string `yaml:"end" json:"end"`
}

type StartTimesEntry struct {
	EveryMinutes int      `yaml:"every_minutes" json:"every_minutes,omitempty"`
	Times        []string `yaml:"times" json:"times,omitempty"`
}

// RuleEntry sets exactly one of Amount or Percent. The scope is Date, or
// DaysFromToday, or Weekdays, optionally narrowed by Start and End.
type RuleEntry struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Amount        *int64   `yaml:"amount" json:"amount,omitempty"`
	Percent       string   `yaml:"percent" json:"percent,omitempty"`
	Target        string   `yaml:"target" json:"target,omitempty"`
	Date          string   `yaml:"date" json:"date,omitempty"`
	DaysFromToday *int     `yaml:"days_from_today" json:"days_from_today,omitempty"`
	Weekdays      []string `yaml:"weekdays" json:"weekdays,omitempty"`
	Start         string   `yaml:"start" json:"start,omitempty"`
	End           string   `yaml:"end" json:"end,omitempty"`
}

// BuildTenant converts a TenantFile into engine inputs and validates them.
func BuildTenant(f TenantFile, defaultCurrency string) (models.BusinessConfig, []pricing.Rule, error) {
	currency := f.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	cfg := models.BusinessConfig{Currency: currency}

	for i, h := range f.BusinessHours {
		period, err := periodOf(h.Start, h.End)
		if err != nil {
			return fail(fmt.Sprintf("business_hours[%d]", i), err)
		}
		for _, d := range h.Days {
			day, err := parseWeekday(d)
			if err != nil {
				return fail(fmt.Sprintf("business_hours[%d]", i), err)
			}
			cfg.Hours = append(cfg.Hours, models.BusinessHours{Day: day, Period: period})
		}
	}

	for i, b := range f.BlockedTime {
		date, err := calendar.ParseIsoDate(b.Date)
		if err != nil {
			return fail(fmt.Sprintf("blocked_time[%d]", i), err)
		}
		period, err := optionalPeriod(b.Start, b.End)
		if err != nil {
			return fail(fmt.Sprintf("blocked_time[%d]", i), err)
		}
		if period == (calendar.TimePeriod{}) {
			period = calendar.MustTimePeriod("00:00", "24:00")
		}
		cfg.Blocked = append(cfg.Blocked, models.BlockedTime{Date: date, Period: period})
	}

	for _, r := range f.Resources {
		res := models.Resource{
			ID:              models.ResourceID(r.ID),
			Name:            r.Name,
			Type:            models.NewResourceType(r.Type),
			DefaultCapacity: models.Capacity(r.Capacity),
		}
		for _, b := range r.Availability {
			date, err := calendar.ParseIsoDate(b.Date)
			if err != nil {
				return fail("resources["+r.ID+"]", err)
			}
			period, err := periodOf(b.Start, b.End)
			if err != nil {
				return fail("resources["+r.ID+"]", err)
			}
			capacity := b.Capacity
			if capacity == 0 {
				capacity = r.Capacity
			}
			if capacity == 0 {
				capacity = 1
			}
			res.Availability = append(res.Availability, models.AvailabilityBlock{
				When:     calendar.NewDayAndTimePeriod(date, period),
				Capacity: models.Capacity(capacity),
			})
		}
		cfg.Resources = append(cfg.Resources, res)
	}

	for _, a := range f.AddOns {
		cfg.AddOns = append(cfg.AddOns, models.AddOn{
			ID:               models.AddOnID(a.ID),
			Name:             a.Name,
			Price:            models.NewMoney(a.Price, currency),
			RequiresQuantity: a.RequiresQuantity,
		})
	}

	for _, ts := range f.Timeslots {
		period, err := periodOf(ts.Start, ts.End)
		if err != nil {
			return fail("timeslots["+ts.ID+"]", err)
		}
		cfg.Timeslots = append(cfg.Timeslots, models.TimeslotSpec{
			ID:          models.TimeslotID(ts.ID),
			Description: ts.Description,
			Slot:        period,
		})
	}

	cfg.StartTimes.Every = time.Duration(f.StartTimes.EveryMinutes) * time.Minute
	for _, s := range f.StartTimes.Times {
		t, err := calendar.ParseTime24(s)
		if err != nil {
			return fail("start_times", err)
		}
		cfg.StartTimes.Times = append(cfg.StartTimes.Times, t)
	}

	for _, s := range f.Services {
		svc, err := buildService(s, currency)
		if err != nil {
			return models.BusinessConfig{}, nil, err
		}
		cfg.Services = append(cfg.Services, svc)
	}

	if err := cfg.Validate(); err != nil {
		return models.BusinessConfig{}, nil, err
	}

	rules := make([]pricing.Rule, 0, len(f.PricingRules))
	for _, r := range f.PricingRules {
		rule, err := buildRule(r, currency)
		if err != nil {
			return models.BusinessConfig{}, nil, err
		}
		if err := rule.Validate(); err != nil {
			return models.BusinessConfig{}, nil, err
		}
		rules = append(rules, rule)
	}

	return cfg, rules, nil
}

func buildService(s ServiceEntry, currency string) (models.Service, error) {
	field := "services[" + s.ID + "]"
	slotting, err := models.ParseSlotting(s.Slotting)
	if err != nil {
		return models.Service{}, models.Precondition(field, "invalid slotting", err)
	}
	svc := models.Service{
		ID:       models.ServiceID(s.ID),
		Name:     s.Name,
		Duration: time.Duration(s.DurationMinutes) * time.Minute,
		Price:    models.NewMoney(s.Price, currency),
		Slotting: slotting,
	}
	for _, req := range s.Requirements {
		switch {
		case req.Resource != "" && req.Type != "":
			return models.Service{}, models.Precondition(field, "a requirement names a type or a resource, not both", nil)
		case req.Resource != "":
			svc.Requirements = append(svc.Requirements, models.Specific(models.ResourceID(req.Resource)))
		case req.Type != "":
			svc.Requirements = append(svc.Requirements, models.AnyOf(req.Type))
		default:
			return models.Service{}, models.Precondition(field, "empty resource requirement", nil)
		}
	}
	for _, id := range s.AddOns {
		svc.PermittedAddOns = append(svc.PermittedAddOns, models.AddOnID(id))
	}
	for _, o := range s.Options {
		svc.Options = append(svc.Options, models.ServiceOption{
			ID:       models.OptionID(o.ID),
			Name:     o.Name,
			Price:    models.NewMoney(o.Price, currency),
			Duration: time.Duration(o.DurationMinutes) * time.Minute,
		})
	}
	for _, st := range s.StartTimes {
		t, err := calendar.ParseTime24(st)
		if err != nil {
			return models.Service{}, models.Precondition(field, "invalid start time", err)
		}
		svc.StartTimes = append(svc.StartTimes, t)
	}
	return svc, nil
}

func buildRule(r RuleEntry, currency string) (pricing.Rule, error) {
	field := "pricing_rules[" + r.ID + "]"
	rule := pricing.Rule{ID: r.ID, Name: r.Name}

	switch {
	case r.Amount != nil && r.Percent != "":
		return pricing.Rule{}, models.Precondition(field, "set amount or percent, not both", nil)
	case r.Amount != nil:
		rule.Adjustment = pricing.Amount(*r.Amount, currency)
	case r.Percent != "":
		ratio, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(r.Percent), "%"))
		if err != nil {
			return pricing.Rule{}, models.Precondition(field, "invalid percent", err)
		}
		rule.Adjustment = pricing.PercentageAdjustment{Ratio: ratio.Shift(-2)}
	}

	target, err := pricing.ParseTarget(r.Target)
	if err != nil {
		return pricing.Rule{}, models.Precondition(field, "invalid target", err)
	}
	rule.Target = target

	period, err := optionalPeriod(r.Start, r.End)
	if err != nil {
		return pricing.Rule{}, models.Precondition(field, "invalid period", err)
	}

	switch {
	case r.Date != "":
		date, err := calendar.ParseIsoDate(r.Date)
		if err != nil {
			return pricing.Rule{}, models.Precondition(field, "invalid date", err)
		}
		if period == (calendar.TimePeriod{}) {
			period = calendar.MustTimePeriod("00:00", "24:00")
		}
		rule.Scope = pricing.WindowScope{When: calendar.NewDayAndTimePeriod(date, period)}
	case r.DaysFromToday != nil:
		rule.Scope = pricing.RelativeDayScope{DaysFromToday: *r.DaysFromToday, Period: period}
	case len(r.Weekdays) > 0:
		scope := pricing.WeekdayScope{Period: period}
		for _, d := range r.Weekdays {
			day, err := parseWeekday(d)
			if err != nil {
				return pricing.Rule{}, models.Precondition(field, "invalid weekday", err)
			}
			scope.Days = append(scope.Days, day)
		}
		rule.Scope = scope
	}
	return rule, nil
}

func periodOf(start, end string) (calendar.TimePeriod, error) {
	s, err := calendar.ParseTime24(start)
	if err != nil {
		return calendar.TimePeriod{}, err
	}
	e, err := calendar.ParseTime24(end)
	if err != nil {
		return calendar.TimePeriod{}, err
	}
	return calendar.NewTimePeriod(s, e)
}

// optionalPeriod is the zero period when both ends are empty.
func optionalPeriod(start, end string) (calendar.TimePeriod, error) {
	if start == "" && end == "" {
		return calendar.TimePeriod{}, nil
	}
	if start == "" {
		start = "00:00"
	}
	if end == "" {
		end = "24:00"
	}
	return periodOf(start, end)
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) >= 3 {
		if d, ok := weekdays[key[:3]]; ok {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

func fail(field string, err error) (models.BusinessConfig, []pricing.Rule, error) {
	return models.BusinessConfig{}, nil, models.Precondition(field, "invalid tenant configuration", err)
}

package models

import (
	"time"

	"breezbook/internal/calendar"
)

// BusinessHours opens the business on every Day of the week for Period.
type BusinessHours struct {
	Day    time.Weekday
	Period calendar.TimePeriod
}

// BlockedTime closes the business for Period on Date.
type BlockedTime struct {
	Date   calendar.IsoDate
	Period calendar.TimePeriod
}

// BusinessConfig is one tenant's fully loaded reference data.
type BusinessConfig struct {
	Hours      []BusinessHours
	Blocked    []BlockedTime
	Resources  []Resource
	Services   []Service
	AddOns     []AddOn
	Timeslots  []TimeslotSpec
	StartTimes StartTimeSpec
	Currency   string
}

func (c BusinessConfig) Service(id ServiceID) (Service, error) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, nil
		}
	}
	return Service{}, NotFound("service", id)
}

func (c BusinessConfig) Resource(id ResourceID) (Resource, error) {
	for _, r := range c.Resources {
		if r.ID == id {
			return r, nil
		}
	}
	return Resource{}, NotFound("resource", id)
}

func (c BusinessConfig) AddOn(id AddOnID) (AddOn, error) {
	for _, a := range c.AddOns {
		if a.ID == id {
			return a, nil
		}
	}
	return AddOn{}, NotFound("add-on", id)
}

func (c BusinessConfig) Timeslot(id TimeslotID) (TimeslotSpec, error) {
	for _, t := range c.Timeslots {
		if t.ID == id {
			return t, nil
		}
	}
	return TimeslotSpec{}, NotFound("timeslot", id)
}

// OpenPeriods is the business hours for day minus blocked time, ordered by
// start. Touching hours are joined into one window.
func (c BusinessConfig) OpenPeriods(day calendar.IsoDate) []calendar.DayAndTimePeriod {
	open := make([]calendar.DayAndTimePeriod, 0, 2)
	for _, h := range c.Hours {
		if h.Day == day.Weekday() {
			open = append(open, calendar.NewDayAndTimePeriod(day, h.Period))
		}
	}
	for _, b := range c.Blocked {
		if b.Date.Equal(day) {
			open = calendar.Subtract(open, calendar.NewDayAndTimePeriod(day, b.Period))
		}
	}
	return calendar.MergePeriods(open)
}

// Validate checks the reference data once before any computation uses it.
func (c BusinessConfig) Validate() error {
	for i, h := range c.Hours {
		if err := h.Period.Validate(); err != nil {
			return Precondition("business_hours["+h.Day.String()+"]", "invalid period", err)
		}
		for _, other := range c.Hours[i+1:] {
			if other.Day == h.Day && periodsOverlap(h.Period, other.Period) {
				return Precondition("business_hours["+h.Day.String()+"]", "overlapping opening hours", nil)
			}
		}
	}
	for _, b := range c.Blocked {
		if err := b.Period.Validate(); err != nil {
			return Precondition("blocked_time["+b.Date.String()+"]", "invalid period", err)
		}
	}
	for _, t := range c.Timeslots {
		if err := t.Slot.Validate(); err != nil {
			return Precondition("timeslots["+string(t.ID)+"]", "invalid slot", err)
		}
	}
	if c.StartTimes.Every < 0 {
		return Precondition("start_times.every", "must not be negative", nil)
	}

	seenResources := make(map[ResourceID]bool, len(c.Resources))
	for _, r := range c.Resources {
		if err := r.Validate(); err != nil {
			return err
		}
		if seenResources[r.ID] {
			return Precondition("resources["+string(r.ID)+"]", "duplicate resource id", nil)
		}
		seenResources[r.ID] = true
	}

	seenServices := make(map[ServiceID]bool, len(c.Services))
	for _, s := range c.Services {
		field := "services[" + string(s.ID) + "]"
		if s.ID == "" {
			return Precondition("services", "service id is required", nil)
		}
		if seenServices[s.ID] {
			return Precondition(field, "duplicate service id", nil)
		}
		seenServices[s.ID] = true
		if s.Slotting == SlotByExactTime && s.Duration <= 0 {
			return Precondition(field, "duration must be positive", nil)
		}
		if s.Price.Amount < 0 {
			return Precondition(field, "price must not be negative", nil)
		}
		for _, req := range s.Requirements {
			switch r := req.(type) {
			case AnySuitableResource:
				if r.Type.Name == "" {
					return Precondition(field, "resource type is required", nil)
				}
			case SpecificResource:
				if !seenResources[r.ResourceID] {
					return Precondition(field, "requires unknown resource", NotFound("resource", r.ResourceID))
				}
			default:
				return Precondition(field, "unsupported resource requirement", nil)
			}
		}
		for _, id := range s.PermittedAddOns {
			if _, err := c.AddOn(id); err != nil {
				return Precondition(field, "permits unknown add-on", err)
			}
		}
	}
	return nil
}

func periodsOverlap(a, b calendar.TimePeriod) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Package availability derives the bookable slots of a service from business
// hours, blocked time, resource availability and bookings already taken.
package availability

import (
	"sort"
	"time"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
	"breezbook/internal/resourcing"
)

// Slot is a start point that resolved against the resource pool.
type Slot struct {
	Day               calendar.IsoDate
	Start             models.BookingStart
	Period            calendar.DayAndTimePeriod
	Allocations       []resourcing.Allocation
	TotalCapacity     models.Capacity
	RemainingCapacity models.Capacity
}

// DayAvailability holds the slots of one date. Slots is empty when nothing is bookable.
type DayAvailability struct {
	Date  calendar.IsoDate
	Slots []Slot
}

// Result is the availability of a service over a date range.
// Unresourceable lists existing bookings that no longer fit the pool.
type Result struct {
	ServiceID      models.ServiceID
	Days           []DayAvailability
	Unresourceable []resourcing.Unavailable
}

// SlotCount is the number of slots across all days.
func (r Result) SlotCount() int {
	n := 0
	for _, d := range r.Days {
		n += len(d.Slots)
	}
	return n
}

// Query selects the service, the inclusive date range and the options that extend the duration.
type Query struct {
	ServiceID models.ServiceID
	From      calendar.IsoDate
	To        calendar.IsoDate
	Options   []models.OptionOrder
}

// Calculate is CalculateFor without service options.
func Calculate(cfg models.BusinessConfig, existing []models.Booking, serviceID models.ServiceID, from, to calendar.IsoDate) (Result, error) {
	return CalculateFor(cfg, existing, Query{ServiceID: serviceID, From: from, To: to})
}

// CalculateFor folds existing bookings, in the order given, into a ledger of
// the resources fitted to the open windows of [From, To], then checks every
// candidate start against that ledger on its own.
func CalculateFor(cfg models.BusinessConfig, existing []models.Booking, q Query) (Result, error) {
	if q.From.After(q.To) {
		return Result{}, models.Precondition("from", "must not be after to ("+q.From.String()+" > "+q.To.String()+")", nil)
	}
	svc, err := cfg.Service(q.ServiceID)
	if err != nil {
		return Result{}, err
	}
	duration, err := svc.DurationWith(q.Options)
	if err != nil {
		return Result{}, err
	}

	dates := calendar.DatesBetween(q.From, q.To)
	open := openWindows(cfg, dates)

	ledger, unresourceable, err := steadyState(cfg, existing, open)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		ServiceID:      svc.ID,
		Days:           make([]DayAvailability, 0, len(dates)),
		Unresourceable: unresourceable,
	}
	for _, date := range dates {
		day := DayAvailability{Date: date, Slots: []Slot{}}
		for _, c := range candidates(cfg, svc, duration, open[date]) {
			outcome, err := resourcing.CheckAvailability(ledger, resourcing.Request{
				Ref:          c.period.String(),
				Period:       c.period,
				Requirements: svc.Requirements,
			})
			if err != nil {
				return Result{}, err
			}
			available, ok := outcome.(resourcing.Available)
			if !ok {
				continue
			}
			day.Slots = append(day.Slots, Slot{
				Day:               date,
				Start:             c.start,
				Period:            c.period,
				Allocations:       available.Allocations,
				TotalCapacity:     available.TotalCapacity,
				RemainingCapacity: available.RemainingCapacity,
			})
		}
		result.Days = append(result.Days, day)
	}
	return result, nil
}

// CheckBooking decides whether one booking still fits next to existing.
// A booking outside opening hours is Unavailable with no unsatisfied requirements.
// An existing booking with the same ID is ignored.
func CheckBooking(cfg models.BusinessConfig, existing []models.Booking, booking models.Booking) (resourcing.Outcome, error) {
	svc, err := cfg.Service(booking.ServiceID)
	if err != nil {
		return nil, err
	}
	booking, err = resolveStart(cfg, booking)
	if err != nil {
		return nil, err
	}
	period, err := models.BookingPeriod(booking, svc)
	if err != nil {
		return nil, err
	}

	open := openWindows(cfg, []calendar.IsoDate{booking.Date})
	others := make([]models.Booking, 0, len(existing))
	for _, b := range existing {
		if booking.ID != "" && b.ID == booking.ID {
			continue
		}
		others = append(others, b)
	}
	ledger, _, err := steadyState(cfg, others, open)
	if err != nil {
		return nil, err
	}

	request := resourcing.Request{Ref: string(booking.ID), Period: period, Requirements: svc.Requirements}
	if !withinAny(open[booking.Date], period) {
		return resourcing.Unavailable{Request: request}, nil
	}
	return resourcing.CheckAvailability(ledger, request)
}

// FitAvailability restricts a resource to the open windows. A resource with no
// availability of its own follows the windows at its open capacity.
func FitAvailability(r models.Resource, open []calendar.DayAndTimePeriod) models.Resource {
	fitted := r
	fitted.Availability = nil

	if len(r.Availability) == 0 {
		for _, w := range open {
			fitted.Availability = append(fitted.Availability, models.AvailabilityBlock{When: w, Capacity: r.OpenCapacity()})
		}
		return fitted
	}
	for _, block := range r.Availability {
		for _, w := range open {
			if span, ok := calendar.Intersection(block.When, w); ok {
				fitted.Availability = append(fitted.Availability, models.AvailabilityBlock{When: span, Capacity: block.Capacity})
			}
		}
	}
	return fitted
}

func openWindows(cfg models.BusinessConfig, dates []calendar.IsoDate) map[calendar.IsoDate][]calendar.DayAndTimePeriod {
	open := make(map[calendar.IsoDate][]calendar.DayAndTimePeriod, len(dates))
	for _, d := range dates {
		open[d] = cfg.OpenPeriods(d)
	}
	return open
}

// steadyState seeds the ledger for the open dates and folds in the live
// bookings that fall on them.
func steadyState(cfg models.BusinessConfig, existing []models.Booking, open map[calendar.IsoDate][]calendar.DayAndTimePeriod) (resourcing.Ledger, []resourcing.Unavailable, error) {
	var windows []calendar.DayAndTimePeriod
	for _, w := range open {
		windows = append(windows, w...)
	}
	calendar.SortPeriods(windows)

	fitted := make([]models.Resource, 0, len(cfg.Resources))
	for _, r := range cfg.Resources {
		fitted = append(fitted, FitAvailability(r, windows))
	}
	ledger, err := resourcing.NewLedger(fitted)
	if err != nil {
		return resourcing.Ledger{}, nil, err
	}

	requests := make([]resourcing.Request, 0, len(existing))
	for _, b := range existing {
		if b.Status == models.StatusCancelled {
			continue
		}
		if _, ok := open[b.Date]; !ok {
			continue
		}
		svc, err := cfg.Service(b.ServiceID)
		if err != nil {
			return resourcing.Ledger{}, nil, err
		}
		b, err = resolveStart(cfg, b)
		if err != nil {
			return resourcing.Ledger{}, nil, err
		}
		period, err := models.BookingPeriod(b, svc)
		if err != nil {
			return resourcing.Ledger{}, nil, err
		}
		requests = append(requests, resourcing.Request{Ref: string(b.ID), Period: period, Requirements: svc.Requirements})
	}

	ledger, outcomes, err := resourcing.ResourceBookings(ledger, requests)
	if err != nil {
		return resourcing.Ledger{}, nil, err
	}
	var unresourceable []resourcing.Unavailable
	for _, o := range outcomes {
		if u, ok := o.(resourcing.Unavailable); ok {
			unresourceable = append(unresourceable, u)
		}
	}
	return ledger, unresourceable, nil
}

// resolveStart replaces a timeslot reference by the tenant's definition of it.
func resolveStart(cfg models.BusinessConfig, b models.Booking) (models.Booking, error) {
	slot, ok := b.Start.(models.TimeslotSpec)
	if !ok || slot.ID == "" {
		return b, nil
	}
	spec, err := cfg.Timeslot(slot.ID)
	if err != nil {
		return b, err
	}
	b.Start = spec
	return b, nil
}

type candidate struct {
	start  models.BookingStart
	period calendar.DayAndTimePeriod
}

// candidates enumerates the start points of svc that fit inside a window,
// ordered by start and without duplicates.
func candidates(cfg models.BusinessConfig, svc models.Service, duration time.Duration, windows []calendar.DayAndTimePeriod) []candidate {
	var out []candidate
	seen := make(map[calendar.DayAndTimePeriod]bool)
	add := func(start models.BookingStart, period calendar.DayAndTimePeriod) {
		if seen[period] || !withinAny(windows, period) {
			return
		}
		seen[period] = true
		out = append(out, candidate{start: start, period: period})
	}

	for _, w := range windows {
		if svc.Slotting == models.SlotByTimeslot {
			for _, ts := range cfg.Timeslots {
				add(ts, calendar.NewDayAndTimePeriod(w.Day, ts.Slot))
			}
			continue
		}
		for _, t := range startTimes(cfg, svc, w) {
			period, err := models.ExactPeriod(w.Day, t, duration)
			if err != nil {
				continue
			}
			add(models.ExactTimeAvailability{Time: t}, period)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].period.StartInstant() < out[j].period.StartInstant()
	})
	return out
}

// startTimes lists exact start times for one window: the service's own times,
// else the tenant's discrete times, else one every interval from the window opening.
func startTimes(cfg models.BusinessConfig, svc models.Service, w calendar.DayAndTimePeriod) []calendar.Time24 {
	if len(svc.StartTimes) > 0 {
		return svc.StartTimes
	}
	if !cfg.StartTimes.Periodic() && len(cfg.StartTimes.Times) > 0 {
		return cfg.StartTimes.Times
	}
	every := cfg.StartTimes.Every
	if every < time.Minute {
		every = models.DefaultStartInterval * time.Minute
	}
	var times []calendar.Time24
	for t := w.Period.Start; t.Before(w.Period.End); t = t.Add(every) {
		times = append(times, t)
	}
	return times
}

func withinAny(windows []calendar.DayAndTimePeriod, period calendar.DayAndTimePeriod) bool {
	for _, w := range windows {
		if calendar.Covers(w, period) {
			return true
		}
	}
	return false
}

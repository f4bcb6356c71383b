package models

import (
	"time"

	"breezbook/internal/calendar"
)

// Booking is a committed, read-only reservation of a service.
type Booking struct {
	ID         BookingID
	TenantID   TenantID
	CustomerID CustomerID
	ServiceID  ServiceID
	Date       calendar.IsoDate
	Start      BookingStart
	AddOns     []AddOnOrder
	Options    []OptionOrder
	Status     string
	CreatedAt  time.Time
	Version    int64
}

// BookingPeriod derives the span a booking occupies: the timeslot range, or the
// exact start plus the service (and option) duration.
func BookingPeriod(b Booking, svc Service) (calendar.DayAndTimePeriod, error) {
	switch start := b.Start.(type) {
	case TimeslotSpec:
		if err := start.Slot.Validate(); err != nil {
			return calendar.DayAndTimePeriod{}, Precondition("timeslot["+string(start.ID)+"]", "invalid slot", err)
		}
		return calendar.NewDayAndTimePeriod(b.Date, start.Slot), nil
	case ExactTimeAvailability:
		duration, err := svc.DurationWith(b.Options)
		if err != nil {
			return calendar.DayAndTimePeriod{}, err
		}
		return ExactPeriod(b.Date, start.Time, duration)
	default:
		return calendar.DayAndTimePeriod{}, Precondition("booking["+string(b.ID)+"]", "booking has no start", nil)
	}
}

// ExactPeriod is [start, start+duration) on day. It must end by midnight.
func ExactPeriod(day calendar.IsoDate, start calendar.Time24, duration time.Duration) (calendar.DayAndTimePeriod, error) {
	if duration <= 0 {
		return calendar.DayAndTimePeriod{}, Precondition("duration", "must be positive", nil)
	}
	period, err := calendar.NewTimePeriod(start, start.Add(duration))
	if err != nil {
		return calendar.DayAndTimePeriod{}, Precondition("start_time", "slot does not fit in a day", err)
	}
	return calendar.NewDayAndTimePeriod(day, period), nil
}

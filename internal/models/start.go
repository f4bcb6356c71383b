package models

import (
	"time"

	"breezbook/internal/calendar"
)

// BookingStart says when a slot begins: a named TimeslotSpec or an ExactTimeAvailability.
type BookingStart interface {
	StartTime() calendar.Time24
	isBookingStart()
}

// TimeslotSpec is a fixed, named time range such as 09:00-13:00.
type TimeslotSpec struct {
	ID          TimeslotID
	Description string
	Slot        calendar.TimePeriod
}

// ExactTimeAvailability is a single start instant; the service duration gives the end.
type ExactTimeAvailability struct {
	Time calendar.Time24
}

func (t TimeslotSpec) StartTime() calendar.Time24          { return t.Slot.Start }
func (e ExactTimeAvailability) StartTime() calendar.Time24 { return e.Time }

func (TimeslotSpec) isBookingStart()          {}
func (ExactTimeAvailability) isBookingStart() {}

func ExactTime(t string) ExactTimeAvailability {
	return ExactTimeAvailability{Time: calendar.MustParseTime24(t)}
}

// StartTimeSpec is the tenant default for exact-time services: either a start every
// Every from the opening of each window, or the discrete Times.
type StartTimeSpec struct {
	Every time.Duration
	Times []calendar.Time24
}

// Periodic reports whether starts are generated at a fixed interval.
func (s StartTimeSpec) Periodic() bool { return s.Every > 0 }

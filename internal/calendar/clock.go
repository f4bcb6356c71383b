package calendar

import "time"

// Clock supplies the current instant. Callers own it; the engines never read time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today is the calendar day of clock's instant in loc.
func Today(clock Clock, loc *time.Location) IsoDate {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return IsoDateOf(clock.Now().In(loc))
}

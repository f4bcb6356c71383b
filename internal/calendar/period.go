package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPeriod marks a period whose start is not strictly before its end.
var ErrInvalidPeriod = errors.New("calendar: invalid period")

// PeriodError describes which period was rejected.
type PeriodError struct {
	Start Time24
	End   Time24
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("calendar: invalid period %s-%s: start must be before end", e.Start, e.End)
}

func (e *PeriodError) Unwrap() error { return ErrInvalidPeriod }

// TimePeriod is a same-day span [Start, End).
type TimePeriod struct {
	Start Time24 `json:"start" yaml:"start"`
	End   Time24 `json:"end" yaml:"end"`
}

func NewTimePeriod(start, end Time24) (TimePeriod, error) {
	p := TimePeriod{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return TimePeriod{}, err
	}
	return p, nil
}

// MustTimePeriod parses "HH:MM", "HH:MM" and panics on bad input.
func MustTimePeriod(start, end string) TimePeriod {
	p, err := NewTimePeriod(MustParseTime24(start), MustParseTime24(end))
	if err != nil {
		panic(err)
	}
	return p
}

// ParseTimePeriod parses "HH:MM-HH:MM".
func ParseTimePeriod(s string) (TimePeriod, error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return TimePeriod{}, fmt.Errorf("invalid period %q: expected HH:MM-HH:MM", s)
	}
	start, err := ParseTime24(a)
	if err != nil {
		return TimePeriod{}, err
	}
	end, err := ParseTime24(b)
	if err != nil {
		return TimePeriod{}, err
	}
	return NewTimePeriod(start, end)
}

func (p TimePeriod) Validate() error {
	if !p.Start.Valid() || !p.End.Valid() || !p.Start.Before(p.End) {
		return &PeriodError{Start: p.Start, End: p.End}
	}
	return nil
}

func (p TimePeriod) Duration() time.Duration {
	return time.Duration(p.End.Minutes()-p.Start.Minutes()) * time.Minute
}

// Contains reports whether t falls in [Start, End).
func (p TimePeriod) Contains(t Time24) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p TimePeriod) String() string {
	return p.Start.String() + "-" + p.End.String()
}

// DayAndTimePeriod is the unit of scheduling: a period on a concrete day.
type DayAndTimePeriod struct {
	Day    IsoDate    `json:"day" yaml:"day"`
	Period TimePeriod `json:"period" yaml:"period"`
}

func NewDayAndTimePeriod(day IsoDate, period TimePeriod) DayAndTimePeriod {
	return DayAndTimePeriod{Day: day, Period: period}
}

func (p DayAndTimePeriod) Validate() error {
	return p.Period.Validate()
}

// StartInstant is the start as absolute minutes since 1970-01-01 00:00.
func (p DayAndTimePeriod) StartInstant() int64 {
	return p.Day.Ordinal()*MinutesPerDay + int64(p.Period.Start.Minutes())
}

// EndInstant is the end as absolute minutes since 1970-01-01 00:00.
func (p DayAndTimePeriod) EndInstant() int64 {
	return p.Day.Ordinal()*MinutesPerDay + int64(p.Period.End.Minutes())
}

func (p DayAndTimePeriod) Duration() time.Duration {
	return p.Period.Duration()
}

func (p DayAndTimePeriod) String() string {
	return p.Day.String() + " " + p.Period.String()
}

// withPeriod keeps the day and swaps the time span.
func (p DayAndTimePeriod) withPeriod(start, end Time24) DayAndTimePeriod {
	return DayAndTimePeriod{Day: p.Day, Period: TimePeriod{Start: start, End: end}}
}

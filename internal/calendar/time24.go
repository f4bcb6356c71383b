package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds Time24; 24:00 is allowed as the end of a day.
const MinutesPerDay = 24 * 60

// Time24 is a wall clock time of day with minute resolution.
type Time24 struct {
	minutes int
}

func NewTime24(hour, minute int) Time24 {
	return Time24{minutes: hour*60 + minute}
}

// Time24FromMinutes builds a Time24 from minutes since midnight.
func Time24FromMinutes(m int) Time24 {
	return Time24{minutes: m}
}

// ParseTime24 parses HH:MM on a 24 hour clock. "24:00" is accepted.
func ParseTime24(s string) (Time24, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return Time24{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return Time24{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return Time24{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return Time24{}, fmt.Errorf("invalid time %q: out of range", s)
	}
	return NewTime24(h, m), nil
}

// MustParseTime24 is ParseTime24 for literals.
func MustParseTime24(s string) Time24 {
	t, err := ParseTime24(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Time24) Minutes() int { return t.minutes }
func (t Time24) Hour() int    { return t.minutes / 60 }
func (t Time24) Minute() int  { return t.minutes % 60 }

// Valid reports whether t lies within 00:00..24:00.
func (t Time24) Valid() bool { return t.minutes >= 0 && t.minutes <= MinutesPerDay }

func (t Time24) AddMinutes(n int) Time24 { return Time24{minutes: t.minutes + n} }

// Add moves t by d truncated to whole minutes.
func (t Time24) Add(d time.Duration) Time24 { return t.AddMinutes(int(d / time.Minute)) }

func (t Time24) Compare(other Time24) int {
	switch {
	case t.minutes < other.minutes:
		return -1
	case t.minutes > other.minutes:
		return 1
	default:
		return 0
	}
}

func (t Time24) Before(other Time24) bool { return t.minutes < other.minutes }
func (t Time24) After(other Time24) bool  { return t.minutes > other.minutes }

func (t Time24) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t Time24) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Time24) UnmarshalText(text []byte) error {
	parsed, err := ParseTime24(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MinTime24 returns the earlier of a and b.
func MinTime24(a, b Time24) Time24 {
	if a.Before(b) {
		return a
	}
	return b
}

// MaxTime24 returns the later of a and b.
func MaxTime24(a, b Time24) Time24 {
	if a.After(b) {
		return a
	}
	return b
}

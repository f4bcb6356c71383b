package calendar

import (
	"fmt"
	"time"
)

const isoDateLayout = "2006-01-02"

// IsoDate is a calendar day without a time of day or a zone.
type IsoDate struct {
	year  int
	month time.Month
	day   int
}

// NewIsoDate normalizes out-of-range values the same way time.Date does.
func NewIsoDate(year int, month time.Month, day int) IsoDate {
	return IsoDateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// IsoDateOf takes the calendar day of t in t's own location.
func IsoDateOf(t time.Time) IsoDate {
	y, m, d := t.Date()
	return IsoDate{year: y, month: m, day: d}
}

// ParseIsoDate parses YYYY-MM-DD.
func ParseIsoDate(s string) (IsoDate, error) {
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return IsoDate{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return IsoDateOf(t), nil
}

// MustParseIsoDate is ParseIsoDate for literals in tests and fixtures.
func MustParseIsoDate(s string) IsoDate {
	d, err := ParseIsoDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d IsoDate) Year() int         { return d.year }
func (d IsoDate) Month() time.Month { return d.month }
func (d IsoDate) Day() int          { return d.day }

// IsZero reports whether d was never set.
func (d IsoDate) IsZero() bool { return d.year == 0 && d.month == 0 && d.day == 0 }

func (d IsoDate) midnight() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Ordinal is the number of days since 1970-01-01.
func (d IsoDate) Ordinal() int64 {
	return d.midnight().Unix() / 86400
}

func (d IsoDate) Weekday() time.Weekday { return d.midnight().Weekday() }

func (d IsoDate) AddDays(n int) IsoDate {
	return IsoDateOf(d.midnight().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d IsoDate) Compare(other IsoDate) int {
	a, b := d.Ordinal(), other.Ordinal()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d IsoDate) Before(other IsoDate) bool { return d.Compare(other) < 0 }
func (d IsoDate) After(other IsoDate) bool  { return d.Compare(other) > 0 }
func (d IsoDate) Equal(other IsoDate) bool  { return d.Compare(other) == 0 }

// At places the date and a wall clock time into loc.
func (d IsoDate) At(t Time24, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.year, d.month, d.day, 0, t.Minutes(), 0, 0, loc)
}

func (d IsoDate) String() string {
	return d.midnight().Format(isoDateLayout)
}

func (d IsoDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *IsoDate) UnmarshalText(text []byte) error {
	parsed, err := ParseIsoDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DatesBetween lists every day in [from, to]. It returns nil when from is after to.
func DatesBetween(from, to IsoDate) []IsoDate {
	if from.After(to) {
		return nil
	}
	days := make([]IsoDate, 0, to.Ordinal()-from.Ordinal()+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

package calendar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = MustParseIsoDate("2021-05-24")

func p(start, end string) DayAndTimePeriod {
	return NewDayAndTimePeriod(day, MustTimePeriod(start, end))
}

func TestOverlapsAndIntersects(t *testing.T) {
	tests := []struct {
		name       string
		a, b       DayAndTimePeriod
		overlaps   bool
		intersects bool
	}{
		{"disjoint", p("09:00", "10:00"), p("11:00", "12:00"), false, false},
		{"touching", p("09:00", "10:00"), p("10:00", "11:00"), false, true},
		{"partial", p("09:00", "10:30"), p("10:00", "11:00"), true, true},
		{"contained", p("09:00", "18:00"), p("10:00", "11:00"), true, true},
		{"identical", p("09:00", "10:00"), p("09:00", "10:00"), true, true},
		{"other day", p("09:00", "10:00"), NewDayAndTimePeriod(day.AddDays(1), MustTimePeriod("09:00", "10:00")), false, false},
		{"midnight", p("00:00", "24:00"), NewDayAndTimePeriod(day.AddDays(1), MustTimePeriod("00:00", "02:00")), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.overlaps, Overlaps(tt.b, tt.a))
			assert.Equal(t, tt.intersects, Intersects(tt.a, tt.b))
			assert.Equal(t, tt.intersects, Intersects(tt.b, tt.a))
		})
	}
}

func TestIntersection(t *testing.T) {
	got, ok := Intersection(p("09:00", "12:00"), p("11:00", "14:00"))
	require.True(t, ok)
	assert.Equal(t, p("11:00", "12:00"), got)

	_, ok = Intersection(p("09:00", "10:00"), p("10:00", "11:00"))
	assert.False(t, ok)
}

func TestSplitPeriod(t *testing.T) {
	period := p("09:00", "18:00")

	tests := []struct {
		name        string
		cut         DayAndTimePeriod
		without     []DayAndTimePeriod
		withCut     []DayAndTimePeriod
		cutOverlaps bool
	}{
		{
			name:        "interior",
			cut:         p("10:00", "11:00"),
			without:     []DayAndTimePeriod{p("09:00", "10:00"), p("11:00", "18:00")},
			withCut:     []DayAndTimePeriod{p("09:00", "10:00"), p("10:00", "11:00"), p("11:00", "18:00")},
			cutOverlaps: true,
		},
		{
			name:        "left edge",
			cut:         p("08:00", "11:00"),
			without:     []DayAndTimePeriod{p("11:00", "18:00")},
			withCut:     []DayAndTimePeriod{p("09:00", "11:00"), p("11:00", "18:00")},
			cutOverlaps: true,
		},
		{
			name:        "right edge",
			cut:         p("17:00", "19:00"),
			without:     []DayAndTimePeriod{p("09:00", "17:00")},
			withCut:     []DayAndTimePeriod{p("09:00", "17:00"), p("17:00", "18:00")},
			cutOverlaps: true,
		},
		{
			name:        "full cover",
			cut:         p("08:00", "19:00"),
			without:     []DayAndTimePeriod{},
			withCut:     []DayAndTimePeriod{p("09:00", "18:00")},
			cutOverlaps: true,
		},
		{
			name:    "no overlap",
			cut:     p("18:00", "19:00"),
			without: []DayAndTimePeriod{period},
			withCut: []DayAndTimePeriod{period},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			without := SplitPeriod(period, tt.cut, false)
			withCut := SplitPeriod(period, tt.cut, true)
			assert.Equal(t, tt.without, without)
			assert.Equal(t, tt.withCut, withCut)
			if tt.cutOverlaps {
				assert.Len(t, withCut, len(without)+1)
			}
		})
	}
}

func TestSplitPeriodPartitionsThePeriod(t *testing.T) {
	period := p("09:00", "18:00")
	cuts := []DayAndTimePeriod{
		p("09:00", "09:30"), p("09:15", "17:45"), p("12:00", "18:00"),
		p("06:00", "10:00"), p("17:59", "23:00"), p("09:00", "18:00"),
	}

	for _, cut := range cuts {
		t.Run(cut.String(), func(t *testing.T) {
			segments := SplitPeriod(period, cut, true)
			var total int64
			for i, seg := range segments {
				require.NoError(t, seg.Validate())
				assert.True(t, Covers(period, seg))
				total += seg.EndInstant() - seg.StartInstant()
				for _, other := range segments[i+1:] {
					assert.False(t, Overlaps(seg, other))
				}
				if i > 0 {
					assert.True(t, Sequential(segments[i-1], seg))
				}
			}
			assert.Equal(t, period.EndInstant()-period.StartInstant(), total)
		})
	}
}

func TestSequential(t *testing.T) {
	assert.True(t, Sequential(p("09:00", "10:00"), p("10:00", "11:00")))
	assert.False(t, Sequential(p("10:00", "11:00"), p("09:00", "10:00")))
	assert.False(t, Sequential(p("09:00", "10:00"), NewDayAndTimePeriod(day.AddDays(1), MustTimePeriod("10:00", "11:00"))))
}

func TestSubtract(t *testing.T) {
	open := []DayAndTimePeriod{p("09:00", "12:00"), p("13:00", "17:00")}
	got := Subtract(open, p("11:00", "14:00"))
	assert.Equal(t, []DayAndTimePeriod{p("09:00", "11:00"), p("14:00", "17:00")}, got)
}

func TestMergePeriods(t *testing.T) {
	tomorrow := NewDayAndTimePeriod(day.AddDays(1), MustTimePeriod("00:00", "02:00"))

	t.Run("JoinsTouchingAndOverlapping", func(t *testing.T) {
		got := MergePeriods([]DayAndTimePeriod{p("12:00", "14:00"), p("09:00", "12:00"), p("13:00", "18:00")})
		assert.Equal(t, []DayAndTimePeriod{p("09:00", "18:00")}, got)
	})

	t.Run("KeepsGapsAndDays", func(t *testing.T) {
		got := MergePeriods([]DayAndTimePeriod{tomorrow, p("13:00", "18:00"), p("22:00", "24:00"), p("09:00", "12:00")})
		assert.Equal(t, []DayAndTimePeriod{p("09:00", "12:00"), p("13:00", "18:00"), p("22:00", "24:00"), tomorrow}, got)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, MergePeriods(nil))
	})
}

func TestTimePeriodValidate(t *testing.T) {
	_, err := NewTimePeriod(MustParseTime24("10:00"), MustParseTime24("10:00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	var periodErr *PeriodError
	require.ErrorAs(t, err, &periodErr)
	assert.Equal(t, "10:00", periodErr.Start.String())

	_, err = ParseTimePeriod("13:00-09:00")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	got, err := ParseTimePeriod("09:00-13:00")
	require.NoError(t, err)
	assert.Equal(t, 240, int(got.Duration().Minutes()))
}

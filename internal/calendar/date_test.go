package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsoDate(t *testing.T) {
	d, err := ParseIsoDate("2021-05-24")
	require.NoError(t, err)

	assert.Equal(t, "2021-05-24", d.String())
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "2021-06-01", d.AddDays(8).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.True(t, d.Equal(NewIsoDate(2021, time.May, 24)))

	_, err = ParseIsoDate("24/05/2021")
	assert.Error(t, err)
}

func TestDatesBetween(t *testing.T) {
	from := MustParseIsoDate("2021-05-30")
	to := MustParseIsoDate("2021-06-02")

	days := DatesBetween(from, to)
	require.Len(t, days, 4)
	assert.Equal(t, "2021-05-31", days[1].String())
	assert.Equal(t, to, days[3])

	assert.Len(t, DatesBetween(from, from), 1)
	assert.Nil(t, DatesBetween(to, from))
}

func TestTime24(t *testing.T) {
	tm, err := ParseTime24("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, tm.Minutes())
	assert.Equal(t, "11:00", tm.Add(90*time.Minute).String())

	end, err := ParseTime24("24:00")
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, end.Minutes())

	for _, bad := range []string{"9", "25:00", "10:60", "24:01", "ab:cd", ""} {
		_, err := ParseTime24(bad)
		assert.Error(t, err, bad)
	}
}

func TestTextRoundTripInJSON(t *testing.T) {
	in := p("09:00", "11:00")
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2021-05-24","period":{"start":"09:00","end":"11:00"}}`, string(raw))

	var out DayAndTimePeriod
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestToday(t *testing.T) {
	clock := FixedClock{At: time.Date(2021, 5, 24, 23, 30, 0, 0, time.UTC)}
	assert.Equal(t, "2021-05-24", Today(clock, time.UTC).String())

	plusTwo := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2021-05-25", Today(clock, plusTwo).String())
}

package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Monday))
	assert.Equal(t, Saturday, WeekdayOf(time.Saturday))
	assert.Equal(t, Sunday, WeekdayOf(time.Sunday))
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", At(9, 0), false},
		{"9:30", At(9, 30), false},
		{"00:00", 0, false},
		{"24:00", MinutesPerDay, false},
		{"24:30", 0, true},
		{"12:60", 0, true},
		{"1200", 0, true},
		{"ab:cd", 0, true},
		{"12:5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_WeekdayAndThrough(t *testing.T) {
	monday := NewDate(2026, time.January, 5)
	assert.Equal(t, Monday, monday.Weekday())

	days := monday.Through(monday.AddDays(6))
	require.Len(t, days, 7)
	assert.Equal(t, Sunday, days[6].Weekday())
	assert.Nil(t, monday.Through(monday.AddDays(-1)))
}

func TestDate_AddDaysAcrossMonth(t *testing.T) {
	d := NewDate(2026, time.January, 31).AddDays(1)
	assert.Equal(t, NewDate(2026, time.February, 1), d)
	assert.Equal(t, "2026-02-01", d.String())
}

func TestDate_At(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got := NewDate(2026, time.March, 2).At(At(9, 30), loc)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, loc, got.Location())
}

func TestWeeklyAvailability_JSONUsesCanonicalNames(t *testing.T) {
	w := WeeklyAvailability{Days: map[Weekday]DayAvailability{
		Monday: {IsAvailable: true, StartTime: At(9, 0), EndTime: At(17, 0)},
	}}

	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"monday":{"is_available":true,"start_time":"09:00","end_time":"17:00"}`)

	var decoded WeeklyAvailability
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, w.Days, decoded.Days)
}

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockNormalizes(t *testing.T) {
	minute, normalized, err := ParseClock("9:05")
	require.NoError(t, err)
	assert.Equal(t, 9*60+5, minute)
	assert.Equal(t, "09:05", normalized)

	for _, bad := range []string{"", "24:00", "12:60", "12-00", "1200", "ab:cd", "12:5", "+1:00"} {
		_, _, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidClockTime, "input %q", bad)
	}
}

func TestShiftClockWrapsMidnight(t *testing.T) {
	got, err := ShiftClock("20:00", -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "19:00", got)

	got, err = ShiftClock("00:30", -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "23:30", got)
}

func TestDayBoundsInclusive(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, Location())
	start, end := DayBounds(now)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, Location()), start)
	assert.Equal(t, 14, end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.True(t, end.Add(time.Nanosecond).Equal(start.AddDate(0, 0, 1)))
}

func TestOccurrenceExactMinute(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, Location())
	at, day, due, err := Occurrence(now, "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, "2025-03-14", day)
	assert.True(t, at.Equal(now))

	_, _, due, err = Occurrence(now.Add(time.Minute), "09:00", time.Minute)
	require.NoError(t, err)
	assert.False(t, due, "one-minute window must not match the next minute")
}

func TestOccurrenceCatchUpWindow(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 7, 30, 0, Location())
	_, day, due, err := Occurrence(now, "09:00", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, "2025-03-14", day)

	_, _, due, err = Occurrence(now, "09:10", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, due, "future occurrence is not due")
}

func TestOccurrenceAcrossMidnightBelongsToPreviousDay(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 3, 0, 0, Location())
	_, day, due, err := Occurrence(now, "23:58", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, "2025-03-14", day)
}

func TestOccurrenceUsesBotLocation(t *testing.T) {
	// 06:00 UTC is 09:00 in Moscow.
	now := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	_, _, due, err := Occurrence(now, "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, "2025-03-14", DayKey(now))
}

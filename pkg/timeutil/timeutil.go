// Package timeutil holds the bot's single time frame: every "now", calendar day
// and HH:MM comparison is taken in one fixed location regardless of the host TZ.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ClockLayout = "15:04"
	DateLayout  = "02.01.2006"
	DayLayout   = "2006-01-02"

	minutesPerDay = 24 * 60
)

var ErrInvalidClockTime = errors.New("invalid clock time")

var (
	locMu    sync.RWMutex
	location = mustLoad("Europe/Moscow")
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// tzdata missing on the host; Moscow has no DST since 2014.
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// SetLocation replaces the bot location. Called once at startup.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load location %q: %w", name, err)
	}
	locMu.Lock()
	location = loc
	locMu.Unlock()
	return nil
}

func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return location
}

// Now returns the current instant in the bot location.
func Now() time.Time {
	return time.Now().In(Location())
}

// In converts t into the bot location.
func In(t time.Time) time.Time {
	return t.In(Location())
}

// ParseClock parses a time of day and returns the minute of day together with
// the zero-padded HH:MM form. "9:05" is accepted and normalized to "09:05".
func ParseClock(value string) (int, string, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	hour, hourErr := atoiDigits(parts[0])
	minute, minuteErr := atoiDigits(parts[1])
	if hourErr != nil || minuteErr != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	return hour*60 + minute, FormatMinute(hour*60 + minute), nil
}

// NormalizeClock returns the zero-padded HH:MM form of value.
func NormalizeClock(value string) (string, error) {
	_, normalized, err := ParseClock(value)
	return normalized, err
}

// FormatMinute renders a minute of day as HH:MM, wrapping around midnight.
func FormatMinute(minute int) string {
	minute = ((minute % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ShiftClock moves an HH:MM value by delta, wrapping around midnight.
func ShiftClock(value string, delta time.Duration) (string, error) {
	minute, _, err := ParseClock(value)
	if err != nil {
		return "", err
	}
	return FormatMinute(minute + int(delta/time.Minute)), nil
}

// DayBounds returns the first and last instant of t's calendar day in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey is the calendar date of t in the bot location.
func DayKey(t time.Time) string {
	return In(t).Format(DayLayout)
}

// CombineDateClock builds an instant in the bot location from a calendar date
// and a minute of day.
func CombineDateClock(date time.Time, minute int) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, minute/60, minute%60, 0, 0, Location())
}

// Occurrence locates the most recent scheduled instant of clock at or before
// now, and reports whether now lies within window of it. The returned day is
// the calendar date the occurrence belongs to, which differs from now's date
// when a window reaches past midnight.
func Occurrence(now time.Time, clock string, window time.Duration) (time.Time, string, bool, error) {
	minute, _, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, "", false, err
	}
	local := In(now)
	at := CombineDateClock(local, minute)
	if local.Before(at) {
		at = CombineDateClock(local.AddDate(0, 0, -1), minute)
	}
	elapsed := local.Sub(at)
	return at, at.Format(DayLayout), elapsed >= 0 && elapsed < window, nil
}

func atoiDigits(value string) (int, error) {
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(value)
}

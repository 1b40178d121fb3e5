// Package calendar stores couple events.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrEmptyTitle  = errors.New("event title is required")
	ErrUnknownSpan = errors.New("unknown period")
)

// Period names accepted by Range.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// Add stores an event. at must already be resolved in the bot location.
func Add(coupleID int64, at time.Time, title, details string) (db.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return db.Event{}, ErrEmptyTitle
	}
	event := db.Event{
		CoupleID: coupleID,
		EventAt:  at.UTC(),
		Title:    title,
		Details:  strings.TrimSpace(details),
	}
	if err := db.DB.Create(&event).Error; err != nil {
		return db.Event{}, fmt.Errorf("add event for couple %d: %w", coupleID, err)
	}
	return event, nil
}

// ForPeriod returns the couple's events with from <= at <= to, earliest first.
func ForPeriod(coupleID int64, from, to time.Time) ([]db.Event, error) {
	var events []db.Event
	err := db.DB.Where("couple_id = ? AND event_at >= ? AND event_at <= ?", coupleID, from.UTC(), to.UTC()).
		Order("event_at, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load events for couple %d: %w", coupleID, err)
	}
	return events, nil
}

// ForDay returns the events on t's calendar day in the bot location.
func ForDay(coupleID int64, t time.Time) ([]db.Event, error) {
	start, end := timeutil.DayBounds(timeutil.In(t))
	return ForPeriod(coupleID, start, end)
}

// Range maps a period name to the window starting at now.
func Range(period string, now time.Time) (time.Time, time.Time, error) {
	now = timeutil.In(now)
	switch period {
	case PeriodToday:
		_, end := timeutil.DayBounds(now)
		return now, end, nil
	case PeriodWeek:
		return now, now.AddDate(0, 0, 7), nil
	case PeriodMonth:
		return now, now.AddDate(0, 0, 30), nil
	case PeriodAll:
		return now, now.AddDate(5, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownSpan, period)
	}
}

// Get loads one event, scoped to the couple.
func Get(coupleID int64, id uint) (db.Event, error) {
	var event db.Event
	err := db.DB.Where("id = ? AND couple_id = ?", id, coupleID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Event{}, ErrNotFound
	}
	if err != nil {
		return db.Event{}, fmt.Errorf("load event %d: %w", id, err)
	}
	return event, nil
}

func Delete(coupleID int64, id uint) error {
	res := db.DB.Where("id = ? AND couple_id = ?", id, coupleID).Delete(&db.Event{})
	if res.Error != nil {
		return fmt.Errorf("delete event %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
)

var (
	errBadDate  = errors.New("invalid date")
	errPastDate = errors.New("date is in the past")
	errBadClock = errors.New("invalid time")
	errPastTime = errors.New("time is in the past")
)

// parseDate reads DD.MM.YYYY as a calendar day in the bot location. Days
// before today are rejected.
func parseDate(text string, now time.Time) (time.Time, error) {
	day, err := time.ParseInLocation(timeutil.DateLayout, strings.TrimSpace(text), timeutil.Location())
	if err != nil {
		return time.Time{}, errBadDate
	}
	today, _ := timeutil.DayBounds(timeutil.In(now))
	if day.Before(today) {
		return time.Time{}, errPastDate
	}
	return day, nil
}

// shortcutDate resolves the today/tomorrow buttons.
func shortcutDate(choice string, now time.Time) (time.Time, error) {
	today, _ := timeutil.DayBounds(timeutil.In(now))
	switch choice {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	default:
		return time.Time{}, errBadDate
	}
}

// parseDayClock combines day with an HH:MM text into an instant that must not
// lie in the past.
func parseDayClock(day time.Time, text string, now time.Time) (time.Time, error) {
	minute, _, err := timeutil.ParseClock(strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, errBadClock
	}
	at := timeutil.CombineDateClock(day, minute)
	if at.Before(timeutil.In(now)) {
		return time.Time{}, errPastTime
	}
	return at, nil
}

// attachmentOf extracts the media a compliment or memory may carry. The
// largest photo size is used.
func attachmentOf(msg *models.Message) (kind, fileID string, ok bool) {
	switch {
	case len(msg.Photo) > 0:
		return db.AttachmentPhoto, msg.Photo[len(msg.Photo)-1].FileID, true
	case msg.Video != nil:
		return db.AttachmentVideo, msg.Video.FileID, true
	case msg.Voice != nil:
		return db.AttachmentVoice, msg.Voice.FileID, true
	case msg.VideoNote != nil:
		return db.AttachmentVideoNote, msg.VideoNote.FileID, true
	}
	return "", "", false
}

func formatDayClock(t time.Time) string {
	return timeutil.In(t).Format(timeutil.DateLayout + " at " + timeutil.ClockLayout)
}

// Package queue stores messages deferred to a future time and delivers them
// once due. Delivery is at most once: an entry is removed before it is sent.
package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/db"
)

var ErrInvalidEntry = errors.New("invalid deferred message")

// Enqueue validates and stores msg. SendAt is persisted in UTC.
func Enqueue(msg db.ScheduledMessage) (db.ScheduledMessage, error) {
	switch {
	case msg.SenderID == 0 || msg.ReceiverID == 0:
		return db.ScheduledMessage{}, fmt.Errorf("%w: sender and receiver are required", ErrInvalidEntry)
	case msg.Text == "" && msg.AttachmentFileID == "":
		return db.ScheduledMessage{}, fmt.Errorf("%w: empty payload", ErrInvalidEntry)
	case msg.AttachmentFileID != "" && msg.AttachmentKind == "":
		return db.ScheduledMessage{}, fmt.Errorf("%w: attachment kind missing", ErrInvalidEntry)
	case msg.SendAt.IsZero():
		return db.ScheduledMessage{}, fmt.Errorf("%w: due time missing", ErrInvalidEntry)
	}
	msg.ID = 0
	msg.SendAt = msg.SendAt.UTC()
	if err := db.DB.Create(&msg).Error; err != nil {
		return db.ScheduledMessage{}, fmt.Errorf("enqueue message from %d: %w", msg.SenderID, err)
	}
	return msg, nil
}

// DueEntries returns every entry with SendAt at or before now.
func DueEntries(now time.Time) ([]db.ScheduledMessage, error) {
	var entries []db.ScheduledMessage
	if err := db.DB.Where("send_at <= ?", now.UTC()).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load due messages: %w", err)
	}
	return entries, nil
}

// Remove deletes one entry and reports whether this call removed it.
func Remove(id uint) (bool, error) {
	res := db.DB.Delete(&db.ScheduledMessage{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("remove message %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PendingFor lists what sender still has queued, earliest first.
func PendingFor(senderID int64) ([]db.ScheduledMessage, error) {
	var entries []db.ScheduledMessage
	err := db.DB.Where("sender_id = ?", senderID).Order("send_at, id").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load pending messages for %d: %w", senderID, err)
	}
	return entries, nil
}

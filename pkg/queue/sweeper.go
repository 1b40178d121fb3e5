package queue

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
)

const SweepInterval = time.Minute

type Sweeper struct {
	Sender   delivery.Sender
	Counters *metrics.Counters
	Now      func() time.Time
	Interval time.Duration
}

func NewSweeper(sender delivery.Sender, counters *metrics.Counters) *Sweeper {
	if counters == nil {
		counters = metrics.Default
	}
	return &Sweeper{
		Sender:   sender,
		Counters: counters,
		Now:      timeutil.Now,
		Interval: SweepInterval,
	}
}

// Run ticks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick delivers every due entry once and returns how many were handed to the
// sender successfully.
func (s *Sweeper) Tick(ctx context.Context) int {
	log := logger.With("sweep", "deferred", "tick_id", uuid.NewString())
	entries, err := DueEntries(s.Now())
	if err != nil {
		log.Error("failed to load due messages", "error", err)
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	log.Info("delivering deferred messages", "count", len(entries))

	delivered := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return delivered
		}
		removed, err := Remove(entry.ID)
		if err != nil {
			// Left in place; the next tick sees it again.
			log.Error("failed to remove deferred message", "message_id", entry.ID, "error", err)
			continue
		}
		if !removed {
			continue
		}
		if err := s.Sender.Send(ctx, Render(entry)); err != nil {
			s.Counters.DeferredDropped.Add(1)
			log.Error("deferred message dropped", "message_id", entry.ID, "receiver_id", entry.ReceiverID, "error", err)
			continue
		}
		s.Counters.DeferredDelivered.Add(1)
		delivered++
	}
	return delivered
}

// Render turns a stored entry into the outbound message naming its sender.
func Render(entry db.ScheduledMessage) delivery.Message {
	name := "your partner"
	if sender, err := couples.GetUser(entry.SenderID); err == nil {
		name = couples.DisplayName(sender)
	}
	text := fmt.Sprintf("💌 A delayed compliment from %s", html.EscapeString(name))
	if entry.Text != "" {
		text += fmt.Sprintf(":\n\n✨ «%s» ✨", html.EscapeString(entry.Text))
	}
	msg := delivery.Message{
		ChatID:    entry.ReceiverID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if entry.AttachmentFileID != "" {
		msg.Attachment = &delivery.Attachment{
			Kind:    entry.AttachmentKind,
			FileID:  entry.AttachmentFileID,
			Caption: html.EscapeString(entry.Caption),
		}
	}
	return msg
}

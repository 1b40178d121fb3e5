// Package reminders runs the per-minute sweep that fires each couple's
// time-of-day triggers: the event reminder, the daily question, the nudge an
// hour before the summary, and the summary itself.
package reminders

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
)

const (
	TickInterval  = time.Minute
	DefaultWindow = 10 * time.Minute

	nudgeLead = time.Hour
)

// occurrence is one due instant of a trigger.
type occurrence struct {
	At  time.Time
	Day string
}

// trigger is one of the four per-couple checks. plan reads what is needed and
// returns the messages to send; an empty plan leaves the occurrence unclaimed.
type trigger struct {
	kind    string
	enabled func(db.CoupleSettings) bool
	clock   func(db.CoupleSettings) (string, error)
	plan    func(ctx context.Context, couple couples.Couple, occ occurrence) ([]delivery.Message, error)
}

type Engine struct {
	Sender   delivery.Sender
	Counters *metrics.Counters
	Now      func() time.Time
	// Window is how late a trigger may still fire after its scheduled minute.
	Window   time.Duration
	Interval time.Duration

	triggers []trigger
	running  atomic.Bool
}

func NewEngine(sender delivery.Sender, counters *metrics.Counters, window time.Duration) *Engine {
	if counters == nil {
		counters = metrics.Default
	}
	if window <= 0 {
		window = DefaultWindow
	}
	e := &Engine{
		Sender:   sender,
		Counters: counters,
		Now:      timeutil.Now,
		Window:   window,
		Interval: TickInterval,
	}
	e.triggers = []trigger{
		{
			kind:    db.TriggerEventReminder,
			enabled: func(s db.CoupleSettings) bool { return s.RemindersEnabled },
			clock:   func(s db.CoupleSettings) (string, error) { return s.ReminderTime, nil },
			plan:    planEventReminder,
		},
		{
			kind:    db.TriggerQuestionSend,
			enabled: func(s db.CoupleSettings) bool { return s.QotdEnabled },
			clock:   func(s db.CoupleSettings) (string, error) { return s.QotdSendTime, nil },
			plan:    planQuestion,
		},
		{
			kind:    db.TriggerQuestionNudge,
			enabled: func(s db.CoupleSettings) bool { return s.QotdEnabled },
			clock: func(s db.CoupleSettings) (string, error) {
				return timeutil.ShiftClock(s.QotdSummaryTime, -nudgeLead)
			},
			plan: planNudge,
		},
		{
			kind:    db.TriggerSummary,
			enabled: func(s db.CoupleSettings) bool { return s.QotdEnabled },
			clock:   func(s db.CoupleSettings) (string, error) { return s.QotdSummaryTime, nil },
			plan:    planSummary,
		},
	}
	return e
}

// StartPeriodicMessages ticks until ctx is cancelled.
func (e *Engine) StartPeriodicMessages(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick evaluates every couple once. It returns false without doing anything
// when the previous tick is still running.
func (e *Engine) Tick(ctx context.Context) bool {
	if !e.running.CompareAndSwap(false, true) {
		e.Counters.SweepsSkipped.Add(1)
		logger.Warn("couple sweep still running, skipping tick")
		return false
	}
	defer e.running.Store(false)

	now := timeutil.In(e.Now())
	log := logger.With("sweep", "couples", "tick_id", uuid.NewString())

	list, err := couples.ListCouples()
	if err != nil {
		log.Error("failed to list couples", "error", err)
		return true
	}
	for _, couple := range list {
		if ctx.Err() != nil {
			return true
		}
		e.processCouple(ctx, log, couple, now)
	}
	return true
}

func (e *Engine) processCouple(ctx context.Context, log *slog.Logger, couple couples.Couple, now time.Time) {
	for _, t := range e.triggers {
		if !t.enabled(couple.Settings) {
			continue
		}
		clog := log.With("couple_id", couple.ID, "trigger", t.kind)
		if err := e.fire(ctx, clog, t, couple, now); err != nil {
			e.Counters.TriggerFailures.Add(1)
			clog.Error("trigger failed", "error", err)
		}
	}
}

func (e *Engine) fire(ctx context.Context, log *slog.Logger, t trigger, couple couples.Couple, now time.Time) error {
	clock, err := t.clock(couple.Settings)
	if err != nil {
		return err
	}
	at, day, due, err := timeutil.Occurrence(now, clock, e.Window)
	if err != nil || !due {
		return err
	}
	if last, err := lastFired(couple.ID, t.kind); err != nil {
		return err
	} else if last >= day {
		return nil
	}

	messages, err := t.plan(ctx, couple, occurrence{At: at, Day: day})
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	claimed, err := claim(couple.ID, t.kind, day)
	if err != nil || !claimed {
		return err
	}
	e.Counters.TriggersFired.Add(1)

	var errs []error
	for _, msg := range messages {
		if err := e.Sender.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	log.Info("trigger fired", "day", day, "messages", len(messages), "failed", len(errs))
	return errors.Join(errs...)
}

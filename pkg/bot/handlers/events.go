package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/calendar"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

var periodTitles = map[string]string{
	calendar.PeriodToday: "Plans for today:",
	calendar.PeriodWeek:  "Plans for the week:",
	calendar.PeriodMonth: "Plans for the month:",
	calendar.PeriodAll:   "All upcoming plans:",
}

func (h *Handlers) HandleAddEvent(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAddEvent")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowAddEvent, session.StepDate)
	keyboard, err := ui.DateShortcutKeyboard(ui.NSEvents)
	if err != nil {
		logger.Error("failed to render date keyboard", "error", err)
	}
	reply(ctx, b, in.chatID, "What date is the event on? "+askDateText, keyboard)
}

func (h *Handlers) addEventInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	text := strings.TrimSpace(in.msg.Text)
	switch state.Step {
	case session.StepDate:
		day, err := parseDate(text, h.now())
		if err != nil {
			reply(ctx, b, in.chatID, dateErrorText(err), nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepClock, func(d *session.Draft) { d.Date = day })
		reply(ctx, b, in.chatID, askClockText, nil)

	case session.StepClock:
		at, err := parseDayClock(state.Draft.Date, text, h.now())
		if err != nil {
			reply(ctx, b, in.chatID, clockErrorText(err), nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepTitle, func(d *session.Draft) { d.Date = at })
		reply(ctx, b, in.chatID, "Got it! Now enter a short title for the event (for example \"Dinner at the restaurant\").", nil)

	case session.StepTitle:
		if text == "" {
			reply(ctx, b, in.chatID, "Please send the title as text.", nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepDetails, func(d *session.Draft) { d.Title = text })
		keyboard, err := ui.SkipKeyboard(ui.NSEvents, ui.ActSkip, "Skip")
		if err != nil {
			logger.Error("failed to render skip keyboard", "error", err)
		}
		reply(ctx, b, in.chatID, "Want to add details (for example \"Table by the window\")? Press Skip if not.", keyboard)

	case session.StepDetails:
		if text == "" {
			reply(ctx, b, in.chatID, "Please send the details as text or press Skip.", nil)
			return
		}
		state.Draft.Details = text
		h.finishEvent(ctx, b, in.userID, in.chatID, in.username, state.Draft)
	}
}

func (h *Handlers) finishEvent(ctx context.Context, b *bot.Bot, userID, chatID int64, username string, draft session.Draft) {
	h.Sessions.Clear(userID)
	couple, ok := coupleOf(ctx, b, chatID, userID)
	if !ok {
		return
	}
	event, err := calendar.Add(couple.ID, draft.Date, draft.Title, draft.Details)
	if err != nil {
		logger.Error("failed to add event", "couple_id", couple.ID, "error", err)
		reply(ctx, b, chatID, "Failed to add the event. Please try again later.", nil)
		return
	}
	summary := fmt.Sprintf("%s - %s", formatDayClock(event.EventAt), html.EscapeString(event.Title))
	reply(ctx, b, chatID, "✅ Event added: "+summary, nil)
	h.notify(ctx, partnerOf(couple, userID), fmt.Sprintf("🔔 %s added a new event: %s", html.EscapeString(username), summary))
}

func (h *Handlers) HandleEvents(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleEvents")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	keyboard, err := ui.EventPeriodKeyboard()
	if err != nil {
		logger.Error("failed to render period keyboard", "error", err)
	}
	reply(ctx, b, in.chatID, "Which period should I show?", keyboard)
}

func (h *Handlers) HandleDeleteEvent(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleDeleteEvent")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	events, err := h.upcomingEvents(couple.ID)
	if err != nil {
		logger.Error("failed to load events", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load your events. Please try again later.", nil)
		return
	}
	if len(events) == 0 {
		reply(ctx, b, in.chatID, "You have no upcoming events to delete.", nil)
		return
	}
	keyboard, err := ui.EventDeleteKeyboard(events, eventButtonLabel, 0)
	if err != nil {
		logger.Error("failed to render event keyboard", "error", err)
		return
	}
	reply(ctx, b, in.chatID, "Which event do you want to delete?", keyboard)
}

func (h *Handlers) upcomingEvents(coupleID int64) ([]db.Event, error) {
	from, to, err := calendar.Range(calendar.PeriodAll, h.now())
	if err != nil {
		return nil, err
	}
	return calendar.ForPeriod(coupleID, from, to)
}

func eventButtonLabel(event db.Event) string {
	return timeutil.In(event.EventAt).Format("02.01 15:04") + " " + event.Title
}

func (h *Handlers) HandleEventsCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleEventsCallback")
	if !ok {
		return
	}

	switch p.data.Action {
	case ui.ActDate, ui.ActSkip:
		h.addEventPress(ctx, b, p)
		return
	}

	couple, err := couples.CoupleFor(p.userID)
	if err != nil {
		answerCallback(ctx, b, p.id, couplesOnlyText, true)
		return
	}

	switch p.data.Action {
	case ui.ActPeriod:
		answerCallback(ctx, b, p.id, "", false)
		h.showPeriod(ctx, b, p, couple.ID, p.data.Arg)

	case ui.ActPage:
		answerCallback(ctx, b, p.id, "", false)
		events, err := h.upcomingEvents(couple.ID)
		if err != nil {
			logger.Error("failed to load events", "couple_id", couple.ID, "error", err)
			return
		}
		keyboard, err := ui.EventDeleteKeyboard(events, eventButtonLabel, p.data.Number())
		if err != nil {
			logger.Error("failed to render event keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)

	case ui.ActDelete:
		event, err := calendar.Get(couple.ID, p.data.ID())
		if errors.Is(err, calendar.ErrNotFound) {
			answerCallback(ctx, b, p.id, "Event not found or already deleted.", true)
			return
		}
		if err == nil {
			err = calendar.Delete(couple.ID, event.ID)
		}
		if err != nil && !errors.Is(err, calendar.ErrNotFound) {
			logger.Error("failed to delete event", "couple_id", couple.ID, "error", err)
			answerCallback(ctx, b, p.id, "Failed to delete the event.", true)
			return
		}
		answerCallback(ctx, b, p.id, "", false)
		title := html.EscapeString(event.Title)
		edit(ctx, b, p, fmt.Sprintf("✅ Event \"%s\" deleted.", title), nil)
		h.notify(ctx, partnerOf(couple, p.userID), fmt.Sprintf("🔔 %s deleted the event \"%s\"", html.EscapeString(p.username), title))
	}
}

func (h *Handlers) addEventPress(ctx context.Context, b *bot.Bot, p press) {
	state, ok := h.Sessions.Get(p.userID)
	if !ok || state.Flow != session.FlowAddEvent {
		answerCallback(ctx, b, p.id, expiredText, false)
		return
	}
	answerCallback(ctx, b, p.id, "", false)

	switch {
	case p.data.Action == ui.ActDate && state.Step == session.StepDate:
		day, err := shortcutDate(p.data.Arg, h.now())
		if err != nil {
			return
		}
		h.Sessions.Advance(p.userID, session.StepClock, func(d *session.Draft) { d.Date = day })
		edit(ctx, b, p, askClockText, nil)
	case p.data.Action == ui.ActSkip && state.Step == session.StepDetails:
		edit(ctx, b, p, "No details then.", nil)
		h.finishEvent(ctx, b, p.userID, p.chatID, p.username, state.Draft)
	}
}

func (h *Handlers) showPeriod(ctx context.Context, b *bot.Bot, p press, coupleID int64, period string) {
	from, to, err := calendar.Range(period, h.now())
	if err != nil {
		return
	}
	events, err := calendar.ForPeriod(coupleID, from, to)
	if err != nil {
		logger.Error("failed to load events", "couple_id", coupleID, "error", err)
		edit(ctx, b, p, "Failed to load your events. Please try again later.", nil)
		return
	}
	if len(events) == 0 {
		keyboard, err := ui.EventPeriodKeyboard()
		if err != nil {
			logger.Error("failed to render period keyboard", "error", err)
		}
		edit(ctx, b, p, "No plans for this period. 😕\n\nTry another period or add an event with /addevent.", keyboard)
		return
	}
	edit(ctx, b, p, renderEvents(periodTitles[period], events), nil)
}

// renderEvents groups events by calendar day in the bot location.
func renderEvents(title string, events []db.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", title)
	var day time.Time
	for i, event := range events {
		at := timeutil.In(event.EventAt)
		if i == 0 || !sameDay(at, day) {
			if i > 0 {
				sb.WriteString("\n")
			}
			day = at
			fmt.Fprintf(&sb, "————— <b>%s</b> —————\n", at.Format("Monday, 02.01"))
		}
		fmt.Fprintf(&sb, "    %s - %s\n", at.Format(timeutil.ClockLayout), html.EscapeString(event.Title))
		if event.Details != "" {
			fmt.Fprintf(&sb, "         <i>└ %s</i>\n", html.EscapeString(event.Details))
		}
	}
	sb.WriteString("\nTo delete an event, use /delevent.")
	return sb.String()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const askTimeText = "Enter the time as <b>HH:MM</b> (for example 09:00)."

func (h *Handlers) HandleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleSettings")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	settings, err := couples.SettingsFor(couple.ID)
	if err != nil {
		logger.Error("failed to load couple settings", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load your settings. Please try again later.", nil)
		return
	}
	text, keyboard, err := ui.RenderSettings(settings)
	if err != nil {
		logger.Error("failed to render settings", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to render settings. Please try again later.", nil)
		return
	}
	reply(ctx, b, in.chatID, text, keyboard)
}

func (h *Handlers) HandleSettingsCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleSettingsCallback")
	if !ok {
		return
	}
	couple, err := couples.CoupleFor(p.userID)
	if err != nil {
		answerCallback(ctx, b, p.id, couplesOnlyText, true)
		return
	}
	answerCallback(ctx, b, p.id, "", false)

	switch p.data.Action {
	case ui.ActClose:
		h.Sessions.Clear(p.userID)
		edit(ctx, b, p, "Settings saved. ✅", nil)

	case ui.ActHome:
		h.Sessions.Clear(p.userID)
		h.showSettings(ctx, b, p, couple.Settings)

	case ui.ActRemindersOn, ui.ActReminderTime:
		h.Sessions.Start(p.userID, p.chatID, session.FlowReminderTime, session.StepClock)
		edit(ctx, b, p, "At what time should I send the morning summary of your plans? "+askTimeText, backKeyboard())

	case ui.ActQuestionTime, ui.ActQuestionOn:
		h.Sessions.Start(p.userID, p.chatID, session.FlowQuestionTimes, session.StepSendTime)
		edit(ctx, b, p, "At what time should I send the question of the day? "+askTimeText, backKeyboard())

	case ui.ActRemindersOff:
		h.applySettings(ctx, b, p, couple, couples.SettingsPatch{RemindersEnabled: bot.False()},
			"turned off event reminders")

	case ui.ActQuestionOff:
		h.applySettings(ctx, b, p, couple, couples.SettingsPatch{QotdEnabled: bot.False()},
			"turned off the question of the day")
	}
}

func backKeyboard() *models.InlineKeyboardMarkup {
	data, err := ui.BuildCallback(ui.NSSettings, ui.ActHome)
	if err != nil {
		logger.Error("failed to build settings callback", "error", err)
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "⬅️ Back", CallbackData: data}},
	}}
}

func (h *Handlers) showSettings(ctx context.Context, b *bot.Bot, p press, settings db.CoupleSettings) {
	text, keyboard, err := ui.RenderSettings(settings)
	if err != nil {
		logger.Error("failed to render settings", "error", err)
		return
	}
	edit(ctx, b, p, text, keyboard)
}

func (h *Handlers) applySettings(ctx context.Context, b *bot.Bot, p press, couple couples.Couple, patch couples.SettingsPatch, change string) {
	settings, err := couples.UpdateSettings(couple.ID, patch)
	if err != nil {
		logger.Error("failed to update settings", "couple_id", couple.ID, "error", err)
		edit(ctx, b, p, "Failed to save settings. Please try again later.", nil)
		return
	}
	h.showSettings(ctx, b, p, settings)
	h.notifySettingsChange(ctx, couple, p.userID, p.username, change)
}

func (h *Handlers) notifySettingsChange(ctx context.Context, couple couples.Couple, userID int64, username, change string) {
	h.notify(ctx, partnerOf(couple, userID), fmt.Sprintf("🔔 %s %s for both of you.", html.EscapeString(username), change))
}

func (h *Handlers) reminderTimeInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	clock, err := timeutil.NormalizeClock(in.msg.Text)
	if err != nil {
		reply(ctx, b, in.chatID, "Invalid format. "+askTimeText, nil)
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	_, err = couples.UpdateSettings(couple.ID, couples.SettingsPatch{
		RemindersEnabled: bot.True(),
		ReminderTime:     &clock,
	})
	if err != nil {
		logger.Error("failed to update settings", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to save settings. Please try again later.", nil)
		return
	}
	reply(ctx, b, in.chatID, fmt.Sprintf("✅ Done! I'll send your plans for the day every morning at %s.", clock), nil)
	h.notifySettingsChange(ctx, couple, in.userID, in.username, "set event reminders to "+clock)
}

func (h *Handlers) questionTimesInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	clock, err := timeutil.NormalizeClock(in.msg.Text)
	if err != nil {
		reply(ctx, b, in.chatID, "Invalid format. "+askTimeText, nil)
		return
	}

	if state.Step == session.StepSendTime {
		h.Sessions.Advance(in.userID, session.StepSummaryTime, func(d *session.Draft) { d.Clock = clock })
		reply(ctx, b, in.chatID, "And at what time should I reveal both answers? "+askTimeText, nil)
		return
	}

	sendAt := state.Draft.Clock
	if err := checkSummaryAfterSend(sendAt, clock); err != nil {
		reply(ctx, b, in.chatID, "The answers must be revealed after the question is sent. Please enter a later time.", nil)
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	_, err = couples.UpdateSettings(couple.ID, couples.SettingsPatch{
		QotdEnabled:     bot.True(),
		QotdSendTime:    &sendAt,
		QotdSummaryTime: &clock,
	})
	if err != nil {
		logger.Error("failed to update settings", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to save settings. Please try again later.", nil)
		return
	}
	reply(ctx, b, in.chatID, fmt.Sprintf(
		"✅ Done! The question of the day arrives at %s and the answers are revealed at %s.", sendAt, clock), nil)
	h.notifySettingsChange(ctx, couple, in.userID, in.username,
		fmt.Sprintf("set the question of the day to %s with answers at %s", sendAt, clock))
}

var errSummaryBeforeSend = errors.New("summary must follow the question")

// checkSummaryAfterSend requires the reveal to come later the same day.
func checkSummaryAfterSend(sendAt, summaryAt string) error {
	send, _, err := timeutil.ParseClock(sendAt)
	if err != nil {
		return err
	}
	summary, _, err := timeutil.ParseClock(summaryAt)
	if err != nil {
		return err
	}
	if summary <= send {
		return errSummaryBeforeSend
	}
	return nil
}

package ui

import (
	"fmt"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/db"
)

// RenderSettings draws the couple settings screen.
func RenderSettings(settings db.CoupleSettings) (string, *models.InlineKeyboardMarkup, error) {
	text := fmt.Sprintf(
		"<b>⚙️ Couple settings</b>\n\n"+
			"🗓️ Event reminders: %s, at %s\n"+
			"❓ Question of the day: %s, sent at %s, summary at %s",
		formatToggle(settings.RemindersEnabled),
		settings.ReminderTime,
		formatToggle(settings.QotdEnabled),
		settings.QotdSendTime,
		settings.QotdSummaryTime,
	)

	remindersAction := ActRemindersOn
	if settings.RemindersEnabled {
		remindersAction = ActRemindersOff
	}
	questionAction := ActQuestionOn
	if settings.QotdEnabled {
		questionAction = ActQuestionOff
	}

	var b keyboardBuilder
	b.row(
		b.button(toggleLabel("Reminders", settings.RemindersEnabled), NSSettings, remindersAction),
		b.button("Reminder time", NSSettings, ActReminderTime),
	)
	b.row(
		b.button(toggleLabel("Questions", settings.QotdEnabled), NSSettings, questionAction),
		b.button("Question times", NSSettings, ActQuestionTime),
	)
	b.row(b.button("Close", NSSettings, ActClose))

	keyboard, err := b.build()
	if err != nil {
		return "", nil, err
	}
	return text, keyboard, nil
}

func formatToggle(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func toggleLabel(label string, enabled bool) string {
	if enabled {
		return "✅ " + label
	}
	return "⬜ " + label
}

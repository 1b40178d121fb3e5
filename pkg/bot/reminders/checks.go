package reminders

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/calendar"
	"github.com/smith3v/tg-couple-bot/pkg/bot/qotd"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const noAnswer = "<i>(no answer)</i>"

func planEventReminder(_ context.Context, couple couples.Couple, occ occurrence) ([]delivery.Message, error) {
	events, err := calendar.ForDay(couple.ID, occ.At)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("<b>Good morning! Here are your plans for today:</b>\n\n")
	for _, event := range events {
		fmt.Fprintf(&b, "• <b>%s</b> – %s 🗓️\n",
			timeutil.In(event.EventAt).Format(timeutil.ClockLayout),
			html.EscapeString(event.Title))
	}
	b.WriteString("\nHave a lovely day! ❤️")

	return toMembers(members(couple), delivery.Message{Text: b.String(), ParseMode: models.ParseModeHTML}), nil
}

func planQuestion(_ context.Context, couple couples.Couple, occ occurrence) ([]delivery.Message, error) {
	entry, found, err := qotd.CurrentEntry(couple, occ.Day)
	if err != nil {
		return nil, err
	}
	if !found {
		question, err := qotd.RandomQuestion()
		if errors.Is(err, qotd.ErrNoQuestions) {
			logger.Warn("question bank is empty, skipping daily question", "couple_id", couple.ID)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		entry, err = qotd.CreateEntry(couple, question.ID, occ.Day)
		if err != nil {
			return nil, err
		}
	}

	keyboard, err := ui.AnswerKeyboard()
	if err != nil {
		return nil, err
	}
	msg := delivery.Message{
		Text:      "<b>❓ Question of the day for you two:</b>\n\n" + html.EscapeString(entry.Question.Text),
		ParseMode: models.ParseModeHTML,
		Keyboard:  keyboard,
	}
	return toMembers(members(couple), msg), nil
}

func planNudge(_ context.Context, couple couples.Couple, occ occurrence) ([]delivery.Message, error) {
	entry, found, err := qotd.CurrentEntry(couple, occ.Day)
	if err != nil || !found {
		return nil, err
	}
	pending := qotd.Unanswered(entry)
	if len(pending) == 0 {
		return nil, nil
	}

	keyboard, err := ui.AnswerKeyboard()
	if err != nil {
		return nil, err
	}
	out := make([]delivery.Message, 0, len(pending))
	for _, member := range pending {
		prompt := "You both still have time to answer 💬"
		if _, answered := qotd.AnswerOf(entry, partnerOf(couple, member)); answered {
			prompt = "Your partner is waiting for your answer 💬"
		}
		out = append(out, delivery.Message{
			Text: "⏳ An hour left until today's answers are revealed!\n\n<b>" +
				html.EscapeString(entry.Question.Text) + "</b>\n\n" + prompt,
			ChatID:    member,
			ParseMode: models.ParseModeHTML,
			Keyboard:  keyboard,
		})
	}
	return out, nil
}

func planSummary(_ context.Context, couple couples.Couple, occ occurrence) ([]delivery.Message, error) {
	entry, found, err := qotd.CurrentEntry(couple, occ.Day)
	if err != nil || !found {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("<b>📝 Today's answers</b>\n\n")
	fmt.Fprintf(&b, "<b>❓ %s</b>\n\n", html.EscapeString(entry.Question.Text))
	for _, member := range members(couple) {
		name := fmt.Sprintf("user %d", member)
		if user, err := couples.GetUser(member); err == nil {
			name = couples.DisplayName(user)
		}
		answer := noAnswer
		if text, ok := qotd.AnswerOf(entry, member); ok {
			answer = html.EscapeString(text)
		}
		fmt.Fprintf(&b, "<b>%s:</b> %s\n", html.EscapeString(name), answer)
	}

	msg := delivery.Message{Text: strings.TrimRight(b.String(), "\n"), ParseMode: models.ParseModeHTML}
	return toMembers(members(couple), msg), nil
}

func toMembers(ids []int64, msg delivery.Message) []delivery.Message {
	out := make([]delivery.Message, 0, len(ids))
	for _, id := range ids {
		m := msg
		m.ChatID = id
		out = append(out, m)
	}
	return out
}

func members(couple couples.Couple) []int64 {
	ids := couple.Members()
	return ids[:]
}

func partnerOf(couple couples.Couple, member int64) int64 {
	if member == couple.User1ID {
		return couple.User2ID
	}
	return couple.User1ID
}

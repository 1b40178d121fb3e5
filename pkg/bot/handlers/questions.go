package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/qotd"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const noAnswerYet = "<i>(no answer)</i>"

func (h *Handlers) HandleAddQuestion(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAddQuestion")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	h.Sessions.Start(in.userID, in.chatID, session.FlowAddQuestion, session.StepText)
	reply(ctx, b, in.chatID, "Write a question you'd like to add to the question of the day bank.", nil)
}

func (h *Handlers) addQuestionInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	text := strings.TrimSpace(in.msg.Text)
	if text == "" {
		reply(ctx, b, in.chatID, "Please send the question as text.", nil)
		return
	}
	h.Sessions.Clear(in.userID)
	_, err := qotd.AddQuestion(text)
	switch {
	case err == nil:
		reply(ctx, b, in.chatID, "✅ Thanks! Your question has been added to the bank.", nil)
	case errors.Is(err, db.ErrDuplicate):
		reply(ctx, b, in.chatID, "This question already exists in the bank.", nil)
	default:
		logger.Error("failed to add question", "user_id", in.userID, "error", err)
		reply(ctx, b, in.chatID, "Failed to add the question. Please try again later.", nil)
	}
}

func (h *Handlers) HandleQuestionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleQuestionCallback")
	if !ok {
		return
	}
	couple, err := couples.CoupleFor(p.userID)
	if err != nil {
		answerCallback(ctx, b, p.id, couplesOnlyText, true)
		return
	}

	switch p.data.Action {
	case ui.ActAnswer:
		h.startAnswer(ctx, b, p, couple)
	case ui.ActArchive:
		answerCallback(ctx, b, p.id, "", false)
		entries, err := qotd.Archive(couple.ID)
		if err != nil {
			logger.Error("failed to load archive", "couple_id", couple.ID, "error", err)
			return
		}
		if len(entries) == 0 {
			edit(ctx, b, p, "The archive is empty.", nil)
			return
		}
		text, keyboard, err := h.archivePage(entries, p.userID, p.data.Number())
		if err != nil {
			logger.Error("failed to render archive", "error", err)
			return
		}
		edit(ctx, b, p, text, keyboard)
	}
}

func (h *Handlers) startAnswer(ctx context.Context, b *bot.Bot, p press, couple couples.Couple) {
	entry, found, err := qotd.CurrentEntry(couple, timeutil.DayKey(h.now()))
	if err != nil {
		logger.Error("failed to load today's question", "couple_id", couple.ID, "error", err)
		answerCallback(ctx, b, p.id, "Something went wrong.", true)
		return
	}
	if !found {
		answerCallback(ctx, b, p.id, "This question is no longer open.", true)
		return
	}
	if _, answered := qotd.AnswerOf(entry, p.userID); answered {
		answerCallback(ctx, b, p.id, "You have already answered today's question.", true)
		return
	}
	answerCallback(ctx, b, p.id, "", false)
	h.Sessions.Start(p.userID, p.chatID, session.FlowAnswer, session.StepText)
	reply(ctx, b, p.chatID, fmt.Sprintf("<b>%s</b>\n\nWrite your answer. Your partner will see it in the evening.",
		html.EscapeString(entry.Question.Text)), nil)
}

func (h *Handlers) answerInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	text := strings.TrimSpace(in.msg.Text)
	if text == "" {
		reply(ctx, b, in.chatID, "Please send your answer as text.", nil)
		return
	}
	h.Sessions.Clear(in.userID)
	coupleID, paired, err := couples.CoupleIDFor(in.userID)
	if err != nil || !paired {
		reply(ctx, b, in.chatID, couplesOnlyText, nil)
		return
	}
	err = qotd.SaveAnswer(coupleID, in.userID, timeutil.DayKey(h.now()), text)
	switch {
	case err == nil:
		reply(ctx, b, in.chatID, "✅ Answer saved! You'll see both answers in the evening.", nil)
	case errors.Is(err, qotd.ErrAlreadyAnswered):
		reply(ctx, b, in.chatID, "You have already answered today's question.", nil)
	case errors.Is(err, qotd.ErrNoEntry):
		reply(ctx, b, in.chatID, "The day has changed and this question is closed. Wait for the next one!", nil)
	default:
		logger.Error("failed to save answer", "user_id", in.userID, "error", err)
		reply(ctx, b, in.chatID, "Failed to save your answer. Please try again later.", nil)
	}
}

func (h *Handlers) HandleAnswers(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAnswers")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	entries, err := qotd.Archive(couple.ID)
	if err != nil {
		logger.Error("failed to load archive", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load the archive. Please try again later.", nil)
		return
	}
	if len(entries) == 0 {
		reply(ctx, b, in.chatID, "There are no answered questions yet.", nil)
		return
	}
	text, keyboard, err := h.archivePage(entries, in.userID, 0)
	if err != nil {
		logger.Error("failed to render archive", "error", err)
		return
	}
	reply(ctx, b, in.chatID, text, keyboard)
}

// archivePage renders one entry per page. The partner's answer to today's
// question stays hidden until the viewer has answered too.
func (h *Handlers) archivePage(entries []db.DailyQuestionEntry, viewer int64, page int) (string, *models.InlineKeyboardMarkup, error) {
	page = max(0, min(page, len(entries)-1))
	entry := entries[page]

	partnerID := entry.User1ID
	if viewer == entry.User1ID {
		partnerID = entry.User2ID
	}
	mine, answeredMine := qotd.AnswerOf(entry, viewer)
	theirs, answeredTheirs := qotd.AnswerOf(entry, partnerID)

	mineText, theirsText := noAnswerYet, noAnswerYet
	if answeredMine {
		mineText = html.EscapeString(mine)
	}
	switch {
	case !answeredTheirs:
	case entry.QuestionDate == timeutil.DayKey(h.now()) && !answeredMine:
		theirsText = "<i>(hidden until you answer)</i>"
	default:
		theirsText = html.EscapeString(theirs)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>🗂 %s</b>\n\n", entry.QuestionDate)
	fmt.Fprintf(&sb, "<b>❓ %s</b>\n\n", html.EscapeString(entry.Question.Text))
	fmt.Fprintf(&sb, "<b>You:</b> %s\n", mineText)
	fmt.Fprintf(&sb, "<b>Partner:</b> %s", theirsText)

	keyboard, err := ui.PagerKeyboard(ui.NSQuestion, ui.ActArchive, page, len(entries))
	if err != nil {
		return "", nil, err
	}
	return sb.String(), keyboard, nil
}

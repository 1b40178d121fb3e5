package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
)

// inputHandler consumes one message of an active flow.
type inputHandler func(h *Handlers, ctx context.Context, b *bot.Bot, in incoming, state session.State)

var flowInputs = map[session.Flow]inputHandler{
	session.FlowCompliment:    (*Handlers).complimentInput,
	session.FlowAddEvent:      (*Handlers).addEventInput,
	session.FlowAddWish:       (*Handlers).addWishInput,
	session.FlowAddMemory:     (*Handlers).addMemoryInput,
	session.FlowAnswer:        (*Handlers).answerInput,
	session.FlowAddQuestion:   (*Handlers).addQuestionInput,
	session.FlowAddMovie:      (*Handlers).addMovieInput,
	session.FlowAddIdea:       (*Handlers).addIdeaInput,
	session.FlowReminderTime:  (*Handlers).reminderTimeInput,
	session.FlowQuestionTimes: (*Handlers).questionTimesInput,
}

// Default receives every message no command matched: flow input, invite
// codes and unknown commands.
func (h *Handlers) Default(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Debug("ignoring non-message update in default handler")
		return
	}
	in, ok := parseMessage(update, "Default")
	if !ok {
		return
	}
	text := strings.TrimSpace(in.msg.Text)

	if strings.HasPrefix(text, "/") {
		h.Sessions.Clear(in.userID)
		reply(ctx, b, in.chatID, "Unknown command.\n\n"+helpText, nil)
		return
	}

	if state, ok := h.Sessions.Get(in.userID); ok {
		if handle, ok := flowInputs[state.Flow]; ok {
			handle(h, ctx, b, in, state)
			return
		}
		logger.Debug("no input expected for flow", "user_id", in.userID, "flow", state.Flow, "step", state.Step)
	}

	if code, err := strconv.ParseInt(text, 10, 64); err == nil && code > 0 {
		h.handleInviteCode(ctx, b, in, code)
		return
	}

	reply(ctx, b, in.chatID, "Use /help to see what I can do.", nil)
}

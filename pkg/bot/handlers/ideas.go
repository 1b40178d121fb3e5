package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/lists"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const ideasTitle = "<b>💡 Your date ideas</b>\n\nTap an idea to tick it off."

func (h *Handlers) HandleAddIdea(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAddIdea")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowAddIdea, session.StepText)
	reply(ctx, b, in.chatID, "Describe the date idea (for example \"Picnic in the park\").", nil)
}

func (h *Handlers) addIdeaInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	text := strings.TrimSpace(in.msg.Text)
	if text == "" {
		reply(ctx, b, in.chatID, "Please send the idea as text.", nil)
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	idea, err := lists.AddIdea(couple.ID, text)
	switch {
	case err == nil:
		reply(ctx, b, in.chatID, fmt.Sprintf("✅ Idea \"%s\" added!", html.EscapeString(idea.Text)), nil)
		h.notify(ctx, partnerOf(couple, in.userID),
			fmt.Sprintf("💡 %s added a date idea: %s", html.EscapeString(in.username), html.EscapeString(idea.Text)))
	case errors.Is(err, db.ErrDuplicate):
		reply(ctx, b, in.chatID, "This idea is already on your list.", nil)
	default:
		logger.Error("failed to add idea", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to add the idea. Please try again later.", nil)
	}
}

func (h *Handlers) HandleIdeas(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleIdeas")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	ideas, err := lists.Ideas(couple.ID)
	if err != nil {
		logger.Error("failed to load ideas", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load your ideas. Please try again later.", nil)
		return
	}
	if len(ideas) == 0 {
		reply(ctx, b, in.chatID, "You have no date ideas yet. Add one with /add_date_idea.", nil)
		return
	}
	keyboard, err := ui.IdeasKeyboard(ideas)
	if err != nil {
		logger.Error("failed to render ideas keyboard", "error", err)
		return
	}
	reply(ctx, b, in.chatID, ideasTitle, keyboard)
}

func (h *Handlers) HandleDeleteIdea(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleDeleteIdea")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	ideas, err := lists.Ideas(couple.ID)
	if err != nil {
		logger.Error("failed to load ideas", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load your ideas. Please try again later.", nil)
		return
	}
	if len(ideas) == 0 {
		reply(ctx, b, in.chatID, "You have no date ideas to delete.", nil)
		return
	}
	keyboard, err := ui.IdeasDeleteKeyboard(ideas, 0)
	if err != nil {
		logger.Error("failed to render ideas keyboard", "error", err)
		return
	}
	reply(ctx, b, in.chatID, "Which idea do you want to delete?", keyboard)
}

func (h *Handlers) HandleIdeasCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleIdeasCallback")
	if !ok {
		return
	}
	couple, err := couples.CoupleFor(p.userID)
	if err != nil {
		answerCallback(ctx, b, p.id, couplesOnlyText, true)
		return
	}

	switch p.data.Action {
	case ui.ActToggle:
		err := lists.ToggleIdea(couple.ID, p.data.ID())
		if errors.Is(err, lists.ErrNotFound) {
			answerCallback(ctx, b, p.id, "Idea not found.", true)
			return
		}
		if err != nil {
			logger.Error("failed to toggle idea", "couple_id", couple.ID, "error", err)
			answerCallback(ctx, b, p.id, "Something went wrong.", true)
			return
		}
		answerCallback(ctx, b, p.id, "", false)
		ideas, err := lists.Ideas(couple.ID)
		if err != nil {
			logger.Error("failed to load ideas", "couple_id", couple.ID, "error", err)
			return
		}
		keyboard, err := ui.IdeasKeyboard(ideas)
		if err != nil {
			logger.Error("failed to render ideas keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)

	case ui.ActPage:
		answerCallback(ctx, b, p.id, "", false)
		ideas, err := lists.Ideas(couple.ID)
		if err != nil {
			logger.Error("failed to load ideas", "couple_id", couple.ID, "error", err)
			return
		}
		keyboard, err := ui.IdeasDeleteKeyboard(ideas, p.data.Number())
		if err != nil {
			logger.Error("failed to render ideas keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)

	case ui.ActDelete:
		err := lists.DeleteIdea(couple.ID, p.data.ID())
		if errors.Is(err, lists.ErrNotFound) {
			answerCallback(ctx, b, p.id, "Idea not found or already deleted.", true)
			return
		}
		if err != nil {
			logger.Error("failed to delete idea", "couple_id", couple.ID, "error", err)
			answerCallback(ctx, b, p.id, "Failed to delete the idea.", true)
			return
		}
		answerCallback(ctx, b, p.id, "Deleted", false)
		ideas, err := lists.Ideas(couple.ID)
		if err != nil {
			logger.Error("failed to load ideas", "couple_id", couple.ID, "error", err)
			return
		}
		if len(ideas) == 0 {
			edit(ctx, b, p, "No date ideas left.", nil)
			return
		}
		keyboard, err := ui.IdeasDeleteKeyboard(ideas, 0)
		if err != nil {
			logger.Error("failed to render ideas keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)
	}
}

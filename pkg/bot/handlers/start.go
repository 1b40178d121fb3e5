package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const helpText = "<b>Basics:</b>\n" +
	"/start - Restart the bot\n" +
	"/code - Get your invite code\n" +
	"/unlink - Unlink from your partner\n" +
	"/cancel - Cancel the current action\n\n" +
	"<b>For the two of you:</b>\n" +
	"/compliment - Send a compliment\n" +
	"/addevent - Add an event to the calendar\n" +
	"/events - Show your plans\n" +
	"/delevent - Delete an event\n" +
	"/settings - Reminder settings\n\n" +
	"<b>Wishlist:</b>\n" +
	"/addwish - Add a wish to your list\n" +
	"/wishlist - Show wishlists\n" +
	"/delwish - Delete a wish from your list\n\n" +
	"<b>Question of the day:</b>\n" +
	"/addquestion - Add your own question to the bank\n" +
	"/answers - Browse the answer archive\n\n" +
	"<b>Memory capsule:</b>\n" +
	"/addmemory - Save a memory\n" +
	"/memory - Show a random memory\n" +
	"/allmemories - Browse all memories\n\n" +
	"<b>Movies:</b>\n" +
	"/movie - Movie roulette\n" +
	"/addmovie - Add a movie to the watchlist\n" +
	"/watchlist - Show your watchlist\n" +
	"/delmovie - Delete a movie from the watchlist\n\n" +
	"<b>Date ideas:</b>\n" +
	"/add_date_idea - Add an idea\n" +
	"/date_ideas - Show and tick off ideas\n" +
	"/del_date_idea - Delete an idea"

func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleStart")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)

	user, err := couples.EnsureUser(in.userID, in.username)
	if err != nil {
		logger.Error("failed to register user", "user_id", in.userID, "error", err)
		reply(ctx, b, in.chatID, "Failed to start. Please try again later.", nil)
		return
	}

	name := html.EscapeString(in.username)
	if user.PartnerID != nil {
		partnerName := "your partner"
		if partner, err := couples.GetUser(*user.PartnerID); err == nil {
			partnerName = couples.DisplayName(partner)
		}
		reply(ctx, b, in.chatID, fmt.Sprintf(
			"Hi, %s! ❤️\nYou are paired with %s.\n\nUse /help to see all commands.",
			name, html.EscapeString(partnerName)), nil)
		return
	}
	reply(ctx, b, in.chatID, fmt.Sprintf(
		"Hi, %s! ✨\nThis bot is for you and your other half.\n\n"+
			"<b>How to pair up:</b>\n"+
			"1. One of you gets a code with /code.\n"+
			"2. The other one sends that code to me.\n\n"+
			"If you already have a code from your partner, just send it here!", name), nil)
}

func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleHelp")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	reply(ctx, b, in.chatID, helpText, nil)
}

func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleCancel")
	if !ok {
		return
	}
	if h.Sessions.Clear(in.userID) {
		reply(ctx, b, in.chatID, "Cancelled.", nil)
		return
	}
	reply(ctx, b, in.chatID, "There is nothing to cancel.", nil)
}

// HandleCode shows the invite code, which is the user's own id.
func (h *Handlers) HandleCode(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleCode")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)

	user, err := couples.EnsureUser(in.userID, in.username)
	if err != nil {
		logger.Error("failed to register user", "user_id", in.userID, "error", err)
		reply(ctx, b, in.chatID, "Failed to create a code. Please try again later.", nil)
		return
	}
	if user.PartnerID != nil {
		reply(ctx, b, in.chatID, "You are already paired, no code needed. ❤️", nil)
		return
	}
	reply(ctx, b, in.chatID, "<b>Here is your invite code.</b>\n\n"+
		"Send it to your other half. They just need to paste it into this chat.", nil)
	reply(ctx, b, in.chatID, "<code>"+strconv.FormatInt(in.userID, 10)+"</code>", nil)
}

// handleInviteCode pairs the sender with the owner of code. Unknown codes are
// ignored so random numbers do not leak who uses the bot.
func (h *Handlers) handleInviteCode(ctx context.Context, b *bot.Bot, in incoming, code int64) {
	if _, err := couples.EnsureUser(in.userID, in.username); err != nil {
		logger.Error("failed to register user", "user_id", in.userID, "error", err)
		return
	}

	couple, err := couples.Link(code, in.userID, h.now())
	switch {
	case err == nil:
	case errors.Is(err, couples.ErrSelfPair):
		reply(ctx, b, in.chatID, "You can't pair with yourself! 😉", nil)
		return
	case errors.Is(err, couples.ErrUserNotFound):
		logger.Info("unknown invite code", "user_id", in.userID, "code", code)
		return
	case errors.Is(err, couples.ErrAlreadyPaired):
		if self, getErr := couples.GetUser(in.userID); getErr == nil && self.PartnerID != nil {
			reply(ctx, b, in.chatID, "You are already paired. Use /unlink first to pair with someone else.", nil)
			return
		}
		reply(ctx, b, in.chatID, "This user is already paired.", nil)
		return
	default:
		logger.Error("failed to link partners", "user_id", in.userID, "code", code, "error", err)
		reply(ctx, b, in.chatID, "Failed to pair. Please try again later.", nil)
		return
	}

	inviterName := "your partner"
	if inviter, err := couples.GetUser(code); err == nil {
		inviterName = couples.DisplayName(inviter)
	}
	logger.Info("couple linked", "couple_id", couple.ID)
	reply(ctx, b, in.chatID, fmt.Sprintf("Congratulations! You are now paired with %s! ❤️", html.EscapeString(inviterName)), nil)
	h.notify(ctx, code, fmt.Sprintf("Great news! %s accepted your invitation. You are now a couple! ❤️", html.EscapeString(in.username)))
}

func (h *Handlers) HandleUnlink(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleUnlink")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)

	if _, paired, err := couples.CoupleIDFor(in.userID); err != nil {
		logger.Error("failed to load couple", "user_id", in.userID, "error", err)
		reply(ctx, b, in.chatID, "Something went wrong. Please try again later.", nil)
		return
	} else if !paired {
		reply(ctx, b, in.chatID, "You are not paired with anyone.", nil)
		return
	}

	keyboard, err := ui.UnlinkKeyboard()
	if err != nil {
		logger.Error("failed to render unlink keyboard", "error", err)
		return
	}
	reply(ctx, b, in.chatID, "Are you sure you want to unlink from your partner? This cannot be undone.", keyboard)
}

func (h *Handlers) HandleUnlinkCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleUnlinkCallback")
	if !ok {
		return
	}
	answerCallback(ctx, b, p.id, "", false)

	if p.data.Action == ui.ActCancel {
		edit(ctx, b, p, "Cancelled. You are still together. ❤️", nil)
		return
	}

	partnerID, err := couples.Unlink(p.userID)
	if errors.Is(err, couples.ErrNotPaired) || errors.Is(err, couples.ErrUserNotFound) {
		edit(ctx, b, p, "You are not paired anymore.", nil)
		return
	}
	if err != nil {
		logger.Error("failed to unlink", "user_id", p.userID, "error", err)
		edit(ctx, b, p, "Failed to unlink. Please try again later.", nil)
		return
	}
	logger.Info("couple unlinked", "user_id", p.userID, "partner_id", partnerID)
	edit(ctx, b, p, "You are no longer paired.", nil)
	h.notify(ctx, partnerID, fmt.Sprintf("%s has unlinked from you in the bot.", html.EscapeString(p.username)))
}

func (h *Handlers) HandleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update.CallbackQuery.ID, "", false)
}

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

func (h *Handlers) HandleAddWish(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAddWish")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowAddWish, session.StepTitle)
	reply(ctx, b, in.chatID, "What would you like? Write the name of the gift.", nil)
}

func (h *Handlers) addWishInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	text := strings.TrimSpace(in.msg.Text)
	switch state.Step {
	case session.StepTitle:
		if text == "" {
			reply(ctx, b, in.chatID, "Please send the name as text.", nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepLink, func(d *session.Draft) { d.Title = text })
		keyboard, err := ui.SkipKeyboard(ui.NSWishes, ui.ActSkipLink, "No link")
		if err != nil {
			logger.Error("failed to render skip keyboard", "error", err)
		}
		reply(ctx, b, in.chatID, "Got it. Send a link to the gift, or press the button if there is none.", keyboard)

	case session.StepLink:
		if text == "" {
			reply(ctx, b, in.chatID, "Please send the link as text or press the button.", nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepPhoto, func(d *session.Draft) { d.Link = text })
		h.askWishPhoto(ctx, b, in.chatID)

	case session.StepPhoto:
		if len(in.msg.Photo) == 0 {
			reply(ctx, b, in.chatID, "Please send a photo or press the button.", nil)
			return
		}
		state.Draft.AttachmentFileID = in.msg.Photo[len(in.msg.Photo)-1].FileID
		h.finishWish(ctx, b, in.userID, in.chatID, state.Draft)
	}
}

func (h *Handlers) askWishPhoto(ctx context.Context, b *bot.Bot, chatID int64) {
	keyboard, err := ui.SkipKeyboard(ui.NSWishes, ui.ActSkipPic, "No photo")
	if err != nil {
		logger.Error("failed to render skip keyboard", "error", err)
	}
	reply(ctx, b, chatID, "Now send a photo of the gift, or press the button to skip.", keyboard)
}

func (h *Handlers) finishWish(ctx context.Context, b *bot.Bot, userID, chatID int64, draft session.Draft) {
	h.Sessions.Clear(userID)
	wish, err := lists.AddWish(userID, draft.Title, draft.Link, draft.AttachmentFileID)
	if err != nil {
		logger.Error("failed to add wish", "user_id", userID, "error", err)
		reply(ctx, b, chatID, "Failed to save the wish. Please try again later.", nil)
		return
	}
	reply(ctx, b, chatID, fmt.Sprintf("✅ \"%s\" added to your wishlist!", html.EscapeString(wish.Title)), nil)
}

func (h *Handlers) HandleWishlist(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleWishlist")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	keyboard, err := ui.WishlistKeyboard()
	if err != nil {
		logger.Error("failed to render wishlist keyboard", "error", err)
	}
	reply(ctx, b, in.chatID, "Whose wishlist do you want to see?", keyboard)
}

func (h *Handlers) HandleDeleteWish(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleDeleteWish")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	wishes, err := lists.Wishes(in.userID)
	if err != nil {
		logger.Error("failed to load wishes", "user_id", in.userID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load your wishlist. Please try again later.", nil)
		return
	}
	if len(wishes) == 0 {
		reply(ctx, b, in.chatID, "Your wishlist is empty.", nil)
		return
	}
	keyboard, err := ui.OwnWishKeyboard(wishes, 0)
	if err != nil {
		logger.Error("failed to render wish keyboard", "error", err)
		return
	}
	reply(ctx, b, in.chatID, "Which wish do you want to delete?", keyboard)
}

func (h *Handlers) HandleWishesCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleWishesCallback")
	if !ok {
		return
	}

	switch p.data.Action {
	case ui.ActSkipLink, ui.ActSkipPic:
		h.addWishPress(ctx, b, p)

	case ui.ActMine:
		answerCallback(ctx, b, p.id, "", false)
		wishes, err := lists.Wishes(p.userID)
		if err != nil {
			logger.Error("failed to load wishes", "user_id", p.userID, "error", err)
			return
		}
		if len(wishes) == 0 {
			edit(ctx, b, p, "Your wishlist is empty. Add something with /addwish.", nil)
			return
		}
		edit(ctx, b, p, renderWishes("🎁 Your wishlist:", wishes, 0), nil)

	case ui.ActPartner:
		answerCallback(ctx, b, p.id, "", false)
		h.showPartnerWishes(ctx, b, p)

	case ui.ActBook, ui.ActUnbook:
		h.toggleBooking(ctx, b, p)

	case ui.ActPage:
		answerCallback(ctx, b, p.id, "", false)
		wishes, err := lists.Wishes(p.userID)
		if err != nil {
			logger.Error("failed to load wishes", "user_id", p.userID, "error", err)
			return
		}
		keyboard, err := ui.OwnWishKeyboard(wishes, p.data.Number())
		if err != nil {
			logger.Error("failed to render wish keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)

	case ui.ActDelete:
		wish, err := lists.GetWish(p.data.ID())
		if err == nil {
			err = lists.DeleteWish(p.userID, wish.ID)
		}
		if errors.Is(err, lists.ErrNotFound) {
			answerCallback(ctx, b, p.id, "Wish not found or already deleted.", true)
			return
		}
		if err != nil {
			logger.Error("failed to delete wish", "user_id", p.userID, "error", err)
			answerCallback(ctx, b, p.id, "Failed to delete the wish.", true)
			return
		}
		answerCallback(ctx, b, p.id, "", false)
		edit(ctx, b, p, fmt.Sprintf("✅ Wish \"%s\" deleted.", html.EscapeString(wish.Title)), nil)
	}
}

func (h *Handlers) addWishPress(ctx context.Context, b *bot.Bot, p press) {
	state, ok := h.Sessions.Get(p.userID)
	if !ok || state.Flow != session.FlowAddWish {
		answerCallback(ctx, b, p.id, expiredText, false)
		return
	}
	answerCallback(ctx, b, p.id, "", false)

	switch {
	case p.data.Action == ui.ActSkipLink && state.Step == session.StepLink:
		h.Sessions.Advance(p.userID, session.StepPhoto, nil)
		edit(ctx, b, p, "No link then.", nil)
		h.askWishPhoto(ctx, b, p.chatID)
	case p.data.Action == ui.ActSkipPic && state.Step == session.StepPhoto:
		edit(ctx, b, p, "No photo then.", nil)
		h.finishWish(ctx, b, p.userID, p.chatID, state.Draft)
	}
}

func (h *Handlers) showPartnerWishes(ctx context.Context, b *bot.Bot, p press) {
	partner, err := couples.Partner(p.userID)
	if err != nil {
		edit(ctx, b, p, couplesOnlyText, nil)
		return
	}
	wishes, err := lists.Wishes(partner.UserID)
	if err != nil {
		logger.Error("failed to load wishes", "user_id", partner.UserID, "error", err)
		return
	}
	if len(wishes) == 0 {
		edit(ctx, b, p, "Your partner's wishlist is empty for now.", nil)
		return
	}
	keyboard, err := ui.PartnerWishKeyboard(wishes, p.userID)
	if err != nil {
		logger.Error("failed to render wish keyboard", "error", err)
		return
	}
	title := fmt.Sprintf("💝 %s's wishlist:", html.EscapeString(couples.DisplayName(partner)))
	edit(ctx, b, p, renderWishes(title, wishes, p.userID)+"\n\nBook a gift so nobody else buys it. Your partner won't see who booked it.", keyboard)
}

func (h *Handlers) toggleBooking(ctx context.Context, b *bot.Bot, p press) {
	var err error
	if p.data.Action == ui.ActBook {
		err = lists.BookWish(p.data.ID(), p.userID)
	} else {
		err = lists.UnbookWish(p.data.ID(), p.userID)
	}
	switch {
	case err == nil:
		answerCallback(ctx, b, p.id, "", false)
	case errors.Is(err, lists.ErrBooked):
		answerCallback(ctx, b, p.id, "Someone has already booked this gift.", true)
	case errors.Is(err, lists.ErrOwnWish):
		answerCallback(ctx, b, p.id, "You can't book your own wish.", true)
	case errors.Is(err, lists.ErrNotBooked), errors.Is(err, lists.ErrNotFound):
		answerCallback(ctx, b, p.id, "This booking is no longer available.", true)
	default:
		logger.Error("failed to change booking", "user_id", p.userID, "error", err)
		answerCallback(ctx, b, p.id, "Something went wrong.", true)
		return
	}
	h.showPartnerWishes(ctx, b, p)
}

// renderWishes lists wishes with links. A non-zero viewer sees booking
// marks; the owner never does.
func renderWishes(title string, wishes []db.Wish, viewer int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", title)
	for i, wish := range wishes {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, html.EscapeString(wish.Title))
		if wish.PhotoFileID != "" {
			sb.WriteString(" 📷")
		}
		if wish.Link != "" {
			fmt.Fprintf(&sb, " (<a href=\"%s\">link</a>)", html.EscapeString(wish.Link))
		}
		if viewer != 0 && wish.BookedByID != nil {
			if *wish.BookedByID == viewer {
				sb.WriteString(" - booked by you")
			} else {
				sb.WriteString(" - booked")
			}
		}
	}
	return sb.String()
}

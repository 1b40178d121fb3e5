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
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/queue"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const (
	askDateText  = "Pick a date or type it as <b>DD.MM.YYYY</b> (for example 31.12.2025)."
	askClockText = "Now enter the time as <b>HH:MM</b> (for example 09:30 or 18:00)."
	expiredText  = "This action has expired."
)

func (h *Handlers) HandleCompliment(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleCompliment")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowCompliment, session.StepText)
	reply(ctx, b, in.chatID, "What compliment would you like to send your partner? Write the text.", nil)
}

func (h *Handlers) complimentInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	switch state.Step {
	case session.StepText:
		text := strings.TrimSpace(in.msg.Text)
		if text == "" {
			reply(ctx, b, in.chatID, "Please send the compliment as a text message.", nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepAttachment, func(d *session.Draft) { d.Text = text })
		keyboard, err := ui.SkipKeyboard(ui.NSCompliment, ui.ActSkip, "Send without attachment")
		if err != nil {
			logger.Error("failed to render skip keyboard", "error", err)
		}
		reply(ctx, b, in.chatID, "Lovely! Now you can attach a photo, video, voice message or video note. Or press the button to send it without one.", keyboard)

	case session.StepAttachment:
		kind, fileID, ok := attachmentOf(in.msg)
		if !ok {
			reply(ctx, b, in.chatID, "Please send a photo, video, voice message or video note, or press the button to skip.", nil)
			return
		}
		caption := in.msg.Caption
		h.Sessions.Advance(in.userID, session.StepTiming, func(d *session.Draft) {
			d.AttachmentKind, d.AttachmentFileID, d.Caption = kind, fileID, caption
		})
		h.askComplimentTiming(ctx, b, in.chatID, "Attachment received! When should I send the compliment?")

	case session.StepDate:
		day, err := parseDate(in.msg.Text, h.now())
		if err != nil {
			reply(ctx, b, in.chatID, dateErrorText(err), nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepClock, func(d *session.Draft) { d.Date = day })
		reply(ctx, b, in.chatID, askClockText, nil)

	case session.StepClock:
		at, err := parseDayClock(state.Draft.Date, in.msg.Text, h.now())
		if err != nil {
			reply(ctx, b, in.chatID, clockErrorText(err), nil)
			return
		}
		h.scheduleCompliment(ctx, b, in.userID, in.chatID, state.Draft, at)

	default:
		reply(ctx, b, in.chatID, "Please use the buttons above.", nil)
	}
}

func (h *Handlers) askComplimentTiming(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	keyboard, err := ui.ComplimentTimingKeyboard()
	if err != nil {
		logger.Error("failed to render timing keyboard", "error", err)
	}
	reply(ctx, b, chatID, text, keyboard)
}

func (h *Handlers) HandleComplimentCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleComplimentCallback")
	if !ok {
		return
	}
	state, ok := h.Sessions.Get(p.userID)
	if !ok || state.Flow != session.FlowCompliment {
		answerCallback(ctx, b, p.id, expiredText, false)
		return
	}
	answerCallback(ctx, b, p.id, "", false)

	switch {
	case p.data.Action == ui.ActSkip && state.Step == session.StepAttachment:
		h.Sessions.Advance(p.userID, session.StepTiming, nil)
		keyboard, err := ui.ComplimentTimingKeyboard()
		if err != nil {
			logger.Error("failed to render timing keyboard", "error", err)
		}
		edit(ctx, b, p, "OK. When should I send the compliment?", keyboard)

	case p.data.Action == ui.ActNow && state.Step == session.StepTiming:
		h.Sessions.Clear(p.userID)
		h.sendComplimentNow(ctx, b, p.userID, p.chatID, state.Draft)

	case p.data.Action == ui.ActLater && state.Step == session.StepTiming:
		h.Sessions.Advance(p.userID, session.StepDate, nil)
		keyboard, err := ui.DateShortcutKeyboard(ui.NSCompliment)
		if err != nil {
			logger.Error("failed to render date keyboard", "error", err)
		}
		edit(ctx, b, p, askDateText, keyboard)

	case p.data.Action == ui.ActDate && state.Step == session.StepDate:
		day, err := shortcutDate(p.data.Arg, h.now())
		if err != nil {
			return
		}
		h.Sessions.Advance(p.userID, session.StepClock, func(d *session.Draft) { d.Date = day })
		edit(ctx, b, p, askClockText, nil)

	default:
		logger.Debug("stale compliment button", "user_id", p.userID, "action", p.data.Action, "step", state.Step)
	}
}

// complimentMessage renders a compliment for immediate delivery.
func complimentMessage(receiverID int64, senderName string, draft session.Draft) delivery.Message {
	msg := delivery.Message{
		ChatID: receiverID,
		Text: fmt.Sprintf("💌 You've got a compliment from %s:\n\n✨ «%s» ✨",
			html.EscapeString(senderName), html.EscapeString(draft.Text)),
		ParseMode: models.ParseModeHTML,
	}
	if draft.AttachmentFileID != "" {
		msg.Attachment = &delivery.Attachment{
			Kind:    draft.AttachmentKind,
			FileID:  draft.AttachmentFileID,
			Caption: html.EscapeString(draft.Caption),
		}
	}
	return msg
}

func (h *Handlers) sendComplimentNow(ctx context.Context, b *bot.Bot, userID, chatID int64, draft session.Draft) {
	sender, err := couples.GetUser(userID)
	if err != nil {
		logger.Error("failed to load sender", "user_id", userID, "error", err)
		reply(ctx, b, chatID, "Something went wrong. Please try again.", nil)
		return
	}
	partner, err := couples.Partner(userID)
	if err != nil {
		reply(ctx, b, chatID, "I couldn't find your partner. Please try again.", nil)
		return
	}
	if h.Sender == nil {
		logger.Error("no sender configured for compliments")
		return
	}
	if err := h.Sender.Send(ctx, complimentMessage(partner.UserID, couples.DisplayName(sender), draft)); err != nil {
		logger.Error("failed to send compliment", "user_id", userID, "error", err)
		reply(ctx, b, chatID, "Failed to send the compliment.", nil)
		return
	}
	reply(ctx, b, chatID, "Your compliment has been sent! 💖", nil)
}

func (h *Handlers) scheduleCompliment(ctx context.Context, b *bot.Bot, userID, chatID int64, draft session.Draft, at time.Time) {
	h.Sessions.Clear(userID)
	partner, err := couples.Partner(userID)
	if err != nil {
		reply(ctx, b, chatID, "I couldn't find your partner. Please try again.", nil)
		return
	}
	_, err = queue.Enqueue(db.ScheduledMessage{
		SenderID:         userID,
		ReceiverID:       partner.UserID,
		Text:             draft.Text,
		Caption:          draft.Caption,
		AttachmentKind:   draft.AttachmentKind,
		AttachmentFileID: draft.AttachmentFileID,
		SendAt:           at,
	})
	if err != nil {
		logger.Error("failed to schedule compliment", "user_id", userID, "error", err)
		reply(ctx, b, chatID, "Failed to schedule the compliment. Please try again later.", nil)
		return
	}
	reply(ctx, b, chatID, fmt.Sprintf("Done! Your compliment will be sent on %s. 💌", formatDayClock(at)), nil)
}

func dateErrorText(err error) string {
	if errors.Is(err, errPastDate) {
		return "That date is in the past! Please pick today or a later date."
	}
	return "Invalid format. Please enter the date as DD.MM.YYYY or use the buttons."
}

func clockErrorText(err error) string {
	if errors.Is(err, errPastTime) {
		return "That time has already passed! Please pick a time in the future."
	}
	return "Invalid format. Please enter the time as HH:MM."
}

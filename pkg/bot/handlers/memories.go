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
	"github.com/smith3v/tg-couple-bot/pkg/bot/lists"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

func (h *Handlers) HandleAddMemory(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAddMemory")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowAddMemory, session.StepMedia)
	reply(ctx, b, in.chatID, "Send a photo or video you want to keep in your memory capsule.", nil)
}

func (h *Handlers) addMemoryInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	switch state.Step {
	case session.StepMedia:
		kind, fileID, ok := attachmentOf(in.msg)
		if !ok || (kind != db.AttachmentPhoto && kind != db.AttachmentVideo) {
			reply(ctx, b, in.chatID, "Please send a photo or a video.", nil)
			return
		}
		h.Sessions.Advance(in.userID, session.StepDetails, func(d *session.Draft) {
			d.AttachmentKind, d.AttachmentFileID = kind, fileID
		})
		reply(ctx, b, in.chatID, "Great! Now add a short description of this moment.", nil)

	case session.StepDetails:
		text := strings.TrimSpace(in.msg.Text)
		if text == "" {
			reply(ctx, b, in.chatID, "Please send the description as text.", nil)
			return
		}
		h.Sessions.Clear(in.userID)
		couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
		if !ok {
			return
		}
		if _, err := lists.AddMemory(couple.ID, state.Draft.AttachmentKind, state.Draft.AttachmentFileID, text, h.now()); err != nil {
			logger.Error("failed to add memory", "couple_id", couple.ID, "error", err)
			reply(ctx, b, in.chatID, "Failed to save the memory. Please try again later.", nil)
			return
		}
		reply(ctx, b, in.chatID, "✅ Memory saved to your capsule! 💖", nil)
	}
}

func (h *Handlers) HandleMemory(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleMemory")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	memory, err := lists.RandomMemory(couple.ID)
	if errors.Is(err, lists.ErrNoMemories) {
		reply(ctx, b, in.chatID, "Your capsule is empty. Add the first memory with /addmemory.", nil)
		return
	}
	if err != nil {
		logger.Error("failed to pick memory", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load a memory. Please try again later.", nil)
		return
	}
	sendMemory(ctx, b, in.chatID, memory, "<b>✨ A memory from your capsule</b>", nil)
}

func (h *Handlers) HandleAllMemories(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAllMemories")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	memories, err := lists.Memories(couple.ID)
	if err != nil {
		logger.Error("failed to load memories", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load memories. Please try again later.", nil)
		return
	}
	if len(memories) == 0 {
		reply(ctx, b, in.chatID, "Your capsule is empty. Add the first memory with /addmemory.", nil)
		return
	}
	keyboard, err := ui.PagerKeyboard(ui.NSMemory, ui.ActView, 0, len(memories))
	if err != nil {
		logger.Error("failed to render memory pager", "error", err)
	}
	sendMemory(ctx, b, in.chatID, memories[0], memoryHeading(0, len(memories)), keyboard)
}

func (h *Handlers) HandleMemoryCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleMemoryCallback")
	if !ok {
		return
	}
	if p.data.Action != ui.ActView {
		answerCallback(ctx, b, p.id, "", false)
		return
	}
	couple, ok := coupleOf(ctx, b, p.chatID, p.userID)
	if !ok {
		answerCallback(ctx, b, p.id, "", false)
		return
	}
	answerCallback(ctx, b, p.id, "", false)

	memories, err := lists.Memories(couple.ID)
	if err != nil {
		logger.Error("failed to load memories", "couple_id", couple.ID, "error", err)
		return
	}
	if len(memories) == 0 {
		return
	}
	page := max(0, min(p.data.Number(), len(memories)-1))
	keyboard, err := ui.PagerKeyboard(ui.NSMemory, ui.ActView, page, len(memories))
	if err != nil {
		logger.Error("failed to render memory pager", "error", err)
		return
	}
	memory := memories[page]
	caption := memoryCaption(memoryHeading(page, len(memories)), memory)
	var media models.InputMedia
	if memory.MediaKind == db.AttachmentVideo {
		media = &models.InputMediaVideo{Media: memory.MediaFileID, Caption: caption, ParseMode: models.ParseModeHTML}
	} else {
		media = &models.InputMediaPhoto{Media: memory.MediaFileID, Caption: caption, ParseMode: models.ParseModeHTML}
	}
	if _, err := b.EditMessageMedia(ctx, &bot.EditMessageMediaParams{
		ChatID:      p.chatID,
		MessageID:   p.msgID,
		Media:       media,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to show memory", "chat_id", p.chatID, "error", err)
	}
}

func memoryHeading(page, total int) string {
	return fmt.Sprintf("<b>📸 Memory %d of %d</b>", page+1, total)
}

func memoryCaption(heading string, memory db.Memory) string {
	added := time.Time(memory.AddedOn).Format(timeutil.DateLayout)
	caption := fmt.Sprintf("%s\n📅 %s", heading, added)
	if memory.Description != "" {
		caption += "\n\n<i>" + html.EscapeString(memory.Description) + "</i>"
	}
	return caption
}

func sendMemory(ctx context.Context, b *bot.Bot, chatID int64, memory db.Memory, heading string, keyboard *models.InlineKeyboardMarkup) {
	file := &models.InputFileString{Data: memory.MediaFileID}
	caption := memoryCaption(heading, memory)
	var err error
	if memory.MediaKind == db.AttachmentVideo {
		_, err = b.SendVideo(ctx, &bot.SendVideoParams{
			ChatID: chatID, Video: file, Caption: caption, ParseMode: models.ParseModeHTML, ReplyMarkup: markup(keyboard),
		})
	} else {
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID, Photo: file, Caption: caption, ParseMode: models.ParseModeHTML, ReplyMarkup: markup(keyboard),
		})
	}
	if err != nil {
		logger.Error("failed to send memory", "chat_id", chatID, "memory_id", memory.ID, "error", err)
	}
}

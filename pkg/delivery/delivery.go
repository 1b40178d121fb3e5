// Package delivery is the outbound boundary for everything the bot sends on
// its own initiative. Sends are attempted once; callers log and count
// failures instead of retrying.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
)

var (
	ErrSenderClosed      = errors.New("sender closed")
	ErrEmptyMessage      = errors.New("message has neither text nor attachment")
	ErrUnknownAttachment = errors.New("unknown attachment kind")
)

const (
	KindPhoto     = "photo"
	KindVideo     = "video"
	KindVoice     = "voice"
	KindVideoNote = "video_note"
)

// Attachment references media already uploaded to Telegram.
type Attachment struct {
	Kind    string
	FileID  string
	Caption string
}

type Message struct {
	ChatID     int64
	Text       string
	ParseMode  models.ParseMode
	Attachment *Attachment
	Keyboard   models.ReplyMarkup
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// TelegramSender delivers messages through the bot API.
type TelegramSender struct {
	bot      *bot.Bot
	counters *metrics.Counters
	closed   atomic.Bool
}

func NewTelegramSender(b *bot.Bot, counters *metrics.Counters) *TelegramSender {
	if counters == nil {
		counters = metrics.Default
	}
	return &TelegramSender{bot: b, counters: counters}
}

// Close makes further sends fail with ErrSenderClosed. It is called after the
// sweeps have stopped.
func (s *TelegramSender) Close() {
	s.closed.Store(true)
}

// Send posts the text first and the attachment second. The keyboard rides on
// the last message sent.
func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	err := s.send(ctx, msg)
	if err != nil {
		s.counters.DeliveryFailures.Add(1)
		return err
	}
	s.counters.DeliveriesSent.Add(1)
	return nil
}

func (s *TelegramSender) send(ctx context.Context, msg Message) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}
	if msg.Text == "" && msg.Attachment == nil {
		return ErrEmptyMessage
	}
	if msg.Text != "" {
		params := &bot.SendMessageParams{
			ChatID:    msg.ChatID,
			Text:      msg.Text,
			ParseMode: msg.ParseMode,
		}
		if msg.Attachment == nil {
			params.ReplyMarkup = msg.Keyboard
		}
		if _, err := s.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send message to %d: %w", msg.ChatID, err)
		}
	}
	if msg.Attachment != nil {
		if err := s.sendAttachment(ctx, msg); err != nil {
			return fmt.Errorf("send %s to %d: %w", msg.Attachment.Kind, msg.ChatID, err)
		}
	}
	return nil
}

func (s *TelegramSender) sendAttachment(ctx context.Context, msg Message) error {
	att := msg.Attachment
	file := &models.InputFileString{Data: att.FileID}
	var err error
	switch att.Kind {
	case KindPhoto:
		_, err = s.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: msg.ChatID, Photo: file, Caption: att.Caption, ParseMode: msg.ParseMode, ReplyMarkup: msg.Keyboard,
		})
	case KindVideo:
		_, err = s.bot.SendVideo(ctx, &bot.SendVideoParams{
			ChatID: msg.ChatID, Video: file, Caption: att.Caption, ParseMode: msg.ParseMode, ReplyMarkup: msg.Keyboard,
		})
	case KindVoice:
		_, err = s.bot.SendVoice(ctx, &bot.SendVoiceParams{
			ChatID: msg.ChatID, Voice: file, Caption: att.Caption, ParseMode: msg.ParseMode, ReplyMarkup: msg.Keyboard,
		})
	case KindVideoNote:
		// Video notes carry no caption.
		_, err = s.bot.SendVideoNote(ctx, &bot.SendVideoNoteParams{
			ChatID: msg.ChatID, VideoNote: file, ReplyMarkup: msg.Keyboard,
		})
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAttachment, att.Kind)
	}
	return err
}

// SendAll delivers msg to every chat and joins the failures. One recipient
// failing does not stop the others.
func SendAll(ctx context.Context, sender Sender, chatIDs []int64, msg Message) error {
	var errs []error
	for _, id := range chatIDs {
		m := msg
		m.ChatID = id
		if err := sender.Send(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

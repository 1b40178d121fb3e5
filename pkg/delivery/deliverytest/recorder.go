// Package deliverytest provides an in-memory delivery.Sender for tests.
package deliverytest

import (
	"context"
	"strings"
	"sync"

	"github.com/smith3v/tg-couple-bot/pkg/delivery"
)

// Recorder keeps every message it is asked to send. Chats listed in Fail
// receive an error instead.
type Recorder struct {
	mu       sync.Mutex
	messages []delivery.Message
	Fail     map[int64]error
}

func NewRecorder() *Recorder {
	return &Recorder{Fail: make(map[int64]error)}
}

func (r *Recorder) Send(_ context.Context, msg delivery.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[msg.ChatID]; ok {
		return err
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) Messages() []delivery.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]delivery.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// To returns the messages delivered to chatID in send order.
func (r *Recorder) To(chatID int64) []delivery.Message {
	var out []delivery.Message
	for _, m := range r.Messages() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Containing returns the messages whose text contains substr.
func (r *Recorder) Containing(substr string) []delivery.Message {
	var out []delivery.Message
	for _, m := range r.Messages() {
		if strings.Contains(m.Text, substr) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

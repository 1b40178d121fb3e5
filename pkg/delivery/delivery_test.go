package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	paths    []string
	bodies   []string
	response string
}

func newMockClient() *mockClient {
	return &mockClient{response: `{"ok":true,"result":{}}`}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	_ = req.Body.Close()
	m.paths = append(m.paths, req.URL.Path)
	m.bodies = append(m.bodies, string(body))
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.response)),
		Header:     make(http.Header),
	}, nil
}

func newTestSender(t *testing.T, client *mockClient) (*TelegramSender, *metrics.Counters) {
	t.Helper()
	b, err := bot.New("test-token", bot.WithSkipGetMe(), bot.WithHTTPClient(time.Second, client))
	require.NoError(t, err)
	counters := &metrics.Counters{}
	return NewTelegramSender(b, counters), counters
}

func TestSendTextOnly(t *testing.T) {
	client := newMockClient()
	sender, counters := newTestSender(t, client)

	err := sender.Send(context.Background(), Message{ChatID: 10, Text: "hello", ParseMode: models.ParseModeHTML})
	require.NoError(t, err)

	require.Len(t, client.paths, 1)
	assert.True(t, strings.HasSuffix(client.paths[0], "/sendMessage"))
	assert.Contains(t, client.bodies[0], "hello")
	assert.Equal(t, int64(1), counters.DeliveriesSent.Load())
}

func TestSendTextThenAttachment(t *testing.T) {
	client := newMockClient()
	sender, _ := newTestSender(t, client)

	err := sender.Send(context.Background(), Message{
		ChatID:     10,
		Text:       "look",
		Attachment: &Attachment{Kind: KindPhoto, FileID: "file-1", Caption: "us"},
	})
	require.NoError(t, err)

	require.Len(t, client.paths, 2)
	assert.True(t, strings.HasSuffix(client.paths[0], "/sendMessage"))
	assert.True(t, strings.HasSuffix(client.paths[1], "/sendPhoto"))
	assert.Contains(t, client.bodies[1], "file-1")
	assert.Contains(t, client.bodies[1], "us")
}

func TestSendEachAttachmentKind(t *testing.T) {
	cases := map[string]string{
		KindPhoto:     "/sendPhoto",
		KindVideo:     "/sendVideo",
		KindVoice:     "/sendVoice",
		KindVideoNote: "/sendVideoNote",
	}
	for kind, suffix := range cases {
		client := newMockClient()
		sender, _ := newTestSender(t, client)
		err := sender.Send(context.Background(), Message{ChatID: 1, Attachment: &Attachment{Kind: kind, FileID: "f"}})
		require.NoError(t, err, kind)
		require.Len(t, client.paths, 1, kind)
		assert.True(t, strings.HasSuffix(client.paths[0], suffix), "%s sent to %s", kind, client.paths[0])
	}
}

func TestSendRejectsInvalidMessages(t *testing.T) {
	client := newMockClient()
	sender, counters := newTestSender(t, client)

	err := sender.Send(context.Background(), Message{ChatID: 1})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	err = sender.Send(context.Background(), Message{ChatID: 1, Attachment: &Attachment{Kind: "sticker", FileID: "f"}})
	assert.ErrorIs(t, err, ErrUnknownAttachment)

	assert.Empty(t, client.paths)
	assert.Equal(t, int64(2), counters.DeliveryFailures.Load())
}

func TestSendCountsTransportFailure(t *testing.T) {
	client := newMockClient()
	client.response = `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	sender, counters := newTestSender(t, client)

	err := sender.Send(context.Background(), Message{ChatID: 1, Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, int64(1), counters.DeliveryFailures.Load())
	assert.Zero(t, counters.DeliveriesSent.Load())
}

func TestSendAfterCloseFails(t *testing.T) {
	client := newMockClient()
	sender, _ := newTestSender(t, client)
	sender.Close()

	err := sender.Send(context.Background(), Message{ChatID: 1, Text: "late"})
	assert.ErrorIs(t, err, ErrSenderClosed)
	assert.Empty(t, client.paths)
}

type flakySender struct {
	fail map[int64]bool
	sent []int64
}

func (f *flakySender) Send(_ context.Context, msg Message) error {
	if f.fail[msg.ChatID] {
		return errors.New("unreachable")
	}
	f.sent = append(f.sent, msg.ChatID)
	return nil
}

func TestSendAllIsolatesRecipients(t *testing.T) {
	sender := &flakySender{fail: map[int64]bool{10: true}}
	err := SendAll(context.Background(), sender, []int64{10, 20}, Message{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, []int64{20}, sender.sent)
}

package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

type mockClient struct {
	requests []recordedRequest
	response string
}

func newMockClient() *mockClient {
	return &mockClient{
		response: `{"ok":true,"result":{}}`,
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.response)),
		Header:     make(http.Header),
	}
	return resp, nil
}

// field reads one multipart form field of req. ok is false when the request
// does not carry it.
func (r recordedRequest) field(t *testing.T, name string) (string, bool) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(r.contentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(r.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return "", false
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == name {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data), true
		}
	}
}

// calls returns the recorded requests of one Bot API method.
func (m *mockClient) calls(method string) []recordedRequest {
	var out []recordedRequest
	for _, req := range m.requests {
		if strings.HasSuffix(req.path, "/"+method) {
			out = append(out, req)
		}
	}
	return out
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	text, ok := m.requests[len(m.requests)-1].field(t, "text")
	if !ok {
		t.Fatalf("text field not found in request")
	}
	return text
}

// texts returns the text of every sent or edited message in order.
func (m *mockClient) texts(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, req := range m.requests {
		if !strings.HasSuffix(req.path, "/sendMessage") && !strings.HasSuffix(req.path, "/editMessageText") {
			continue
		}
		if text, ok := req.field(t, "text"); ok {
			out = append(out, text)
		}
	}
	return out
}

// sawText reports whether any sent or edited message contains substr.
func (m *mockClient) sawText(t *testing.T, substr string) bool {
	t.Helper()
	for _, text := range m.texts(t) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (m *mockClient) lastMultipartField(t *testing.T, fieldName string) string {
	t.Helper()
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	value, ok := m.requests[len(m.requests)-1].field(t, fieldName)
	if !ok {
		t.Fatalf("field %q not found in request", fieldName)
	}
	return value
}

func (m *mockClient) reset() {
	m.requests = nil
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID:        userID,
				FirstName: fmt.Sprintf("user%d", userID),
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Text: text,
		},
	}
}

func newTestPhotoUpdate(fileID, caption string, userID int64) *models.Update {
	update := newTestUpdate("", userID)
	update.Message.Photo = []models.PhotoSize{
		{FileID: fileID + "-small", Width: 90, Height: 90},
		{FileID: fileID, Width: 800, Height: 800},
	}
	update.Message.Caption = caption
	return update
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID, FirstName: fmt.Sprintf("user%d", userID)},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}

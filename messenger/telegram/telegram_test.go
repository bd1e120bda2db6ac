package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deeppavlov/convai-router-bot/messenger"
)

func TestParseWebhookTextMessage(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"update_id": 10,
		"message": {
			"message_id": 44,
			"from": {"id": 5, "username": "alice"},
			"chat": {"id": 5},
			"date": 1700000000,
			"text": "hi there"
		}
	}`)
	in, ok, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("ParseWebhook() error = %v", err)
	}
	if !ok {
		t.Fatalf("ParseWebhook() ok = false, want true")
	}
	if in.Platform != messenger.PlatformTelegram || in.UserID != "5" || in.Username != "alice" || in.Text != "hi there" {
		t.Fatalf("ParseWebhook() = %+v", in)
	}
}

func TestParseWebhookPairHint(t *testing.T) {
	t.Parallel()

	body := []byte(`{"message": {"message_id": 1, "chat": {"id": 9}, "text": "/pair K1\nhello"}}`)
	in, ok, err := ParseWebhook(body)
	if err != nil || !ok {
		t.Fatalf("ParseWebhook() = (%v, %v)", ok, err)
	}
	if in.PairKey != "K1" || in.Text != "hello" {
		t.Fatalf("ParseWebhook() pair = (%q, %q), want (K1, hello)", in.PairKey, in.Text)
	}
}

func TestParseWebhookSkipsNonText(t *testing.T) {
	t.Parallel()

	_, ok, err := ParseWebhook([]byte(`{"update_id": 3, "edited_message": {"text": "x"}}`))
	if err != nil {
		t.Fatalf("ParseWebhook() error = %v", err)
	}
	if ok {
		t.Fatalf("ParseWebhook() ok = true, want false for non-text update")
	}
}

func TestParseWebhookInvalidJSON(t *testing.T) {
	t.Parallel()

	if _, _, err := ParseWebhook([]byte("{")); err == nil {
		t.Fatalf("ParseWebhook() expected error for invalid json")
	}
}

func TestSendText(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := NewClient("SECRET", srv.URL)
	if err := c.SendText(context.Background(), "42", "hello"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if gotPath != "/botSECRET/sendMessage" {
		t.Fatalf("request path = %q, want /botSECRET/sendMessage", gotPath)
	}
	if gotBody.ChatID != 42 || gotBody.Text != "hello" {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestSendTextAPIFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	c := NewClient("SECRET", srv.URL)
	err := c.SendText(context.Background(), "42", "hello")
	if !errors.Is(err, messenger.ErrDeliveryFailed) {
		t.Fatalf("SendText() error = %v, want ErrDeliveryFailed", err)
	}
}

func TestSendTextBadUserID(t *testing.T) {
	t.Parallel()

	c := NewClient("SECRET", "http://127.0.0.1:0")
	err := c.SendText(context.Background(), "not-a-number", "hello")
	if !errors.Is(err, messenger.ErrDeliveryFailed) {
		t.Fatalf("SendText() error = %v, want ErrDeliveryFailed", err)
	}
}

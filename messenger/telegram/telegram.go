// Package telegram adapts Telegram webhook updates and outbound sends to the
// canonical messenger boundary.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deeppavlov/convai-router-bot/messenger"
)

const defaultBaseURL = "https://api.telegram.org"

type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

func NewClient(token, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Platform() string { return messenger.PlatformTelegram }

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type okResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (c *Client) SendText(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: telegram user id %q is not a chat id", messenger.ErrDeliveryFailed, userID)
	}
	b, _ := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", messenger.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", messenger.ErrDeliveryFailed, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: telegram http %d: %s", messenger.ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var ok okResponse
	_ = json.Unmarshal(raw, &ok)
	if !ok.OK {
		return fmt.Errorf("%w: telegram sendMessage: ok=false", messenger.ErrDeliveryFailed)
	}
	return nil
}

type webhookUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      *struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Chat *struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Date int64  `json:"date"`
		Text string `json:"text"`
	} `json:"message"`
}

// ParseWebhook translates one Telegram webhook update into a canonical
// inbound message. Updates without a text message (edits, stickers, joins)
// return ok=false and are ignored upstream.
func ParseWebhook(body []byte) (messenger.Inbound, bool, error) {
	var upd webhookUpdate
	if err := json.Unmarshal(body, &upd); err != nil {
		return messenger.Inbound{}, false, fmt.Errorf("telegram: invalid webhook payload: %w", err)
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return messenger.Inbound{}, false, nil
	}

	receivedAt := time.Unix(msg.Date, 0).UTC()
	if msg.Date == 0 {
		receivedAt = time.Now().UTC()
	}
	username := ""
	if msg.From != nil {
		username = msg.From.Username
		if username == "" {
			username = msg.From.FirstName
		}
	}
	text, pairKey := messenger.ExtractPairKey(msg.Text)
	return messenger.Inbound{
		Platform:   messenger.PlatformTelegram,
		UserID:     strconv.FormatInt(msg.Chat.ID, 10),
		Username:   username,
		Text:       text,
		PairKey:    pairKey,
		ReceivedAt: receivedAt,
	}, true, nil
}

// Package facebook adapts Facebook Messenger page webhooks and Graph API
// sends to the canonical messenger boundary.
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deeppavlov/convai-router-bot/messenger"
)

const defaultBaseURL = "https://graph.facebook.com/v2.6"

type Client struct {
	pageAccessToken string
	baseURL         string
	http            *http.Client
}

func NewClient(pageAccessToken, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		pageAccessToken: pageAccessToken,
		baseURL:         strings.TrimRight(baseURL, "/"),
		http:            &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Platform() string { return messenger.PlatformFacebook }

type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

func (c *Client) SendText(ctx context.Context, userID, text string) error {
	var body sendRequest
	body.Recipient.ID = userID
	body.Message.Text = text
	b, _ := json.Marshal(body)

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(c.pageAccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
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
		return fmt.Errorf("%w: facebook http %d: %s", messenger.ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

type webhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   *struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseWebhook translates a page webhook event, which may batch several
// messages, into canonical inbound messages. Non-message events (delivery
// receipts, postbacks without text) are skipped.
func ParseWebhook(body []byte) ([]messenger.Inbound, error) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("facebook: invalid webhook payload: %w", err)
	}
	if event.Object != "page" {
		return nil, fmt.Errorf("facebook: unexpected webhook object %q", event.Object)
	}

	var out []messenger.Inbound
	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil || strings.TrimSpace(m.Message.Text) == "" || m.Sender.ID == "" {
				continue
			}
			receivedAt := time.UnixMilli(m.Timestamp).UTC()
			if m.Timestamp == 0 {
				receivedAt = time.Now().UTC()
			}
			text, pairKey := messenger.ExtractPairKey(m.Message.Text)
			out = append(out, messenger.Inbound{
				Platform:   messenger.PlatformFacebook,
				UserID:     m.Sender.ID,
				Text:       text,
				PairKey:    pairKey,
				ReceivedAt: receivedAt,
			})
		}
	}
	return out, nil
}

package botapi

import (
	"github.com/deeppavlov/convai-router-bot/queue"
)

// wireUpdate mirrors the Telegram Bot API update shape the backends expect.
type wireUpdate struct {
	UpdateID int64       `json:"update_id"`
	Message  wireMessage `json:"message"`
}

type wireMessage struct {
	MessageID int64    `json:"message_id"`
	From      wireUser `json:"from"`
	Chat      wireChat `json:"chat"`
	Date      int64    `json:"date"`
	Text      string   `json:"text"`
}

type wireUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
}

type wireChat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Type      string `json:"type"`
}

type okEnvelope struct {
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

type errEnvelope struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func toWireUpdate(u queue.Update) wireUpdate {
	name := u.SenderName
	if name == "" {
		name = "user"
	}
	return wireUpdate{
		UpdateID: u.UpdateID,
		Message: wireMessage{
			MessageID: u.UpdateID,
			From: wireUser{
				ID:        u.ChatID,
				IsBot:     false,
				FirstName: name,
			},
			Chat: wireChat{
				ID:        u.ChatID,
				FirstName: name,
				Type:      "private",
			},
			Date: u.ReceivedAt.Unix(),
			Text: u.Text,
		},
	}
}

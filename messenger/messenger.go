// Package messenger defines the canonical boundary between the router and
// the platform transports. Each platform variant translates its native
// webhook payloads into Inbound messages and canonical reply text into its
// native send call; the router never sees platform wire shapes.
package messenger

import (
	"context"
	"errors"
	"time"
)

const (
	PlatformTelegram = "Telegram"
	PlatformFacebook = "Facebook"
)

// ErrDeliveryFailed wraps transport-level send failures. The router treats
// the reply as consumed either way; retrying is the backend's business.
var ErrDeliveryFailed = errors.New("messenger: delivery failed")

// Inbound is a platform-neutral end-user message. PairKey is an optional
// pairing hint for linked-group bindings, extracted by the adapter from
// platform-specific conventions.
type Inbound struct {
	Platform   string
	UserID     string
	Username   string
	Text       string
	PairKey    string
	ReceivedAt time.Time
}

// Messenger is the outbound capability of one platform adapter.
type Messenger interface {
	Platform() string
	SendText(ctx context.Context, userID, text string) error
}

package router

import "time"

// SessionKey identifies one end-user conversation on one platform.
type SessionKey struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
}

// Session binds an end-user conversation to a profile instance. Once bound,
// every message from that user routes to the same instance until the session
// expires.
type Session struct {
	Key            SessionKey `json:"key"`
	InstanceID     string     `json:"instance_id"`
	ProfileID      string     `json:"profile_id"`
	ChatID         int64      `json:"chat_id"`
	Username       string     `json:"username,omitempty"`
	BoundAt        time.Time  `json:"bound_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`

	// RotationCursor is set when the binding was drawn from a linked group
	// via a pair hint; it records the pair key the rotation belongs to.
	RotationCursor string `json:"rotation_cursor,omitempty"`

	transcript []TranscriptEntry
}

// TranscriptEntry is one line of a session's conversation, kept for the
// archive written at expiry.
type TranscriptEntry struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

const (
	senderUser = "user"
	senderBot  = "bot"
)

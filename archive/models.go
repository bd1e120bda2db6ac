package archive

import "time"

// Conversation is one finished end-user session.
type Conversation struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"uniqueIndex:idx_conversation_id;size:36;not null"`
	Platform       string    `gorm:"size:32;not null"`
	UserID         string    `gorm:"index:idx_user_id;size:64;not null"`
	ProfileID      string    `gorm:"index:idx_profile_id;size:64;not null"`
	InstanceID     string    `gorm:"size:64;not null"`
	StartedAt      time.Time `gorm:"not null"`
	EndedAt        time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// Message is one line of a conversation's transcript, ordered by Seq.
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"index:idx_msg_conversation;size:36;not null"`
	Seq            int       `gorm:"not null"`
	Sender         string    `gorm:"size:16;not null"`
	Text           string    `gorm:"type:text;not null"`
	SentAt         time.Time `gorm:"not null"`
}

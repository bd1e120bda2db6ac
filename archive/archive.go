// Package archive stores transcripts of expired sessions in SQLite.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deeppavlov/convai-router-bot/router"
)

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the archive database and migrates its schema.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("archive: empty dsn")
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}
	if err := db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// ArchiveSession writes one expired session and its transcript in a single
// transaction.
func (s *Store) ArchiveSession(ctx context.Context, rec router.ArchivedSession) error {
	conversationID := uuid.NewString()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := Conversation{
			ConversationID: conversationID,
			Platform:       rec.Platform,
			UserID:         rec.UserID,
			ProfileID:      rec.ProfileID,
			InstanceID:     rec.InstanceID,
			StartedAt:      rec.StartedAt,
			EndedAt:        rec.EndedAt,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return fmt.Errorf("archive: save conversation: %w", err)
		}
		for i, entry := range rec.Transcript {
			msg := Message{
				ConversationID: conversationID,
				Seq:            i + 1,
				Sender:         entry.Sender,
				Text:           entry.Text,
				SentAt:         entry.SentAt,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("archive: save message %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Conversations lists archived conversations for an end-user, newest first.
func (s *Store) Conversations(ctx context.Context, platform, userID string) ([]Conversation, error) {
	var out []Conversation
	err := s.db.WithContext(ctx).
		Where("platform = ? AND user_id = ?", platform, userID).
		Order("ended_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("archive: list conversations: %w", err)
	}
	return out, nil
}

// Transcript returns a conversation's messages in order.
func (s *Store) Transcript(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("archive: load transcript: %w", err)
	}
	return out, nil
}

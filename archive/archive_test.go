package archive

import (
	"context"
	"testing"
	"time"

	"github.com/deeppavlov/convai-router-bot/router"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestArchiveAndReadBack(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rec := router.ArchivedSession{
		Platform:   "Telegram",
		UserID:     "u1",
		ProfileID:  "p1",
		InstanceID: "i1",
		StartedAt:  started,
		EndedAt:    started.Add(10 * time.Minute),
		Transcript: []router.TranscriptEntry{
			{Sender: "user", Text: "hello", SentAt: started},
			{Sender: "bot", Text: "hi there", SentAt: started.Add(time.Minute)},
		},
	}
	if err := s.ArchiveSession(ctx, rec); err != nil {
		t.Fatalf("ArchiveSession() error = %v", err)
	}

	convs, err := s.Conversations(ctx, "Telegram", "u1")
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("Conversations() returned %d rows, want 1", len(convs))
	}
	if convs[0].ProfileID != "p1" || convs[0].InstanceID != "i1" {
		t.Fatalf("conversation = %+v", convs[0])
	}

	msgs, err := s.Transcript(ctx, convs[0].ConversationID)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Transcript() returned %d rows, want 2", len(msgs))
	}
	if msgs[0].Sender != "user" || msgs[0].Text != "hello" || msgs[0].Seq != 1 {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[1].Sender != "bot" || msgs[1].Seq != 2 {
		t.Fatalf("second message = %+v", msgs[1])
	}
}

func TestConversationsEmptyForUnknownUser(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	convs, err := s.Conversations(context.Background(), "Telegram", "nobody")
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("Conversations() returned %d rows, want 0", len(convs))
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatalf("Open() expected error for empty dsn")
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ent0n29/backtoback/internal/conversation"
)

func sampleSession(id string) *conversation.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &conversation.Session{
		ID:            id,
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
		Mode:          conversation.ModeAIVsAI,
		MaxTurns:      10,
		CurrentTurn:   2,
		NextSpeaker:   conversation.SpeakerAgent1,
		Phase:         conversation.PhaseConversation,
		Messages: []conversation.Message{
			{Speaker: conversation.SpeakerAgent1, Text: "ahoy", TurnNumber: 1, Timestamp: now},
			{Speaker: conversation.SpeakerAgent2, Text: "shh", TurnNumber: 2, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInMemoryPutGetRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sess := sampleSession("s-1")

	if err := s.Put(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != sess.ID || got.CurrentTurn != sess.CurrentTurn || got.Phase != sess.Phase {
		t.Fatalf("Get() = %+v, want stored session", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Text != "ahoy" {
		t.Fatalf("messages = %+v", got.Messages)
	}

	// Mutating the returned copy must not touch the stored state.
	got.Messages[0].Text = "mutated"
	got.CurrentTurn = 99
	again, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if again.Messages[0].Text != "ahoy" || again.CurrentTurn != 2 {
		t.Fatalf("stored session was mutated through a returned copy: %+v", again)
	}
}

func TestInMemoryGetUnknown(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryExpiry(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, sampleSession("s-ttl"), 10*time.Millisecond); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := s.Get(ctx, "s-ttl"); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryRefreshTTL(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, sampleSession("s-refresh"), 20*time.Millisecond); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.RefreshTTL(ctx, "s-refresh", time.Hour); err != nil {
		t.Fatalf("RefreshTTL() error = %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	if _, err := s.Get(ctx, "s-refresh"); err != nil {
		t.Fatalf("Get() after refresh error = %v", err)
	}

	if err := s.RefreshTTL(ctx, "missing", time.Hour); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("RefreshTTL() on missing id error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, sampleSession("s-del"), time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	deleted, err := s.Delete(ctx, "s-del")
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v, want true, nil", deleted, err)
	}
	deleted, err = s.Delete(ctx, "s-del")
	if err != nil || deleted {
		t.Fatalf("second Delete() = %v, %v, want false, nil", deleted, err)
	}
}

func TestInMemoryPurgeExpired(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, sampleSession("stale"), -time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, sampleSession("fresh"), time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	s.purgeExpired()

	if _, ok := s.entries["stale"]; ok {
		t.Fatalf("stale entry survived purge")
	}
	if _, ok := s.entries["fresh"]; !ok {
		t.Fatalf("fresh entry was purged")
	}
}

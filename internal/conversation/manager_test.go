package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeStore keeps sessions in a plain map. It lives in this package so the
// manager tests do not need to import the real store implementations.
type fakeStore struct {
	sessions map[string]*Session
	putErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*Session)}
}

func (f *fakeStore) Put(_ context.Context, s *Session, _ time.Duration) error {
	if f.putErr != nil {
		return f.putErr
	}
	clone := *s
	clone.Messages = append([]Message(nil), s.Messages...)
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	clone.Messages = append([]Message(nil), s.Messages...)
	return &clone, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := f.sessions[id]; !ok {
		return false, nil
	}
	delete(f.sessions, id)
	return true, nil
}

func (f *fakeStore) RefreshTTL(context.Context, string, time.Duration) error { return nil }
func (f *fakeStore) Ping(context.Context) error                              { return nil }
func (f *fakeStore) Close() error                                            { return nil }

func newTestManager(store Store) *Manager {
	engine := NewEngine(&stubGenerator{reply: "a reply"}, nil, NewRatioPolicy(), nil)
	return NewManager(store, engine, time.Hour, DefaultMaxTurns)
}

func TestManagerCreateDefaults(t *testing.T) {
	m := newTestManager(newFakeStore())

	s, cfg, err := m.Create(context.Background(), InitRequest{
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" {
		t.Fatalf("session id is empty")
	}
	if s.Mode != ModeAIVsAI {
		t.Fatalf("mode = %q, want default %q", s.Mode, ModeAIVsAI)
	}
	if s.MaxTurns != DefaultMaxTurns {
		t.Fatalf("max turns = %d, want default %d", s.MaxTurns, DefaultMaxTurns)
	}
	if s.NextSpeaker != SpeakerAgent1 {
		t.Fatalf("next speaker = %q, want %q", s.NextSpeaker, SpeakerAgent1)
	}
	if s.Phase != PhaseIntroduction {
		t.Fatalf("phase = %q, want %q", s.Phase, PhaseIntroduction)
	}
	if cfg["mode"] != string(ModeAIVsAI) || cfg["max_turns"] != "20" {
		t.Fatalf("config echo = %v", cfg)
	}
}

func TestManagerCreateConfiguredDefaultMaxTurns(t *testing.T) {
	engine := NewEngine(&stubGenerator{reply: "a reply"}, nil, NewRatioPolicy(), nil)
	m := NewManager(newFakeStore(), engine, time.Hour, 5)

	s, cfg, err := m.Create(context.Background(), InitRequest{
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.MaxTurns != 5 {
		t.Fatalf("max turns = %d, want configured default 5", s.MaxTurns)
	}
	if cfg["max_turns"] != "5" {
		t.Fatalf("config echo = %v", cfg)
	}

	// An explicit request value still wins over the configured default.
	s, _, err = m.Create(context.Background(), InitRequest{
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
		MaxTurns:      12,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.MaxTurns != 12 {
		t.Fatalf("max turns = %d, want 12", s.MaxTurns)
	}

	// An unusable configured default falls back to the package constant.
	m = NewManager(newFakeStore(), engine, time.Hour, 0)
	s, _, err = m.Create(context.Background(), InitRequest{
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.MaxTurns != DefaultMaxTurns {
		t.Fatalf("max turns = %d, want fallback %d", s.MaxTurns, DefaultMaxTurns)
	}
}

func TestManagerCreateValidation(t *testing.T) {
	m := newTestManager(newFakeStore())
	ctx := context.Background()

	cases := []struct {
		name string
		req  InitRequest
	}{
		{"missing persona 1", InitRequest{Agent2Persona: "b"}},
		{"missing persona 2", InitRequest{Agent1Persona: "a"}},
		{"blank persona", InitRequest{Agent1Persona: "   ", Agent2Persona: "b"}},
		{"unknown mode", InitRequest{Agent1Persona: "a", Agent2Persona: "b", Mode: "duet"}},
		{"negative max turns", InitRequest{Agent1Persona: "a", Agent2Persona: "b", MaxTurns: -1}},
		{"max turns over ceiling", InitRequest{Agent1Persona: "a", Agent2Persona: "b", MaxTurns: 101}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := m.Create(ctx, tc.req); !errors.Is(err, ErrInvalidInit) {
				t.Fatalf("Create() error = %v, want ErrInvalidInit", err)
			}
		})
	}
}

func TestManagerCreatePersonaEcho(t *testing.T) {
	m := newTestManager(newFakeStore())
	long := strings.Repeat("x", 150)

	s, cfg, err := m.Create(context.Background(), InitRequest{
		Agent1Persona: long,
		Agent2Persona: "short",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	want := strings.Repeat("x", 100) + "..."
	if cfg["agent_1_persona"] != want {
		t.Fatalf("echo = %q, want truncated persona", cfg["agent_1_persona"])
	}
	// The stored session keeps the full persona.
	if s.Agent1Persona != long {
		t.Fatalf("stored persona length = %d, want %d", len(s.Agent1Persona), len(long))
	}
}

func TestManagerApplyTurnFullConversation(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	ctx := context.Background()

	s, _, err := m.Create(ctx, InitRequest{
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
		MaxTurns:      4,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 1; i <= 4; i++ {
		res, err := m.ApplyTurn(ctx, s.ID, Instruction{})
		if err != nil {
			t.Fatalf("turn %d error = %v", i, err)
		}
		if res.TurnCount != i {
			t.Fatalf("turn %d count = %d", i, res.TurnCount)
		}
		if res.Complete != (i == 4) {
			t.Fatalf("turn %d complete = %v", i, res.Complete)
		}
	}

	if _, err := m.ApplyTurn(ctx, s.ID, Instruction{}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("fifth turn error = %v, want ErrExhausted", err)
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("message count = %d, want 4", len(got.Messages))
	}
	if got.CurrentTurn != 4 {
		t.Fatalf("current turn = %d, want 4", got.CurrentTurn)
	}
}

func TestManagerApplyTurnUnknownSession(t *testing.T) {
	m := newTestManager(newFakeStore())
	if _, err := m.ApplyTurn(context.Background(), "nope", Instruction{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestManagerApplyTurnFailureLeavesStateUnchanged(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	ctx := context.Background()

	s, _, err := m.Create(ctx, InitRequest{
		Agent1Persona: "a pirate",
		Agent2Persona: "a librarian",
		Mode:          ModeHumanVsAI,
		MaxTurns:      6,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The fresh session waits on agent_1; advance once so the human is next.
	if _, err := m.ApplyTurn(ctx, s.ID, Instruction{}); err != nil {
		t.Fatalf("setup turn error = %v", err)
	}
	before, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if _, err := m.ApplyTurn(ctx, s.ID, Instruction{}); !errors.Is(err, ErrMissingHumanInput) {
		t.Fatalf("error = %v, want ErrMissingHumanInput", err)
	}

	after, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.CurrentTurn != before.CurrentTurn || len(after.Messages) != len(before.Messages) {
		t.Fatalf("state changed after failed turn: before %d/%d, after %d/%d",
			before.CurrentTurn, len(before.Messages), after.CurrentTurn, len(after.Messages))
	}
}

func TestManagerLockMapDoesNotLeak(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	ctx := context.Background()

	// Turns against unknown ids must not leave lock entries behind.
	for i := 0; i < 3; i++ {
		if _, err := m.ApplyTurn(ctx, fmt.Sprintf("ghost-%d", i), Instruction{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	}
	m.mu.Lock()
	leaked := len(m.locks)
	m.mu.Unlock()
	if leaked != 0 {
		t.Fatalf("lock entries after unknown-id turns = %d, want 0", leaked)
	}

	// A session that expires out of the store sheds its lock on the next turn.
	s, _, err := m.Create(ctx, InitRequest{Agent1Persona: "a", Agent2Persona: "b"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.ApplyTurn(ctx, s.ID, Instruction{}); err != nil {
		t.Fatalf("turn error = %v", err)
	}
	delete(store.sessions, s.ID)
	if _, err := m.ApplyTurn(ctx, s.ID, Instruction{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	m.mu.Lock()
	_, held := m.locks[s.ID]
	m.mu.Unlock()
	if held {
		t.Fatalf("lock entry survived session expiry")
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(newFakeStore())
	ctx := context.Background()

	s, _, err := m.Create(ctx, InitRequest{Agent1Persona: "a", Agent2Persona: "b"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := m.Delete(ctx, s.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v, want true, nil", deleted, err)
	}
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}

	deleted, err = m.Delete(ctx, s.ID)
	if err != nil || deleted {
		t.Fatalf("second Delete() = %v, %v, want false, nil", deleted, err)
	}
}

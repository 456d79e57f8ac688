package store

import (
	"context"
	"sync"
	"time"

	"github.com/ent0n29/backtoback/internal/conversation"
)

// InMemoryStore is a simple in-process session store for local/dev use.
// Entries expire at their deadline; a janitor goroutine reclaims them.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	session  *conversation.Session
	deadline time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]*entry)}
}

func (s *InMemoryStore) Put(_ context.Context, sess *conversation.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.ID] = &entry{
		session:  clone(sess),
		deadline: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*conversation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || time.Now().UTC().After(e.deadline) {
		return nil, conversation.ErrNotFound
	}
	return clone(e.session), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok, nil
}

func (s *InMemoryStore) RefreshTTL(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return conversation.ErrNotFound
	}
	e.deadline = time.Now().UTC().Add(ttl)
	return nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

// StartJanitor periodically removes expired entries until ctx is done.
func (s *InMemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purgeExpired()
			}
		}
	}()
}

func (s *InMemoryStore) purgeExpired() {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.After(e.deadline) {
			delete(s.entries, id)
		}
	}
}

func clone(s *conversation.Session) *conversation.Session {
	c := *s
	c.Messages = make([]conversation.Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxTurns is the fallback turn budget when the manager is built
	// without a usable configured default.
	DefaultMaxTurns = 20
	maxTurnsCeiling = 100

	// personaEchoLimit truncates persona strings in the config echo.
	// Display only; stored personas are never truncated.
	personaEchoLimit = 100
)

// Manager owns the session lifecycle. ApplyTurn is the only path that
// mutates stored session state; it serializes concurrent turns against the
// same session with a per-session lock so no two mutations are applied to
// the same read of the turn counter.
type Manager struct {
	store           Store
	engine          *Engine
	ttl             time.Duration
	defaultMaxTurns int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewManager(store Store, engine *Engine, ttl time.Duration, defaultMaxTurns int) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if defaultMaxTurns < 1 || defaultMaxTurns > maxTurnsCeiling {
		defaultMaxTurns = DefaultMaxTurns
	}
	return &Manager{
		store:           store,
		engine:          engine,
		ttl:             ttl,
		defaultMaxTurns: defaultMaxTurns,
		locks:           make(map[string]*sync.Mutex),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the init request, persists a fresh session and returns
// it together with a redacted config echo.
func (m *Manager) Create(ctx context.Context, req InitRequest) (*Session, map[string]string, error) {
	if strings.TrimSpace(req.Agent1Persona) == "" {
		return nil, nil, fmt.Errorf("%w: agent_1_persona is required", ErrInvalidInit)
	}
	if strings.TrimSpace(req.Agent2Persona) == "" {
		return nil, nil, fmt.Errorf("%w: agent_2_persona is required", ErrInvalidInit)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeAIVsAI
	}
	if mode != ModeAIVsAI && mode != ModeHumanVsAI {
		return nil, nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInit, req.Mode)
	}
	maxTurns := req.MaxTurns
	if maxTurns == 0 {
		maxTurns = m.defaultMaxTurns
	}
	if maxTurns < 1 || maxTurns > maxTurnsCeiling {
		return nil, nil, fmt.Errorf("%w: max_turns must be in [1,%d]", ErrInvalidInit, maxTurnsCeiling)
	}

	now := m.now()
	s := &Session{
		ID:            uuid.NewString(),
		Agent1Persona: req.Agent1Persona,
		Agent2Persona: req.Agent2Persona,
		Mode:          mode,
		Scenario:      req.Scenario,
		MaxTurns:      maxTurns,
		CurrentTurn:   0,
		NextSpeaker:   SpeakerAgent1,
		Phase:         PhaseIntroduction,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.Put(ctx, s, m.ttl); err != nil {
		return nil, nil, fmt.Errorf("persist session: %w", err)
	}

	config := map[string]string{
		"mode":            string(mode),
		"max_turns":       strconv.Itoa(maxTurns),
		"agent_1_persona": redactPersona(req.Agent1Persona),
		"agent_2_persona": redactPersona(req.Agent2Persona),
	}
	return s, config, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Delete removes a session and reports whether one existed.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		m.releaseLock(id)
	}
	return deleted, nil
}

// ApplyTurn loads the session, runs the turn engine, folds the result into
// session state and persists it. On any error the stored state is left
// unchanged.
func (m *Manager) ApplyTurn(ctx context.Context, id string, in Instruction) (*TurnResult, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		// Expired or unknown sessions must not leave a lock entry behind;
		// the map would otherwise grow for the lifetime of the process.
		if errors.Is(err, ErrNotFound) {
			m.releaseLock(id)
		}
		return nil, err
	}

	res, err := m.engine.ProcessTurn(ctx, s, in)
	if err != nil {
		return nil, err
	}

	s.Apply(res, m.now())
	if err := m.store.Put(ctx, s, m.ttl); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return res, nil
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

func (m *Manager) releaseLock(id string) {
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
}

func redactPersona(persona string) string {
	if len(persona) > personaEchoLimit {
		return persona[:personaEchoLimit] + "..."
	}
	return persona
}

package conversation

import (
	"context"
	"errors"
	"time"
)

// Speaker identifies whose turn or message this is.
type Speaker string

const (
	SpeakerAgent1 Speaker = "agent_1"
	SpeakerAgent2 Speaker = "agent_2"
	SpeakerHuman  Speaker = "human"
)

// DisplayName returns the human-readable label used in prompt context lines.
func (s Speaker) DisplayName() string {
	switch s {
	case SpeakerAgent1:
		return "Agent 1"
	case SpeakerAgent2:
		return "Agent 2"
	case SpeakerHuman:
		return "Human"
	default:
		return string(s)
	}
}

// Other returns the opposing agent. Only meaningful for agent speakers.
func (s Speaker) Other() Speaker {
	if s == SpeakerAgent1 {
		return SpeakerAgent2
	}
	return SpeakerAgent1
}

func (s Speaker) IsAgent() bool {
	return s == SpeakerAgent1 || s == SpeakerAgent2
}

// Mode selects who drives the conversation.
type Mode string

const (
	ModeAIVsAI    Mode = "ai_vs_ai"
	ModeHumanVsAI Mode = "human_vs_ai"
)

// Phase is the narrative stage steering the tone of generated text.
type Phase string

const (
	PhaseIntroduction Phase = "introduction"
	PhaseConversation Phase = "conversation"
	PhaseFlirt        Phase = "flirt"
	PhaseRoast        Phase = "roast"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrExhausted         = errors.New("conversation has reached maximum turns")
	ErrMissingHumanInput = errors.New("human message required for human turn")
	ErrInvalidInit       = errors.New("invalid init request")
)

// Message is a single conversational turn. Immutable once appended.
type Message struct {
	Speaker    Speaker   `json:"speaker"`
	Text       string    `json:"text"`
	AudioURL   string    `json:"audio_url,omitempty"`
	TurnNumber int       `json:"turn_number"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session is the durable state of one conversation.
type Session struct {
	ID            string    `json:"session_id"`
	Agent1Persona string    `json:"agent_1_persona"`
	Agent2Persona string    `json:"agent_2_persona"`
	Mode          Mode      `json:"mode"`
	Scenario      string    `json:"scenario,omitempty"`
	MaxTurns      int       `json:"max_turns"`
	CurrentTurn   int       `json:"current_turn"`
	NextSpeaker   Speaker   `json:"next_speaker"`
	Phase         Phase     `json:"conversation_phase"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Apply folds an accepted turn result into the session state. It is the
// single place session state advances, shared by the HTTP and websocket
// paths.
func (s *Session) Apply(res *TurnResult, now time.Time) {
	s.Messages = append(s.Messages, res.Message)
	s.CurrentTurn = res.TurnCount
	s.NextSpeaker = res.NextSpeaker
	s.Phase = res.Phase
	s.UpdatedAt = now
}

// Persona returns the persona of the given speaker and of its counterpart.
func (s *Session) Persona(speaker Speaker) (own, other string) {
	if speaker == SpeakerAgent2 {
		return s.Agent2Persona, s.Agent1Persona
	}
	return s.Agent1Persona, s.Agent2Persona
}

// Instruction is one incoming turn request against a session.
type Instruction struct {
	// HumanText carries the human message when it is the human's turn.
	HumanText string
	// ForceSpeaker overrides the acting AI speaker when set to an agent.
	ForceSpeaker Speaker
}

// TurnResult is the outcome of one accepted turn.
type TurnResult struct {
	Message     Message `json:"message"`
	NextSpeaker Speaker `json:"next_speaker"`
	Phase       Phase   `json:"conversation_phase"`
	TurnCount   int     `json:"turn_count"`
	Complete    bool    `json:"is_conversation_complete"`
}

// GenerateRequest carries everything the response generator needs for one
// AI turn.
type GenerateRequest struct {
	Persona      string
	OtherPersona string
	History      string
	Phase        Phase
	Scenario     string
	Speaker      Speaker
}

// Generator produces agent text. Failures are recovered by the engine with
// fallback text, never surfaced as a failed turn.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Synthesizer produces an optional playable-audio reference for a finished
// message. An empty URL with a nil error means "no audio".
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speaker Speaker) (string, error)
}

// Store persists sessions with an expiry.
type Store interface {
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	RefreshTTL(ctx context.Context, id string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// InitRequest is the payload for creating a new session.
type InitRequest struct {
	Agent1Persona string `json:"agent_1_persona"`
	Agent2Persona string `json:"agent_2_persona"`
	Mode          Mode   `json:"mode"`
	Scenario      string `json:"scenario,omitempty"`
	MaxTurns      int    `json:"max_turns"`
}

// InitResponse echoes the created session id plus a redacted config view.
type InitResponse struct {
	SessionID string            `json:"session_id"`
	Config    map[string]string `json:"config"`
	Status    string            `json:"status"`
}

// TurnRequest is the payload for processing one chat turn.
type TurnRequest struct {
	SessionID    string  `json:"session_id"`
	Message      string  `json:"message,omitempty"`
	ForceSpeaker Speaker `json:"force_agent,omitempty"`
}

// SessionView is the read-only representation returned by the session
// endpoint.
type SessionView struct {
	SessionID    string    `json:"session_id"`
	Mode         Mode      `json:"mode"`
	CurrentTurn  int       `json:"current_turn"`
	MaxTurns     int       `json:"max_turns"`
	NextSpeaker  Speaker   `json:"next_speaker"`
	Phase        Phase     `json:"conversation_phase"`
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// View builds the read representation of a session.
func (s *Session) View() SessionView {
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return SessionView{
		SessionID:    s.ID,
		Mode:         s.Mode,
		CurrentTurn:  s.CurrentTurn,
		MaxTurns:     s.MaxTurns,
		NextSpeaker:  s.NextSpeaker,
		Phase:        s.Phase,
		MessageCount: len(msgs),
		Messages:     msgs,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

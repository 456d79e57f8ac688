package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/ent0n29/backtoback/internal/observability"
)

// FallbackText replaces generator output when the generator collaborator
// fails, so a bad vendor call never blocks the conversation.
const FallbackText = "Sorry, I'm having trouble responding right now."

// contextWindow bounds how many trailing messages feed the prompt context.
const contextWindow = 10

// Engine is the pure turn state machine. It computes the acting speaker,
// phase and next state for one turn, calling out to the generator and
// synthesizer collaborators. It never persists; that is the caller's job.
type Engine struct {
	generator   Generator
	synthesizer Synthesizer
	policy      PhasePolicy
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewEngine(generator Generator, synthesizer Synthesizer, policy PhasePolicy, metrics *observability.Metrics) *Engine {
	if policy == nil {
		policy = NewRatioPolicy()
	}
	return &Engine{
		generator:   generator,
		synthesizer: synthesizer,
		policy:      policy,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ProcessTurn produces exactly one new message and the session's next
// state. The session itself is not mutated.
func (e *Engine) ProcessTurn(ctx context.Context, s *Session, in Instruction) (*TurnResult, error) {
	if s.CurrentTurn >= s.MaxTurns {
		return nil, ErrExhausted
	}

	started := e.now()
	phase := e.policy.PhaseFor(s.CurrentTurn, s.MaxTurns)

	var res *TurnResult
	var err error
	if s.Mode == ModeHumanVsAI {
		res, err = e.humanAITurn(ctx, s, in, phase)
	} else {
		res, err = e.aiAITurn(ctx, s, in, phase)
	}
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.TurnsTotal.WithLabelValues(string(s.Mode), string(res.Phase)).Inc()
		e.metrics.ObserveTurnLatency(e.now().Sub(started))
	}
	return res, nil
}

func (e *Engine) aiAITurn(ctx context.Context, s *Session, in Instruction, phase Phase) (*TurnResult, error) {
	speaker := s.NextSpeaker
	if in.ForceSpeaker.IsAgent() {
		speaker = in.ForceSpeaker
	}

	text := e.generateText(ctx, s, speaker, phase)
	audioURL := e.synthesize(ctx, text, speaker)

	return e.result(s, Message{
		Speaker:    speaker,
		Text:       text,
		AudioURL:   audioURL,
		TurnNumber: s.CurrentTurn + 1,
		Timestamp:  e.now(),
	}, speaker.Other(), phase), nil
}

func (e *Engine) humanAITurn(ctx context.Context, s *Session, in Instruction, phase Phase) (*TurnResult, error) {
	if s.NextSpeaker == SpeakerHuman {
		if strings.TrimSpace(in.HumanText) == "" {
			return nil, ErrMissingHumanInput
		}
		// The human text becomes the message verbatim; no generator or
		// synthesizer call, and the AI responds next.
		return e.result(s, Message{
			Speaker:    SpeakerHuman,
			Text:       in.HumanText,
			TurnNumber: s.CurrentTurn + 1,
			Timestamp:  e.now(),
		}, SpeakerAgent1, phase), nil
	}

	speaker := SpeakerAgent1
	if in.ForceSpeaker.IsAgent() {
		speaker = in.ForceSpeaker
	}
	text := e.generateText(ctx, s, speaker, phase)
	audioURL := e.synthesize(ctx, text, speaker)

	return e.result(s, Message{
		Speaker:    speaker,
		Text:       text,
		AudioURL:   audioURL,
		TurnNumber: s.CurrentTurn + 1,
		Timestamp:  e.now(),
	}, SpeakerHuman, phase), nil
}

func (e *Engine) result(s *Session, msg Message, next Speaker, phase Phase) *TurnResult {
	turnCount := s.CurrentTurn + 1
	return &TurnResult{
		Message:     msg,
		NextSpeaker: next,
		Phase:       phase,
		TurnCount:   turnCount,
		Complete:    turnCount >= s.MaxTurns,
	}
}

func (e *Engine) generateText(ctx context.Context, s *Session, speaker Speaker, phase Phase) string {
	persona, otherPersona := s.Persona(speaker)
	text, err := e.generator.Generate(ctx, GenerateRequest{
		Persona:      persona,
		OtherPersona: otherPersona,
		History:      historyContext(s.Messages),
		Phase:        phase,
		Scenario:     s.Scenario,
		Speaker:      speaker,
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.GeneratorFallbacks.Inc()
		}
		return FallbackText
	}
	text = strings.TrimSpace(text)
	if text == "" {
		if e.metrics != nil {
			e.metrics.GeneratorFallbacks.Inc()
		}
		return FallbackText
	}
	return text
}

func (e *Engine) synthesize(ctx context.Context, text string, speaker Speaker) string {
	if e.synthesizer == nil {
		return ""
	}
	audioURL, err := e.synthesizer.Synthesize(ctx, text, speaker)
	if err != nil {
		// Synthesis failure is never fatal to the turn.
		if e.metrics != nil {
			e.metrics.SynthesisFailures.Inc()
		}
		return ""
	}
	return audioURL
}

// historyContext formats at most the trailing contextWindow messages as
// "<Display name>: <text>" lines, oldest first.
func historyContext(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	start := 0
	if len(msgs) > contextWindow {
		start = len(msgs) - contextWindow
	}
	lines := make([]string, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		lines = append(lines, msg.Speaker.DisplayName()+": "+msg.Text)
	}
	return strings.Join(lines, "\n")
}

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/backtoback/internal/conversation"
)

// wsEventType identifies websocket payload variants.
type wsEventType string

const (
	wsEventStart    wsEventType = "conversation_start"
	wsEventTurn     wsEventType = "turn"
	wsEventScenario wsEventType = "scenario_change"
	wsEventComplete wsEventType = "conversation_complete"
	wsEventError    wsEventType = "error_event"
)

type wsStartEvent struct {
	Type     wsEventType `json:"type"`
	StreamID string      `json:"stream_id"`
	Scenario string      `json:"scenario"`
	MaxTurns int         `json:"max_turns"`
}

type wsTurnEvent struct {
	Type       wsEventType          `json:"type"`
	StreamID   string               `json:"stream_id"`
	Speaker    conversation.Speaker `json:"speaker"`
	Text       string               `json:"text"`
	AudioURL   string               `json:"audio_url,omitempty"`
	TurnNumber int                  `json:"turn_number"`
	Phase      conversation.Phase   `json:"conversation_phase"`
	Complete   bool                 `json:"is_conversation_complete"`
}

type wsScenarioEvent struct {
	Type     wsEventType `json:"type"`
	StreamID string      `json:"stream_id"`
	Scenario string      `json:"scenario"`
}

type wsCompleteEvent struct {
	Type      wsEventType `json:"type"`
	StreamID  string      `json:"stream_id"`
	TurnCount int         `json:"turn_count"`
}

type wsErrorEvent struct {
	Type     wsEventType `json:"type"`
	StreamID string      `json:"stream_id"`
	Code     string      `json:"code"`
	Detail   string      `json:"detail"`
}

// handleConversationWS runs a free-running agent-vs-agent conversation over
// a websocket. The session here is ephemeral; the phase and alternation
// rules come from the same turn engine as the HTTP path.
func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	agent1 := strings.TrimSpace(q.Get("agent_1_persona"))
	agent2 := strings.TrimSpace(q.Get("agent_2_persona"))
	if agent1 == "" || agent2 == "" {
		respondError(w, http.StatusBadRequest, "missing_persona", "agent_1_persona and agent_2_persona are required", "")
		return
	}
	scenario := strings.TrimSpace(q.Get("scenario"))
	if scenario == "" {
		scenario = "flirt"
	}
	maxTurns := 10
	if raw := strings.TrimSpace(q.Get("max_turns")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "invalid_max_turns", "max_turns must be in [1,100]", "")
			return
		}
		maxTurns = n
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	streamID := uuid.NewString()
	s.registry.Add(StreamInfo{
		ID:        streamID,
		Scenario:  scenario,
		MaxTurns:  maxTurns,
		StartedAt: time.Now().UTC(),
	})
	s.metrics.ActiveStreams.Set(float64(s.registry.Count()))
	defer func() {
		s.registry.Remove(streamID)
		s.metrics.ActiveStreams.Set(float64(s.registry.Count()))
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so a disconnect cancels the conversation loop.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	now := time.Now().UTC()
	sess := &conversation.Session{
		ID:            streamID,
		Agent1Persona: agent1,
		Agent2Persona: agent2,
		Mode:          conversation.ModeAIVsAI,
		Scenario:      scenario,
		MaxTurns:      maxTurns,
		NextSpeaker:   conversation.SpeakerAgent1,
		Phase:         conversation.PhaseIntroduction,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.writeWS(conn, wsStartEvent{
		Type:     wsEventStart,
		StreamID: streamID,
		Scenario: scenario,
		MaxTurns: maxTurns,
	}); err != nil {
		return
	}

	for {
		res, err := s.engine.ProcessTurn(ctx, sess, conversation.Instruction{})
		if err != nil {
			_ = s.writeWS(conn, wsErrorEvent{
				Type:     wsEventError,
				StreamID: streamID,
				Code:     "turn_failed",
				Detail:   err.Error(),
			})
			return
		}
		sess.Apply(res, time.Now().UTC())

		if err := s.writeWS(conn, wsTurnEvent{
			Type:       wsEventTurn,
			StreamID:   streamID,
			Speaker:    res.Message.Speaker,
			Text:       res.Message.Text,
			AudioURL:   res.Message.AudioURL,
			TurnNumber: res.Message.TurnNumber,
			Phase:      res.Phase,
			Complete:   res.Complete,
		}); err != nil {
			return
		}

		// A flirt stream heats up into roasting at the halfway point.
		if sess.Scenario == "flirt" && sess.CurrentTurn == sess.MaxTurns/2 {
			sess.Scenario = "roast"
			if err := s.writeWS(conn, wsScenarioEvent{
				Type:     wsEventScenario,
				StreamID: streamID,
				Scenario: sess.Scenario,
			}); err != nil {
				return
			}
		}

		if res.Complete {
			_ = s.writeWS(conn, wsCompleteEvent{
				Type:      wsEventComplete,
				StreamID:  streamID,
				TurnCount: sess.CurrentTurn,
			})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.WSTurnDelay):
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

func (s *Server) handleWSStats(w http.ResponseWriter, _ *http.Request) {
	streams := s.registry.Snapshot()
	ids := make([]string, 0, len(streams))
	for _, info := range streams {
		ids = append(ids, info.ID)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active_connections": len(streams),
		"connection_ids":     ids,
	})
}

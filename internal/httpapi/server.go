package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/backtoback/internal/config"
	"github.com/ent0n29/backtoback/internal/conversation"
	"github.com/ent0n29/backtoback/internal/observability"
	"github.com/ent0n29/backtoback/internal/speech"
)

type Server struct {
	cfg      config.Config
	manager  *conversation.Manager
	engine   *conversation.Engine
	store    conversation.Store
	files    *speech.FileStore
	metrics  *observability.Metrics
	registry *Registry
	upgrader websocket.Upgrader
}

func New(cfg config.Config, manager *conversation.Manager, engine *conversation.Engine, store conversation.Store, files *speech.FileStore, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		manager:  manager,
		engine:   engine,
		store:    store,
		files:    files,
		metrics:  metrics,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a spectated
				// conversation if the service is exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/health/store", s.handleStoreHealth)
		r.Post("/init", s.handleInit)
		r.Post("/chat", s.handleChat)
		r.Get("/session/{id}", s.handleGetSession)
		r.Delete("/session/{id}", s.handleDeleteSession)
	})

	r.Get("/audio/{filename}", s.handleServeAudio)
	r.Post("/audio/cleanup", s.handleCleanupAudio)

	r.Get("/ws", s.handleConversationWS)
	r.Get("/ws/stats", s.handleWSStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "backtoback-api",
	})
}

func (s *Server) handleStoreHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"store":  "disconnected",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"store":  "connected",
	})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req conversation.InitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), "")
		return
	}

	sess, configEcho, err := s.manager.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidInit) {
			respondError(w, http.StatusBadRequest, "invalid_init", err.Error(), "")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error(), "")
		return
	}
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusOK, conversation.InitResponse{
		SessionID: sess.ID,
		Config:    configEcho,
		Status:    "initialized",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req conversation.TurnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), "")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "session_id is required", "")
		return
	}

	res, err := s.manager.ApplyTurn(r.Context(), req.SessionID, conversation.Instruction{
		HumanText:    req.Message,
		ForceSpeaker: req.ForceSpeaker,
	})
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrNotFound):
			respondError(w, http.StatusNotFound, "session_not_found", err.Error(), req.SessionID)
		case errors.Is(err, conversation.ErrExhausted):
			respondError(w, http.StatusBadRequest, "conversation_exhausted", err.Error(), req.SessionID)
		case errors.Is(err, conversation.ErrMissingHumanInput):
			respondError(w, http.StatusBadRequest, "missing_human_input", err.Error(), req.SessionID)
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", err.Error(), req.SessionID)
		}
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", err.Error(), id)
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error(), id)
		return
	}
	respondJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.manager.Delete(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error(), id)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "session_not_found", "session not found", id)
		return
	}
	s.metrics.SessionEvents.WithLabelValues("deleted").Inc()
	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "deleted",
		"session_id": id,
	})
}

func (s *Server) handleServeAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, ok := s.files.Path(filename)
	if !ok {
		respondError(w, http.StatusNotFound, "audio_not_found", "audio file not found", "")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

func (s *Server) handleCleanupAudio(w http.ResponseWriter, _ *http.Request) {
	cleaned, err := s.files.Cleanup()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "cleanup_failed", err.Error(), "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"cleaned_files": cleaned})
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	SessionID string `json:"session_id,omitempty"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message, sessionID string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code, SessionID: sessionID})
}

package httpapi

import (
	"sync"
	"time"
)

// StreamInfo describes one live websocket conversation stream.
type StreamInfo struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	MaxTurns  int       `json:"max_turns"`
	StartedAt time.Time `json:"started_at"`
}

// Registry tracks live websocket streams with an explicit add/remove
// lifecycle.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]StreamInfo
}

func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]StreamInfo)}
}

func (r *Registry) Add(info StreamInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[info.ID] = info
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

func (r *Registry) Snapshot() []StreamInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StreamInfo, 0, len(r.streams))
	for _, info := range r.streams {
		out = append(out, info)
	}
	return out
}

package speech

import (
	"context"

	"github.com/ent0n29/backtoback/internal/conversation"
)

// MockSynthesizer is a local fallback synthesizer used when TTS is not
// configured. It never produces audio, which is a legal outcome for every
// turn.
type MockSynthesizer struct{}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (s *MockSynthesizer) Synthesize(context.Context, string, conversation.Speaker) (string, error) {
	return "", nil
}

package brain

import (
	"context"

	"github.com/ent0n29/backtoback/internal/conversation"
)

// MockGenerator is a local fallback generator used when no OpenAI key is
// configured. It answers with canned phase-colored lines so the full turn
// loop can be exercised offline.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

var mockLines = map[conversation.Phase]string{
	conversation.PhaseIntroduction: "Hello! I couldn't help but wonder who you are. Tell me something about yourself.",
	conversation.PhaseConversation: "That's fascinating. I've been thinking about that myself lately, and I have opinions.",
	conversation.PhaseFlirt:        "You know, the more you talk, the more charming you get. Careful, I might start blushing.",
	conversation.PhaseRoast:        "Bold words from someone with your track record. Shall I list the highlights?",
}

func (g *MockGenerator) Generate(_ context.Context, req conversation.GenerateRequest) (string, error) {
	line, ok := mockLines[req.Phase]
	if !ok {
		line = "Let's keep this going."
	}
	return line, nil
}

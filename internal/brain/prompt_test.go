package brain

import (
	"context"
	"strings"
	"testing"

	"github.com/ent0n29/backtoback/internal/conversation"
)

func TestSystemPromptIncludesPersonasAndPhase(t *testing.T) {
	req := conversation.GenerateRequest{
		Persona:      "a pirate who collects rare teas",
		OtherPersona: "a librarian with strong opinions",
		Phase:        conversation.PhaseFlirt,
		Speaker:      conversation.SpeakerAgent1,
	}

	prompt := SystemPrompt(req)
	if !strings.Contains(prompt, req.Persona) {
		t.Fatalf("prompt missing own persona: %q", prompt)
	}
	if !strings.Contains(prompt, req.OtherPersona) {
		t.Fatalf("prompt missing other persona: %q", prompt)
	}
	if !strings.Contains(prompt, "flirting phase") {
		t.Fatalf("prompt missing flirt phase instruction: %q", prompt)
	}
	if !strings.Contains(prompt, "Keep responses under 100 words") {
		t.Fatalf("prompt missing guidelines: %q", prompt)
	}
	if strings.Contains(prompt, "Scenario context") {
		t.Fatalf("prompt has scenario block without a scenario: %q", prompt)
	}
}

func TestSystemPromptScenario(t *testing.T) {
	req := conversation.GenerateRequest{
		Persona:      "a",
		OtherPersona: "b",
		Phase:        conversation.PhaseRoast,
		Scenario:     "speed dating at a space station",
	}

	prompt := SystemPrompt(req)
	if !strings.Contains(prompt, "Scenario context: speed dating at a space station") {
		t.Fatalf("prompt missing scenario: %q", prompt)
	}
	if !strings.Contains(prompt, "roasting phase") {
		t.Fatalf("prompt missing roast instruction: %q", prompt)
	}
}

func TestSystemPromptUnknownPhase(t *testing.T) {
	prompt := SystemPrompt(conversation.GenerateRequest{
		Persona:      "a",
		OtherPersona: "b",
		Phase:        conversation.Phase("afterparty"),
	})
	if !strings.Contains(prompt, "Engage in natural conversation.") {
		t.Fatalf("unknown phase should fall back to the neutral instruction: %q", prompt)
	}
}

func TestUserPromptOpeningTurn(t *testing.T) {
	got := UserPrompt(conversation.GenerateRequest{Phase: conversation.PhaseIntroduction})
	want := "Start the conversation in the introduction phase. Make your first statement."
	if got != want {
		t.Fatalf("UserPrompt() = %q, want %q", got, want)
	}
}

func TestUserPromptWithHistory(t *testing.T) {
	got := UserPrompt(conversation.GenerateRequest{
		History: "Agent 1: hi\nAgent 2: hello",
		Phase:   conversation.PhaseConversation,
	})
	if !strings.Contains(got, "Agent 1: hi\nAgent 2: hello") {
		t.Fatalf("prompt missing history: %q", got)
	}
	if !strings.Contains(got, "conversation phase") {
		t.Fatalf("prompt missing phase: %q", got)
	}
}

func TestMockGeneratorStaysOnPhase(t *testing.T) {
	g := NewMockGenerator()
	for _, phase := range []conversation.Phase{
		conversation.PhaseIntroduction,
		conversation.PhaseConversation,
		conversation.PhaseFlirt,
		conversation.PhaseRoast,
	} {
		text, err := g.Generate(context.Background(), conversation.GenerateRequest{
			Persona: "a", OtherPersona: "b", Phase: phase,
		})
		if err != nil {
			t.Fatalf("Generate(%s) error = %v", phase, err)
		}
		if strings.TrimSpace(text) == "" {
			t.Fatalf("Generate(%s) returned blank text", phase)
		}
	}
}

package brain

import (
	"fmt"
	"strings"

	"github.com/ent0n29/backtoback/internal/conversation"
)

var phaseInstructions = map[conversation.Phase]string{
	conversation.PhaseIntroduction: "This is the introduction phase. Be friendly, curious, and try to get to know the other agent. Ask questions about their interests, background, or opinions. Keep the tone light and engaging.",
	conversation.PhaseConversation: "This is the main conversation phase. Engage in meaningful dialogue based on your persona. Share opinions, experiences, and react to what the other agent says. Be authentic to your character.",
	conversation.PhaseFlirt:        "This is the flirting phase. Be playful, charming, and slightly flirtatious in your responses. Use humor, compliments, and subtle romantic undertones while staying respectful.",
	conversation.PhaseRoast:        "This is the roasting phase. Be witty, sarcastic, and playfully mock the other agent. Use clever insults and humorous jabs, but keep it fun and not genuinely mean-spirited.",
}

const guidelines = `
IMPORTANT GUIDELINES:
- Keep responses under 100 words
- Stay in character based on your persona
- Respond naturally to the conversation flow
- Don't mention that you're an AI or in a simulation
- Be engaging and entertaining
- Match the energy and tone of the conversation phase
`

// SystemPrompt builds the persona- and phase-aware system prompt for one
// AI turn.
func SystemPrompt(req conversation.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI agent in a conversation system. Your persona is: %s\n\n", req.Persona)
	fmt.Fprintf(&b, "You are talking to another agent with this persona: %s\n\n", req.OtherPersona)

	if req.Scenario != "" {
		fmt.Fprintf(&b, "Scenario context: %s\n\n", req.Scenario)
	}

	instruction, ok := phaseInstructions[req.Phase]
	if !ok {
		instruction = "Engage in natural conversation."
	}
	b.WriteString(instruction)
	b.WriteString("\n")
	b.WriteString(guidelines)
	return b.String()
}

// UserPrompt builds the history-bearing user prompt. An empty history asks
// the agent to open the conversation.
func UserPrompt(req conversation.GenerateRequest) string {
	if req.History == "" {
		return fmt.Sprintf("Start the conversation in the %s phase. Make your first statement.", req.Phase)
	}
	return fmt.Sprintf("Here's the conversation so far:\n\n%s\n\nRespond as your character in the %s phase. Keep your response natural and engaging.", req.History, req.Phase)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ent0n29/backtoback/internal/brain"
	"github.com/ent0n29/backtoback/internal/conversation"
)

type options struct {
	persona1 string
	persona2 string
	scenario string
	rounds   int
	model    string
	delay    time.Duration
}

const (
	defaultPersona1 = "a charming, flirty AI who treats code like poetry and loves clever programming metaphors"
	defaultPersona2 = "a witty, slightly smug AI who plays the dry straight man and fires back sarcastic digs"
)

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "roastbattle: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "roastbattle: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.StringVar(&opts.persona1, "persona1", defaultPersona1, "persona for agent 1")
	flag.StringVar(&opts.persona2, "persona2", defaultPersona2, "persona for agent 2")
	flag.StringVar(&opts.scenario, "scenario", "roast battle", "scenario label steering the tone")
	flag.IntVar(&opts.rounds, "rounds", 6, "number of rounds (two turns each)")
	flag.StringVar(&opts.model, "model", "gpt-4o-mini", "chat model")
	flag.DurationVar(&opts.delay, "delay", 0, "pause between turns")
	flag.Parse()

	if opts.rounds < 1 || opts.rounds > 50 {
		return options{}, fmt.Errorf("rounds must be in [1,50]")
	}
	if strings.TrimSpace(opts.persona1) == "" || strings.TrimSpace(opts.persona2) == "" {
		return options{}, fmt.Errorf("both personas are required")
	}
	return opts, nil
}

func run(opts options) error {
	var generator conversation.Generator
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		g, err := brain.NewOpenAIGenerator(brain.OpenAIConfig{
			APIKey:      key,
			Model:       opts.model,
			MaxTokens:   150,
			Temperature: 0.8,
		})
		if err != nil {
			return err
		}
		generator = g
	} else {
		fmt.Println("OPENAI_API_KEY not set, running with the mock generator")
		generator = brain.NewMockGenerator()
	}

	engine := conversation.NewEngine(generator, nil, battlePolicy(opts.rounds), nil)

	now := time.Now().UTC()
	sess := &conversation.Session{
		ID:            "battle",
		Agent1Persona: opts.persona1,
		Agent2Persona: opts.persona2,
		Mode:          conversation.ModeAIVsAI,
		Scenario:      opts.scenario,
		MaxTurns:      opts.rounds * 2,
		NextSpeaker:   conversation.SpeakerAgent1,
		Phase:         conversation.PhaseIntroduction,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ctx := context.Background()
	for round := 1; round <= opts.rounds; round++ {
		fmt.Printf("\n--- Round %d ---\n", round)
		for i := 0; i < 2; i++ {
			res, err := engine.ProcessTurn(ctx, sess, conversation.Instruction{})
			if err != nil {
				return err
			}
			sess.Apply(res, time.Now().UTC())
			fmt.Printf("[%s] %s: %s\n", res.Phase, res.Message.Speaker.DisplayName(), res.Message.Text)
			if opts.delay > 0 && !res.Complete {
				time.Sleep(opts.delay)
			}
		}
	}

	fmt.Printf("\nBattle complete after %d turns.\n", sess.CurrentTurn)
	return nil
}

// battlePolicy scripts the narrative arc over fixed rounds: warm open,
// building banter, then roast mode for the back half. Both turns of a
// round share its phase.
func battlePolicy(rounds int) conversation.PhasePolicy {
	phaseForRound := func(round int) conversation.Phase {
		switch {
		case round == 1:
			return conversation.PhaseIntroduction
		case round == 2:
			return conversation.PhaseConversation
		case round == 3:
			return conversation.PhaseFlirt
		default:
			return conversation.PhaseRoast
		}
	}
	table := make(map[int]conversation.Phase, rounds*2)
	for round := 1; round <= rounds; round++ {
		phase := phaseForRound(round)
		table[round*2-1] = phase
		table[round*2] = phase
	}
	return conversation.NewRoundPolicy(table, conversation.PhaseRoast)
}

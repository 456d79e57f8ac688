package conversation

// PhasePolicy maps conversation progress to a narrative phase. The phase of
// a turn is always evaluated on the pre-turn count.
type PhasePolicy interface {
	PhaseFor(turn, maxTurns int) Phase
}

type ratioBreak struct {
	below float64
	phase Phase
}

// RatioPolicy derives the phase from the turn/maxTurns ratio against fixed
// break points. The default arc runs introduction, conversation, flirt,
// roast.
type RatioPolicy struct {
	breaks []ratioBreak
	final  Phase
}

// NewRatioPolicy returns the standard narrative arc:
// ratio < 0.30 introduction, < 0.70 conversation, < 0.85 flirt, else roast.
func NewRatioPolicy() *RatioPolicy {
	return &RatioPolicy{
		breaks: []ratioBreak{
			{below: 0.30, phase: PhaseIntroduction},
			{below: 0.70, phase: PhaseConversation},
			{below: 0.85, phase: PhaseFlirt},
		},
		final: PhaseRoast,
	}
}

func (p *RatioPolicy) PhaseFor(turn, maxTurns int) Phase {
	if maxTurns <= 0 {
		return p.final
	}
	ratio := float64(turn) / float64(maxTurns)
	for _, b := range p.breaks {
		if ratio < b.below {
			return b.phase
		}
	}
	return p.final
}

// RoundPolicy keys the phase directly by 1-based round number. It is the
// degenerate fixed-script variant used by the roast battle runner; past the
// last configured round it stays on the fallback phase.
type RoundPolicy struct {
	rounds   map[int]Phase
	fallback Phase
}

func NewRoundPolicy(rounds map[int]Phase, fallback Phase) *RoundPolicy {
	copied := make(map[int]Phase, len(rounds))
	for k, v := range rounds {
		copied[k] = v
	}
	return &RoundPolicy{rounds: copied, fallback: fallback}
}

func (p *RoundPolicy) PhaseFor(turn, _ int) Phase {
	if phase, ok := p.rounds[turn+1]; ok {
		return phase
	}
	return p.fallback
}

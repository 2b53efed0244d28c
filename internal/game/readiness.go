package game

import "fmt"

// ReadinessGate collects "ready for a new game" votes after a session ends.
// The quorum is reached when the first required slots are all set.
type ReadinessGate struct {
	required int
	votes    []bool
	armed    bool
}

// NewReadinessGate returns a closed gate for the given quorum.
func NewReadinessGate(required int) *ReadinessGate {
	return &ReadinessGate{required: required}
}

// Arm opens the gate with one cleared slot per registered player.
func (g *ReadinessGate) Arm(players int) {
	g.votes = make([]bool, players)
	g.armed = true
}

// Armed reports whether votes are currently accepted.
func (g *ReadinessGate) Armed() bool {
	return g.armed
}

// Close discards all votes and stops accepting new ones.
func (g *ReadinessGate) Close() {
	g.votes = nil
	g.armed = false
}

// MarkReady records a vote for slot i and reports whether the quorum holds.
// On quorum every slot is cleared again for the next round.
func (g *ReadinessGate) MarkReady(i int) (bool, error) {
	if !g.armed {
		return false, ErrGateClosed
	}
	if i < 0 || i >= len(g.votes) {
		return false, fmt.Errorf("%w: slot %d of %d", ErrUnknownPlayer, i, len(g.votes))
	}

	g.votes[i] = true
	if !g.quorum() {
		return false, nil
	}

	for j := range g.votes {
		g.votes[j] = false
	}
	return true, nil
}

func (g *ReadinessGate) quorum() bool {
	if len(g.votes) < g.required {
		return false
	}
	for _, ready := range g.votes[:g.required] {
		if !ready {
			return false
		}
	}
	return true
}

// Votes returns a copy of the current slots.
func (g *ReadinessGate) Votes() []bool {
	return append([]bool(nil), g.votes...)
}

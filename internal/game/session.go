package game

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Session operations. Callers treat all of them as
// rejected requests: nothing is mutated when one is returned.
var (
	ErrInvalidName       = errors.New("game: player name is empty")
	ErrDuplicateName     = errors.New("game: player name already taken")
	ErrSessionFull       = errors.New("game: session is full")
	ErrNotPlaying        = errors.New("game: no round in progress")
	ErrNotYourTurn       = errors.New("game: not this player's turn")
	ErrCardOutOfRange    = errors.New("game: card index out of range")
	ErrCardUnavailable   = errors.New("game: card is not face-down")
	ErrResolutionPending = errors.New("game: previous pick still resolving")
	ErrNoPendingCard     = errors.New("game: no card pending resolution")
	ErrUnknownPlayer     = errors.New("game: unknown player")
	ErrGateClosed        = errors.New("game: not collecting ready votes")
)

// Phase is the turn engine's state.
type Phase int

const (
	// PhaseLobby waits for registrations.
	PhaseLobby Phase = iota
	// PhaseIdle has no face-up card pending.
	PhaseIdle
	// PhaseAwaitingSecond has one face-up card waiting for a second pick.
	PhaseAwaitingSecond
	// PhaseResolving has two face-up cards waiting to be compared.
	PhaseResolving
	// PhaseOver means every pair was found.
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingSecond:
		return "awaiting_second"
	case PhaseResolving:
		return "resolving"
	case PhaseOver:
		return "over"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Flip is what a legal card click did.
type Flip int

const (
	FirstCard Flip = iota + 1
	SecondCard
)

// Outcome describes a resolved pair of picks.
type Outcome struct {
	Match  bool
	First  int
	Second int
	Player string
	Over   bool
}

// Departure describes the effect of a player dropping out.
type Departure struct {
	Player     string
	Withdrawn  bool
	TurnPassed bool
	Empty      bool
	// Restart is set when the departure completed an open restart vote.
	Restart bool
}

// Session is the turn engine over a single State.
type Session struct {
	state  *State
	rng    Randomizer
	gate   *ReadinessGate
	found  map[string]struct{}
	second *Card
	phase  Phase
	round  int
}

// NewSession creates a session in the lobby.
func NewSession(requiredPlayers, pairsCount int, r Randomizer) *Session {
	return &Session{
		state: newState(requiredPlayers, pairsCount),
		rng:   r,
		gate:  NewReadinessGate(requiredPlayers),
		found: make(map[string]struct{}, pairsCount),
	}
}

// State exposes the shared document. Callers must not mutate it.
func (s *Session) State() *State { return s.state }

func (s *Session) Phase() Phase { return s.phase }

// Round counts deals since the session was created.
func (s *Session) Round() int { return s.round }

// Gate is the readiness gate for restarts.
func (s *Session) Gate() *ReadinessGate { return s.gate }

// Joined is the number of registered players.
func (s *Session) Joined() int { return len(s.state.Players) }

// Full reports whether enough players registered to start.
func (s *Session) Full() bool { return s.Joined() >= s.state.RequiredPlayers }

// FoundPairs is the number of pairs matched this round.
func (s *Session) FoundPairs() int { return len(s.found) }

// Register adds a player in join order and returns its index.
func (s *Session) Register(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, ErrInvalidName
	}
	if s.phase != PhaseLobby || s.Full() {
		return -1, ErrSessionFull
	}
	if s.state.playerIndex(name) >= 0 {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	s.state.Players = append(s.state.Players, &Player{Name: name, Connected: true})
	return len(s.state.Players) - 1, nil
}

// Deal shuffles a fresh board, clears scores and found pairs, and picks a
// starting player uniformly among the registered players.
func (s *Session) Deal() error {
	if len(s.state.Players) == 0 {
		return fmt.Errorf("deal: %w", ErrUnknownPlayer)
	}

	clear(s.found)
	for _, p := range s.state.Players {
		p.Score = 0
	}
	s.state.Message = ""
	s.state.Cards = NewDeck(s.state.PairsCount, s.rng)
	s.state.PreviousCard = nil
	s.second = nil
	s.state.setCurrent(s.rng.IntN(len(s.state.Players)))
	if !s.state.CurrentPlayer.Connected {
		s.advance()
	}

	s.gate.Close()
	s.phase = PhaseIdle
	s.round++
	return nil
}

// Flip turns card idx face-up for player name.
func (s *Session) Flip(name string, idx int) (Flip, error) {
	switch s.phase {
	case PhaseIdle, PhaseAwaitingSecond:
	case PhaseResolving:
		return 0, ErrResolutionPending
	default:
		return 0, fmt.Errorf("%w (%s)", ErrNotPlaying, s.phase)
	}

	if current := s.state.CurrentPlayer; current == nil || current.Name != name {
		return 0, fmt.Errorf("%w: %q clicked", ErrNotYourTurn, name)
	}
	if idx < 0 || idx >= len(s.state.Cards) {
		return 0, fmt.Errorf("%w: %d", ErrCardOutOfRange, idx)
	}
	card := s.state.Cards[idx]
	if !card.IsEnabled {
		return 0, fmt.Errorf("%w: %d", ErrCardUnavailable, idx)
	}

	s.state.Message = ""
	card.IsEnabled = false

	if s.phase == PhaseIdle {
		s.state.PreviousCard = card
		s.phase = PhaseAwaitingSecond
		return FirstCard, nil
	}

	s.second = card
	s.phase = PhaseResolving
	return SecondCard, nil
}

// Resolve compares the two face-up cards. A match scores a point for the
// current player, who keeps the turn; a miss flips both back and passes
// the turn on.
func (s *Session) Resolve() (Outcome, error) {
	first, second := s.state.PreviousCard, s.second
	if s.phase != PhaseResolving || first == nil || second == nil {
		return Outcome{}, ErrNoPendingCard
	}

	current := s.state.CurrentPlayer
	out := Outcome{
		First:  first.CardIndex,
		Second: second.CardIndex,
		Player: current.Name,
	}

	if first.ID == second.ID {
		out.Match = true
		current.Score++
		s.found[first.ID] = struct{}{}
		first.IsMatched = true
		second.IsMatched = true
		s.state.Message = fmt.Sprintf("Pärchen gefunden! %s erhält 1 Punkt.", current.Name)
	} else {
		first.IsEnabled = true
		second.IsEnabled = true
		s.advance()
	}

	s.state.PreviousCard = nil
	s.second = nil

	if len(s.found) == s.state.PairsCount {
		s.phase = PhaseOver
		out.Over = true
		return out, nil
	}

	s.phase = PhaseIdle
	if !s.state.CurrentPlayer.Connected {
		s.advance()
	}
	return out, nil
}

// Conclude computes the winner of a finished round and records it as the
// status message.
func (s *Session) Conclude() Result {
	res := Winner(s.state.Players)
	s.state.Message = res.Message()
	return res
}

// ArmReadiness opens the readiness gate after a finished round. Slots of
// players who already left count as ready.
func (s *Session) ArmReadiness() error {
	if s.phase != PhaseOver {
		return fmt.Errorf("arm readiness: %w (%s)", ErrNotPlaying, s.phase)
	}
	s.gate.Arm(len(s.state.Players))
	for i, p := range s.state.Players {
		if !p.Connected {
			_, _ = s.gate.MarkReady(i)
		}
	}
	return nil
}

// MarkReady records a restart vote for name and reports whether the quorum
// was reached.
func (s *Session) MarkReady(name string) (bool, error) {
	idx := s.state.playerIndex(name)
	if idx < 0 {
		return false, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	return s.gate.MarkReady(idx)
}

// AbandonReadiness gives up on an armed restart vote. The session returns
// to the lobby keeping the connected players that voted, so free seats can
// be taken by new registrations. It returns the players that lost their
// seat and whether a vote was open at all.
func (s *Session) AbandonReadiness() ([]string, bool) {
	if !s.gate.Armed() {
		return nil, false
	}

	votes := s.gate.Votes()
	var kept []*Player
	var dropped []string
	for i, p := range s.state.Players {
		if p.Connected && i < len(votes) && votes[i] {
			kept = append(kept, &Player{Name: p.Name, Connected: true})
			continue
		}
		dropped = append(dropped, p.Name)
	}

	s.Reset()
	s.state.Players = append(s.state.Players, kept...)
	return dropped, true
}

// Disconnect marks name as gone. In the lobby the player is withdrawn
// entirely. After a round the player's restart vote counts as cast. During
// play, if it was that player's turn and no pick is being resolved, a
// pending first card is flipped back and the turn moves to the next
// connected player.
func (s *Session) Disconnect(name string) (Departure, error) {
	idx := s.state.playerIndex(name)
	if idx < 0 {
		return Departure{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}

	if s.phase == PhaseLobby {
		s.state.Players = append(s.state.Players[:idx], s.state.Players[idx+1:]...)
		return Departure{Player: name, Withdrawn: true, Empty: len(s.state.Players) == 0}, nil
	}
	s.state.Players[idx].Connected = false

	dep := Departure{Player: name, Empty: s.connected() == 0}

	if s.phase == PhaseOver {
		if s.gate.Armed() && !dep.Empty {
			dep.Restart, _ = s.gate.MarkReady(idx)
		}
		return dep, nil
	}

	current := s.state.CurrentPlayer
	if current == nil || current.Name != name {
		return dep, nil
	}

	switch s.phase {
	case PhaseAwaitingSecond:
		s.state.PreviousCard.IsEnabled = true
		s.state.PreviousCard = nil
		s.phase = PhaseIdle
		fallthrough
	case PhaseIdle:
		s.advance()
		dep.TurnPassed = s.state.CurrentPlayer != current
	}
	return dep, nil
}

// Reset returns the session to an empty lobby.
func (s *Session) Reset() {
	s.state = newState(s.state.RequiredPlayers, s.state.PairsCount)
	clear(s.found)
	s.second = nil
	s.gate.Close()
	s.phase = PhaseLobby
}

func (s *Session) connected() int {
	n := 0
	for _, p := range s.state.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// advance passes the turn to the next connected player in join order.
func (s *Session) advance() {
	n := len(s.state.Players)
	for k := 1; k <= n; k++ {
		next := (s.state.CurrentPlayerIndex + k) % n
		if s.state.Players[next].Connected {
			s.state.setCurrent(next)
			return
		}
	}
}

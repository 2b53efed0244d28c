// Package game holds the authoritative memory session: the shared state
// document, the turn engine that mutates it, and the readiness gate that
// decides when a finished session is dealt again.
//
// Nothing in this package is safe for concurrent use. The server runs every
// mutation on a single goroutine.
package game

// Player is a registered participant. Players are never removed while a
// session lives; a dropped connection only clears Connected.
type Player struct {
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

// Card is one position on the board. Enabled means face-down and clickable.
type Card struct {
	ID        string `json:"id"`
	IsEnabled bool   `json:"isEnabled"`
	CardIndex int    `json:"cardIndex"`
	IsMatched bool   `json:"isMatched"`
}

// State is the document broadcast to every client after each action.
type State struct {
	RequiredPlayers    int       `json:"requiredPlayers"`
	PairsCount         int       `json:"pairsCount"`
	Players            []*Player `json:"players"`
	Cards              []*Card   `json:"cards"`
	CurrentPlayer      *Player   `json:"currentPlayer"`
	CurrentPlayerIndex int       `json:"currentPlayerIndex"`
	PreviousCard       *Card     `json:"previousCard"`
	Message            string    `json:"message"`
}

func newState(requiredPlayers, pairsCount int) *State {
	return &State{
		RequiredPlayers: requiredPlayers,
		PairsCount:      pairsCount,
		Players:         make([]*Player, 0, requiredPlayers),
		Cards:           make([]*Card, 0, 2*pairsCount),
	}
}

// playerIndex returns the join-order index of name, or -1.
func (s *State) playerIndex(name string) int {
	for i, p := range s.Players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *State) setCurrent(i int) {
	s.CurrentPlayerIndex = i
	s.CurrentPlayer = s.Players[i]
}

package game

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// Randomizer is the source of randomness for dealing and for picking the
// starting player. *rand.Rand satisfies it.
type Randomizer interface {
	IntN(n int) int
}

// NewRandomizer returns a PCG-backed generator. The same seed always
// produces the same deals.
func NewRandomizer(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 1))
}

// NewTimeRandomizer seeds a generator from the wall clock.
func NewTimeRandomizer() *rand.Rand {
	return NewRandomizer(uint64(time.Now().UnixNano()))
}

// pairValues returns 1..pairs followed by 1..pairs again.
func pairValues(pairs int) []int {
	values := make([]int, 0, 2*pairs)
	for round := 0; round < 2; round++ {
		for v := 1; v <= pairs; v++ {
			values = append(values, v)
		}
	}
	return values
}

// shuffle is an in-place Fisher-Yates permutation.
func shuffle(values []int, r Randomizer) {
	for i := len(values) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}

// NewDeck builds a shuffled board of 2*pairs enabled cards whose positions
// equal their slice index.
func NewDeck(pairs int, r Randomizer) []*Card {
	values := pairValues(pairs)
	shuffle(values, r)

	cards := make([]*Card, len(values))
	for i, v := range values {
		cards[i] = &Card{
			ID:        strconv.Itoa(v),
			IsEnabled: true,
			CardIndex: i,
		}
	}
	return cards
}

package game_test

import (
	"strconv"
	"testing"

	"github.com/Tyrowin/gomemory/internal/game"
)

func TestNewDeckHoldsEveryPairTwice(t *testing.T) {
	for pairs := 1; pairs <= 12; pairs++ {
		t.Run(strconv.Itoa(pairs), func(t *testing.T) {
			cards := game.NewDeck(pairs, game.NewRandomizer(uint64(pairs)))

			if len(cards) != 2*pairs {
				t.Fatalf("Expected %d cards, got %d", 2*pairs, len(cards))
			}

			counts := make(map[string]int)
			for i, c := range cards {
				counts[c.ID]++
				if c.CardIndex != i {
					t.Errorf("Card at %d has CardIndex %d", i, c.CardIndex)
				}
				if !c.IsEnabled || c.IsMatched {
					t.Errorf("Card at %d should start face-down and unmatched", i)
				}
			}
			for v := 1; v <= pairs; v++ {
				if n := counts[strconv.Itoa(v)]; n != 2 {
					t.Errorf("Value %d appears %d times, want 2", v, n)
				}
			}
			if len(counts) != pairs {
				t.Errorf("Expected %d distinct values, got %d", pairs, len(counts))
			}
		})
	}
}

func TestNewDeckSeedReproducesOrder(t *testing.T) {
	a := game.NewDeck(9, game.NewRandomizer(42))
	b := game.NewDeck(9, game.NewRandomizer(42))

	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("Decks from the same seed differ at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestNewDeckShufflesAcrossSeeds(t *testing.T) {
	first := deckIDs(game.NewDeck(9, game.NewRandomizer(1)))
	for seed := uint64(2); seed < 20; seed++ {
		if deckIDs(game.NewDeck(9, game.NewRandomizer(seed))) != first {
			return
		}
	}
	t.Error("Expected at least one different ordering across 19 seeds")
}

func deckIDs(cards []*game.Card) string {
	var s string
	for _, c := range cards {
		s += c.ID + ","
	}
	return s
}

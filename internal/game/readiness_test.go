package game_test

import (
	"errors"
	"testing"

	"github.com/Tyrowin/gomemory/internal/game"
)

func TestReadinessGateQuorum(t *testing.T) {
	gate := game.NewReadinessGate(3)
	gate.Arm(3)

	for _, i := range []int{0, 1} {
		ok, err := gate.MarkReady(i)
		if err != nil {
			t.Fatalf("MarkReady(%d) failed: %v", i, err)
		}
		if ok {
			t.Fatalf("MarkReady(%d) reached quorum early", i)
		}
	}

	restarts := 0
	ok, err := gate.MarkReady(2)
	if err != nil {
		t.Fatalf("MarkReady(2) failed: %v", err)
	}
	if ok {
		restarts++
	}
	if restarts != 1 {
		t.Fatalf("Expected exactly one restart, got %d", restarts)
	}

	for i, v := range gate.Votes() {
		if v {
			t.Errorf("Slot %d should be cleared after quorum", i)
		}
	}
}

func TestReadinessGateRepeatedVote(t *testing.T) {
	gate := game.NewReadinessGate(2)
	gate.Arm(2)

	for i := 0; i < 3; i++ {
		if ok, _ := gate.MarkReady(0); ok {
			t.Fatal("Repeated votes from one player must not reach quorum")
		}
	}
}

func TestReadinessGateClosed(t *testing.T) {
	gate := game.NewReadinessGate(2)

	if _, err := gate.MarkReady(0); !errors.Is(err, game.ErrGateClosed) {
		t.Errorf("Expected ErrGateClosed before Arm, got %v", err)
	}

	gate.Arm(2)
	if !gate.Armed() {
		t.Fatal("Gate should be armed")
	}
	if _, err := gate.MarkReady(5); !errors.Is(err, game.ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer for slot 5, got %v", err)
	}

	gate.Close()
	if gate.Armed() || len(gate.Votes()) != 0 {
		t.Error("Close should disarm the gate and drop votes")
	}
}

// Package server defines shared internal message types, errors, and helpers
// used across client and hub logic.
package server

import (
	"errors"
	"strings"

	"github.com/Tyrowin/gomemory/internal/protocol"
)

var (
	// ErrHubClosed is returned once the hub has shut down.
	ErrHubClosed = errors.New("server: hub closed")
	// ErrUnknownClient means the connection is not attached to the hub.
	ErrUnknownClient = errors.New("server: connection not attached")
	// ErrNotRegistered means the connection has not registered a player.
	ErrNotRegistered = errors.New("server: connection has no player")
	// ErrAlreadyRegistered means the connection registered a player before.
	ErrAlreadyRegistered = errors.New("server: connection already registered")
)

// attachRequest asks the hub to register a connection. With serve set the
// hub also starts the connection's pumps.
type attachRequest struct {
	client *Client
	serve  bool
}

// inboundMessage carries a decoded client message to the hub goroutine.
type inboundMessage struct {
	client *Client
	msg    protocol.ActionMessage
	reply  chan error
}

type timerKind int

const (
	timerResolve timerKind = iota
	timerGameOver
	timerReadyTimeout
)

func (k timerKind) String() string {
	switch k {
	case timerResolve:
		return "resolve"
	case timerGameOver:
		return "game_over"
	case timerReadyTimeout:
		return "ready_timeout"
	default:
		return "unknown"
	}
}

// timerEvent is posted back to the hub when a pacing timer fires. Events
// from an older epoch belong to a board that no longer exists.
type timerEvent struct {
	kind  timerKind
	seq   uint64
	epoch uint64
}

// DispatchReport summarizes one broadcast.
type DispatchReport struct {
	Action    protocol.ActionType
	Delivered int
	Failed    int
}

// Stats is a point-in-time view of the hub's connections.
type Stats struct {
	Connections int
	Players     int
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

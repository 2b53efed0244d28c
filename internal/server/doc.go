// Package server implements the WebSocket server that coordinates a memory
// session.
//
// A single Hub goroutine owns the game.Session and applies every inbound
// action, timer expiry, and disconnect in order. Each connection runs a read
// pump that decodes messages and a write pump that drains its send queue,
// so a slow client never blocks the others.
package server

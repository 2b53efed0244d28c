// Package server coordinates connection registration, the single writer of
// the game session, and connection cleanup via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tyrowin/gomemory/internal/game"
	"github.com/Tyrowin/gomemory/internal/protocol"
)

const tracerName = "github.com/Tyrowin/gomemory/internal/server"

// Hub owns the game session and every connection attached to it. All
// session mutations happen on the goroutine running Run; connections talk
// to it through channels.
type Hub struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	registry *Registry
	session  *game.Session
	encoder  protocol.FrameEncoder

	attach  chan attachRequest
	detach  chan *Client
	inbound chan inboundMessage
	timers  chan timerEvent

	// Owned by the Run goroutine.
	pending  map[uint64]*time.Timer
	timerSeq uint64
	epoch    uint64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics sets the instruments the hub updates.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithTracer sets the tracer used for per-action spans.
func WithTracer(t trace.Tracer) HubOption {
	return func(h *Hub) {
		h.tracer = t
	}
}

// WithRandomizer replaces the shuffle source.
func WithRandomizer(r game.Randomizer) HubOption {
	return func(h *Hub) {
		h.session = game.NewSession(h.cfg.Game.RequiredPlayers, h.cfg.Game.PairsCount, r)
	}
}

// NewHub creates a Hub for a single session described by cfg.
func NewHub(cfg Config, opts ...HubOption) *Hub {
	cfg = cfg.sanitize()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		cfg:      cfg,
		registry: newRegistry(),
		encoder:  protocol.FrameEncoder{Ordinals: cfg.NumericActionTypes},
		attach:   make(chan attachRequest),
		detach:   make(chan *Client),
		inbound:  make(chan inboundMessage),
		timers:   make(chan timerEvent),
		pending:  make(map[uint64]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(tracerName)
	}
	if h.session == nil {
		var rng game.Randomizer
		if cfg.Game.Seed != 0 {
			rng = game.NewRandomizer(cfg.Game.Seed)
		} else {
			rng = game.NewTimeRandomizer()
		}
		h.session = game.NewSession(cfg.Game.RequiredPlayers, cfg.Game.PairsCount, rng)
	}
	return h
}

// Config returns the sanitized configuration the hub runs with.
func (h *Hub) Config() Config {
	return h.cfg
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Stats reports the current connection counts.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections: h.registry.Connections(),
		Players:     h.registry.Count(),
	}
}

// Attach adds c to the registry without starting its pumps.
func (h *Hub) Attach(ctx context.Context, c *Client) error {
	return h.requestAttach(ctx, attachRequest{client: c})
}

// Serve attaches c and starts its read and write pumps. The pumps are
// started by the hub goroutine, so Shutdown never waits on a group that is
// still growing.
func (h *Hub) Serve(c *Client) error {
	return h.requestAttach(h.ctx, attachRequest{client: c, serve: true})
}

func (h *Hub) requestAttach(ctx context.Context, req attachRequest) error {
	select {
	case h.attach <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// Detach removes c. Detaching an unknown connection is a no-op.
func (h *Hub) Detach(c *Client) {
	select {
	case h.detach <- c:
	case <-h.ctx.Done():
	}
}

// Submit hands a decoded message to the session and waits for the result.
func (h *Hub) Submit(ctx context.Context, c *Client, msg protocol.ActionMessage) error {
	reply := make(chan error, 1)
	select {
	case h.inbound <- inboundMessage{client: c, msg: msg, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.stopTimers()
			h.shutdownClients()
			return

		case req := <-h.attach:
			h.handleAttach(req)

		case client := <-h.detach:
			h.drop(client)

		case in := <-h.inbound:
			in.reply <- h.handle(in.client, in.msg)

		case ev := <-h.timers:
			h.handleTimer(ev)
		}
	}
}

func (h *Hub) handleAttach(req attachRequest) {
	c := req.client
	if c == nil {
		h.logger.Warn("received nil client registration; skipping")
		return
	}
	if !h.registry.add(c) {
		return
	}

	h.metrics.connections.Set(float64(h.registry.Connections()))
	h.logger.Info("client connected", "client", c.id, "addr", c.addr, "connections", h.registry.Connections())

	if !req.serve {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// drop detaches c, closes its send queue, and applies the disconnect to
// the session.
func (h *Hub) drop(c *Client) {
	name, ok := h.registry.remove(c)
	if !ok {
		return
	}
	close(c.send)

	h.metrics.connections.Set(float64(h.registry.Connections()))
	h.metrics.players.Set(float64(h.registry.Count()))
	h.logger.Info("client disconnected", "client", c.id, "addr", c.addr, "player", name, "connections", h.registry.Connections())

	if name == "" {
		return
	}
	h.playerLeft(name)
}

// schedule posts a timer event of kind back to the hub after d.
func (h *Hub) schedule(d time.Duration, kind timerKind) {
	h.timerSeq++
	ev := timerEvent{kind: kind, seq: h.timerSeq, epoch: h.epoch}

	h.pending[ev.seq] = time.AfterFunc(d, func() {
		select {
		case h.timers <- ev:
		case <-h.ctx.Done():
		}
	})
}

func (h *Hub) handleTimer(ev timerEvent) {
	delete(h.pending, ev.seq)
	if ev.epoch != h.epoch {
		h.logger.Debug("ignoring stale timer", "timer", ev.kind, "epoch", ev.epoch, "current", h.epoch)
		return
	}

	switch ev.kind {
	case timerResolve:
		h.resolvePick()
	case timerGameOver:
		h.promptNewGame()
	case timerReadyTimeout:
		h.expireReadiness()
	}
}

// newEpoch invalidates every timer scheduled so far.
func (h *Hub) newEpoch() {
	h.epoch++
	h.stopTimers()
}

func (h *Hub) stopTimers() {
	for seq, t := range h.pending {
		t.Stop()
		delete(h.pending, seq)
	}
}

// shutdownClients closes every connection and its send queue.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	clients := h.registry.all()
	for _, client := range clients {
		if _, ok := h.registry.remove(client); ok {
			close(client.send)
		}
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Error("error closing client connection", "client", client.id, "addr", client.addr, "error", err)
			}
		}
	}

	h.metrics.connections.Set(0)
	h.metrics.players.Set(0)
	h.logger.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

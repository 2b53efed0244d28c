package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tyrowin/gomemory/internal/game"
	"github.com/Tyrowin/gomemory/internal/protocol"
)

const (
	welcomeText  = "Willkommen zum neuen Spiel!"
	welcomeImage = "pack://application:,,,/Images/vielerfolg.png"
)

// handle applies one client message to the session. It runs on the hub
// goroutine only.
func (h *Hub) handle(c *Client, msg protocol.ActionMessage) (err error) {
	_, span := h.tracer.Start(h.ctx, "memory.action",
		trace.WithAttributes(
			attribute.String("memory.action", msg.ActionType.String()),
			attribute.String("memory.client", c.id),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			h.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
			h.logger.Warn("dropping message", "client", c.id, "addr", c.addr, "action", msg.ActionType, "error", err)
		}
		span.End()
	}()

	if !h.registry.attached(c) {
		return ErrUnknownClient
	}
	h.metrics.inbound.WithLabelValues(msg.ActionType.String()).Inc()

	switch msg.ActionType {
	case protocol.Register:
		return h.handleRegister(c, msg)
	case protocol.GetNextAction:
		return h.handleFlip(c, msg)
	case protocol.ReadyForNewGame:
		return h.handleReady(c)
	case protocol.NoNewGame:
		h.logger.Info("player declined a new game", "client", c.id, "player", h.playerName(c, msg))
		return nil
	case protocol.Ciao:
		h.logger.Info("player said goodbye", "client", c.id, "player", h.playerName(c, msg))
		return nil
	case protocol.Chat:
		return h.handleChat(msg)
	default:
		return fmt.Errorf("%w: %s is server-only", protocol.ErrMalformed, msg.ActionType)
	}
}

func (h *Hub) playerName(c *Client, msg protocol.ActionMessage) string {
	if name, ok := h.registry.Name(c); ok {
		return name
	}
	return msg.Name
}

func (h *Hub) handleRegister(c *Client, msg protocol.ActionMessage) error {
	if name, ok := h.registry.Name(c); ok {
		h.notify(c, fmt.Sprintf("Du bist bereits als %s angemeldet.", name))
		return ErrAlreadyRegistered
	}

	idx, err := h.session.Register(msg.Name)
	switch {
	case errors.Is(err, game.ErrDuplicateName):
		h.notify(c, fmt.Sprintf("Der Name %q ist bereits vergeben.", strings.TrimSpace(msg.Name)))
		return err
	case errors.Is(err, game.ErrSessionFull):
		h.notify(c, "Das Spiel ist bereits voll.")
		return err
	case err != nil:
		return err
	}

	name := h.session.State().Players[idx].Name
	h.registry.bind(c, name)
	h.metrics.players.Set(float64(h.registry.Count()))
	h.logger.Info("player registered", "client", c.id, "player", name, "index", idx,
		"joined", h.session.Joined(), "required", h.cfg.Game.RequiredPlayers)

	if h.session.Full() {
		return h.startRound()
	}
	return nil
}

// startRound deals a fresh board and announces it.
func (h *Hub) startRound() error {
	if err := h.session.Deal(); err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	h.newEpoch()
	h.metrics.rounds.Inc()

	st := h.session.State()
	h.logger.Info("round started", "round", h.session.Round(), "round_id", uuid.NewString(),
		"players", len(st.Players), "pairs", st.PairsCount, "starter", st.CurrentPlayer.Name)

	h.broadcast(protocol.ActionMessage{ActionType: protocol.StarteGame})
	return nil
}

func (h *Hub) handleFlip(c *Client, msg protocol.ActionMessage) error {
	name, ok := h.registry.Name(c)
	if !ok {
		return ErrNotRegistered
	}

	flip, err := h.session.Flip(name, msg.ClickedCardIndex)
	if err != nil {
		return err
	}

	action := protocol.FirstCard
	if flip == game.SecondCard {
		action = protocol.SecondCard
	}
	h.broadcast(protocol.ActionMessage{ActionType: action, ClickedCardIndex: msg.ClickedCardIndex, Name: name})

	if flip == game.SecondCard {
		h.schedule(h.cfg.Game.ResolveDelay, timerResolve)
	}
	return nil
}

// resolvePick compares the two face-up cards once the reveal delay passed.
func (h *Hub) resolvePick() {
	_, span := h.tracer.Start(h.ctx, "memory.resolve")
	defer span.End()

	out, err := h.session.Resolve()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Warn("nothing to resolve", "error", err)
		return
	}

	action, result := protocol.NoMatch, "miss"
	if out.Match {
		action, result = protocol.MatchFound, "match"
	}
	span.SetAttributes(
		attribute.String("memory.result", result),
		attribute.String("memory.player", out.Player),
		attribute.Bool("memory.over", out.Over),
	)
	h.metrics.picks.WithLabelValues(result).Inc()
	h.logger.Info("pick resolved", "player", out.Player, "result", result,
		"first", out.First, "second", out.Second, "found", h.session.FoundPairs())

	h.broadcast(protocol.ActionMessage{ActionType: action, ClickedCardIndex: out.Second, Name: out.Player})

	if !out.Over {
		return
	}

	res := h.session.Conclude()
	h.logger.Info("round over", "round", h.session.Round(), "winners", res.Names(), "score", res.Score, "tie", res.Tie)
	h.broadcast(protocol.NewChat(protocol.Text(res.Congratulation())))
	h.schedule(h.cfg.Game.GameOverDelay, timerGameOver)
}

// handleChat relays a chat message verbatim, sender included.
func (h *Hub) handleChat(msg protocol.ActionMessage) error {
	h.broadcast(msg)
	return nil
}

// promptNewGame opens the readiness vote.
func (h *Hub) promptNewGame() {
	if err := h.session.ArmReadiness(); err != nil {
		h.logger.Warn("cannot prompt for a new game", "error", err)
		return
	}
	h.broadcast(protocol.ActionMessage{ActionType: protocol.NewGame})

	if h.cfg.Game.ReadyTimeout > 0 {
		h.schedule(h.cfg.Game.ReadyTimeout, timerReadyTimeout)
	}
}

func (h *Hub) handleReady(c *Client) error {
	name, ok := h.registry.Name(c)
	if !ok {
		return ErrNotRegistered
	}

	quorum, err := h.session.MarkReady(name)
	if err != nil {
		return err
	}
	h.logger.Info("player ready for a new game", "client", c.id, "player", name, "quorum", quorum)
	if !quorum {
		return nil
	}
	return h.restart()
}

// restart deals the next round once the readiness vote is complete.
func (h *Hub) restart() error {
	if err := h.startRound(); err != nil {
		return err
	}
	h.broadcast(protocol.NewChat(protocol.Text(welcomeText), protocol.Image(welcomeImage)))
	return nil
}

// expireReadiness gives up on the restart vote. Players that voted keep
// their seats in a reopened lobby; the others are told and unseated so
// they, or newcomers, can register again.
func (h *Hub) expireReadiness() {
	unseated, ok := h.session.AbandonReadiness()
	if !ok {
		return
	}
	h.newEpoch()
	h.logger.Info("restart vote abandoned", "timeout", h.cfg.Game.ReadyTimeout,
		"seated", h.session.Joined(), "unseated", unseated)

	h.broadcast(protocol.NewChat(protocol.Text("Nicht alle Spieler waren bereit. Kein neues Spiel.")))
	h.registry.unbind(unseated...)
	h.metrics.players.Set(float64(h.registry.Count()))
}

// playerLeft applies a registered player's disconnect to the session.
func (h *Hub) playerLeft(name string) {
	dep, err := h.session.Disconnect(name)
	if err != nil {
		h.logger.Warn("disconnect of unknown player", "player", name, "error", err)
		return
	}

	if dep.Empty {
		if !dep.Withdrawn {
			h.logger.Info("all players left; resetting session", "player", name, "round", h.session.Round())
		}
		h.session.Reset()
		h.newEpoch()
		return
	}

	h.logger.Info("player left", "player", name, "withdrawn", dep.Withdrawn,
		"turn_passed", dep.TurnPassed, "restart", dep.Restart)
	h.broadcast(protocol.NewChat(protocol.Text(fmt.Sprintf("%s hat das Spiel verlassen.", name))))

	if dep.Restart {
		if err := h.restart(); err != nil {
			h.logger.Error("restart after departure failed", "player", name, "error", err)
		}
	}
}

// notify sends a private chat notice to c.
func (h *Hub) notify(c *Client, text string) {
	h.unicast(c, protocol.NewChat(protocol.Text(text)))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrMalformed):
		return "malformed"
	case errors.Is(err, game.ErrNotYourTurn):
		return "turn"
	case errors.Is(err, game.ErrResolutionPending):
		return "resolving"
	case errors.Is(err, game.ErrCardOutOfRange), errors.Is(err, game.ErrCardUnavailable):
		return "card"
	case errors.Is(err, game.ErrDuplicateName), errors.Is(err, game.ErrSessionFull),
		errors.Is(err, game.ErrInvalidName), errors.Is(err, ErrAlreadyRegistered):
		return "register"
	case errors.Is(err, ErrNotRegistered), errors.Is(err, ErrUnknownClient):
		return "unregistered"
	default:
		return "protocol"
	}
}

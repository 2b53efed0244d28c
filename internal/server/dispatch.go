package server

import (
	"github.com/Tyrowin/gomemory/internal/protocol"
)

// broadcast encodes action with the current state and queues the frame on
// every registered connection. A connection whose queue is full is pruned
// after the fan-out; the others are unaffected.
func (h *Hub) broadcast(action protocol.ActionMessage) DispatchReport {
	report := DispatchReport{Action: action.ActionType}

	frame, err := h.encoder.Encode(action, h.session.State())
	if err != nil {
		h.logger.Error("encoding broadcast failed", "action", action.ActionType, "error", err)
		return report
	}

	var failed []*Client
	for _, c := range h.registry.players() {
		if c.enqueue(frame) {
			report.Delivered++
			continue
		}
		report.Failed++
		failed = append(failed, c)
	}

	h.metrics.broadcasts.WithLabelValues(action.ActionType.String()).Inc()
	h.metrics.sendFailures.Add(float64(report.Failed))
	h.logger.Debug("broadcast", "action", action.ActionType, "delivered", report.Delivered, "failed", report.Failed)

	for _, c := range failed {
		h.logger.Warn("pruning connection after failed send", "client", c.id, "addr", c.addr)
		h.drop(c)
	}
	return report
}

// unicast sends action with the current state to c alone.
func (h *Hub) unicast(c *Client, action protocol.ActionMessage) bool {
	frame, err := h.encoder.Encode(action, h.session.State())
	if err != nil {
		h.logger.Error("encoding frame failed", "action", action.ActionType, "error", err)
		return false
	}
	if c.enqueue(frame) {
		return true
	}

	h.metrics.sendFailures.Inc()
	h.logger.Warn("pruning connection after failed send", "client", c.id, "addr", c.addr)
	h.drop(c)
	return false
}

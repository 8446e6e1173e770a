// Package signals is the realtime channel between the gateway and its
// rendering companion. The companion reports route, visibility, and view
// events over a websocket; the gateway pushes completed availability views,
// fallback notices, and selection-coercion commands back over the same
// connection.
package signals

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/flow"
	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/internal/selection"
	"github.com/courtsidehq/courtgate/internal/view"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// SignalReceiver consumes companion events. Satisfied by *flow.Monitor.
type SignalReceiver interface {
	Deliver(sig flow.Signal)
}

// Inbound is what the companion sends.
type Inbound struct {
	Type    string `json:"type"` // "signal", "ping"
	Kind    string `json:"kind,omitempty"`
	URL     string `json:"url,omitempty"`
	Visible bool   `json:"visible,omitempty"`
}

// Outbound is what the gateway pushes to the companion.
type Outbound struct {
	Type      string             `json:"type"` // "cycle", "fallback", "coerce-selection", "pong"
	Reason    string             `json:"reason,omitempty"`
	Model     *view.Model        `json:"model,omitempty"`
	Selection *selection.Pending `json:"selection,omitempty"`
}

// Hub fans companion events into the flow monitor and broadcasts gateway
// output to every connected companion. It is the fetcher's Sink: a finished
// cycle is projected through the view builder and pushed out.
type Hub struct {
	receiver SignalReceiver
	builder  *view.Builder
	logger   *logging.Logger
	metrics  *metrics.GatewayMetrics

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a hub. receiver may be set later with SetReceiver since
// the monitor and hub reference each other.
func NewHub(builder *view.Builder, logger *logging.Logger, m *metrics.GatewayMetrics) *Hub {
	return &Hub{
		builder: builder,
		logger:  logger.Component("signals"),
		metrics: m,
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// SetReceiver installs the signal consumer.
func (h *Hub) SetReceiver(r SignalReceiver) {
	h.mu.Lock()
	h.receiver = r
	h.mu.Unlock()
}

// HandleWebSocket upgrades the companion connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn)
	}).ServeHTTP(w, r)
}

func (h *Hub) serveWS(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
	}()

	h.logger.Info("companion connected")

	for {
		var msg Inbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("companion disconnected", "error", err)
			return
		}
		h.dispatch(conn, msg)
	}
}

func (h *Hub) dispatch(conn *websocket.Conn, msg Inbound) {
	switch msg.Type {
	case "ping":
		_ = websocket.JSON.Send(conn, Outbound{Type: "pong"})
	case "signal":
		h.mu.RLock()
		r := h.receiver
		h.mu.RUnlock()
		if r == nil {
			return
		}
		r.Deliver(flow.Signal{
			Kind:    flow.SignalKind(msg.Kind),
			URL:     msg.URL,
			Visible: msg.Visible,
		})
	default:
		h.logger.Warn("unknown companion message", "type", msg.Type)
	}
}

// Broadcast sends msg to every connected companion. Send failures are left
// to the read loop, which notices the dead connection and unregisters it.
func (h *Hub) Broadcast(msg Outbound) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		_ = websocket.JSON.Send(c, msg)
	}
}

// CycleReady projects a finished cycle through the view builder and pushes
// the result out.
func (h *Hub) CycleReady(cycle *availability.Cycle) {
	model := h.builder.Build(context.Background(), cycle)
	h.logger.Debug("pushing cycle view", "date", model.Date, "clubs", len(model.Clubs))
	h.Broadcast(Outbound{Type: "cycle", Model: model})
}

// Fallback tells every companion to tear down injected UI and surface the
// host's native view.
func (h *Hub) Fallback(reason string) {
	h.Broadcast(Outbound{Type: "fallback", Reason: reason})
}

// CoerceSelection tells the companion to activate the host's hidden native
// slot control so the host proceeds toward its confirmation step.
func (h *Hub) CoerceSelection(p selection.Pending) {
	h.metrics.ObserveSelectionUpdate()
	h.Broadcast(Outbound{Type: "coerce-selection", Selection: &p})
}

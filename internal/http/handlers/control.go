// Package handlers hosts the gateway's control-plane endpoints: the surface
// the rendering companion and operators talk to, as opposed to the proxied
// host traffic the intercept layer handles.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/flow"
	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/internal/prefs"
	"github.com/courtsidehq/courtgate/internal/selection"
	"github.com/courtsidehq/courtgate/internal/view"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// CycleSource exposes the current fetch cycle. Satisfied by
// *availability.Fetcher.
type CycleSource interface {
	Current() *availability.Cycle
}

// Coercer forwards an accepted selection to the companion so it can drive
// the host's native state machine forward.
type Coercer interface {
	CoerceSelection(p selection.Pending)
}

// ControlHandler serves the view, selection, preference, and status routes.
type ControlHandler struct {
	cycles   CycleSource
	builder  *view.Builder
	registry *selection.Registry
	prefs    *prefs.Store
	monitor  *flow.Monitor
	coercer  Coercer
	logger   *logging.Logger
	metrics  *metrics.GatewayMetrics
}

type ControlConfig struct {
	Cycles   CycleSource
	Builder  *view.Builder
	Registry *selection.Registry
	Prefs    *prefs.Store
	Monitor  *flow.Monitor
	Coercer  Coercer
	Logger   *logging.Logger
	Metrics  *metrics.GatewayMetrics
}

func NewControlHandler(cfg ControlConfig) *ControlHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ControlHandler{
		cycles:   cfg.Cycles,
		builder:  cfg.Builder,
		registry: cfg.Registry,
		prefs:    cfg.Prefs,
		monitor:  cfg.Monitor,
		coercer:  cfg.Coercer,
		logger:   cfg.Logger.Component("control"),
		metrics:  cfg.Metrics,
	}
}

// Health reports liveness.
func (h *ControlHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports the booking-flow mode and whether a cycle is current.
func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"flow_active": h.monitor != nil && h.monitor.Mode() == flow.Active,
		"has_cycle":   h.cycles.Current() != nil,
	}
	if p := h.registry.Get(); p != nil {
		resp["pending_selection"] = p
	}
	writeJSON(w, http.StatusOK, resp)
}

// View returns the current availability view-model, or 404 when no cycle
// has completed since the flow was last entered.
func (h *ControlHandler) View(w http.ResponseWriter, r *http.Request) {
	cycle := h.cycles.Current()
	if cycle == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no availability cycle"})
		return
	}
	writeJSON(w, http.StatusOK, h.builder.Build(r.Context(), cycle))
}

// Select records the user's slot choice as the pending booking and asks the
// companion to coerce the host toward its confirmation step.
func (h *ControlHandler) Select(w http.ResponseWriter, r *http.Request) {
	var p selection.Pending
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if p.ClubID == "" || p.CourtID == "" || p.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "clubId, courtId and date are required"})
		return
	}
	if h.cycles.Current() == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no availability cycle"})
		return
	}

	h.registry.Set(p)
	h.metrics.ObserveSelectionUpdate()
	h.logger.Info("selection recorded",
		"club", p.ClubID, "court", p.CourtID, "date", p.Date, "from_minutes", p.FromMinutes)
	if h.coercer != nil {
		h.coercer.CoerceSelection(p)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

// GetPrefs returns the saved preferences.
func (h *ControlHandler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Get(r.Context())
	if err != nil {
		h.logger.Error("load preferences", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "preferences unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPrefs replaces the saved preferences.
func (h *ControlHandler) PutPrefs(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.prefs.Set(r.Context(), &p); err != nil {
		h.logger.Error("save preferences", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "preferences not saved"})
		return
	}
	// Echo back the sanitized form so the companion sees what was kept.
	writeJSON(w, http.StatusOK, &p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

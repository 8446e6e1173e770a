// Package flow decides when the gateway's booking machinery is armed. The
// host SPA swaps what look like full screens without dependable navigation
// events, so the monitor treats every signal source as unreliable: history
// hooks, popstate equivalents, view-changed notifications, and two pollers
// all funnel into one idempotent state evaluation.
package flow

import (
	"strings"
	"sync"
	"time"

	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// BookingFlowPattern marks URLs inside the host's booking flow.
const BookingFlowPattern = "create-booking"

// Mode is the monitor's state.
type Mode int

const (
	// Inactive: not in the booking flow; only the slow bootstrap poller
	// watches for re-entry.
	Inactive Mode = iota
	// Active: full monitoring; view-changed signals and the fast poller
	// drive reconcile passes.
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "active"
	}
	return "inactive"
}

// SignalKind identifies which redundant producer delivered a signal.
type SignalKind string

const (
	SignalNavigation SignalKind = "navigation"  // history push/replace hook
	SignalPopState   SignalKind = "popstate"    // back/forward equivalent
	SignalViewChange SignalKind = "view-change" // DOM-mutation equivalent
	SignalVisibility SignalKind = "visibility"  // tab hide/show
	SignalBackClick  SignalKind = "back-click"  // host back control activated
)

// Signal is one event from the companion or an internal poller.
type Signal struct {
	Kind SignalKind
	// URL is the current route, for navigation/popstate signals.
	URL string
	// Visible carries the new visibility for visibility signals.
	Visible bool
}

// Hooks are the monitor's collaborators. Reconcile runs the injected-view
// task pipeline once; Teardown clears injected UI, cancels the in-flight
// fetch cycle, and drops the pending selection. Both must be idempotent.
type Hooks struct {
	Reconcile func()
	Teardown  func()
}

// Options tunes monitor timing. Zero values take the production defaults.
type Options struct {
	FastPoll time.Duration // route poll while Active
	SlowPoll time.Duration // bootstrap poll while Inactive
	// ReconcileWindow coalesces view-change bursts: at most one reconcile
	// pass per window, the moral equivalent of one pass per animation frame.
	ReconcileWindow time.Duration
}

func (o *Options) withDefaults() Options {
	out := Options{FastPoll: 200 * time.Millisecond, SlowPoll: time.Second, ReconcileWindow: 16 * time.Millisecond}
	if o == nil {
		return out
	}
	if o.FastPoll > 0 {
		out.FastPoll = o.FastPoll
	}
	if o.SlowPoll > 0 {
		out.SlowPoll = o.SlowPoll
	}
	if o.ReconcileWindow > 0 {
		out.ReconcileWindow = o.ReconcileWindow
	}
	return out
}

// Monitor is the booking-flow state machine.
type Monitor struct {
	hooks   Hooks
	opts    Options
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics

	mu             sync.Mutex
	mode           Mode
	visible        bool
	route          string
	fastStop       chan struct{}
	slowStop       chan struct{}
	reconcileTimer *time.Timer
	stopped        bool
}

func NewMonitor(hooks Hooks, opts *Options, logger *logging.Logger, m *metrics.GatewayMetrics) *Monitor {
	return &Monitor{
		hooks:   hooks,
		opts:    opts.withDefaults(),
		logger:  logger.Component("flow"),
		metrics: m,
		visible: true,
	}
}

// Start begins in lightweight mode and lets evaluation upgrade to active if
// the current route already matches.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.startSlowPollerLocked()
	m.mu.Unlock()
	m.Evaluate()
}

// Stop shuts the monitor down for good (process shutdown, not flow exit).
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.stopFastPollerLocked()
	m.stopSlowPollerLocked()
	m.cancelReconcileLocked()
	m.mu.Unlock()
}

// Mode returns the current state.
func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Deliver feeds one signal into the evaluator. Safe from any goroutine.
func (m *Monitor) Deliver(sig Signal) {
	m.metrics.ObserveSignal(string(sig.Kind))

	switch sig.Kind {
	case SignalNavigation, SignalPopState:
		m.mu.Lock()
		m.route = sig.URL
		m.mu.Unlock()
		m.Evaluate()
	case SignalViewChange:
		m.scheduleReconcile()
	case SignalVisibility:
		m.setVisibility(sig.Visible)
	case SignalBackClick:
		// The host back control exits the flow before any navigation signal
		// lands; tear down state immediately.
		if m.hooks.Teardown != nil {
			m.hooks.Teardown()
		}
	default:
		m.logger.Warn("unknown signal kind", "kind", string(sig.Kind))
	}
}

// Evaluate reconciles the mode against the current route. Idempotent:
// re-entering the current state is a no-op, because signal producers are
// redundant and none is authoritative.
func (m *Monitor) Evaluate() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	onFlow := strings.Contains(m.route, BookingFlowPattern)

	switch {
	case onFlow && m.mode == Inactive:
		m.mode = Active
		m.stopSlowPollerLocked()
		if m.visible {
			m.startFastPollerLocked()
		}
		m.mu.Unlock()
		m.metrics.ObserveFlowTransition(Active.String())
		m.logger.Info("entering booking flow")
		// Entry action: one immediate pass so the UI doesn't wait for the
		// next view-change tick.
		if m.hooks.Reconcile != nil {
			m.hooks.Reconcile()
		}
		return

	case !onFlow && m.mode == Active:
		m.mode = Inactive
		m.stopFastPollerLocked()
		m.cancelReconcileLocked()
		if m.visible {
			m.startSlowPollerLocked()
		}
		m.mu.Unlock()
		m.metrics.ObserveFlowTransition(Inactive.String())
		m.logger.Info("leaving booking flow")
		if m.hooks.Teardown != nil {
			m.hooks.Teardown()
		}
		return
	}

	m.mu.Unlock()
}

// scheduleReconcile coalesces view-change bursts to one pass per window.
func (m *Monitor) scheduleReconcile() {
	m.mu.Lock()
	if m.stopped || m.mode != Active || !m.visible || m.reconcileTimer != nil {
		m.mu.Unlock()
		return
	}
	m.reconcileTimer = time.AfterFunc(m.opts.ReconcileWindow, func() {
		m.mu.Lock()
		m.reconcileTimer = nil
		run := m.mode == Active && m.visible && !m.stopped
		m.mu.Unlock()
		if run && m.hooks.Reconcile != nil {
			m.hooks.Reconcile()
		}
	})
	m.mu.Unlock()
}

func (m *Monitor) setVisibility(visible bool) {
	m.mu.Lock()
	if m.visible == visible {
		m.mu.Unlock()
		return
	}
	m.visible = visible

	if !visible {
		// No work while hidden: suspend everything.
		m.stopFastPollerLocked()
		m.stopSlowPollerLocked()
		m.cancelReconcileLocked()
		m.mu.Unlock()
		m.logger.Debug("suspended while hidden")
		return
	}

	// Resume per last known mode, then reconcile immediately to catch
	// transitions that happened while hidden.
	wasActive := m.mode == Active
	if wasActive {
		m.startFastPollerLocked()
	} else {
		m.startSlowPollerLocked()
	}
	m.mu.Unlock()

	m.Evaluate()
	if wasActive && m.Mode() == Active && m.hooks.Reconcile != nil {
		m.hooks.Reconcile()
	}
}

func (m *Monitor) startFastPollerLocked() {
	if m.fastStop != nil {
		return
	}
	m.fastStop = m.startPoller(m.opts.FastPoll)
}

func (m *Monitor) stopFastPollerLocked() {
	if m.fastStop == nil {
		return
	}
	close(m.fastStop)
	m.fastStop = nil
}

func (m *Monitor) startSlowPollerLocked() {
	if m.slowStop != nil {
		return
	}
	m.slowStop = m.startPoller(m.opts.SlowPoll)
}

func (m *Monitor) stopSlowPollerLocked() {
	if m.slowStop == nil {
		return
	}
	close(m.slowStop)
	m.slowStop = nil
}

// startPoller runs Evaluate on a ticker until its stop channel closes.
func (m *Monitor) startPoller(interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Evaluate()
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func (m *Monitor) cancelReconcileLocked() {
	if m.reconcileTimer != nil {
		m.reconcileTimer.Stop()
		m.reconcileTimer = nil
	}
}

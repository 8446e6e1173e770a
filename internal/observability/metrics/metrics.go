package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters for the booking gateway's core flows.
type GatewayMetrics struct {
	cycleStarts      prometheus.Counter
	cycleOutcomes    *prometheus.CounterVec
	clubFailures     *prometheus.CounterVec
	responsesShaped  prometheus.Counter
	substitutions    *prometheus.CounterVec
	dedupeDrops      prometheus.Counter
	flowTransitions  *prometheus.CounterVec
	signalsReceived  *prometheus.CounterVec
	selectionUpdates prometheus.Counter
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		cycleStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "availability",
			Name:      "cycle_starts_total",
			Help:      "Fan-out fetch cycles started",
		}),
		cycleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "availability",
			Name:      "cycle_outcomes_total",
			Help:      "Fetch cycle terminal outcomes",
		}, []string{"outcome"}),
		clubFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "availability",
			Name:      "club_failures_total",
			Help:      "Per-club availability fetch failures",
		}, []string{"club"}),
		responsesShaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "shaping",
			Name:      "responses_shaped_total",
			Help:      "Host availability responses rewritten with a synthetic slot",
		}),
		substitutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "booking",
			Name:      "substitutions_total",
			Help:      "Booking submissions substituted",
		}, []string{"status"}),
		dedupeDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "booking",
			Name:      "dedupe_drops_total",
			Help:      "Duplicate booking submissions swallowed",
		}),
		flowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Booking-flow monitor state transitions",
		}, []string{"to"}),
		signalsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "flow",
			Name:      "signals_total",
			Help:      "Navigation/visibility signals received",
		}, []string{"kind"}),
		selectionUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courtgate",
			Subsystem: "booking",
			Name:      "selection_updates_total",
			Help:      "Pending selection writes",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.cycleStarts, m.cycleOutcomes, m.clubFailures, m.responsesShaped,
		m.substitutions, m.dedupeDrops, m.flowTransitions, m.signalsReceived,
		m.selectionUpdates,
	)
	return m
}

func (m *GatewayMetrics) ObserveCycleStart() {
	if m == nil {
		return
	}
	m.cycleStarts.Inc()
}

func (m *GatewayMetrics) ObserveCycleOutcome(outcome string) {
	if m == nil {
		return
	}
	m.cycleOutcomes.WithLabelValues(outcome).Inc()
}

func (m *GatewayMetrics) ObserveClubFailure(club string) {
	if m == nil {
		return
	}
	m.clubFailures.WithLabelValues(club).Inc()
}

func (m *GatewayMetrics) ObserveResponseShaped() {
	if m == nil {
		return
	}
	m.responsesShaped.Inc()
}

func (m *GatewayMetrics) ObserveSubstitution(status string) {
	if m == nil {
		return
	}
	m.substitutions.WithLabelValues(status).Inc()
}

func (m *GatewayMetrics) ObserveDedupeDrop() {
	if m == nil {
		return
	}
	m.dedupeDrops.Inc()
}

func (m *GatewayMetrics) ObserveFlowTransition(to string) {
	if m == nil {
		return
	}
	m.flowTransitions.WithLabelValues(to).Inc()
}

func (m *GatewayMetrics) ObserveSignal(kind string) {
	if m == nil {
		return
	}
	m.signalsReceived.WithLabelValues(kind).Inc()
}

func (m *GatewayMetrics) ObserveSelectionUpdate() {
	if m == nil {
		return
	}
	m.selectionUpdates.Inc()
}

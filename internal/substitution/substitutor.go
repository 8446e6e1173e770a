// Package substitution swaps the host's outgoing booking submission body for
// one built from the user's pending selection.
package substitution

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/internal/policy"
	"github.com/courtsidehq/courtgate/internal/selection"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// Decision is the outcome of inspecting one outgoing booking submission.
type Decision int

const (
	// Forward: no pending selection (or no fetch state); the host's own
	// request goes out untouched.
	Forward Decision = iota
	// Swallow: a retry of an already-substituted submission; do not
	// dispatch anything upstream.
	Swallow
	// Substitute: dispatch the replacement body instead of the host's.
	Substitute
)

// CycleSource exposes the current fetch cycle's parameters.
type CycleSource interface {
	Current() *availability.Cycle
}

// Body is the replacement booking submission. The date travels in two
// equivalent fields because different backend revisions read different ones.
type Body struct {
	ClubID            string    `json:"clubId"`
	CourtID           string    `json:"courtId"`
	Date              DateValue `json:"date"`
	TimeFromInMinutes int       `json:"timeFromInMinutes"`
	TimeToInMinutes   int       `json:"timeToInMinutes"`
	CategoryOptionsID string    `json:"categoryOptionsId"`
	TimeSlotID        string    `json:"timeSlotId"`
}

type DateValue struct {
	Value string `json:"value"`
	Date  string `json:"date"`
}

// Substitutor decides, atomically, what happens to each observed booking
// submission. It retains only the single most recent substituted correlation
// id: the host emits at most one meaningful retry burst at a time.
type Substitutor struct {
	registry *selection.Registry
	cycles   CycleSource
	table    *policy.Table
	logger   *logging.Logger
	metrics  *metrics.GatewayMetrics

	mu            sync.Mutex
	lastRequestID string
}

func NewSubstitutor(registry *selection.Registry, cycles CycleSource, table *policy.Table, logger *logging.Logger, m *metrics.GatewayMetrics) *Substitutor {
	return &Substitutor{
		registry: registry,
		cycles:   cycles,
		table:    table,
		logger:   logger.Component("substitution"),
		metrics:  m,
	}
}

// Decide inspects one outgoing booking submission carrying requestID (the
// host's own correlation id, "" when the host omitted it) and returns the
// action plus the replacement body when substituting. The dedupe check and
// the pending-selection consumption happen under one lock; nothing can
// observe or mutate the selection between the check and the clear.
func (s *Substitutor) Decide(requestID string) (Decision, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.registry.Get()
	if pending == nil {
		return Forward, nil
	}
	cycle := s.cycles.Current()
	if cycle == nil {
		return Forward, nil
	}

	// An absent correlation id never matches the dedupe key, so a host that
	// omits it loses retry suppression but never loses substitution.
	if requestID != "" && requestID == s.lastRequestID {
		s.metrics.ObserveDedupeDrop()
		s.logger.Info("swallowing duplicate booking submission", "request_id", requestID)
		return Swallow, nil
	}

	consumed := s.registry.Consume()
	if consumed == nil {
		return Forward, nil
	}

	body, err := s.buildBody(consumed, cycle.Params)
	if err != nil {
		// Should not happen for a plain struct; forward rather than lose
		// the user's booking attempt entirely.
		s.logger.Error("build replacement body", "error", err)
		s.metrics.ObserveSubstitution("build-failed")
		return Forward, nil
	}

	if requestID != "" {
		s.lastRequestID = requestID
	}
	s.metrics.ObserveSubstitution("dispatched")
	s.logger.Info("substituting booking submission",
		"club", s.table.ShortName(consumed.ClubID),
		"court", consumed.CourtID,
		"date", consumed.Date,
		"from_minutes", consumed.FromMinutes,
	)
	return Substitute, body
}

func (s *Substitutor) buildBody(p *selection.Pending, params availability.Params) ([]byte, error) {
	body := Body{
		ClubID:            p.ClubID,
		CourtID:           p.CourtID,
		Date:              DateValue{Value: p.Date, Date: p.Date},
		TimeFromInMinutes: p.FromMinutes,
		TimeToInMinutes:   p.ToMinutes,
		CategoryOptionsID: params.CategoryOptionID,
		// The fetch-time duration cap applies to the submission as well.
		TimeSlotID: s.table.CapSlotID(p.ClubID, params.TimeSlotID),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("substitution: marshal body: %w", err)
	}
	return raw, nil
}

// LastRequestID returns the dedupe key, for diagnostics.
func (s *Substitutor) LastRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequestID
}

package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/internal/policy"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// Cycle is the aggregate of one fan-out run: the params that triggered it,
// one result per configured club, and the normalized view built from the
// successes. At most one Cycle is current at a time.
type Cycle struct {
	Params        Params
	Results       []ClubResult
	Normalized    Normalized
	FailedClubIDs []string
}

// Sink is the rendering collaborator. CycleReady hands over a freshly
// completed cycle; Fallback tells the renderer to tear down injected UI and
// let the host's native view take over.
type Sink interface {
	CycleReady(cycle *Cycle)
	Fallback(reason string)
}

// Orderer supplies the club preference order results are assembled in.
type Orderer interface {
	ClubOrder(ctx context.Context) []string
}

// Fetcher runs availability fan-outs. Starting a new cycle always cancels
// the previous one's in-flight requests first, so stale results can never
// overwrite fresher ones.
type Fetcher struct {
	client  *Client
	table   *policy.Table
	orderer Orderer
	sink    Sink
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *Cycle
}

// NewFetcher wires a Fetcher. orderer and sink may be nil (policy default
// order, discarded output) to simplify tests.
func NewFetcher(client *Client, table *policy.Table, orderer Orderer, sink Sink, logger *logging.Logger, m *metrics.GatewayMetrics) *Fetcher {
	return &Fetcher{
		client:  client,
		table:   table,
		orderer: orderer,
		sink:    sink,
		logger:  logger.Component("fetcher"),
		metrics: m,
	}
}

// FetchAll starts a new cycle for params, cancelling any cycle in flight.
// It never blocks the caller; completion is reported through the Sink.
func (f *Fetcher) FetchAll(params Params) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.metrics.ObserveCycleOutcome("superseded")
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	f.metrics.ObserveCycleStart()
	go f.runCycle(ctx, gen, params)
}

// Cancel aborts the in-flight cycle, if any, keeping the last completed
// result set readable.
func (f *Fetcher) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Reset aborts the in-flight cycle and discards the current result set.
// Used on booking-flow exit.
func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.current = nil
}

// Current returns the most recent completed cycle, or nil.
func (f *Fetcher) Current() *Cycle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *Fetcher) runCycle(ctx context.Context, gen uint64, params Params) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("availability pipeline panic", "panic", fmt.Sprint(r))
			f.fallback(gen, "internal-error")
		}
	}()

	clubIDs := f.clubOrder(ctx)
	results := make([]ClubResult, len(clubIDs))

	var wg sync.WaitGroup
	for i, clubID := range clubIDs {
		wg.Add(1)
		go func(i int, clubID string) {
			defer wg.Done()
			slotID := f.table.CapSlotID(clubID, params.TimeSlotID)
			data, err := f.client.FetchClub(ctx, clubID, slotID, params)
			results[i] = ClubResult{ClubID: clubID, Data: data, Err: err}
		}(i, clubID)
	}
	wg.Wait()

	// A cancelled cycle's resolution is a no-op: no state, no UI.
	if ctx.Err() != nil {
		f.logger.Debug("cycle cancelled", "date", params.Date)
		return
	}

	failed := 0
	var failedClubIDs []string
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		if errors.Is(r.Err, ErrBadPayload) {
			// One unparseable payload poisons the whole cycle.
			f.logger.Error("availability payload not understood", "club", r.ClubID, "error", r.Err)
			f.fallback(gen, "bad-payload")
			return
		}
		failed++
		failedClubIDs = append(failedClubIDs, r.ClubID)
		f.metrics.ObserveClubFailure(f.table.ShortName(r.ClubID))
		f.logger.Warn("club availability fetch failed",
			"club", f.table.ShortName(r.ClubID), "error", r.Err)
	}

	if failed == len(results) {
		f.logger.Error("every club failed, falling back to native view", "date", params.Date)
		f.fallback(gen, "all-clubs-failed")
		return
	}

	cycle := &Cycle{
		Params:        params,
		Results:       results,
		Normalized:    Normalize(results),
		FailedClubIDs: failedClubIDs,
	}

	f.mu.Lock()
	if gen != f.gen {
		// A newer cycle started after our requests settled; discard.
		f.mu.Unlock()
		return
	}
	f.current = cycle
	f.mu.Unlock()

	f.metrics.ObserveCycleOutcome("completed")
	f.logger.Info("cycle completed",
		"date", params.Date, "clubs", len(results), "failed", failed)
	if f.sink != nil {
		f.sink.CycleReady(cycle)
	}
}

// fallback discards the current result set and tells the renderer to hand
// back to the host's native view. Once companions have been told to fall
// back, serving the previous cycle from Current would lie about what is on
// screen; the gen check keeps a stale cycle's failure from clobbering a
// newer cycle's result.
func (f *Fetcher) fallback(gen uint64, reason string) {
	f.mu.Lock()
	if gen == f.gen {
		f.current = nil
	}
	f.mu.Unlock()

	f.metrics.ObserveCycleOutcome(reason)
	if f.sink != nil {
		f.sink.Fallback(reason)
	}
}

// clubOrder returns every configured club exactly once, in preference order.
// Entries the preference list doesn't know keep table order at the end; ids
// the table doesn't know are dropped.
func (f *Fetcher) clubOrder(ctx context.Context) []string {
	configured := f.table.ClubIDs()
	if f.orderer == nil {
		return configured
	}
	preferred := f.orderer.ClubOrder(ctx)

	seen := make(map[string]bool, len(configured))
	known := make(map[string]bool, len(configured))
	for _, id := range configured {
		known[id] = true
	}

	ordered := make([]string, 0, len(configured))
	for _, id := range preferred {
		if known[id] && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	for _, id := range configured {
		if !seen[id] {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

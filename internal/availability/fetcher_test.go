package availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/courtgate/internal/credentials"
	"github.com/courtsidehq/courtgate/internal/policy"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

type recordingSink struct {
	mu        sync.Mutex
	cycles    []*Cycle
	fallbacks []string
	ready     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ready: make(chan struct{}, 16)}
}

func (s *recordingSink) CycleReady(c *Cycle) {
	s.mu.Lock()
	s.cycles = append(s.cycles, c)
	s.mu.Unlock()
	s.ready <- struct{}{}
}

func (s *recordingSink) Fallback(reason string) {
	s.mu.Lock()
	s.fallbacks = append(s.fallbacks, reason)
	s.mu.Unlock()
	s.ready <- struct{}{}
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for cycle completion")
	}
}

func (s *recordingSink) lastCycle() *Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cycles) == 0 {
		return nil
	}
	return s.cycles[len(s.cycles)-1]
}

type staticOrderer struct{ order []string }

func (o *staticOrderer) ClubOrder(context.Context) []string { return o.order }

func testTable() *policy.Table {
	return policy.NewTable([]policy.ClubPolicy{
		{ID: "club-a", ShortName: "Alpha"},
		{ID: "club-b", ShortName: "Bravo"},
		{ID: "club-c", ShortName: "Charlie", MaxSlotID: policy.SlotMin60},
	}, nil)
}

const emptyAvailability = `{"clubsAvailabilities":[]}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc, orderer Orderer) (*Fetcher, *recordingSink) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "", credentials.NewStore(), WithLogger(logging.New("error")))
	sink := newRecordingSink()
	f := NewFetcher(client, testTable(), orderer, sink, logging.New("error"), nil)
	return f, sink
}

func TestFetchAllOneEntryPerClub(t *testing.T) {
	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("clubId") == "club-b" {
			http.Error(w, "down for maintenance", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(emptyAvailability))
	}, nil)

	f.FetchAll(testParams())
	sink.wait(t)

	cycle := sink.lastCycle()
	require.NotNil(t, cycle)
	require.Len(t, cycle.Results, 3)

	byClub := map[string]ClubResult{}
	for _, r := range cycle.Results {
		byClub[r.ClubID] = r
	}
	assert.False(t, byClub["club-a"].Failed())
	assert.True(t, byClub["club-b"].Failed())
	assert.False(t, byClub["club-c"].Failed())
	assert.Equal(t, []string{"club-b"}, cycle.FailedClubIDs)
	assert.Equal(t, cycle, f.Current())
}

func TestFetchAllAppliesPerClubSlotCap(t *testing.T) {
	var mu sync.Mutex
	slotByClub := map[string]string{}

	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		slotByClub[r.URL.Query().Get("clubId")] = r.URL.Query().Get("timeSlotId")
		mu.Unlock()
		_, _ = w.Write([]byte(emptyAvailability))
	}, nil)

	p := testParams()
	p.TimeSlotID = policy.SlotMin90
	f.FetchAll(p)
	sink.wait(t)

	mu.Lock()
	defer mu.Unlock()
	// Only the capped club downgrades to the 60-minute id.
	assert.Equal(t, policy.SlotMin90, slotByClub["club-a"])
	assert.Equal(t, policy.SlotMin90, slotByClub["club-b"])
	assert.Equal(t, policy.SlotMin60, slotByClub["club-c"])
}

func TestFetchAllTotalFailureFallsBack(t *testing.T) {
	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}, nil)

	f.FetchAll(testParams())
	sink.wait(t)

	assert.Nil(t, f.Current())
	require.Len(t, sink.fallbacks, 1)
	assert.Equal(t, "all-clubs-failed", sink.fallbacks[0])
}

func TestTotalFailureDiscardsPreviousCycle(t *testing.T) {
	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "2025-06-02" {
			http.Error(w, "nope", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(emptyAvailability))
	}, nil)

	f.FetchAll(testParams())
	sink.wait(t)
	require.NotNil(t, f.Current())

	later := testParams()
	later.Date = "2025-06-02"
	f.FetchAll(later)
	sink.wait(t)

	// Companions were told to fall back; the day-one cycle must not keep
	// serving through Current.
	require.Len(t, sink.fallbacks, 1)
	assert.Equal(t, "all-clubs-failed", sink.fallbacks[0])
	assert.Nil(t, f.Current())
}

func TestFetchAllBadPayloadIsFatal(t *testing.T) {
	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("clubId") == "club-b" {
			_, _ = w.Write([]byte("<html>surprise</html>"))
			return
		}
		_, _ = w.Write([]byte(emptyAvailability))
	}, nil)

	f.FetchAll(testParams())
	sink.wait(t)

	assert.Nil(t, f.Current())
	require.Len(t, sink.fallbacks, 1)
	assert.Equal(t, "bad-payload", sink.fallbacks[0])
}

func TestNewCycleCancelsPrevious(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "2025-06-01" {
			// Cycle A hangs until cancelled.
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		_, _ = w.Write([]byte(emptyAvailability))
	}, nil)

	pA := testParams()
	pA.Date = "2025-06-01"
	f.FetchAll(pA)

	pB := testParams()
	pB.Date = "2025-06-02"
	f.FetchAll(pB)

	sink.wait(t)

	// Only cycle B's results ever reach the sink, regardless of completion
	// interleaving.
	cycle := sink.lastCycle()
	require.NotNil(t, cycle)
	assert.Equal(t, "2025-06-02", cycle.Params.Date)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.cycles, 1)
	assert.Empty(t, sink.fallbacks)
}

func TestResetDiscardsStateAndCancels(t *testing.T) {
	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyAvailability))
	}, nil)

	f.FetchAll(testParams())
	sink.wait(t)
	require.NotNil(t, f.Current())

	f.Reset()
	assert.Nil(t, f.Current())

	// Reset with nothing in flight is a no-op.
	f.Reset()
}

func TestClubOrderFollowsPreference(t *testing.T) {
	orderer := &staticOrderer{order: []string{"club-c", "club-a", "ghost-club"}}
	f, sink := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyAvailability))
	}, orderer)

	f.FetchAll(testParams())
	sink.wait(t)

	cycle := sink.lastCycle()
	require.NotNil(t, cycle)
	got := make([]string, len(cycle.Results))
	for i, r := range cycle.Results {
		got[i] = r.ClubID
	}
	// Preference first, unknown ids dropped, unlisted clubs appended in
	// table order: every configured club exactly once.
	assert.Equal(t, []string{"club-c", "club-a", "club-b"}, got)
}

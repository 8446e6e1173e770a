package view

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/policy"
	"github.com/courtsidehq/courtgate/internal/prefs"
)

func testCycle() *availability.Cycle {
	return &availability.Cycle{
		Params: availability.Params{Date: "2025-06-01"},
		Results: []availability.ClubResult{
			{ClubID: policy.ClubBroadway},
			{ClubID: policy.ClubRedwoodShores},
			{ClubID: policy.ClubSantaClara, Err: assert.AnError},
		},
		Normalized: availability.Normalized{
			availability.Morning: []availability.ClubIntervals{
				{
					ClubID:    policy.ClubBroadway,
					ShortName: "Broadway",
					Intervals: []availability.Interval{
						{
							FromMinutes: 420, ToMinutes: 450,
							FromHuman: "7:00 am", ToHuman: "7:30 am",
							Courts: []availability.CourtOption{
								{CourtID: "c1", CourtName: "Pickleball 1"},
								{CourtID: "c3", CourtName: "Pickleball 3"},
							},
						},
						{
							FromMinutes: 600, ToMinutes: 630,
							FromHuman: "10:00 am", ToHuman: "10:30 am",
							Courts: []availability.CourtOption{
								{CourtID: "c4", CourtName: "Pickleball 4"},
							},
						},
					},
				},
				{
					ClubID:    policy.ClubRedwoodShores,
					ShortName: "Redwood Shores",
					Intervals: []availability.Interval{
						{
							FromMinutes: 420, ToMinutes: 450,
							FromHuman: "7:00 am", ToHuman: "7:30 am",
							Courts: []availability.CourtOption{
								{CourtID: "r1", CourtName: "Pickleball 2"},
							},
						},
					},
				},
			},
		},
		FailedClubIDs: []string{policy.ClubSantaClara},
	}
}

func newTestBuilder(t *testing.T) (*Builder, *prefs.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := prefs.NewStore(client, policy.Default())

	b := NewBuilder(policy.Default(), store, nil, 0)
	// Pin "now" well before the fetch date so nothing is lock-eligible
	// unless a test moves it.
	b.now = func() time.Time {
		return time.Date(2025, 5, 31, 12, 0, 0, 0, time.Local)
	}
	return b, store
}

func TestBuildOrdersClubsByPreference(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	p := prefs.Defaults(policy.Default())
	p.ClubOrder = []string{
		policy.ClubSantaClara, policy.ClubBroadway,
		policy.ClubRedwoodShores, policy.ClubSouthSF,
	}
	require.NoError(t, store.Set(ctx, p))

	m := b.Build(ctx, testCycle())

	require.Len(t, m.Clubs, 3)
	assert.Equal(t, policy.ClubSantaClara, m.Clubs[0].ClubID)
	assert.Equal(t, policy.ClubBroadway, m.Clubs[1].ClubID)
	assert.Equal(t, policy.ClubRedwoodShores, m.Clubs[2].ClubID)

	// The failed club still shows, flagged, with no buckets.
	assert.True(t, m.Clubs[0].FetchFailed)
	assert.Empty(t, m.Clubs[0].Buckets)
	assert.Equal(t, []string{policy.ClubSantaClara}, m.FailedClubs)
}

func TestBuildMarksEdgeAndIsolatedCourts(t *testing.T) {
	b, _ := newTestBuilder(t)

	m := b.Build(context.Background(), testCycle())

	var broadway *Club
	for i := range m.Clubs {
		if m.Clubs[i].ClubID == policy.ClubBroadway {
			broadway = &m.Clubs[i]
		}
	}
	require.NotNil(t, broadway)
	require.NotEmpty(t, broadway.Buckets)

	slot := broadway.Buckets[0].Slots[0]
	assert.True(t, slot.HasEdge)
	assert.False(t, slot.HasIsolated)
	// Pickleball 1 is on Broadway's edge list, Pickleball 3 is not.
	assert.True(t, slot.Courts[0].Edge)
	assert.False(t, slot.Courts[1].Edge)
}

func TestBuildAppliesTimeRangeFilter(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	p := prefs.Defaults(policy.Default())
	p.TimeRange = prefs.TimeRange{StartMinutes: 540, EndMinutes: 720}
	require.NoError(t, store.Set(ctx, p))

	m := b.Build(ctx, testCycle())

	for _, club := range m.Clubs {
		for _, bucket := range club.Buckets {
			for _, slot := range bucket.Slots {
				assert.GreaterOrEqual(t, slot.FromMinutes, 540)
				assert.LessOrEqual(t, slot.FromMinutes, 720)
			}
		}
	}
}

func TestBuildIndoorOnlyDropsOutdoorClubs(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	p := prefs.Defaults(policy.Default())
	p.IndoorOnly = true
	require.NoError(t, store.Set(ctx, p))

	m := b.Build(ctx, testCycle())

	// Redwood Shores and Santa Clara are outdoor clubs.
	require.Len(t, m.Clubs, 1)
	assert.Equal(t, policy.ClubBroadway, m.Clubs[0].ClubID)
	assert.True(t, m.IndoorOnly)
}

func TestBuildLocksSlotsPastBookingWindow(t *testing.T) {
	b, _ := newTestBuilder(t)
	// Three days before the fetch date at 8:17 am: the limit lands on the
	// fetch date at 8:00 am, so the 7:00 slot stays open and the 10:00
	// slot locks.
	b.now = func() time.Time {
		return time.Date(2025, 5, 29, 8, 17, 0, 0, time.Local)
	}

	m := b.Build(context.Background(), testCycle())

	var broadway *Club
	for i := range m.Clubs {
		if m.Clubs[i].ClubID == policy.ClubBroadway {
			broadway = &m.Clubs[i]
		}
	}
	require.NotNil(t, broadway)
	slots := broadway.Buckets[0].Slots
	require.Len(t, slots, 2)
	assert.False(t, slots[0].Locked)
	assert.True(t, slots[1].Locked)
}

func TestBuildHonorsConfiguredBookingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := prefs.NewStore(client, policy.Default())

	// A ten-day window: five days before the fetch date nothing locks,
	// where the default three-day window would lock everything.
	b := NewBuilder(policy.Default(), store, nil, 10)
	b.now = func() time.Time {
		return time.Date(2025, 5, 27, 8, 17, 0, 0, time.Local)
	}

	m := b.Build(context.Background(), testCycle())

	for _, club := range m.Clubs {
		for _, bucket := range club.Buckets {
			for _, slot := range bucket.Slots {
				assert.False(t, slot.Locked, "slot %d at %s", slot.FromMinutes, club.ClubID)
			}
		}
	}
}

func TestBuildGroupsByTimeInPreferenceOrder(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	p := prefs.Defaults(policy.Default())
	p.ViewMode = prefs.ViewModeByTime
	require.NoError(t, store.Set(ctx, p))

	m := b.Build(ctx, testCycle())

	require.Len(t, m.TimeGroups, 2)
	assert.Equal(t, 420, m.TimeGroups[0].FromMinutes)
	assert.Equal(t, 600, m.TimeGroups[1].FromMinutes)

	// Default preference order puts Redwood Shores before Broadway.
	entries := m.TimeGroups[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, policy.ClubRedwoodShores, entries[0].ClubID)
	assert.Equal(t, policy.ClubBroadway, entries[1].ClubID)
}

func TestBookingLimitFloorsToHalfHour(t *testing.T) {
	now := time.Date(2025, 5, 29, 8, 47, 33, 0, time.Local)
	limit := bookingLimit(now, DefaultBookingWindowDays)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 30, 0, 0, time.Local), limit)

	now = time.Date(2025, 5, 29, 8, 17, 0, 0, time.Local)
	limit = bookingLimit(now, DefaultBookingWindowDays)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local), limit)
}

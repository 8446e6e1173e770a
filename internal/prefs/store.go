// Package prefs persists user presentation preferences between sessions:
// club ordering, layout mode, filters, and the last chosen party size and
// duration. The host application forgets all of these on every visit.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/courtsidehq/courtgate/internal/policy"
)

// ViewMode selects how availability is grouped for display.
type ViewMode string

const (
	ViewModeByClub ViewMode = "by-club"
	ViewModeByTime ViewMode = "by-time"
)

// Time-range filter bounds, in minutes from midnight, half-hour steps.
const (
	RangeMinMinutes  = 360  // 6:00 am
	RangeMaxMinutes  = 1320 // 10:00 pm
	RangeStepMinutes = 30
)

// TimeRange is the inclusive window of start times the user wants shown.
type TimeRange struct {
	StartMinutes int `json:"start_minutes"`
	EndMinutes   int `json:"end_minutes"`
}

// Preferences is everything remembered across sessions for one user.
type Preferences struct {
	ClubOrder  []string  `json:"club_order"`
	ViewMode   ViewMode  `json:"view_mode"`
	IndoorOnly bool      `json:"indoor_only"`
	TimeRange  TimeRange `json:"time_range"`
	Players    string    `json:"players,omitempty"`
	Duration   string    `json:"duration,omitempty"`
}

// Defaults returns the preferences used before the user has saved anything.
func Defaults(table *policy.Table) *Preferences {
	return &Preferences{
		ClubOrder:  append([]string(nil), table.DefaultOrder...),
		ViewMode:   ViewModeByClub,
		IndoorOnly: false,
		TimeRange:  TimeRange{StartMinutes: RangeMinMinutes, EndMinutes: RangeMaxMinutes},
	}
}

// Store persists preferences in Redis. The gateway serves a single user, so
// a single key suffices.
type Store struct {
	redis *redis.Client
	table *policy.Table
}

// NewStore creates a preferences store.
func NewStore(redisClient *redis.Client, table *policy.Table) *Store {
	return &Store{redis: redisClient, table: table}
}

func (s *Store) key() string {
	return "courtgate:prefs"
}

// Get retrieves preferences, returning defaults if none are saved. Stored
// values that no longer validate against the policy table (a club was added
// or removed since they were written) fall back field by field rather than
// discarding everything.
func (s *Store) Get(ctx context.Context) (*Preferences, error) {
	data, err := s.redis.Get(ctx, s.key()).Bytes()
	if err == redis.Nil {
		return Defaults(s.table), nil
	}
	if err != nil {
		return nil, fmt.Errorf("prefs: get: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("prefs: unmarshal: %w", err)
	}
	s.sanitize(&p)
	return &p, nil
}

// Set saves preferences after validation.
func (s *Store) Set(ctx context.Context, p *Preferences) error {
	s.sanitize(p)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("prefs: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("prefs: set: %w", err)
	}
	return nil
}

// ClubOrder returns the saved club preference order. It is best-effort: any
// store failure yields the policy default so a Redis hiccup never blocks an
// availability cycle.
func (s *Store) ClubOrder(ctx context.Context) []string {
	p, err := s.Get(ctx)
	if err != nil {
		return append([]string(nil), s.table.DefaultOrder...)
	}
	return p.ClubOrder
}

// sanitize repairs out-of-range fields in place.
func (s *Store) sanitize(p *Preferences) {
	if !validClubOrder(p.ClubOrder, s.table.ClubIDs()) {
		p.ClubOrder = append([]string(nil), s.table.DefaultOrder...)
	}
	if p.ViewMode != ViewModeByTime {
		p.ViewMode = ViewModeByClub
	}
	if p.TimeRange.StartMinutes < RangeMinMinutes ||
		p.TimeRange.EndMinutes > RangeMaxMinutes ||
		p.TimeRange.StartMinutes >= p.TimeRange.EndMinutes {
		p.TimeRange = TimeRange{StartMinutes: RangeMinMinutes, EndMinutes: RangeMaxMinutes}
	}
}

// validClubOrder accepts only an exact permutation of the configured clubs.
func validClubOrder(order, configured []string) bool {
	if len(order) != len(configured) {
		return false
	}
	known := make(map[string]bool, len(configured))
	for _, id := range configured {
		known[id] = true
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !known[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// Package view builds the JSON view-model the rendering companion draws
// from. It is a pure projection of the current availability cycle through
// the user's saved preferences; it holds no state of its own and nothing in
// the core depends on it.
package view

import (
	"context"
	"sort"
	"time"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/policy"
	"github.com/courtsidehq/courtgate/internal/prefs"
	"github.com/courtsidehq/courtgate/internal/weather"
)

// DefaultBookingWindowDays matches the host's reservation rules: slots
// further out than this are shown locked.
const DefaultBookingWindowDays = 3

// Court is one selectable court inside a slot.
type Court struct {
	CourtID   string `json:"court_id"`
	CourtName string `json:"court_name"`
	Edge      bool   `json:"edge,omitempty"`
	Isolated  bool   `json:"isolated,omitempty"`
}

// Slot is one start time at one club.
type Slot struct {
	FromMinutes int     `json:"from_minutes"`
	ToMinutes   int     `json:"to_minutes"`
	FromHuman   string  `json:"from_human"`
	ToHuman     string  `json:"to_human"`
	Locked      bool    `json:"locked,omitempty"`
	HasEdge     bool    `json:"has_edge,omitempty"`
	HasIsolated bool    `json:"has_isolated,omitempty"`
	Courts      []Court `json:"courts"`
	WeatherHint string  `json:"weather_hint,omitempty"`
	RainPct     int     `json:"rain_pct,omitempty"`
}

// Bucket groups a club's slots by time of day.
type Bucket struct {
	TimeOfDay availability.TimeOfDay `json:"time_of_day"`
	Slots     []Slot                 `json:"slots"`
}

// Club is one location's column in the by-club layout.
type Club struct {
	ClubID      string   `json:"club_id"`
	ShortName   string   `json:"short_name"`
	Indoor      bool     `json:"indoor,omitempty"`
	FetchFailed bool     `json:"fetch_failed,omitempty"`
	Buckets     []Bucket `json:"buckets,omitempty"`
}

// TimeEntry is one club's slot inside a by-time group.
type TimeEntry struct {
	ClubID    string `json:"club_id"`
	ShortName string `json:"short_name"`
	Slot      Slot   `json:"slot"`
}

// TimeGroup collects every club's slot for one start time, in club
// preference order.
type TimeGroup struct {
	FromMinutes int         `json:"from_minutes"`
	FromHuman   string      `json:"from_human"`
	ToHuman     string      `json:"to_human"`
	Entries     []TimeEntry `json:"entries"`
}

// Model is the complete render payload for one availability cycle.
type Model struct {
	Date        string          `json:"date"`
	ViewMode    prefs.ViewMode  `json:"view_mode"`
	IndoorOnly  bool            `json:"indoor_only"`
	TimeRange   prefs.TimeRange `json:"time_range"`
	FailedClubs []string        `json:"failed_clubs,omitempty"`
	Clubs       []Club          `json:"clubs,omitempty"`
	TimeGroups  []TimeGroup     `json:"time_groups,omitempty"`
}

// Builder projects cycles into Models.
type Builder struct {
	table      *policy.Table
	prefs      *prefs.Store
	weather    *weather.Service
	windowDays int

	// now is swappable for the booking-window tests.
	now func() time.Time
}

// NewBuilder wires a Builder. weather may be nil when hints are disabled;
// windowDays <= 0 falls back to the host's default window.
func NewBuilder(table *policy.Table, prefStore *prefs.Store, w *weather.Service, windowDays int) *Builder {
	if windowDays <= 0 {
		windowDays = DefaultBookingWindowDays
	}
	return &Builder{table: table, prefs: prefStore, weather: w, windowDays: windowDays, now: time.Now}
}

// Build projects the cycle through the current preferences. Clubs appear in
// preference order; slots outside the time-range filter are dropped, outdoor
// clubs are dropped when the indoor-only filter is on, and everything past
// the booking window is marked locked instead of hidden.
func (b *Builder) Build(ctx context.Context, cycle *availability.Cycle) *Model {
	p, err := b.prefs.Get(ctx)
	if err != nil {
		p = prefs.Defaults(b.table)
	}

	m := &Model{
		Date:        cycle.Params.Date,
		ViewMode:    p.ViewMode,
		IndoorOnly:  p.IndoorOnly,
		TimeRange:   p.TimeRange,
		FailedClubs: append([]string(nil), cycle.FailedClubIDs...),
	}

	limit := bookingLimit(b.now(), b.windowDays)
	byClub := b.indexByClub(cycle)

	for _, clubID := range orderedClubIDs(p.ClubOrder, cycle) {
		pol := b.table.Club(clubID)
		if p.IndoorOnly && (pol == nil || !pol.Indoor) {
			continue
		}
		club := Club{
			ClubID:      clubID,
			ShortName:   b.table.ShortName(clubID),
			FetchFailed: containsID(cycle.FailedClubIDs, clubID),
		}
		if pol != nil {
			club.Indoor = pol.Indoor
		}
		for _, tod := range availability.TimeOfDays {
			intervals := byClub[clubID][tod]
			var slots []Slot
			for _, iv := range intervals {
				if iv.FromMinutes < p.TimeRange.StartMinutes || iv.FromMinutes > p.TimeRange.EndMinutes {
					continue
				}
				slots = append(slots, b.buildSlot(clubID, cycle.Params.Date, iv, limit))
			}
			if len(slots) > 0 {
				club.Buckets = append(club.Buckets, Bucket{TimeOfDay: tod, Slots: slots})
			}
		}
		m.Clubs = append(m.Clubs, club)
	}

	if p.ViewMode == prefs.ViewModeByTime {
		m.TimeGroups = groupByTime(m.Clubs)
	}
	return m
}

func (b *Builder) buildSlot(clubID, date string, iv availability.Interval, limit time.Time) Slot {
	s := Slot{
		FromMinutes: iv.FromMinutes,
		ToMinutes:   iv.ToMinutes,
		FromHuman:   iv.FromHuman,
		ToHuman:     iv.ToHuman,
		Locked:      slotAfterLimit(date, iv.FromMinutes, limit),
	}
	for _, c := range iv.Courts {
		court := Court{
			CourtID:   c.CourtID,
			CourtName: c.CourtName,
			Edge:      b.table.IsEdgeCourt(clubID, c.CourtName),
			Isolated:  b.table.IsIsolatedCourt(clubID, c.CourtName),
		}
		s.HasEdge = s.HasEdge || court.Edge
		s.HasIsolated = s.HasIsolated || court.Isolated
		s.Courts = append(s.Courts, court)
	}
	if b.weather != nil {
		s.WeatherHint = b.weather.HintForHour(date, iv.FromMinutes)
		if weather.Rainy(s.WeatherHint) {
			s.RainPct = b.weather.RainPctForHour(date, iv.FromMinutes)
		}
	}
	return s
}

// indexByClub reshapes the normalized cycle for club-first iteration.
func (b *Builder) indexByClub(cycle *availability.Cycle) map[string]map[availability.TimeOfDay][]availability.Interval {
	out := make(map[string]map[availability.TimeOfDay][]availability.Interval)
	for tod, clubs := range cycle.Normalized {
		for _, ci := range clubs {
			if out[ci.ClubID] == nil {
				out[ci.ClubID] = make(map[availability.TimeOfDay][]availability.Interval)
			}
			out[ci.ClubID][tod] = ci.Intervals
		}
	}
	return out
}

// orderedClubIDs lists every club the cycle touched, preference order first,
// then any stragglers in cycle order.
func orderedClubIDs(preferred []string, cycle *availability.Cycle) []string {
	inCycle := make(map[string]bool, len(cycle.Results))
	for _, r := range cycle.Results {
		inCycle[r.ClubID] = true
	}
	seen := make(map[string]bool, len(inCycle))
	var out []string
	for _, id := range preferred {
		if inCycle[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, r := range cycle.Results {
		if !seen[r.ClubID] {
			out = append(out, r.ClubID)
			seen[r.ClubID] = true
		}
	}
	return out
}

// groupByTime regroups the by-club projection by start time. Iterating clubs
// first keeps preference order within each group.
func groupByTime(clubs []Club) []TimeGroup {
	byStart := make(map[int]*TimeGroup)
	var starts []int
	for _, club := range clubs {
		for _, bucket := range club.Buckets {
			for _, slot := range bucket.Slots {
				g := byStart[slot.FromMinutes]
				if g == nil {
					g = &TimeGroup{
						FromMinutes: slot.FromMinutes,
						FromHuman:   slot.FromHuman,
						ToHuman:     slot.ToHuman,
					}
					byStart[slot.FromMinutes] = g
					starts = append(starts, slot.FromMinutes)
				}
				g.Entries = append(g.Entries, TimeEntry{
					ClubID:    club.ClubID,
					ShortName: club.ShortName,
					Slot:      slot,
				})
			}
		}
	}
	sort.Ints(starts)
	out := make([]TimeGroup, 0, len(starts))
	for _, from := range starts {
		out = append(out, *byStart[from])
	}
	return out
}

// bookingLimit is now plus the booking window, floored to the start of the
// current half hour.
func bookingLimit(now time.Time, windowDays int) time.Time {
	limit := now.AddDate(0, 0, windowDays)
	floored := limit.Minute() - limit.Minute()%30
	return time.Date(limit.Year(), limit.Month(), limit.Day(), limit.Hour(), floored, 0, 0, limit.Location())
}

func slotAfterLimit(date string, fromMinutes int, limit time.Time) bool {
	day, err := time.ParseInLocation("2006-01-02", date, limit.Location())
	if err != nil {
		return false
	}
	return day.Add(time.Duration(fromMinutes) * time.Minute).After(limit)
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

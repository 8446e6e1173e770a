// Package policy holds the per-club booking policy table: the fixed club set,
// slot-length identifiers, duration caps, and court preference lists. The
// table is data handed to the fetcher, substitution, and view layers rather
// than constants compiled into them.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Slot-length ids as the backend names them.
const (
	SlotMin30 = "37ef7bde-8580-48c3-aced-776ada7c2832"
	SlotMin60 = "89a1327a-c893-49f6-88a9-be4c9ab4d481"
	SlotMin90 = "ea57c6b1-069c-4df9-8ee6-0d63ade162bc"
)

// Club ids as the backend names them.
const (
	ClubBroadway      = "9a2ab1e6-bc97-4250-ac42-8cc8d97f9c63"
	ClubRedwoodShores = "95eb0299-b5cf-4a9f-8b35-e4b3bd505f18"
	ClubSouthSF       = "ce7e7607-09e6-4d16-8197-1fffb70db776"
	ClubSantaClara    = "3bc78448-ec6b-49e1-a2ae-64abd68e646b"
)

// ClubPolicy describes one club's booking rules and court preferences.
type ClubPolicy struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	// Indoor marks clubs whose courts are all indoors.
	Indoor bool `json:"indoor"`
	// MaxSlotID, when set, caps bookings at that slot length. A fetch or
	// substitution asking for a longer slot uses this id for this club only.
	MaxSlotID string `json:"max_slot_id,omitempty"`
	// EdgeCourts are courts with at most one neighbor, preferred for play.
	EdgeCourts []string `json:"edge_courts,omitempty"`
	// IsolatedCourts are fully fenced single courts, the most prized.
	IsolatedCourts []string `json:"isolated_courts,omitempty"`
}

// Table is the full policy table plus the default club ordering.
type Table struct {
	Clubs        []ClubPolicy `json:"clubs"`
	DefaultOrder []string     `json:"default_order"`

	byID map[string]*ClubPolicy
}

// NewTable builds a table from an explicit club list. Order defaults to
// table order when nil.
func NewTable(clubs []ClubPolicy, order []string) *Table {
	t := &Table{Clubs: clubs, DefaultOrder: order}
	if len(t.DefaultOrder) == 0 {
		for _, c := range clubs {
			t.DefaultOrder = append(t.DefaultOrder, c.ID)
		}
	}
	t.index()
	return t
}

// Default returns the table for the known four-club deployment.
func Default() *Table {
	t := &Table{
		Clubs: []ClubPolicy{
			{
				ID:         ClubBroadway,
				ShortName:  "Broadway",
				Indoor:     true,
				EdgeCourts: []string{"Pickleball 1", "Pickleball 2", "Pickleball 5", "Pickleball 6"},
			},
			{
				ID:        ClubRedwoodShores,
				ShortName: "Redwood Shores",
				// All courts equally good here.
				EdgeCourts: []string{"Pickleball 1", "Pickleball 2", "Pickleball 3", "Pickleball 4"},
			},
			{
				ID:         ClubSouthSF,
				ShortName:  "South SF",
				Indoor:     true,
				EdgeCourts: []string{"Pickleball 1", "Pickleball 2", "Pickleball 5", "Pickleball 6"},
			},
			{
				ID:        ClubSantaClara,
				ShortName: "Santa Clara",
				// Santa Clara doesn't allow bookings longer than 60 minutes.
				MaxSlotID: SlotMin60,
				EdgeCourts: []string{
					"Pickleball 1", "Pickleball 2", "Pickleball 3", "Pickleball 4", "Pickleball 5",
					"Pickleball 6", "Pickleball 7", "Pickleball 8", "Pickleball 9", "Pickleball 10",
				},
				IsolatedCourts: []string{"Pickleball 1", "Pickleball 6"},
			},
		},
		DefaultOrder: []string{ClubRedwoodShores, ClubBroadway, ClubSouthSF, ClubSantaClara},
	}
	t.index()
	return t
}

// LoadFile reads a JSON policy table from path. Missing optional fields keep
// their zero values; an unreadable or malformed file is an error, not a
// silent fallback, since a partial policy table would misprice bookings.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	if len(t.Clubs) == 0 {
		return nil, fmt.Errorf("policy: %s defines no clubs", path)
	}
	if len(t.DefaultOrder) == 0 {
		for _, c := range t.Clubs {
			t.DefaultOrder = append(t.DefaultOrder, c.ID)
		}
	}
	t.index()
	return &t, nil
}

func (t *Table) index() {
	t.byID = make(map[string]*ClubPolicy, len(t.Clubs))
	for i := range t.Clubs {
		t.byID[t.Clubs[i].ID] = &t.Clubs[i]
	}
}

// Club returns the policy for a club id, or nil when unknown.
func (t *Table) Club(id string) *ClubPolicy {
	return t.byID[id]
}

// ClubIDs returns the configured club ids in table order.
func (t *Table) ClubIDs() []string {
	ids := make([]string, 0, len(t.Clubs))
	for _, c := range t.Clubs {
		ids = append(ids, c.ID)
	}
	return ids
}

// ShortName returns a club's display name, falling back to the raw id.
func (t *Table) ShortName(id string) string {
	if c := t.byID[id]; c != nil && c.ShortName != "" {
		return c.ShortName
	}
	return id
}

// CapSlotID applies a club's duration cap: a 90-minute request against a
// capped club returns the cap's slot id, any other request passes through.
func (t *Table) CapSlotID(clubID, requestedSlotID string) string {
	c := t.byID[clubID]
	if c == nil || c.MaxSlotID == "" {
		return requestedSlotID
	}
	if requestedSlotID == SlotMin90 {
		return c.MaxSlotID
	}
	return requestedSlotID
}

// IsEdgeCourt reports whether the named court is on the club's edge list.
func (t *Table) IsEdgeCourt(clubID, courtName string) bool {
	return contains(t.courtList(clubID, false), courtName)
}

// IsIsolatedCourt reports whether the named court is fully isolated.
func (t *Table) IsIsolatedCourt(clubID, courtName string) bool {
	return contains(t.courtList(clubID, true), courtName)
}

func (t *Table) courtList(clubID string, isolated bool) []string {
	c := t.byID[clubID]
	if c == nil {
		return nil
	}
	if isolated {
		return c.IsolatedCourts
	}
	return c.EdgeCourts
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

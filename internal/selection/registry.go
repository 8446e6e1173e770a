// Package selection holds the single in-flight user choice awaiting
// substitution into the next outgoing booking request.
package selection

import "sync"

// Pending is the user-chosen slot: club, court, date, and start/end in
// minutes from midnight.
type Pending struct {
	ClubID      string `json:"clubId"`
	CourtID     string `json:"courtId"`
	Date        string `json:"date"`
	FromMinutes int    `json:"fromMinutes"`
	ToMinutes   int    `json:"toMinutes"`
}

// Registry keeps at most one Pending at a time. A new Set silently replaces
// any unsent predecessor (the user changed their mind); Consume reads and
// clears under one lock so the substitution check-then-clear stays atomic.
type Registry struct {
	mu      sync.Mutex
	pending *Pending
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Set replaces the pending selection.
func (r *Registry) Set(p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = &p
}

// Get returns the pending selection without consuming it, or nil.
func (r *Registry) Get() *Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil
	}
	p := *r.pending
	return &p
}

// Consume returns and clears the pending selection in one step.
func (r *Registry) Consume() *Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending
	r.pending = nil
	return p
}

// Clear drops any pending selection. Called on booking-flow teardown; a
// selection never survives a flow exit.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
}

// Package availability implements the cross-club availability engine: it
// parses the parameters off the host's own availability request, fans the
// same query out to every configured club in parallel, and normalizes the
// combined results into the structure the selection UI reads from.
package availability

import "fmt"

// Wire types for the host backend's availability payload.

// RawResponse is the body of one availability response.
type RawResponse struct {
	ClubsAvailabilities []ClubAvailability `json:"clubsAvailabilities"`
}

// ClubAvailability is one club's section of an availability response.
type ClubAvailability struct {
	Club               ClubInfo  `json:"club"`
	Courts             []Court   `json:"courts"`
	AvailableTimeSlots []RawSlot `json:"availableTimeSlots"`
}

type ClubInfo struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
	Code      string `json:"code"`
}

type Court struct {
	CourtID             string `json:"courtId"`
	CourtName           string `json:"courtName"`
	Order               int    `json:"order"`
	CourtSetupVersionID string `json:"courtSetupVersionId"`
}

// RawSlot is one bookable interval as the backend reports it. Start and end
// are minutes from midnight.
type RawSlot struct {
	TimeOfDay        string   `json:"timeOfDay"`
	FromInMinutes    int      `json:"fromInMinutes"`
	ToInMinutes      int      `json:"toInMinutes"`
	CourtID          string   `json:"courtId"`
	CourtsVersionIDs []string `json:"courtsVersionsIds"`
}

// TimeOfDay buckets as the backend names them.
type TimeOfDay string

const (
	Morning   TimeOfDay = "Morning"
	Afternoon TimeOfDay = "Afternoon"
	Evening   TimeOfDay = "Evening"
)

// TimeOfDays lists the buckets in day order.
var TimeOfDays = []TimeOfDay{Morning, Afternoon, Evening}

// Normalized result types.

// CourtOption is one interchangeable court at a given start time.
type CourtOption struct {
	CourtID   string `json:"courtId"`
	CourtName string `json:"courtName"`
	Order     int    `json:"order"`
}

// Interval is one start time with every court available at it.
type Interval struct {
	FromMinutes int           `json:"fromMinutes"`
	ToMinutes   int           `json:"toMinutes"`
	FromHuman   string        `json:"fromHuman"`
	ToHuman     string        `json:"toHuman"`
	Courts      []CourtOption `json:"courts"`
}

// ClubIntervals is one club's intervals within a single time-of-day bucket.
type ClubIntervals struct {
	ClubID    string     `json:"clubId"`
	ShortName string     `json:"shortName"`
	Code      string     `json:"code"`
	Intervals []Interval `json:"intervals"`
}

// Normalized is the bucketed cross-club result set for one fetch cycle.
type Normalized map[TimeOfDay][]ClubIntervals

// ClubResult records one club's outcome within a cycle: either a payload or
// a failure cause. Every configured club appears exactly once per cycle.
type ClubResult struct {
	ClubID string
	Data   *RawResponse
	Err    error
}

// Failed reports whether the club's fetch failed.
func (r ClubResult) Failed() bool { return r.Err != nil }

func (r ClubResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.ClubID, r.Err)
	}
	return r.ClubID + ": ok"
}

package availability

import (
	"fmt"
	"net/url"
)

// Params carries the query parameters gleaned from one observed host
// availability request. Immutable once parsed; each newly observed request
// supersedes the previous Params wholesale.
type Params struct {
	Date             string
	CategoryCode     string
	CategoryOptionID string
	TimeSlotID       string
	// NativeClubID is the club the host itself was querying.
	NativeClubID string
}

// ParseParams extracts Params from a host availability URL.
func ParseParams(rawURL string) (Params, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Params{}, fmt.Errorf("availability: parse url: %w", err)
	}
	q := u.Query()
	p := Params{
		Date:             q.Get("date"),
		CategoryCode:     q.Get("categoryCode"),
		CategoryOptionID: q.Get("categoryOptionsId"),
		TimeSlotID:       q.Get("timeSlotId"),
		NativeClubID:     q.Get("clubId"),
	}
	if p.Date == "" || p.TimeSlotID == "" {
		return Params{}, fmt.Errorf("availability: url %q missing date or timeSlotId", u.Path)
	}
	return p, nil
}

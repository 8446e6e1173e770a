package availability

import (
	"sort"
	"strings"
)

const unknownCourtOrder = 999

// Normalize buckets the successful raw results by time of day, merging
// same-start slots from one club into a single interval carrying every court
// available at that start. Results keep the order of the input slice, which
// the fetcher assembles in club-preference order.
func Normalize(results []ClubResult) Normalized {
	out := Normalized{Morning: nil, Afternoon: nil, Evening: nil}

	for _, result := range results {
		if result.Failed() || result.Data == nil {
			continue
		}
		for _, clubAvail := range result.Data.ClubsAvailabilities {
			courtByID := make(map[string]Court, len(clubAvail.Courts))
			courtByVersionID := make(map[string]Court, len(clubAvail.Courts))
			for _, court := range clubAvail.Courts {
				courtByID[court.CourtID] = court
				courtByVersionID[court.CourtSetupVersionID] = court
			}

			for _, tod := range TimeOfDays {
				intervals := mergeByStart(clubAvail, tod, courtByID, courtByVersionID)
				out[tod] = append(out[tod], ClubIntervals{
					ClubID:    clubAvail.Club.ID,
					ShortName: clubAvail.Club.ShortName,
					Code:      clubAvail.Club.Code,
					Intervals: intervals,
				})
			}
		}
	}

	return out
}

func mergeByStart(clubAvail ClubAvailability, tod TimeOfDay, courtByID, courtByVersionID map[string]Court) []Interval {
	byStart := make(map[int]*Interval)

	for _, slot := range clubAvail.AvailableTimeSlots {
		if slot.TimeOfDay != string(tod) {
			continue
		}
		iv, ok := byStart[slot.FromInMinutes]
		if !ok {
			iv = &Interval{
				FromMinutes: slot.FromInMinutes,
				ToMinutes:   slot.ToInMinutes,
				FromHuman:   MinutesToHumanTime(slot.FromInMinutes),
				ToHuman:     MinutesToHumanTime(slot.ToInMinutes),
			}
			byStart[slot.FromInMinutes] = iv
		}

		versionIDs := slot.CourtsVersionIDs
		if len(versionIDs) == 0 {
			versionIDs = []string{slot.CourtID}
		}
		for _, versionID := range versionIDs {
			court, found := courtByVersionID[versionID]
			if !found {
				court, found = courtByID[versionID]
			}
			courtID := court.CourtID
			if courtID == "" {
				courtID = versionID
			}
			order := court.Order
			if !found {
				order = unknownCourtOrder
			}
			iv.Courts = append(iv.Courts, CourtOption{
				CourtID: courtID,
				// The backend appends a stray trailing space to exactly one
				// court name at one club. Trim to be safe.
				CourtName: strings.TrimSpace(court.CourtName),
				Order:     order,
			})
		}
	}

	intervals := make([]Interval, 0, len(byStart))
	for _, iv := range byStart {
		sort.Slice(iv.Courts, func(i, j int) bool { return iv.Courts[i].Order < iv.Courts[j].Order })
		intervals = append(intervals, *iv)
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].FromMinutes < intervals[j].FromMinutes })
	return intervals
}

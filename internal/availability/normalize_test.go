package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clubResult(clubID string, courts []Court, slots []RawSlot) ClubResult {
	return ClubResult{
		ClubID: clubID,
		Data: &RawResponse{
			ClubsAvailabilities: []ClubAvailability{{
				Club:               ClubInfo{ID: clubID, ShortName: "Club " + clubID},
				Courts:             courts,
				AvailableTimeSlots: slots,
			}},
		},
	}
}

func TestNormalizeMergesSameStartSlots(t *testing.T) {
	courts := []Court{
		{CourtID: "c1", CourtName: "Pickleball 1", Order: 1, CourtSetupVersionID: "v1"},
		{CourtID: "c2", CourtName: "Pickleball 2", Order: 2, CourtSetupVersionID: "v2"},
	}
	slots := []RawSlot{
		{TimeOfDay: "Morning", FromInMinutes: 420, ToInMinutes: 480, CourtID: "c2", CourtsVersionIDs: []string{"v2"}},
		{TimeOfDay: "Morning", FromInMinutes: 420, ToInMinutes: 480, CourtID: "c1", CourtsVersionIDs: []string{"v1"}},
	}

	out := Normalize([]ClubResult{clubResult("club-a", courts, slots)})

	require.Len(t, out[Morning], 1)
	intervals := out[Morning][0].Intervals
	require.Len(t, intervals, 1)

	iv := intervals[0]
	assert.Equal(t, 420, iv.FromMinutes)
	assert.Equal(t, "7:00 am", iv.FromHuman)
	assert.Equal(t, "8:00 am", iv.ToHuman)
	require.Len(t, iv.Courts, 2)
	// Courts sorted by their order hint, not slot arrival order.
	assert.Equal(t, "Pickleball 1", iv.Courts[0].CourtName)
	assert.Equal(t, "Pickleball 2", iv.Courts[1].CourtName)
}

func TestNormalizeSortsIntervalsByStart(t *testing.T) {
	courts := []Court{{CourtID: "c1", CourtName: "Pickleball 1", Order: 1, CourtSetupVersionID: "v1"}}
	slots := []RawSlot{
		{TimeOfDay: "Evening", FromInMinutes: 1140, ToInMinutes: 1200, CourtID: "c1"},
		{TimeOfDay: "Evening", FromInMinutes: 1020, ToInMinutes: 1080, CourtID: "c1"},
	}

	out := Normalize([]ClubResult{clubResult("club-a", courts, slots)})

	intervals := out[Evening][0].Intervals
	require.Len(t, intervals, 2)
	assert.Equal(t, 1020, intervals[0].FromMinutes)
	assert.Equal(t, 1140, intervals[1].FromMinutes)
}

func TestNormalizeTrimsCourtNames(t *testing.T) {
	// The backend ships "Pickleball 1 " (trailing space) for one known
	// club/court pair.
	courts := []Court{{CourtID: "c1", CourtName: "Pickleball 1 ", Order: 1, CourtSetupVersionID: "v1"}}
	slots := []RawSlot{{TimeOfDay: "Morning", FromInMinutes: 420, ToInMinutes: 450, CourtID: "c1", CourtsVersionIDs: []string{"v1"}}}

	out := Normalize([]ClubResult{clubResult("club-a", courts, slots)})
	assert.Equal(t, "Pickleball 1", out[Morning][0].Intervals[0].Courts[0].CourtName)
}

func TestNormalizeFallsBackToCourtID(t *testing.T) {
	// Slot with no version ids resolves through the plain court id; an id
	// that matches no court still yields an option so the slot is bookable.
	courts := []Court{{CourtID: "c1", CourtName: "Pickleball 1", Order: 1, CourtSetupVersionID: "v1"}}
	slots := []RawSlot{
		{TimeOfDay: "Afternoon", FromInMinutes: 780, ToInMinutes: 840, CourtID: "c1"},
		{TimeOfDay: "Afternoon", FromInMinutes: 900, ToInMinutes: 960, CourtID: "ghost"},
	}

	out := Normalize([]ClubResult{clubResult("club-a", courts, slots)})

	intervals := out[Afternoon][0].Intervals
	require.Len(t, intervals, 2)
	assert.Equal(t, "c1", intervals[0].Courts[0].CourtID)

	ghost := intervals[1].Courts[0]
	assert.Equal(t, "ghost", ghost.CourtID)
	assert.Empty(t, ghost.CourtName)
}

func TestNormalizeSkipsFailedResults(t *testing.T) {
	ok := clubResult("club-a", []Court{{CourtID: "c1", CourtName: "Pickleball 1", Order: 1}}, []RawSlot{
		{TimeOfDay: "Morning", FromInMinutes: 420, ToInMinutes: 450, CourtID: "c1"},
	})
	failed := ClubResult{ClubID: "club-b", Err: errors.New("boom")}

	out := Normalize([]ClubResult{ok, failed})

	require.Len(t, out[Morning], 1)
	assert.Equal(t, "club-a", out[Morning][0].ClubID)
}

func TestNormalizeEveryBucketPresent(t *testing.T) {
	out := Normalize(nil)
	for _, tod := range TimeOfDays {
		_, ok := out[tod]
		assert.True(t, ok, "bucket %s missing", tod)
	}
}

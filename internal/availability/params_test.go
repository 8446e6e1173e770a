package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	raw := "https://api.example.com/court-booking/api/1.0/availability" +
		"?clubId=club-1&date=2025-06-01&categoryCode=PB&categoryOptionsId=opt-2&timeSlotId=slot-90"

	p, err := ParseParams(raw)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", p.Date)
	assert.Equal(t, "PB", p.CategoryCode)
	assert.Equal(t, "opt-2", p.CategoryOptionID)
	assert.Equal(t, "slot-90", p.TimeSlotID)
	assert.Equal(t, "club-1", p.NativeClubID)
}

func TestParseParamsRejectsIncompleteURLs(t *testing.T) {
	_, err := ParseParams("https://api.example.com/availability?categoryCode=PB")
	assert.Error(t, err)

	_, err = ParseParams("https://api.example.com/availability?date=2025-06-01")
	assert.Error(t, err)

	_, err = ParseParams("://bad")
	assert.Error(t, err)
}

package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinutesToHumanTime(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "12:00 am"},
		{30, "12:30 am"},
		{420, "7:00 am"},
		{450, "7:30 am"},
		{719, "11:59 am"},
		{720, "12:00 pm"},
		{765, "12:45 pm"},
		{1080, "6:00 pm"},
		{1439, "11:59 pm"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinutesToHumanTime(tt.minutes), "minutes=%d", tt.minutes)
	}
}

func TestHumanTimePreservesOrderingWithinMeridiem(t *testing.T) {
	// Within one am/pm half (and off the 12 o'clock wrap), lexical hour
	// ordering must follow minute ordering for all half-hour starts the
	// backend emits.
	last := -1
	for m := 60; m < 720; m += 30 {
		if last >= 0 {
			assert.Less(t, last, m)
			assert.NotEqual(t, MinutesToHumanTime(last), MinutesToHumanTime(m))
		}
		last = m
	}
}

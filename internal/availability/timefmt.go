package availability

import "fmt"

// MinutesToHumanTime renders minutes-from-midnight the way the host app
// does: "7:00 am", "12:30 pm". The backend represents every start and end
// time this way, so 420 is 7:00 AM.
func MinutesToHumanTime(minutes int) string {
	totalHours := minutes / 60
	ampm := "am"
	if totalHours >= 12 {
		ampm = "pm"
	}
	h := totalHours % 12
	if h == 0 {
		h = 12
	}
	m := minutes % 60
	if m == 0 {
		return fmt.Sprintf("%d:00 %s", h, ampm)
	}
	return fmt.Sprintf("%d:%02d %s", h, m, ampm)
}

package attendance

import (
	"fmt"
	"time"
)

// FormatDuration renders an attendance duration with minute precision,
// "2h 5m" above one hour and "45m" below. A record with a single sighting
// has zero duration and renders as "0m". Negative durations never occur
// since last_seen is clamped to first_seen, but are rendered as "0m" anyway.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

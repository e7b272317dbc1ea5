package attendance

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0m"},
		{"seconds only", 45 * time.Second, "0m"},
		{"minutes", 45 * time.Minute, "45m"},
		{"exactly one hour", time.Hour, "1h 0m"},
		{"hours and minutes", 2*time.Hour + 5*time.Minute, "2h 5m"},
		{"seconds truncated", 1*time.Hour + 30*time.Minute + 59*time.Second, "1h 30m"},
		{"full workday", 8*time.Hour + 15*time.Minute, "8h 15m"},
		{"negative clamps to zero", -time.Minute, "0m"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatDuration(tc.d)
			if got != tc.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
			}
		})
	}
}

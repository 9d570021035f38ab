package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders seconds in the largest whole unit: 45s, 12m, 3h
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds > 3600 {
		if seconds >= 48*3600 {
			return fmt.Sprintf("%dd", seconds/86400)
		}
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}

// FormatAgo renders how long before now t was, e.g. "12m ago"
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < time.Second {
		return "just now"
	}
	return FormatRoundedUnit(int64(d/time.Second)) + " ago"
}

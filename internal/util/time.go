package util

import (
	"fmt"
	"time"
)

// MinutesAgo renders how long ago t was, in whole minutes, relative to now.
func MinutesAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	minutes := int(now.Sub(t).Round(time.Minute) / time.Minute)
	switch {
	case minutes <= 0:
		return "just now"
	case minutes == 1:
		return "1 minute ago"
	default:
		return fmt.Sprintf("%d minutes ago", minutes)
	}
}

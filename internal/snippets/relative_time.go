package snippets

import (
	"fmt"
	"time"
)

// FormatDistanceToNow renders t relative to now: "just now", "5 minutes
// ago", "2 days ago", and a calendar date once more than 30 days have passed
// (with the year when more than a year has passed).
func FormatDistanceToNow(t, now time.Time) string {
	diff := now.Sub(t)
	sec := int64(diff / time.Second)
	minutes := sec / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 365:
		return t.Local().Format("02 Jan 2006")
	case days > 30:
		return t.Local().Format("02 Jan")
	case days > 0:
		return plural(days, "day")
	case hours > 0:
		return plural(hours, "hour")
	case minutes > 0:
		return plural(minutes, "minute")
	}
	return "just now"
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

package claim

import (
	"fmt"
	"time"
)

// TimeLeft renders the distance to a deadline as "Xd Yh", "Xh Ym" or "Xm",
// prefixed with "-" once the deadline has passed.
func TimeLeft(deadline time.Time, now time.Time) (string, bool) {
	diff := deadline.Sub(now)
	overdue := diff < 0
	if overdue {
		diff = -diff
	}

	days := int(diff / (24 * time.Hour))
	hours := int((diff % (24 * time.Hour)) / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)

	prefix := ""
	if overdue {
		prefix = "-"
	}

	switch {
	case days > 0:
		return fmt.Sprintf("%s%dd %dh", prefix, days, hours), overdue
	case hours > 0:
		return fmt.Sprintf("%s%dh %dm", prefix, hours, minutes), overdue
	default:
		return fmt.Sprintf("%s%dm", prefix, minutes), overdue
	}
}

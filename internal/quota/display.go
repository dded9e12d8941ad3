package quota

import (
	"fmt"
	"time"
)

const (
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

// FormatTimeRemaining renders an RFC 3339 reset time as a countdown like
// "4h 30m". A reset time in the past yields "Reset due"; an empty or
// unparseable value yields "".
func FormatTimeRemaining(resetTime string) string {
	if resetTime == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, resetTime)
	if err != nil {
		return ""
	}
	remaining := time.Until(t)
	if remaining <= 0 {
		return "Reset due"
	}
	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// FormatPercentageWithColor renders a remaining percentage with ANSI color
// for terminal consumers. Full quota is a green dot, exhausted quota a red
// dot; in between the number is colored by how much is left.
func FormatPercentageWithColor(pct int) string {
	switch {
	case pct >= 100:
		return ansiGreen + "●" + ansiReset
	case pct <= 0:
		return ansiRed + "●" + ansiReset
	case pct >= 50:
		return fmt.Sprintf("%s%d%%%s", ansiGreen, pct, ansiReset)
	case pct >= 20:
		return fmt.Sprintf("%s%d%%%s", ansiYellow, pct, ansiReset)
	default:
		return fmt.Sprintf("%s%d%%%s", ansiRed, pct, ansiReset)
	}
}

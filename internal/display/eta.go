package display

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Calendar part lengths in seconds, matching the C++ chrono definitions
// of a year and a month.
const (
	secondsPerYear   = 31556952
	secondsPerMonth  = 2629746
	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// FormatETA renders a duration the way a countdown reads: "04:07",
// growing to "7:43:12", "1D 0:00:00", "1M 0D 0:00:00" and beyond as
// needed. Larger parts appear only once the duration calls for them.
func FormatETA(d time.Duration) string {
	t := int64(math.Round(d.Seconds()))

	years := t / secondsPerYear
	t %= secondsPerYear
	months := t / secondsPerMonth
	t %= secondsPerMonth
	days := t / secondsPerDay
	t %= secondsPerDay
	hours := t / secondsPerHour
	t %= secondsPerHour
	minutes := t / secondsPerMinute
	seconds := t % secondsPerMinute

	var b strings.Builder
	if years > 0 {
		fmt.Fprintf(&b, "%dY ", years)
	}
	if b.Len() != 0 || months > 0 {
		fmt.Fprintf(&b, "%dM ", months)
	}
	if b.Len() != 0 || days > 0 {
		fmt.Fprintf(&b, "%dD ", days)
	}
	if b.Len() != 0 || hours > 0 {
		fmt.Fprintf(&b, "%d:", hours)
	}
	fmt.Fprintf(&b, "%02d:%02d", minutes, seconds)
	return b.String()
}

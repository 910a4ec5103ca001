// Package display renders statistics for a terminal: progress bars, ETA
// strings, histograms and the final report. Everything here is a pure
// function from values to strings; the caller owns the writer, the
// cursor and the redraw cadence.
package display

import (
	"fmt"
	"time"
)

var denominators = [...]time.Duration{time.Hour, time.Minute, time.Second, time.Millisecond, time.Microsecond, time.Nanosecond}
var units = [...]string{"h", "m", "s", "ms", "µs", "ns"}

// DurationScale picks the display divisor and unit for a duration.
func DurationScale(d time.Duration) (float64, string) {
	for i, den := range denominators {
		if d >= den {
			return float64(den), units[i]
		}
	}
	return float64(time.Nanosecond), "ns"
}

// FormatDuration renders a duration in its natural unit, e.g. "1.24 ms".
func FormatDuration(d time.Duration) string {
	den, unit := DurationScale(d)
	return fmt.Sprintf("%.2f %s", float64(d)/den, unit)
}

// FormatSeconds is FormatDuration for a value measured in seconds.
func FormatSeconds(v float64) string {
	return FormatDuration(time.Duration(v * float64(time.Second)))
}

type metricStep struct {
	prefix string
	power  float64
}

var metricAbove1 = []metricStep{
	{"T", 1e12}, {"G", 1e9}, {"M", 1e6}, {"k", 1e3}, {"", 1},
}

var metricBelow1 = []metricStep{
	{"m", 1e-3}, {"µ", 1e-6}, {"n", 1e-9}, {"p", 1e-12},
}

// MetricPrefix picks an SI prefix so value/power lands in [1, 1000).
// useBelow1 enables the sub-unit prefixes; count metrics pass false, as
// "milli context switches" reads badly.
func MetricPrefix(value float64, useBelow1 bool) (string, float64) {
	steps := metricAbove1
	if useBelow1 {
		steps = append(steps, metricBelow1...)
	}
	for _, s := range steps {
		if v := value / s.power; v > 1 && v < 1000 {
			return s.prefix, s.power
		}
	}
	return "", 1
}

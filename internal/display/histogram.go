package display

import (
	"fmt"
	"math"
	"strings"
)

// Bucket is one histogram bin over durations in seconds. Buckets are
// ordered and partition [Lo of first, Hi of last].
type Bucket struct {
	Lo, Hi float64
	Count  int64
}

// MakeBuckets partitions values into n equal-width buckets spanning the
// observed range. All-identical values collapse to a single bucket.
func MakeBuckets(values []float64, n int) []Bucket {
	if len(values) == 0 || n <= 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return []Bucket{{Lo: lo, Hi: hi, Count: int64(len(values))}}
	}

	width := (hi - lo) / float64(n)
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Lo = lo + float64(i)*width
		buckets[i].Hi = lo + float64(i+1)*width
	}
	buckets[n-1].Hi = hi
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// RenderHistogram maps each bucket to one row with a bar proportional to
// its count, using the fullest bucket as the 100% reference. Pure and
// deterministic; an all-zero histogram renders empty bars rather than
// dividing by zero.
func RenderHistogram(buckets []Bucket, width int) []string {
	if len(buckets) == 0 || width <= 0 {
		return nil
	}

	var maxCount int64
	for _, b := range buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	rows := make([]string, len(buckets))
	for i, b := range buckets {
		n := 0
		if maxCount > 0 {
			n = int(math.Round(float64(b.Count) / float64(maxCount) * float64(width)))
		}
		rows[i] = fmt.Sprintf("%12s … %-12s [%5d]  %s",
			FormatSeconds(b.Lo), FormatSeconds(b.Hi), b.Count, strings.Repeat("█", n))
	}
	return rows
}

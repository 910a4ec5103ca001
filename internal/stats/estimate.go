package stats

import (
	"math"

	moremath "github.com/aclements/go-moremath/stats"
)

// Estimate is a derived, read-only view of a Running snapshot: the fitted
// lognormal model and the confidence interval for the mean. It is always
// derivable and never stored as source of truth.
//
// Every field is well defined for any valid snapshot, including counts of
// zero and one; degenerate inputs yield degenerate values (zero variance,
// point interval), never NaN.
type Estimate struct {
	Count     int64
	Mean      float64
	StdDev    float64
	RelStdDev float64 // percent
	Min       float64
	Max       float64

	// Lognormal fit: Location is the mean of log(duration), Scale the
	// standard deviation of log(duration). Closed form, no iteration.
	Location float64
	Scale    float64

	Confidence float64 // interval level, e.g. 0.95
	Lo, Hi     float64

	Failed    int64
	Discarded int64
}

// NewEstimate fits the snapshot at the given confidence level.
func NewEstimate(r Running, confidence float64) Estimate {
	e := Estimate{
		Count:      r.Count,
		Mean:       r.Mean,
		StdDev:     r.StdDev(),
		RelStdDev:  r.RelStdDev(),
		Min:        r.Min,
		Max:        r.Max,
		Location:   r.LogMean,
		Confidence: confidence,
		Failed:     r.Failed,
		Discarded:  r.Discarded,
	}
	if r.LogCount >= 2 {
		e.Scale = math.Sqrt(r.LogM2 / float64(r.LogCount))
	}
	e.Lo, e.Hi = r.CI(confidence)
	return e
}

// Quantiles summarizes the reservoir contents.
type Quantiles struct {
	P25, P50, P75 float64
}

// SampleQuantiles computes quartiles over the given values. The second
// return is false when there are no values.
func SampleQuantiles(values []float64) (Quantiles, bool) {
	if len(values) == 0 {
		return Quantiles{}, false
	}
	samp := moremath.Sample{Xs: append([]float64(nil), values...)}
	samp.Sort()
	return Quantiles{
		P25: samp.Quantile(0.25),
		P50: samp.Quantile(0.5),
		P75: samp.Quantile(0.75),
	}, true
}

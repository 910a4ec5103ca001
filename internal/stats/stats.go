// Package stats maintains online statistics over a stream of measured
// durations. Memory use is constant regardless of how many samples are
// recorded: only sufficient statistics and a bounded reservoir are kept.
package stats

import (
	"math"
	"sync"
	"time"
)

// Running is an immutable snapshot of the sufficient statistics for the
// samples seen so far. All values are in seconds.
type Running struct {
	Count int64
	Mean  float64
	M2    float64
	Min   float64
	Max   float64
	Total float64

	// Log-domain moments over log(value), for the lognormal fit.
	// Non-positive samples are excluded from these only.
	LogCount int64
	LogMean  float64
	LogM2    float64

	Failed    int64 // recorded trials that exited non-zero
	Discarded int64 // anomalous samples that were never recorded
}

// Variance returns the population variance, 0 below two samples.
func (r Running) Variance() float64 {
	if r.Count < 2 {
		return 0
	}
	return r.M2 / float64(r.Count)
}

// SampleVariance returns the n-1 variance, 0 below two samples.
func (r Running) SampleVariance() float64 {
	if r.Count < 2 {
		return 0
	}
	return r.M2 / float64(r.Count-1)
}

func (r Running) StdDev() float64 { return math.Sqrt(r.Variance()) }

// RelStdDev returns the relative standard deviation in percent.
func (r Running) RelStdDev() float64 {
	if r.Mean <= 0 {
		return 0
	}
	return 100 * r.StdDev() / r.Mean
}

func (r Running) MeanDuration() time.Duration {
	return time.Duration(r.Mean * float64(time.Second))
}

// CI returns the confidence interval for the mean at the given level
// (e.g. 0.95). Below two samples the interval collapses to the mean.
func (r Running) CI(confidence float64) (lo, hi float64) {
	if r.Count < 2 {
		return r.Mean, r.Mean
	}
	z := math.Sqrt2 * math.Erfinv(confidence)
	half := z * math.Sqrt(r.SampleVariance()/float64(r.Count))
	return r.Mean - half, r.Mean + half
}

// RelWidth returns the width of the confidence interval relative to the
// mean. A zero-width interval has relative width 0 even at mean 0.
func (r Running) RelWidth(confidence float64) float64 {
	lo, hi := r.CI(confidence)
	if hi == lo {
		return 0
	}
	if r.Mean <= 0 {
		return math.Inf(1)
	}
	return (hi - lo) / r.Mean
}

// Accumulator records samples one at a time using Welford's algorithm,
// which stays numerically stable on long streams. Snapshot is atomic with
// respect to Record, so a display refresher may read from another
// goroutine while the control loop records.
type Accumulator struct {
	mu  sync.Mutex
	run Running
	res *Reservoir
}

// NewAccumulator returns an accumulator with a bounded reservoir of the
// given capacity. Capacity 0 disables the reservoir.
func NewAccumulator(reservoirCap int) *Accumulator {
	a := &Accumulator{}
	if reservoirCap > 0 {
		a.res = NewReservoir(reservoirCap)
	}
	return a
}

// Record adds one sample, in seconds. O(1).
func (a *Accumulator) Record(v float64, failed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := &a.run
	if r.Count == 0 {
		r.Min, r.Max = v, v
	} else {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}

	r.Count++
	r.Total += v
	delta := v - r.Mean
	r.Mean += delta / float64(r.Count)
	r.M2 += delta * (v - r.Mean)

	if v > 0 {
		lv := math.Log(v)
		r.LogCount++
		ld := lv - r.LogMean
		r.LogMean += ld / float64(r.LogCount)
		r.LogM2 += ld * (lv - r.LogMean)
	}

	if failed {
		r.Failed++
	}
	if a.res != nil {
		a.res.Add(v)
	}
}

// Discard counts an anomalous sample without recording it.
func (a *Accumulator) Discard() {
	a.mu.Lock()
	a.run.Discarded++
	a.mu.Unlock()
}

// Snapshot returns a copy of the current sufficient statistics.
func (a *Accumulator) Snapshot() Running {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run
}

// Values returns a copy of the reservoir contents, or nil if the
// accumulator has no reservoir.
func (a *Accumulator) Values() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.res == nil {
		return nil
	}
	return a.res.Values()
}

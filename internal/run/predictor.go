// Package run drives the measurement loop: one trial at a time, recorded
// into the accumulator, with a stopping decision and a fresh ETA after
// every trial.
package run

import (
	"math"
	"time"

	"github.com/violenttestpen/tacho/internal/stats"
)

// StopReason says why a run ended.
type StopReason int

const (
	ReasonNone StopReason = iota
	ReasonCountReached
	ReasonTimeBudget
	ReasonConfidence
	ReasonCancelled
)

func (r StopReason) String() string {
	switch r {
	case ReasonCountReached:
		return "run count reached"
	case ReasonTimeBudget:
		return "time budget exhausted"
	case ReasonConfidence:
		return "confidence target reached"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "collecting"
	}
}

// Criteria configures when a run stops. Any zero criterion is inactive;
// an exact run count overrides budget and precision.
type Criteria struct {
	Runs       int64         // exact number of trials
	MinRuns    int64         // floor for budget and precision stops
	MaxRuns    int64         // hard cap, 0 = unlimited
	TimeBudget time.Duration // target total wall-clock time
	Precision  float64       // target relative CI width, 0 = disabled
	Confidence float64       // interval level for the precision stop
}

// Decision is produced fresh after every trial and not retained.
type Decision struct {
	Stop   bool
	Reason StopReason
}

// Predictor decides when to stop and estimates the remaining time. Two
// states: collecting, then done; once done it stays done. It never
// fails, it only decides.
type Predictor struct {
	crit      Criteria
	cancelled bool
	done      bool
	reason    StopReason
}

func NewPredictor(c Criteria) *Predictor {
	return &Predictor{crit: c}
}

// Cancel requests an orderly stop at the next evaluation.
func (p *Predictor) Cancel() { p.cancelled = true }

// Evaluate is called after every recorded trial.
func (p *Predictor) Evaluate(r stats.Running, elapsed time.Duration) Decision {
	if p.done {
		return Decision{Stop: true, Reason: p.reason}
	}
	if reason := p.decide(r, elapsed); reason != ReasonNone {
		p.done = true
		p.reason = reason
		return Decision{Stop: true, Reason: reason}
	}
	return Decision{}
}

func (p *Predictor) decide(r stats.Running, elapsed time.Duration) StopReason {
	if p.cancelled {
		return ReasonCancelled
	}

	c := p.crit
	if c.Runs > 0 {
		if r.Count >= c.Runs {
			return ReasonCountReached
		}
		return ReasonNone
	}
	if c.MaxRuns > 0 && r.Count >= c.MaxRuns {
		return ReasonCountReached
	}
	if r.Count < c.MinRuns {
		return ReasonNone
	}
	if c.TimeBudget > 0 && elapsed >= c.TimeBudget {
		return ReasonTimeBudget
	}
	if c.Precision > 0 && r.RelWidth(c.Confidence) <= c.Precision {
		return ReasonConfidence
	}
	return ReasonNone
}

// ETA estimates the wall-clock time remaining until a stop criterion
// will fire. A pure function of the criteria and the snapshot, so the
// display refresher can call it from its own goroutine. Recomputed after
// every trial; it may go up as well as down when the mean drifts, and is
// always non-negative.
func (c Criteria) ETA(r stats.Running, elapsed time.Duration) time.Duration {
	mean := r.Mean
	if r.Count == 0 || mean <= 0 {
		if c.TimeBudget > 0 {
			return maxDuration(c.TimeBudget-elapsed, 0)
		}
		return 0
	}

	perTrial := func(n int64) time.Duration {
		if n <= 0 {
			return 0
		}
		s := float64(n) * mean * float64(time.Second)
		if s >= float64(math.MaxInt64) {
			return time.Duration(math.MaxInt64 - 1)
		}
		return time.Duration(s)
	}

	if c.Runs > 0 {
		return perTrial(c.Runs - r.Count)
	}

	floor := perTrial(c.MinRuns - r.Count)
	eta := time.Duration(math.MaxInt64)

	if c.TimeBudget > 0 {
		eta = minDuration(eta, maxDuration(c.TimeBudget-elapsed, floor))
	}
	if c.Precision > 0 {
		// The CI width shrinks roughly with 1/sqrt(n), so project the
		// n where it crosses the target. A heuristic, not a promise.
		width := r.RelWidth(c.Confidence)
		var remaining time.Duration
		if width > c.Precision && !math.IsInf(width, 1) {
			ratio := width / c.Precision
			projected := int64(math.Ceil(float64(r.Count) * ratio * ratio))
			remaining = perTrial(projected - r.Count)
		}
		eta = minDuration(eta, maxDuration(remaining, floor))
	}
	if c.MaxRuns > 0 {
		eta = minDuration(eta, perTrial(c.MaxRuns-r.Count))
	}
	if eta == time.Duration(math.MaxInt64) {
		return floor
	}
	return eta
}

// Fraction estimates completion in [0, 1] for a progress bar: the most
// advanced of the active criteria, since any one of them ends the run,
// held back by the min-run floor while it still applies.
func (c Criteria) Fraction(r stats.Running, elapsed time.Duration) float64 {
	if c.Runs > 0 {
		return clamp01(float64(r.Count) / float64(c.Runs))
	}

	frac := 0.0
	if c.TimeBudget > 0 {
		frac = math.Max(frac, float64(elapsed)/float64(c.TimeBudget))
	}
	if c.Precision > 0 && r.Count > 0 {
		width := r.RelWidth(c.Confidence)
		if width <= c.Precision {
			frac = 1
		} else if !math.IsInf(width, 1) {
			ratio := c.Precision / width
			frac = math.Max(frac, ratio*ratio)
		}
	}
	if c.MaxRuns > 0 {
		frac = math.Max(frac, float64(r.Count)/float64(c.MaxRuns))
	}
	if c.MinRuns > 0 && r.Count < c.MinRuns {
		frac = math.Min(frac, float64(r.Count)/float64(c.MinRuns))
	}
	return clamp01(frac)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

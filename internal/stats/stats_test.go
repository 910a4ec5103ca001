package stats

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(a *Accumulator, vs ...float64) {
	for _, v := range vs {
		a.Record(v, false)
	}
}

func TestWelfordReferenceValues(t *testing.T) {
	a := NewAccumulator(0)
	record(a, 2, 4, 4, 4, 5, 5, 7, 9)

	r := a.Snapshot()
	assert.Equal(t, int64(8), r.Count)
	assert.InDelta(t, 5.0, r.Mean, 1e-12)
	assert.InDelta(t, 4.0, r.Variance(), 1e-12)
	assert.InDelta(t, 2.0, r.StdDev(), 1e-12)
	assert.Equal(t, 2.0, r.Min)
	assert.Equal(t, 9.0, r.Max)
}

func TestCountMatchesRecords(t *testing.T) {
	a := NewAccumulator(16)
	for i := 0; i < 1000; i++ {
		a.Record(float64(i%7)+0.5, false)
	}
	assert.Equal(t, int64(1000), a.Snapshot().Count)
}

func TestSingleSampleIsDegenerateNotNaN(t *testing.T) {
	a := NewAccumulator(0)
	a.Record(3.0, false)

	r := a.Snapshot()
	assert.Equal(t, int64(1), r.Count)
	assert.Equal(t, 3.0, r.Mean)
	assert.Equal(t, 0.0, r.Variance())
	assert.False(t, math.IsNaN(r.StdDev()))

	lo, hi := r.CI(0.95)
	assert.Equal(t, 3.0, lo)
	assert.Equal(t, 3.0, hi)

	e := NewEstimate(r, 0.95)
	assert.Equal(t, e.Lo, e.Hi)
	assert.Equal(t, 0.0, e.StdDev)
}

func TestEmptySnapshotIsTotal(t *testing.T) {
	r := NewAccumulator(0).Snapshot()
	assert.Equal(t, 0.0, r.Variance())
	assert.Equal(t, 0.0, r.RelStdDev())
	assert.Equal(t, 0.0, r.RelWidth(0.95))

	e := NewEstimate(r, 0.95)
	assert.False(t, math.IsNaN(e.Mean))
	assert.False(t, math.IsNaN(e.Scale))
}

func TestMinMeanMaxOrdering(t *testing.T) {
	a := NewAccumulator(0)
	record(a, 0.4, 1.2, 0.9, 7.7, 0.4)
	r := a.Snapshot()
	require.True(t, r.Min <= r.Mean)
	require.True(t, r.Mean <= r.Max)
}

func TestLognormalZeroVarianceInLogSpace(t *testing.T) {
	a := NewAccumulator(0)
	record(a, 1, 1, 1, 1)
	e := NewEstimate(a.Snapshot(), 0.95)
	assert.Equal(t, 0.0, e.Scale)
	assert.Equal(t, 0.0, e.Location)
}

func TestLognormalFit(t *testing.T) {
	a := NewAccumulator(0)
	record(a, math.E, math.E, math.E*math.E, 1)
	e := NewEstimate(a.Snapshot(), 0.95)
	// logs are [1, 1, 2, 0]: mean 1, population stddev sqrt(0.5)
	assert.InDelta(t, 1.0, e.Location, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), e.Scale, 1e-12)
}

func TestZeroDurationExcludedFromLogMomentsOnly(t *testing.T) {
	a := NewAccumulator(0)
	record(a, 0, 1, 1)
	r := a.Snapshot()
	assert.Equal(t, int64(3), r.Count)
	assert.Equal(t, int64(2), r.LogCount)
	assert.Equal(t, 0.0, r.Min)
}

func TestDiscardDoesNotRecord(t *testing.T) {
	a := NewAccumulator(0)
	a.Record(1.0, false)
	a.Discard()
	a.Discard()
	r := a.Snapshot()
	assert.Equal(t, int64(1), r.Count)
	assert.Equal(t, int64(2), r.Discarded)
}

func TestFailedTrialsCounted(t *testing.T) {
	a := NewAccumulator(0)
	a.Record(1.0, true)
	a.Record(1.0, false)
	assert.Equal(t, int64(1), a.Snapshot().Failed)
}

func TestConfidenceIntervalBracketsMean(t *testing.T) {
	a := NewAccumulator(0)
	record(a, 2, 4, 4, 4, 5, 5, 7, 9)
	r := a.Snapshot()
	lo, hi := r.CI(0.95)
	assert.Less(t, lo, r.Mean)
	assert.Greater(t, hi, r.Mean)
	assert.Greater(t, r.RelWidth(0.95), 0.0)
	// tighter level, narrower interval
	lo50, hi50 := r.CI(0.50)
	assert.Greater(t, lo50, lo)
	assert.Less(t, hi50, hi)
}

func TestSnapshotConcurrentWithRecord(t *testing.T) {
	a := NewAccumulator(64)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			a.Record(1.0, false)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			r := a.Snapshot()
			if r.Count >= 1 && (r.Min > r.Mean || r.Mean > r.Max) {
				t.Error("snapshot violates min <= mean <= max")
				return
			}
		}
	}()
	wg.Wait()
	assert.Equal(t, int64(5000), a.Snapshot().Count)
}

func TestSampleQuantiles(t *testing.T) {
	q, ok := SampleQuantiles([]float64{1, 2, 3, 4, 5})
	require.True(t, ok)
	assert.Equal(t, 3.0, q.P50)
	assert.True(t, q.P25 <= q.P50 && q.P50 <= q.P75)

	_, ok = SampleQuantiles(nil)
	assert.False(t, ok)
}

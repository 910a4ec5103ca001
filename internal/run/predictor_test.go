package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/violenttestpen/tacho/internal/stats"
)

func snapshotOf(vs ...float64) stats.Running {
	a := stats.NewAccumulator(0)
	for _, v := range vs {
		a.Record(v, false)
	}
	return a.Snapshot()
}

func TestCountTargetStopsExactlyAtNth(t *testing.T) {
	p := NewPredictor(Criteria{Runs: 10})
	a := stats.NewAccumulator(0)
	for i := 1; i <= 10; i++ {
		a.Record(0.5, false)
		d := p.Evaluate(a.Snapshot(), time.Duration(i)*time.Second)
		if i < 10 {
			require.False(t, d.Stop, "stopped early at trial %d", i)
		} else {
			require.True(t, d.Stop)
			assert.Equal(t, ReasonCountReached, d.Reason)
		}
	}
}

func TestExactCountOverridesBudgetAndPrecision(t *testing.T) {
	p := NewPredictor(Criteria{Runs: 5, TimeBudget: time.Millisecond, Precision: 0.5, Confidence: 0.95})
	d := p.Evaluate(snapshotOf(1, 1, 1), time.Hour)
	assert.False(t, d.Stop)
}

func TestMinRunsFloorsConfidenceStop(t *testing.T) {
	// identical samples: the interval is already a point after two
	// trials, yet the floor must hold until the 5th.
	p := NewPredictor(Criteria{MinRuns: 5, Precision: 0.01, Confidence: 0.95})
	a := stats.NewAccumulator(0)
	for i := 1; i <= 5; i++ {
		a.Record(1.0, false)
		d := p.Evaluate(a.Snapshot(), time.Duration(i)*time.Second)
		if i < 5 {
			require.False(t, d.Stop, "stopped before the floor at trial %d", i)
		} else {
			require.True(t, d.Stop)
			assert.Equal(t, ReasonConfidence, d.Reason)
		}
	}
}

func TestMinRunsFloorsTimeBudget(t *testing.T) {
	p := NewPredictor(Criteria{MinRuns: 3, TimeBudget: time.Second})
	d := p.Evaluate(snapshotOf(2, 2), 5*time.Second)
	assert.False(t, d.Stop, "budget exceeded but floor not reached")

	d = p.Evaluate(snapshotOf(2, 2, 2), 6*time.Second)
	require.True(t, d.Stop)
	assert.Equal(t, ReasonTimeBudget, d.Reason)
}

func TestMaxRunsIsAHardCap(t *testing.T) {
	p := NewPredictor(Criteria{MinRuns: 2, MaxRuns: 4, TimeBudget: time.Hour})
	d := p.Evaluate(snapshotOf(1, 1, 1, 1), time.Second)
	require.True(t, d.Stop)
	assert.Equal(t, ReasonCountReached, d.Reason)
}

func TestCancellationWinsAndSticks(t *testing.T) {
	p := NewPredictor(Criteria{Runs: 100})
	p.Cancel()
	d := p.Evaluate(snapshotOf(1), time.Second)
	require.True(t, d.Stop)
	assert.Equal(t, ReasonCancelled, d.Reason)

	// terminal state stays terminal
	d = p.Evaluate(snapshotOf(1, 1), 2*time.Second)
	require.True(t, d.Stop)
	assert.Equal(t, ReasonCancelled, d.Reason)
}

func TestETANonNegativeAcrossStates(t *testing.T) {
	crits := []Criteria{
		{Runs: 10},
		{MinRuns: 5, TimeBudget: 3 * time.Second},
		{MinRuns: 5, Precision: 0.02, Confidence: 0.95},
		{MinRuns: 5, MaxRuns: 20, TimeBudget: time.Second, Precision: 0.02, Confidence: 0.95},
	}
	snaps := []stats.Running{
		{},
		snapshotOf(0.5),
		snapshotOf(0.5, 0.6, 0.4),
		snapshotOf(1, 1, 1, 1, 1, 1),
		snapshotOf(0.001, 10),
	}
	for _, c := range crits {
		for _, s := range snaps {
			for _, elapsed := range []time.Duration{0, time.Second, time.Hour} {
				eta := c.ETA(s, elapsed)
				assert.GreaterOrEqual(t, eta, time.Duration(0),
					"criteria %+v count %d elapsed %s", c, s.Count, elapsed)
			}
		}
	}
}

func TestETACountTarget(t *testing.T) {
	c := Criteria{Runs: 10}
	eta := c.ETA(snapshotOf(2, 2, 2, 2), 8*time.Second)
	assert.Equal(t, 12*time.Second, eta)
}

func TestETATimeBudgetTracksRemaining(t *testing.T) {
	c := Criteria{TimeBudget: 10 * time.Second}
	eta := c.ETA(snapshotOf(1, 1), 4*time.Second)
	assert.Equal(t, 6*time.Second, eta)
}

func TestETAConfidenceShrinksAsSamplesArrive(t *testing.T) {
	c := Criteria{MinRuns: 2, Precision: 0.0001, Confidence: 0.95}
	few := snapshotOf(1, 1.2, 0.8, 1.1)
	many := snapshotOf(1, 1.2, 0.8, 1.1, 1, 1.2, 0.8, 1.1, 1, 1.2, 0.8, 1.1, 1, 1.2, 0.8, 1.1)
	assert.Greater(t, c.ETA(few, time.Second), time.Duration(0))
	assert.Greater(t, c.ETA(few, time.Second), c.ETA(many, time.Second))
}

func TestFractionStaysInUnitInterval(t *testing.T) {
	crits := []Criteria{
		{Runs: 10},
		{MinRuns: 5, TimeBudget: 3 * time.Second},
		{MinRuns: 5, MaxRuns: 50, Precision: 0.02, Confidence: 0.95},
	}
	snaps := []stats.Running{{}, snapshotOf(0.5), snapshotOf(1, 1, 1, 1, 1, 1, 1)}
	for _, c := range crits {
		for _, s := range snaps {
			for _, elapsed := range []time.Duration{0, time.Second, time.Hour} {
				f := c.Fraction(s, elapsed)
				assert.GreaterOrEqual(t, f, 0.0)
				assert.LessOrEqual(t, f, 1.0)
			}
		}
	}
}

func TestFractionCountTarget(t *testing.T) {
	c := Criteria{Runs: 10}
	assert.Equal(t, 0.4, c.Fraction(snapshotOf(1, 1, 1, 1), time.Hour))
}

func TestFractionFloorHoldsProgressBack(t *testing.T) {
	// budget already exhausted, but only 1 of 4 minimum runs done
	c := Criteria{MinRuns: 4, TimeBudget: time.Second}
	f := c.Fraction(snapshotOf(1), 5*time.Second)
	assert.Equal(t, 0.25, f)
}

func TestStopReasonStrings(t *testing.T) {
	assert.Equal(t, "run count reached", ReasonCountReached.String())
	assert.Equal(t, "cancelled", ReasonCancelled.String())
	assert.Equal(t, "collecting", ReasonNone.String())
}

package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/violenttestpen/tacho/internal/measure"
	"github.com/violenttestpen/tacho/internal/stats"
)

// Progress is the immutable view handed to the display path. The display
// never sees live accumulator internals.
type Progress struct {
	Stats   stats.Running
	Elapsed time.Duration
	ETA     time.Duration
	Done    bool
}

// Options configures one benchmark run.
type Options struct {
	Source   measure.Source
	Criteria Criteria

	Warmup        int64
	IgnoreFailure bool // record non-zero exits instead of aborting
	ReservoirSize int

	// Refresh re-renders progress on its own cadence between trial
	// completions; 0 disables the refresher goroutine.
	Refresh  time.Duration
	Progress func(Progress)
	WarmupFn func(done, total int64)

	Logger *zap.Logger
}

// CounterStats is the accumulated statistics for one perf event.
type CounterStats struct {
	Name  string
	Unit  string
	Stats stats.Running
}

// Result is the outcome of a completed run.
type Result struct {
	Stats      stats.Running
	Values     []float64 // reservoir sample of durations, for histograms
	MeanUser   time.Duration
	MeanSystem time.Duration
	Elapsed    time.Duration
	Reason     StopReason
	Counters   []CounterStats
}

// Runner executes the control loop: spawn trial, wait, record, evaluate,
// render. Trials run strictly one at a time so that wall-clock
// measurements are not co-scheduled against each other.
type Runner struct {
	opts Options
	log  *zap.Logger

	renderMu sync.Mutex // the loop and the refresher both render
}

func New(opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReservoirSize == 0 {
		opts.ReservoirSize = 1000
	}
	return &Runner{opts: opts, log: log}
}

// Run drives the loop until a stopping criterion fires. Cancellation via
// ctx is observed between trials and still yields a Result. The only
// error cases are a target that cannot be invoked and, unless
// IgnoreFailure is set, a target that exits non-zero.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.warmup(ctx); err != nil {
		return nil, err
	}

	acc := stats.NewAccumulator(r.opts.ReservoirSize)
	pred := NewPredictor(r.opts.Criteria)
	aux := make(map[string]*stats.Accumulator)
	auxUnits := make(map[string]string)
	var auxOrder []string
	var totalUser, totalSystem time.Duration

	start := time.Now()
	stopRefresh := r.startRefresher(ctx, acc, start)
	defer stopRefresh()

	var decision Decision
	for !decision.Stop {
		if ctx.Err() != nil {
			pred.Cancel()
			decision = pred.Evaluate(acc.Snapshot(), time.Since(start))
			break
		}

		trial, err := r.opts.Source.Next(ctx)
		if err != nil {
			var anom *measure.Anomaly
			switch {
			case errors.As(err, &anom):
				acc.Discard()
				r.log.Warn("discarded sample", zap.String("reason", anom.Reason), zap.String("line", anom.Line))
				continue
			case errors.Is(err, measure.ErrStreamClosed), ctx.Err() != nil:
				pred.Cancel()
				decision = pred.Evaluate(acc.Snapshot(), time.Since(start))
			default:
				return nil, err
			}
			break
		}

		if ctx.Err() != nil {
			// Cancellation kills the in-flight child, so this trial is
			// a truncated measurement, not a sample.
			pred.Cancel()
			decision = pred.Evaluate(acc.Snapshot(), time.Since(start))
			break
		}

		if trial.ExitCode != 0 && !r.opts.IgnoreFailure {
			return nil, fmt.Errorf("command exited with status %d on trial %d (use --ignore-failure to keep going)",
				trial.ExitCode, trial.Index)
		}

		acc.Record(trial.Duration.Seconds(), trial.ExitCode != 0)
		totalUser += trial.User
		totalSystem += trial.System
		for _, c := range trial.Counters {
			a, ok := aux[c.Name]
			if !ok {
				a = stats.NewAccumulator(0)
				aux[c.Name] = a
				auxUnits[c.Name] = c.Unit
				auxOrder = append(auxOrder, c.Name)
			}
			a.Record(c.Value, false)
		}

		snap := acc.Snapshot()
		elapsed := time.Since(start)
		r.log.Debug("trial",
			zap.Int64("index", trial.Index),
			zap.Duration("duration", trial.Duration),
			zap.Int("exit", trial.ExitCode))

		decision = pred.Evaluate(snap, elapsed)
		eta := r.opts.Criteria.ETA(snap, elapsed)
		if decision.Stop {
			eta = 0
		}
		r.render(Progress{
			Stats:   snap,
			Elapsed: elapsed,
			ETA:     eta,
			Done:    decision.Stop,
		})
	}
	stopRefresh()

	res := &Result{
		Stats:   acc.Snapshot(),
		Values:  acc.Values(),
		Elapsed: time.Since(start),
		Reason:  decision.Reason,
	}
	if res.Stats.Count > 0 {
		res.MeanUser = totalUser / time.Duration(res.Stats.Count)
		res.MeanSystem = totalSystem / time.Duration(res.Stats.Count)
	}
	for _, name := range auxOrder {
		res.Counters = append(res.Counters, CounterStats{
			Name:  name,
			Unit:  auxUnits[name],
			Stats: aux[name].Snapshot(),
		})
	}
	r.log.Info("run finished",
		zap.Int64("trials", res.Stats.Count),
		zap.Duration("elapsed", res.Elapsed),
		zap.Stringer("reason", res.Reason))
	return res, nil
}

func (r *Runner) warmup(ctx context.Context) error {
	if r.opts.Warmup <= 0 {
		return nil
	}
	warmer, ok := r.opts.Source.(measure.Warmer)
	if !ok {
		return nil
	}
	for i := int64(0); i < r.opts.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if r.opts.WarmupFn != nil {
			r.opts.WarmupFn(i, r.opts.Warmup)
		}
		if err := warmer.Warm(ctx); err != nil {
			return err
		}
	}
	if r.opts.WarmupFn != nil {
		r.opts.WarmupFn(r.opts.Warmup, r.opts.Warmup)
	}
	return nil
}

func (r *Runner) render(p Progress) {
	if r.opts.Progress == nil {
		return
	}
	r.renderMu.Lock()
	defer r.renderMu.Unlock()
	r.opts.Progress(p)
}

// startRefresher re-renders progress on a fixed deadline grid, decoupled
// from trial completions, so long trials still get a ticking ETA. It
// reads only snapshots. The returned func is idempotent.
func (r *Runner) startRefresher(ctx context.Context, acc *stats.Accumulator, start time.Time) func() {
	if r.opts.Refresh <= 0 || r.opts.Progress == nil {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(r.opts.Refresh)
		for {
			timer := time.NewTimer(time.Until(deadline))
			select {
			case <-stop:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			case now := <-timer.C:
				snap := acc.Snapshot()
				elapsed := time.Since(start)
				r.render(Progress{
					Stats:   snap,
					Elapsed: elapsed,
					ETA:     r.opts.Criteria.ETA(snap, elapsed),
				})
				// stay on the grid even when rendering ran long
				for !deadline.After(now) {
					deadline = deadline.Add(r.opts.Refresh)
				}
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(stop)
		<-done
	}
}

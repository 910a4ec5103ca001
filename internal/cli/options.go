package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/violenttestpen/tacho/internal/display"
	"github.com/violenttestpen/tacho/internal/measure"
	"github.com/violenttestpen/tacho/internal/run"
	"github.com/violenttestpen/tacho/internal/stats"
)

// Options is the validated configuration for one invocation.
type Options struct {
	Commands      []string
	Setup         string
	Warmup        int64
	Criteria      run.Criteria
	IgnoreFailure bool

	UseShell bool
	Shell    string

	Perf   bool
	Events string

	Stream    string
	Delimiter string

	Histogram bool
	Buckets   int
	Reservoir int

	Refresh     time.Duration
	Bar         display.Bar
	Interactive bool
	Out         io.Writer
	Logger      *zap.Logger
}

// result pairs a finished report with the duration sample behind it.
type result struct {
	report display.Report
	values []float64
}

// Run benchmarks every command in turn and prints the comparison
// summary. A command that cannot be executed is reported and the
// remaining commands still run; cancellation ends the current benchmark
// gracefully and skips the rest.
func (o *Options) Run(ctx context.Context) error {
	defer o.Logger.Sync()

	if o.Setup != "" {
		if err := measure.RunSetup(ctx, o.Setup); err != nil {
			return fmt.Errorf("setup command: %w", err)
		}
	}

	if o.Stream != "" {
		fmt.Fprintf(o.Out, "Benchmark: %s\n", color.New(color.Bold).Sprint(o.Stream))
		res, err := o.benchStream(ctx)
		if err != nil {
			return err
		}
		o.print(res)
		return nil
	}

	var results []result
	var firstErr error
	for i, command := range o.Commands {
		fmt.Fprintf(o.Out, "Benchmark #%d: %s\n", i+1, color.New(color.Bold).Sprint(command))
		res, err := o.benchCommand(ctx, command)
		if err != nil {
			fmt.Fprintln(o.Out, "An error occurred during benchmark:", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		o.print(res)
		results = append(results, res)
		if ctx.Err() != nil {
			break
		}
	}

	reports := make([]display.Report, len(results))
	for i, r := range results {
		reports[i] = r.report
	}
	for _, row := range display.Summary(reports) {
		fmt.Fprintln(o.Out, row)
	}
	if len(results) == 0 && firstErr != nil {
		return firstErr
	}
	return nil
}

func (o *Options) benchCommand(ctx context.Context, command string) (result, error) {
	if o.Perf {
		src, err := measure.NewPerfSource(command, o.Events)
		if err != nil {
			return result{}, err
		}
		defer src.Close()
		return o.bench(ctx, command, src)
	}
	src, err := measure.NewProcessSource(command, o.UseShell, o.Shell)
	if err != nil {
		return result{}, err
	}
	return o.bench(ctx, command, src)
}

func (o *Options) benchStream(ctx context.Context) (result, error) {
	src, err := measure.StartStream(ctx, o.Stream, o.Delimiter)
	if err != nil {
		return result{}, err
	}
	defer src.Close()
	return o.bench(ctx, o.Stream, src)
}

func (o *Options) bench(ctx context.Context, command string, src measure.Source) (result, error) {
	refresh := o.Refresh
	if !o.Interactive {
		refresh = 0
	}
	runner := run.New(run.Options{
		Source:        src,
		Criteria:      o.Criteria,
		Warmup:        o.Warmup,
		IgnoreFailure: o.IgnoreFailure,
		ReservoirSize: o.Reservoir,
		Refresh:       refresh,
		Progress:      o.progressFunc(),
		WarmupFn:      o.warmupFunc(),
		Logger:        o.Logger,
	})

	res, err := runner.Run(ctx)
	if o.Interactive {
		display.ClearLine(o.Out)
	}
	if err != nil {
		return result{}, err
	}

	report := display.Report{
		Command:    command,
		Estimate:   stats.NewEstimate(res.Stats, o.Criteria.Confidence),
		MeanUser:   res.MeanUser,
		MeanSystem: res.MeanSystem,
		Elapsed:    res.Elapsed,
		Reason:     res.Reason.String(),
	}
	if q, ok := stats.SampleQuantiles(res.Values); ok {
		report.Quantiles = q
		report.HasQuantiles = true
	}
	for _, c := range res.Counters {
		report.Counters = append(report.Counters, display.CounterReport{
			Name:     c.Name,
			Unit:     c.Unit,
			Estimate: stats.NewEstimate(c.Stats, o.Criteria.Confidence),
		})
	}
	return result{report: report, values: res.Values}, nil
}

func (o *Options) print(res result) {
	for _, row := range res.report.Rows() {
		fmt.Fprintln(o.Out, row)
	}
	if o.Histogram {
		buckets := display.MakeBuckets(res.values, o.Buckets)
		if rows := display.RenderHistogram(buckets, 40); len(rows) > 0 {
			fmt.Fprintln(o.Out)
			for _, row := range rows {
				fmt.Fprintln(o.Out, "  "+row)
			}
		}
	}
	fmt.Fprintln(o.Out)
}

// progressFunc renders the live status line: progress bar, run count,
// current mean estimate and ETA, redrawn in place.
func (o *Options) progressFunc() func(run.Progress) {
	if !o.Interactive {
		return nil
	}
	return func(p run.Progress) {
		plain := fmt.Sprintf(" %d %s  mean %s  ETA %s",
			p.Stats.Count, runsWord(p.Stats.Count),
			display.FormatSeconds(p.Stats.Mean),
			display.FormatETA(p.ETA))
		text := fmt.Sprintf(" %d %s  mean %s  ETA %s",
			p.Stats.Count, runsWord(p.Stats.Count),
			color.GreenString(display.FormatSeconds(p.Stats.Mean)),
			display.FormatETA(p.ETA))

		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || width <= 0 {
			width = 80
		}
		barWidth := width - utf8.RuneCountInString(plain) - 2
		if barWidth < 10 {
			barWidth = 10
		} else if barWidth > 60 {
			barWidth = 60
		}

		display.ClearLine(o.Out)
		fmt.Fprintf(o.Out, "|%s|%s", o.Bar.Render(o.Criteria.Fraction(p.Stats, p.Elapsed), barWidth), text)
	}
}

// warmupFunc shows a spinner while warmup runs go by.
func (o *Options) warmupFunc() func(done, total int64) {
	if !o.Interactive {
		return nil
	}
	var spinner display.Spinner
	return func(done, total int64) {
		display.ClearLine(o.Out)
		if done >= total {
			return
		}
		fmt.Fprintf(o.Out, "%s warmup %d/%d", color.YellowString(spinner.Next()), done+1, total)
	}
}

func runsWord(n int64) string {
	if n == 1 {
		return "run"
	}
	return "runs"
}

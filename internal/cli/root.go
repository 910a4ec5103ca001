// Package cli wires the measurement engine to flags, the terminal and
// signals.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/violenttestpen/tacho/internal/display"
	"github.com/violenttestpen/tacho/internal/measure"
	"github.com/violenttestpen/tacho/internal/run"
)

const version = "0.2.0"

// The perf event list benchmarked by default in perf mode. Passed
// straight to "perf stat -e"; see "perf list" for what is available.
const defaultPerfEvents = "duration_time,context-switches,cpu-migrations,page-faults,cycles,branches,branch-misses,instructions"

// Flags is the raw flag surface; ToOptions validates it.
type Flags struct {
	Warmup       int64
	Runs         int64
	MinRuns      int64
	MaxRuns      int64
	TotalSeconds float64
	Precision    float64
	Confidence   float64

	Setup         string
	NoShell       bool
	Shell         string
	IgnoreFailure bool

	Perf   bool
	Events string

	Stream    string
	Delimiter string

	Histogram bool
	Buckets   int
	Reservoir int

	Refresh  time.Duration
	BarStyle string
	NoColor  bool
	Verbose  bool
}

func NewFlags() *Flags {
	return &Flags{
		MinRuns:      10,
		TotalSeconds: 3.0,
		Confidence:   0.95,
		Shell:        measure.DefaultShell(),
		Events:       defaultPerfEvents,
		Delimiter:    ",",
		Buckets:      10,
		Reservoir:    1000,
		Refresh:      100 * time.Millisecond,
		BarStyle:     "standard",
	}
}

func (f *Flags) AddFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.Int64VarP(&f.Warmup, "warmup", "w", f.Warmup, "Run the command this many times before measuring, e.g. to fill caches")
	fl.Int64VarP(&f.Runs, "runs", "r", f.Runs, "Exact number of runs; disables the automatic stopping criteria")
	fl.Int64VarP(&f.MinRuns, "min-runs", "m", f.MinRuns, "Minimum number of runs")
	fl.Int64VarP(&f.MaxRuns, "max-runs", "M", f.MaxRuns, "Maximum number of runs (0 = unlimited)")
	fl.Float64VarP(&f.TotalSeconds, "total-seconds", "t", f.TotalSeconds, "Target total measurement time in seconds")
	fl.Float64Var(&f.Precision, "precision", f.Precision, "Stop once the relative confidence-interval width drops below this (0 = disabled)")
	fl.Float64Var(&f.Confidence, "confidence", f.Confidence, "Confidence level for intervals and the precision stop")

	fl.StringVar(&f.Setup, "setup", f.Setup, "Command to run once before all benchmarks")
	fl.BoolVarP(&f.NoShell, "no-shell", "N", f.NoShell, "Run commands without an intermediate shell")
	fl.StringVarP(&f.Shell, "shell", "S", f.Shell, "The intermediate shell to run commands in")
	fl.BoolVarP(&f.IgnoreFailure, "ignore-failure", "i", f.IgnoreFailure, "Keep measuring when the command exits non-zero")

	fl.BoolVarP(&f.Perf, "perf", "p", f.Perf, "Measure under 'perf stat' and report hardware counters")
	fl.StringVarP(&f.Events, "event", "e", f.Events, "Events for 'perf stat -e'; implies --perf")

	fl.StringVar(&f.Stream, "measure-stream", f.Stream, "Long-lived command emitting 'timestamp,value' measurement lines on stdout")
	fl.StringVar(&f.Delimiter, "delimiter", f.Delimiter, "Field delimiter for --measure-stream lines")

	fl.BoolVarP(&f.Histogram, "histogram", "H", f.Histogram, "Plot a histogram of the measured durations")
	fl.IntVar(&f.Buckets, "buckets", f.Buckets, "Number of histogram buckets")
	fl.IntVar(&f.Reservoir, "reservoir", f.Reservoir, "Size of the duration sample kept for histograms and quartiles")

	fl.DurationVar(&f.Refresh, "refresh", f.Refresh, "Progress redraw cadence (0 = only after each run)")
	fl.StringVar(&f.BarStyle, "bar", f.BarStyle, "Progress bar style: standard, box, braille3, braille4")
	fl.BoolVar(&f.NoColor, "no-color", f.NoColor, "Disable coloured output")
	fl.BoolVarP(&f.Verbose, "verbose", "v", f.Verbose, "Log every trial to stderr")
}

// NewRootCmd builds the tacho command.
func NewRootCmd() *cobra.Command {
	flags := NewFlags()
	cmd := &cobra.Command{
		Use:   "tacho [flags] COMMAND [COMMAND...]",
		Short: "Tachometer for your apps",
		Long: `tacho measures how long commands take by running them repeatedly,
keeping online statistics and a continuously updated completion estimate,
and stopping on a run count, a time budget or a confidence target.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && flags.Stream == "" {
				return errors.New("no command provided")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := flags.ToOptions(cmd, args)
			if err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}
	flags.AddFlags(cmd)
	return cmd
}

// ToOptions validates the flags and resolves the terminal environment.
func (f *Flags) ToOptions(cmd *cobra.Command, args []string) (*Options, error) {
	switch {
	case f.Runs < 0 || f.Warmup < 0:
		return nil, errors.New("run counts cannot be negative")
	case f.MinRuns < 1:
		return nil, errors.New("--min-runs must be at least 1")
	case f.MaxRuns > 0 && f.MaxRuns < f.MinRuns:
		return nil, errors.New("--max-runs cannot be below --min-runs")
	case f.Confidence <= 0 || f.Confidence >= 1:
		return nil, errors.New("--confidence must be strictly between 0 and 1")
	case f.Precision < 0:
		return nil, errors.New("--precision cannot be negative")
	case f.TotalSeconds <= 0 && f.Runs == 0 && f.Precision == 0 && f.MaxRuns == 0:
		return nil, errors.New("no stopping criterion: give --runs, --total-seconds, --precision or --max-runs")
	}

	var bar display.Bar
	switch f.BarStyle {
	case "standard":
		bar = display.Bars.Standard
	case "box":
		bar = display.Bars.Box
	case "braille3":
		bar = display.Bars.Braille3
	case "braille4":
		bar = display.Bars.Braille4
	default:
		return nil, fmt.Errorf("unknown bar style %q", f.BarStyle)
	}

	criteria := run.Criteria{
		Runs:       f.Runs,
		MinRuns:    f.MinRuns,
		MaxRuns:    f.MaxRuns,
		Confidence: f.Confidence,
		Precision:  f.Precision,
	}
	if f.TotalSeconds > 0 {
		criteria.TimeBudget = time.Duration(f.TotalSeconds * float64(time.Second))
	}

	if f.NoColor {
		color.NoColor = true
	}
	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	logger := zap.NewNop()
	if f.Verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		var err error
		if logger, err = cfg.Build(); err != nil {
			return nil, err
		}
	}

	perf := f.Perf || cmd.Flags().Changed("event")

	return &Options{
		Commands:      args,
		Setup:         f.Setup,
		Warmup:        f.Warmup,
		Criteria:      criteria,
		IgnoreFailure: f.IgnoreFailure,
		UseShell:      !f.NoShell && !perf,
		Shell:         f.Shell,
		Perf:          perf,
		Events:        f.Events,
		Stream:        f.Stream,
		Delimiter:     f.Delimiter,
		Histogram:     f.Histogram,
		Buckets:       f.Buckets,
		Reservoir:     f.Reservoir,
		Refresh:       f.Refresh,
		Bar:           bar,
		Interactive:   interactive,
		Out:           color.Output,
		Logger:        logger,
	}, nil
}

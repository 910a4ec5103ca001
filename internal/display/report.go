package display

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/violenttestpen/tacho/internal/stats"
)

// CounterReport is the accumulated view of one counted event.
type CounterReport struct {
	Name     string
	Unit     string
	Estimate stats.Estimate
}

// Report carries everything the final summary needs. It is assembled
// from snapshots; rendering it has no side effects and no failure modes,
// even for a single trial.
type Report struct {
	Command      string
	Estimate     stats.Estimate
	Quantiles    stats.Quantiles
	HasQuantiles bool
	MeanUser     time.Duration
	MeanSystem   time.Duration
	Elapsed      time.Duration
	Reason       string
	Counters     []CounterReport
}

func runsWord(n int64) string {
	if n == 1 {
		return "run"
	}
	return "runs"
}

// Rows renders the report, one display row per element.
func (r Report) Rows() []string {
	e := r.Estimate
	rows := []string{
		fmt.Sprintf("  Time (%s ± %s):\t%s ± %s\t[User: %s, System: %s]",
			color.GreenString("mean"),
			color.GreenString("σ"),
			color.GreenString("%s", FormatSeconds(e.Mean)),
			color.GreenString("%s", FormatSeconds(e.StdDev)),
			color.CyanString("%s", FormatDuration(r.MeanUser)),
			color.CyanString("%s", FormatDuration(r.MeanSystem))),
		fmt.Sprintf("  Range (%s … %s):\t%s … %s\t%s",
			color.CyanString("min"),
			color.RedString("max"),
			color.CyanString("%s", FormatSeconds(e.Min)),
			color.RedString("%s", FormatSeconds(e.Max)),
			color.HiBlackString("%d %s", e.Count, runsWord(e.Count))),
	}

	if r.HasQuantiles {
		rows = append(rows, fmt.Sprintf("  Quartiles (p25 … p75):\t%s … %s … %s",
			FormatSeconds(r.Quantiles.P25),
			FormatSeconds(r.Quantiles.P50),
			FormatSeconds(r.Quantiles.P75)))
	}

	ci := fmt.Sprintf("%s … %s", FormatSeconds(e.Lo), FormatSeconds(e.Hi))
	if e.Lo == e.Hi {
		ci = FormatSeconds(e.Mean) + " (single point)"
	}
	rows = append(rows,
		fmt.Sprintf("  CI (%.0f%%):\t\t%s", e.Confidence*100, ci),
		fmt.Sprintf("  Lognormal (μ, σ):\t%.4f, %.4f", e.Location, e.Scale),
		fmt.Sprintf("  Stopped:\t\t%s after %s", r.Reason, FormatDuration(r.Elapsed)))

	if e.Failed > 0 || e.Discarded > 0 {
		rows = append(rows, color.YellowString(
			"  %d %s exited non-zero, %d anomalous samples discarded",
			e.Failed, runsWord(e.Failed), e.Discarded))
	}

	if len(r.Counters) > 0 {
		rows = append(rows, "",
			"  "+color.New(color.Underline).Sprint("      mean          %RSD      min      max   event"))
		for _, c := range r.Counters {
			rows = append(rows, counterRow(c))
		}
	}
	return rows
}

// counterRow renders one counted event: scaled mean with an SI prefix,
// the relative standard deviation colored by how noisy it is, and the
// observed range.
func counterRow(c CounterReport) string {
	e := c.Estimate
	prefix, power := MetricPrefix(e.Mean, c.Unit != "")

	var devColor *color.Color
	switch {
	case e.RelStdDev >= 15:
		devColor = color.New(color.FgRed, color.Bold)
	case e.RelStdDev >= 10:
		devColor = color.New(color.FgRed)
	case e.RelStdDev >= 5:
		devColor = color.New(color.FgYellow)
	default:
		devColor = color.New(color.FgGreen)
	}

	return fmt.Sprintf("  %s %s  ± %s   %6.2f … %6.2f   %s",
		color.New(color.FgGreen, color.Bold).Sprintf("%10.2f", e.Mean/power),
		color.GreenString("%-2s", prefix+c.Unit),
		devColor.Sprintf("%5.1f %%", e.RelStdDev),
		e.Min/power, e.Max/power,
		color.New(color.Bold).Sprint(c.Name))
}

// Summary compares multiple benchmarked commands, fastest first. The ±
// term propagates both standard deviations through the ratio.
func Summary(reports []Report) []string {
	if len(reports) < 2 {
		return nil
	}

	sorted := append([]Report(nil), reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Estimate.Mean < sorted[j].Estimate.Mean
	})

	fastest := sorted[0].Estimate
	rows := []string{
		"Summary",
		fmt.Sprintf("  '%s' ran", color.CyanString(sorted[0].Command)),
	}
	for _, r := range sorted[1:] {
		e := r.Estimate
		if fastest.Mean <= 0 {
			rows = append(rows, fmt.Sprintf("    as fast as '%s'", color.RedString(r.Command)))
			continue
		}
		mult := e.Mean / fastest.Mean
		spread := 0.0
		if fastest.Mean+fastest.StdDev > 0 {
			spread = (e.Mean+e.StdDev)/(fastest.Mean+fastest.StdDev) - mult
		}
		if fastest.Mean-fastest.StdDev > 0 {
			spread += mult - (e.Mean-e.StdDev)/(fastest.Mean-fastest.StdDev)
		}
		if spread < 0 {
			spread = -spread
		}
		rows = append(rows, fmt.Sprintf("    %s ± %s times faster than '%s'",
			color.GreenString("%.2f", mult),
			color.GreenString("%.2f", spread),
			color.RedString(r.Command)))
	}
	return rows
}

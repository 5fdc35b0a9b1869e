package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sawpanic/optionflight/internal/envelope"
	simlog "github.com/sawpanic/optionflight/internal/log"
	"github.com/sawpanic/optionflight/internal/persistence"
	"github.com/sawpanic/optionflight/internal/scenario"
)

var regimeColors = map[envelope.Regime]*color.Color{
	envelope.Taxi:     color.New(color.FgBlue),
	envelope.Cruise:   color.New(color.FgGreen),
	envelope.Maneuver: color.New(color.FgYellow),
	envelope.Rupture:  color.New(color.FgRed, color.Bold),
}

func init() {
	color.NoColor = !simlog.IsTerminal(os.Stdout)
}

func regimeLabel(text string, r envelope.Regime) string {
	if c, ok := regimeColors[r]; ok {
		return c.Sprint(text)
	}
	return text
}

// printRun writes a one-run summary with the regime distribution
func printRun(w io.Writer, run *persistence.Run) {
	s := run.Summarize(0)
	fmt.Fprintf(w, "%s (%s, %d steps, seed %d)\n", run.Name, run.PathType, run.Steps, run.Seed)
	fmt.Fprintf(w, "  max load %.3f  breached %v\n", s.MaxLoad, s.Breached)
	printRegimes(w, s.RegimeCounts, int64(len(run.Records)))

	if n := len(run.Records); n > 0 {
		last := run.Records[n-1]
		flags := "-"
		if !last.Flags.Empty() {
			flags = color.RedString(strings.Join(last.Flags.Strings(), ","))
		}
		fmt.Fprintf(w, "  final spot %.2f  regime %s  flags %s\n", last.Spot, regimeLabel(last.Regime.String(), last.Regime), flags)
	}
}

// printMonteCarlo writes the batch summary
func printMonteCarlo(w io.Writer, result *scenario.MonteCarloResult) {
	cached := ""
	if result.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "\nMonte Carlo Results for %s%s:\n", result.Name, cached)
	fmt.Fprintf(w, "Breach Rate: %.1f%% (%d/%d)\n", result.BreachRate*100, result.BreachCount, result.Runs)
	fmt.Fprintf(w, "Avg Max Load: %.2f\n", result.AvgMaxLoad)

	var total int64
	for _, n := range result.RegimeDistribution {
		total += n
	}
	printRegimes(w, result.RegimeDistribution, total)
}

func printRegimes(w io.Writer, counts map[string]int64, total int64) {
	for _, r := range envelope.AllRegimes() {
		n := counts[r.String()]
		pct := 0.0
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		fmt.Fprintf(w, "  %s %6d  %5.1f%%\n", regimeLabel(fmt.Sprintf("%-8s", r), r), n, pct)
	}
}

// Package report aggregates verdicts into the plugin output and exit code.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	nagios "github.com/atc0005/go-nagios"
	"github.com/nmslite/check-hyperv/internal/model"
)

// printOrder lists severity groups from most to least severe
var printOrder = []model.Severity{model.Critical, model.Unknown, model.Warning, model.OK}

// Order returns the verdicts grouped CRITICAL, UNKNOWN, WARNING, OK.
// Verdicts keep their evaluation order inside a group.
func Order(rs model.ResultSet) []model.Verdict {
	ordered := rs.Verdicts()
	slices.SortStableFunc(ordered, func(a, b model.Verdict) int {
		return cmp.Compare(b.Severity().Rank(), a.Severity().Rank())
	})
	return ordered
}

// Overall returns the highest-ranked severity of the run. An empty result
// set is UNKNOWN.
func Overall(rs model.ResultSet) model.Severity {
	verdicts := rs.Verdicts()
	if len(verdicts) == 0 {
		return model.Unknown
	}
	overall := model.OK
	for _, v := range verdicts {
		if v.Severity().Rank() > overall.Rank() {
			overall = v.Severity()
		}
	}
	return overall
}

// ExitCode returns the plugin exit status for the result set
func ExitCode(rs model.ResultSet) int {
	return Overall(rs).ExitCode()
}

// Write prints one "<SEVERITY> - <message>" line per verdict in report order
func Write(w io.Writer, rs model.ResultSet) error {
	if rs.Len() == 0 {
		_, err := fmt.Fprintln(w, model.NewVerdict(model.Unknown, "no checks were evaluated"))
		return err
	}
	for _, v := range Order(rs) {
		if _, err := fmt.Fprintln(w, v.String()); err != nil {
			return fmt.Errorf("failed to write report line: %w", err)
		}
	}
	return nil
}

// Summary counts verdicts per severity, e.g. "1 CRITICAL, 0 UNKNOWN, 2 WARNING, 5 OK"
func Summary(rs model.ResultSet) string {
	counts := make(map[model.Severity]int)
	for _, v := range rs.Verdicts() {
		counts[v.Severity()]++
	}
	parts := make([]string, 0, len(printOrder))
	for _, sev := range printOrder {
		parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
	}
	return strings.Join(parts, ", ")
}

// ApplyToPlugin renders the result set through a go-nagios plugin: the most
// severe verdict becomes the service output, every verdict is listed in the
// long output and all performance data is attached to the plugin.
func ApplyToPlugin(p *nagios.Plugin, rs model.ResultSet) {
	overall := Overall(rs)
	p.ExitStatusCode = overall.ExitCode()

	ordered := Order(rs)
	if len(ordered) == 0 {
		p.ServiceOutput = fmt.Sprintf("%s - no checks were evaluated", model.Unknown)
		return
	}

	p.ServiceOutput = fmt.Sprintf("%s - %s (%s)", overall, ordered[0].Message(), Summary(rs))

	lines := make([]string, 0, len(ordered))
	for _, v := range ordered {
		lines = append(lines, fmt.Sprintf("%s - %s", v.Severity(), v.Message()))
		for _, pd := range v.PerfData() {
			if err := p.AddPerfData(false, toPerformanceData(pd)); err != nil {
				p.AddError(fmt.Errorf("perfdata %q: %w", pd.Label, err))
			}
		}
	}
	p.LongServiceOutput = strings.Join(lines, "\n")
}

// toPerformanceData maps a datum onto the go-nagios type. Nagios labels may
// not contain spaces unquoted, so they are joined with underscores.
func toPerformanceData(pd model.PerfDatum) nagios.PerformanceData {
	return nagios.PerformanceData{
		Label:             strings.Join(strings.Fields(pd.Label), "_"),
		Value:             strings.TrimSuffix(model.FormatFloat(pd.Value), ".0"),
		UnitOfMeasurement: pd.UOM,
		Warn:              pd.Warn,
		Crit:              pd.Crit,
		Min:               pd.Min,
		Max:               pd.Max,
	}
}

package model

import (
	"strconv"
	"strings"
)

// PerfDatum is one Icinga performance-data item: label=value<uom>;warn;crit;min;max
type PerfDatum struct {
	Label string
	Value float64
	UOM   string
	Warn  string
	Crit  string
	Min   string
	Max   string
}

// String renders the datum in plugin perfdata syntax.
// Labels containing whitespace are single-quoted.
func (p PerfDatum) String() string {
	label := p.Label
	if strings.ContainsAny(label, " \t=") {
		label = "'" + label + "'"
	}
	return label + "=" + FormatFloat(p.Value) + p.UOM + ";" + p.Warn + ";" + p.Crit + ";" + p.Min + ";" + p.Max
}

// FormatPerfData joins data items with single spaces
func FormatPerfData(data []PerfDatum) string {
	parts := make([]string, 0, len(data))
	for _, d := range data {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

// FormatFloat renders a number the way operators already see it on their
// dashboards: shortest representation, always with a fractional part.
//
//	50    -> "50.0"
//	12.5  -> "12.5"
//	0.333 -> "0.333"
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Verdict is the evaluation result for one service, feature or VM.
// Fields are unexported so a verdict cannot change after it is built.
type Verdict struct {
	severity Severity
	message  string
	perfData []PerfDatum
}

// NewVerdict builds an immutable verdict
func NewVerdict(severity Severity, message string, perfData ...PerfDatum) Verdict {
	var pd []PerfDatum
	if len(perfData) > 0 {
		pd = make([]PerfDatum, len(perfData))
		copy(pd, perfData)
	}
	return Verdict{severity: severity, message: message, perfData: pd}
}

// Severity returns the verdict severity
func (v Verdict) Severity() Severity { return v.severity }

// Message returns the human-readable explanation
func (v Verdict) Message() string { return v.message }

// PerfData returns a copy of the performance data attached to the verdict
func (v Verdict) PerfData() []PerfDatum {
	if len(v.perfData) == 0 {
		return nil
	}
	out := make([]PerfDatum, len(v.perfData))
	copy(out, v.perfData)
	return out
}

// String renders "<SEVERITY> - <message>" followed by "|<perfdata>" when present
func (v Verdict) String() string {
	line := v.severity.String() + " - " + v.message
	if len(v.perfData) > 0 {
		line += " |" + FormatPerfData(v.perfData)
	}
	return line
}

// ResultSet is the append-only sequence of verdicts produced by one run
type ResultSet struct {
	verdicts []Verdict
}

// Add returns the set grown by the given verdicts.
// The receiver is never modified in place.
func (rs ResultSet) Add(v ...Verdict) ResultSet {
	grown := make([]Verdict, 0, len(rs.verdicts)+len(v))
	grown = append(grown, rs.verdicts...)
	grown = append(grown, v...)
	return ResultSet{verdicts: grown}
}

// Merge appends every verdict of other, preserving order
func (rs ResultSet) Merge(other ResultSet) ResultSet {
	return rs.Add(other.verdicts...)
}

// Verdicts returns the verdicts in evaluation order
func (rs ResultSet) Verdicts() []Verdict {
	out := make([]Verdict, len(rs.verdicts))
	copy(out, rs.verdicts)
	return out
}

// Len returns the number of verdicts
func (rs ResultSet) Len() int { return len(rs.verdicts) }

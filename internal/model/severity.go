// Package model holds the value types shared by the parsing, evaluation and
// reporting stages of a single check run.
package model

import (
	nagios "github.com/atc0005/go-nagios"
)

// Severity is the outcome of one checked entity
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

// String returns the upper-case label printed in front of every report line
func (s Severity) String() string {
	switch s {
	case OK:
		return nagios.StateOKLabel
	case Warning:
		return nagios.StateWARNINGLabel
	case Critical:
		return nagios.StateCRITICALLabel
	default:
		return nagios.StateUNKNOWNLabel
	}
}

// ExitCode maps the severity onto the plugin exit status
func (s Severity) ExitCode() int {
	switch s {
	case OK:
		return nagios.StateOKExitCode
	case Warning:
		return nagios.StateWARNINGExitCode
	case Critical:
		return nagios.StateCRITICALExitCode
	default:
		return nagios.StateUNKNOWNExitCode
	}
}

// Rank orders severities by how actionable they are.
// CRITICAL outranks UNKNOWN, which outranks WARNING, which outranks OK.
func (s Severity) Rank() int {
	switch s {
	case Critical:
		return 3
	case OK:
		return 0
	case Warning:
		return 1
	default:
		return 2
	}
}

// ParseSeverity converts a configuration string ("warning", "UNKNOWN", ...) to a Severity
func ParseSeverity(value string) (Severity, bool) {
	switch value {
	case "ok", "OK":
		return OK, true
	case "warning", "WARNING":
		return Warning, true
	case "critical", "CRITICAL":
		return Critical, true
	case "unknown", "UNKNOWN":
		return Unknown, true
	}
	return Unknown, false
}

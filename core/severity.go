package core

import "strings"

// Severity ranks how serious a compliance rule or violation is.
// The zero value is invalid; unknown inputs parse to SeverityMedium.
type Severity int

const (
	// SeverityLow marks advisory requirements.
	SeverityLow Severity = iota + 1
	// SeverityMedium is the default for requirements of unstated weight.
	SeverityMedium
	// SeverityHigh marks requirements whose breach carries material risk.
	SeverityHigh
	// SeverityCritical marks requirements whose breach demands immediate action.
	SeverityCritical
)

// String returns the severity as a lowercase label.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a label to a Severity. Unrecognized labels map to
// SeverityMedium so model output with a novel severity never drops a rule.
func ParseSeverity(label string) Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// ValidSeverity reports whether s is one of the defined severity levels.
func ValidSeverity(s Severity) bool {
	return s >= SeverityLow && s <= SeverityCritical
}

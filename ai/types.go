package ai

// RuleCandidate is one compliance requirement as returned by the extraction
// model, before validation and storage.
type RuleCandidate struct {
	// RuleText is the requirement stated as a single imperative sentence.
	RuleText string

	// Category classifies the requirement. Usually one of RuleCategories,
	// but the model may produce new categories; unstated defaults to
	// "general".
	Category string

	// Severity is one of "low", "medium", "high", "critical".
	// Unrecognized values are treated as "medium" downstream.
	Severity string
}

// RuleContext is a stored rule handed to the violation detector.
type RuleContext struct {
	// ID identifies the rule so findings can reference it.
	ID uint64

	// RuleText is the requirement being checked.
	RuleText string

	// Severity is the rule's severity label.
	Severity string
}

// Finding is one detected violation as returned by the detection model.
// Only violated rules yield findings.
type Finding struct {
	// RuleID references the violated rule.
	RuleID uint64

	// Explanation says how the audit text breaches the rule.
	Explanation string

	// Severity is the finding's severity label; defaults to the rule's
	// severity when the model leaves it out.
	Severity string
}

// RemediationRequest carries the context needed to draft a remediation
// suggestion for one violation.
type RemediationRequest struct {
	RuleText       string
	Explanation    string
	SegmentExcerpt string
}

// RuleCategories defines the usual categories for extracted compliance
// rules. Extractors steer the model toward these but store whatever
// category the model produces.
var RuleCategories = []string{
	"access_control",
	"audit_logging",
	"data_privacy",
	"data_retention",
	"encryption",
	"general",
	"incident_response",
	"personnel",
	"physical_security",
	"vendor_management",
}

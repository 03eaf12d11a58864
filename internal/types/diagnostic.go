package types

import "fmt"

// Severity classifies a diagnostic as blocking or advisory.
type Severity string

const (
	// SeverityError marks a diagnostic that blocks compilation
	SeverityError Severity = "error"

	// SeverityWarning marks an advisory diagnostic
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single finding produced by semantic validation or the
// static capability checker.
type Diagnostic struct {
	// Severity is error or warning
	Severity Severity `json:"severity"`

	// Message describes the finding
	Message string `json:"message"`

	// Location points at the offending source, when known
	Location *SourceLocation `json:"location,omitempty"`

	// Hint suggests a fix, when one is known
	Hint string `json:"hint,omitempty"`
}

// String renders the diagnostic in a compiler-style single line.
func (d Diagnostic) String() string {
	if d.Location != nil {
		return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// HasErrors reports whether any diagnostic carries error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of errors and warnings in diags.
func CountBySeverity(diags []Diagnostic) (errors, warnings int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}

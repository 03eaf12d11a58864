package types

import "fmt"

// SourceLocation identifies a position in NXML source text.
// Both fields are 1-based.
type SourceLocation struct {
	// Line is the 1-based line number
	Line int `json:"line"`

	// Column is the 1-based column number
	Column int `json:"column"`
}

// String returns the location in line:column form.
func (l SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// IsZero reports whether the location was never set.
func (l SourceLocation) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

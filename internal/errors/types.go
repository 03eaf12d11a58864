package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeLex        ErrorType = "lex"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeCapability ErrorType = "capability"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeMemory     ErrorType = "memory"
	ErrorTypeRuntime    ErrorType = "runtime"
	ErrorTypePool       ErrorType = "pool"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeInternal   ErrorType = "internal"
)

// NXMLError is a structured error type with context.
type NXMLError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Line        int
	Column      int
	Hint        string
	Recoverable bool
}

// Error implements the error interface.
func (e *NXMLError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" || e.Line > 0 {
		location := e.FilePath
		if e.Line > 0 {
			if location != "" {
				location += ":"
			}
			location += fmt.Sprintf("%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *NXMLError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *NXMLError) Is(target error) bool {
	var t *NXMLError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *NXMLError) WithContext(key string, value interface{}) *NXMLError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds source location information.
func (e *NXMLError) WithLocation(filePath string, line, column int) *NXMLError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithHint attaches a fix suggestion.
func (e *NXMLError) WithHint(hint string) *NXMLError {
	e.Hint = hint

	return e
}

// WithComponent adds component context.
func (e *NXMLError) WithComponent(component string) *NXMLError {
	e.Component = component

	return e
}

// Error creation functions

// NewLexError creates a tokenization error at the given source position.
func NewLexError(code, message string, line, column int) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeLex,
		Code:        code,
		Message:     message,
		Line:        line,
		Column:      column,
		Recoverable: false,
	}
}

// NewParseError creates a parse error at the given source position.
func NewParseError(code, message string, line, column int) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Line:        line,
		Column:      column,
		Recoverable: false,
	}
}

// NewValidationError creates a semantic validation error.
func NewValidationError(code, message string) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewCapabilityError creates a capability violation error.
func NewCapabilityError(code, message string) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeCapability,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewTimeoutError creates an execution timeout error.
func NewTimeoutError(message string) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeTimeout,
		Code:        ErrCodeExecTimeout,
		Message:     message,
		Recoverable: false,
	}
}

// NewMemoryError creates a memory limit error.
func NewMemoryError(message string) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeMemory,
		Code:        ErrCodeExecMemoryLimit,
		Message:     message,
		Recoverable: false,
	}
}

// NewRuntimeError creates a handler runtime error.
func NewRuntimeError(code, message string, cause error) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeRuntime,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewPoolError creates an instance pool error.
func NewPoolError(code, message string) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypePool,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *NXMLError {
	return &NXMLError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ne *NXMLError
	if errors.As(err, &ne) {
		return ne.Recoverable
	}

	return false
}

// IsKind checks whether an error carries the given type.
func IsKind(err error, t ErrorType) bool {
	var ne *NXMLError
	if errors.As(err, &ne) {
		return ne.Type == t
	}

	return false
}

// IsTimeout checks if an error is an execution timeout.
func IsTimeout(err error) bool {
	return IsKind(err, ErrorTypeTimeout)
}

// IsMemoryLimit checks if an error is a memory limit violation.
func IsMemoryLimit(err error) bool {
	return IsKind(err, ErrorTypeMemory)
}

// IsCapabilityViolation checks if an error is a capability denial.
func IsCapabilityViolation(err error) bool {
	return IsKind(err, ErrorTypeCapability)
}

// KindOf returns the error type, or ErrorTypeInternal for foreign errors.
func KindOf(err error) ErrorType {
	var ne *NXMLError
	if errors.As(err, &ne) {
		return ne.Type
	}

	return ErrorTypeInternal
}

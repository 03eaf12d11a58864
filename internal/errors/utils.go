package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with additional context, creating an NXMLError if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *NXMLError {
	if err == nil {
		return nil
	}

	// Preserve the location and context of an existing NXMLError
	var ne *NXMLError
	if errors.As(err, &ne) {
		return &NXMLError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       ne,
			Context:     ne.Context,
			Component:   ne.Component,
			FilePath:    ne.FilePath,
			Line:        ne.Line,
			Column:      ne.Column,
			Recoverable: ne.Recoverable,
		}
	}

	return &NXMLError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeRuntime,
	}
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *NXMLError {
	ne := Wrap(err, ErrorTypeIO, code, message)
	if ne != nil {
		ne.Recoverable = false
	}
	return ne
}

// WrapInternal wraps an error as an internal error.
func WrapInternal(err error, code, message string) *NXMLError {
	ne := Wrap(err, ErrorTypeInternal, code, message)
	if ne != nil {
		ne.Recoverable = false
	}
	return ne
}

// FileReadError creates a standardized error for unreadable panel sources.
func FileReadError(path string, cause error) *NXMLError {
	return NewIOError(ErrCodeFileRead, fmt.Sprintf("cannot read %s", path), cause).
		WithContext("path", path)
}

// ConfigurationError creates a configuration error for one setting.
func ConfigurationError(setting, message string, value interface{}) *NXMLError {
	return NewConfigError(
		ErrCodeConfigInvalid,
		fmt.Sprintf("invalid configuration for %s: %s", setting, message),
	).WithContext("setting", setting).WithContext("value", value)
}

// FormatError renders an error for terminal output, appending the hint
// when one is present.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ne *NXMLError
	if !errors.As(err, &ne) {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(ne.Error())
	if ne.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(ne.Hint)
	}
	return b.String()
}

// CombineErrors merges multiple errors into one, skipping nils.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, len(nonNil))
	for i, err := range nonNil {
		messages[i] = err.Error()
	}

	return NewInternalError(
		ErrCodeInternal,
		fmt.Sprintf("multiple errors: %s", strings.Join(messages, "; ")),
		nonNil[0],
	)
}

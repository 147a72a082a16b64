package types

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoderUnavailable is returned when the ffmpeg binary cannot be found or run.
	ErrEncoderUnavailable = errors.New("encoder unavailable")

	// ErrEmptyCapture is returned when the selected window has no visible area on screen.
	ErrEmptyCapture = errors.New("capture area is empty")
)

// ProbeErrorKind classifies probe failures.
type ProbeErrorKind string

const (
	// ToolUnavailable means the probe tool could not be run or exited non-zero.
	ToolUnavailable ProbeErrorKind = "tool unavailable"
	// ParseError means the probe tool's output did not have the expected shape.
	ParseError ProbeErrorKind = "parse error"
)

// ProbeError reports a failed screen or window probe.
type ProbeError struct {
	Kind  ProbeErrorKind
	Tool  string // xrandr, xwininfo
	Field string // empty unless a single field failed to parse
	Err   error
}

func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Tool, e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" in field %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsProbeError reports whether err is a ProbeError of the given kind.
func IsProbeError(err error, kind ProbeErrorKind) bool {
	var pe *ProbeError
	return errors.As(err, &pe) && pe.Kind == kind
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`   // JSON path to the field (e.g., "output")
	Message string `json:"message"` // Human-readable error message
	Value   any    `json:"value"`   // The invalid value that was provided
}

// ValidationError collects multiple field validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a new empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{
		Errors: make([]FieldError, 0),
	}
}

// Add adds a field error to the collection.
func (v *ValidationError) Add(field, message string, value any) {
	v.Errors = append(v.Errors, FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// Empty reports whether no field errors were collected.
func (v *ValidationError) Empty() bool {
	return len(v.Errors) == 0
}

func (v *ValidationError) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	first := v.Errors[0]
	msg := fmt.Sprintf("invalid %s: %s", first.Field, first.Message)
	if n := len(v.Errors) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

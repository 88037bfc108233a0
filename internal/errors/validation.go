//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "fmt"

// ValidationError represents an invalid or missing input.
type ValidationError struct {
	Base Error `json:"error"`

	// Field is the input that failed validation.
	Field string `json:"field,omitempty"`

	// Expected describes what was expected.
	Expected string `json:"expected,omitempty"`

	// Got describes what was received.
	Got string `json:"got,omitempty"`
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, expected, got string) *ValidationError {
	return &ValidationError{
		Base: Error{
			Category: CategoryValidation,
			Code:     CodeValidationFailed,
			Message:  fmt.Sprintf("invalid input %q", field),
		},
		Field:    field,
		Expected: expected,
		Got:      got,
	}
}

// NewMissingInputError creates a ValidationError for a required input that is empty.
func NewMissingInputError(field string) *ValidationError {
	return &ValidationError{
		Base: Error{
			Category: CategoryValidation,
			Code:     CodeValidationFailed,
			Message:  fmt.Sprintf("Input required and not supplied: %s", field),
			Hint:     fmt.Sprintf("Pass it with `with: %s: ...` in the workflow, or --%s on the command line.", field, field),
		},
		Field:    field,
		Expected: "non-empty string",
	}
}

// WithHint sets the hint and returns the error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Base.Hint = hint
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *ValidationError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *ValidationError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

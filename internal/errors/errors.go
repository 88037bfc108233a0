// Package errors provides structured error types for setup-qt.
// These errors carry rich context information that can be formatted
// for human-readable CLI output, GitHub Actions annotations, or JSON.
//
//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// Category represents the classification of an error.
type Category string

const (
	CategoryPlatform   Category = "platform"
	CategoryDependency Category = "dependency"
	CategoryInstall    Category = "install"
	CategoryNetwork    Category = "network"
	CategoryLocate     Category = "locate"
	CategoryCache      Category = "cache"
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Platform errors (E1xx)
	CodeUnsupportedPlatform Code = "E101"

	// Dependency errors (E2xx)
	CodeDependencyInstall Code = "E201"

	// Install errors (E3xx)
	CodeInstallerExecution  Code = "E301"
	CodeMountVolumeNotFound Code = "E302"
	CodeAppBundleNotFound   Code = "E303"
	CodeExecutableNotFound  Code = "E304"
	CodeUnmount             Code = "E305"

	// Network errors (E4xx)
	CodeNetworkFailed Code = "E401"
	CodeHTTPError     Code = "E402"

	// Locate errors (E5xx)
	CodeVersionDirectoryNotFound Code = "E501"
	CodeBinPathNotFound          Code = "E502"

	// Cache errors (E6xx)
	CodeCacheSave        Code = "E601"
	CodeCacheRestore     Code = "E602"
	CodeChecksumMismatch Code = "E603"

	// Config errors (E7xx)
	CodeConfigParse      Code = "E701"
	CodeValidationFailed Code = "E702"
)

// Sentinels for errors.Is. Any structured error carrying the same code matches.
var (
	ErrUnsupportedPlatform      = &Error{Category: CategoryPlatform, Code: CodeUnsupportedPlatform}
	ErrDependencyInstall        = &Error{Category: CategoryDependency, Code: CodeDependencyInstall}
	ErrInstallerExecution       = &Error{Category: CategoryInstall, Code: CodeInstallerExecution}
	ErrMountVolumeNotFound      = &Error{Category: CategoryInstall, Code: CodeMountVolumeNotFound}
	ErrAppBundleNotFound        = &Error{Category: CategoryInstall, Code: CodeAppBundleNotFound}
	ErrExecutableNotFound       = &Error{Category: CategoryInstall, Code: CodeExecutableNotFound}
	ErrUnmount                  = &Error{Category: CategoryInstall, Code: CodeUnmount}
	ErrVersionDirectoryNotFound = &Error{Category: CategoryLocate, Code: CodeVersionDirectoryNotFound}
	ErrBinPathNotFound          = &Error{Category: CategoryLocate, Code: CodeBinPathNotFound}
	ErrCacheSave                = &Error{Category: CategoryCache, Code: CodeCacheSave}
	ErrCacheRestore             = &Error{Category: CategoryCache, Code: CodeCacheRestore}
	ErrChecksumMismatch         = &Error{Category: CategoryCache, Code: CodeChecksumMismatch}
	ErrValidationFailed         = &Error{Category: CategoryValidation, Code: CodeValidationFailed}
)

// Error is the base error type for setup-qt.
// It provides structured information that can be formatted for CLI output.
type Error struct {
	// Category classifies the error type.
	Category Category `json:"category"`

	// Code is a machine-readable error code.
	Code Code `json:"code,omitempty"`

	// Message is a short description of the error.
	Message string `json:"message"`

	// Details contains additional context information.
	Details map[string]any `json:"details,omitempty"`

	// Hint provides actionable advice for the user.
	Hint string `json:"hint,omitempty"`

	// Cause is the underlying error.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the machine-readable code.
func (e *Error) ErrorCode() Code {
	return e.Code
}

// Is reports whether the target error matches this error.
// It matches if the target carries the same Code (if both have codes).
func (e *Error) Is(target error) bool {
	if e.Code != "" && matchesCode(e.Code, target) {
		return true
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != "" && t.Code != "" {
		return false
	}
	return e.Category == t.Category && e.Message == t.Message
}

// WithHint sets the hint and returns the error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithDetail adds a detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given category and message.
func New(category Category, message string) *Error {
	return &Error{
		Category: category,
		Message:  message,
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// CodeOf returns the code of the outermost structured error in the chain, or "".
func CodeOf(err error) Code {
	for err != nil {
		if c, ok := err.(coder); ok && c.ErrorCode() != "" {
			return c.ErrorCode()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

type coder interface {
	ErrorCode() Code
}

func matchesCode(code Code, target error) bool {
	c, ok := target.(coder)
	return ok && c.ErrorCode() == code
}

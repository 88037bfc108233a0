//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "fmt"

// PlatformError represents a host that no platform strategy can serve.
type PlatformError struct {
	Base Error `json:"error"`

	// OS is the detected operating system id (e.g. "linux", "win32").
	OS string `json:"os"`

	// Arch is the detected CPU architecture (e.g. "x64", "arm64").
	Arch string `json:"arch,omitempty"`
}

// NewUnsupportedPlatformError creates a PlatformError for an unknown OS id.
func NewUnsupportedPlatformError(os, arch string) *PlatformError {
	return &PlatformError{
		Base: Error{
			Category: CategoryPlatform,
			Code:     CodeUnsupportedPlatform,
			Message:  fmt.Sprintf("unsupported platform: %s", os),
			Hint:     "setup-qt runs on Linux, macOS and Windows runners only.",
		},
		OS:   os,
		Arch: arch,
	}
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *PlatformError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *PlatformError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *PlatformError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

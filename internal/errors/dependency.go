//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"fmt"
	"strings"
)

// DependencyError represents a failed OS-level dependency installation.
type DependencyError struct {
	Base Error `json:"error"`

	// Manager is the tool that was invoked (e.g. "apt-get", "xcode-select").
	Manager string `json:"manager,omitempty"`

	// Packages lists the packages that were requested.
	Packages []string `json:"packages,omitempty"`
}

// NewDependencyInstallError creates a DependencyError.
func NewDependencyInstallError(manager string, packages []string, cause error) *DependencyError {
	msg := fmt.Sprintf("failed to install dependencies with %s", manager)
	return &DependencyError{
		Base: Error{
			Category: CategoryDependency,
			Code:     CodeDependencyInstall,
			Message:  msg,
			Cause:    cause,
		},
		Manager:  manager,
		Packages: packages,
	}
}

// PackageList returns the requested packages as a single line.
func (e *DependencyError) PackageList() string {
	return strings.Join(e.Packages, " ")
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *DependencyError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *DependencyError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *DependencyError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

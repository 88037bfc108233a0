//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"fmt"
	"strings"
)

// LocateError represents a failure to find the installed Qt tree.
type LocateError struct {
	Base Error `json:"error"`

	// Root is the directory that was listed.
	Root string `json:"root"`

	// Prefix is the major.minor prefix that was searched for.
	Prefix string `json:"prefix,omitempty"`

	// Path is the bin directory that was expected.
	Path string `json:"path,omitempty"`

	// Entries is the listing of Root.
	Entries []string `json:"entries"`
}

// NewVersionDirectoryNotFoundError reports that no entry of root starts with prefix.
func NewVersionDirectoryNotFoundError(root, prefix string, entries []string) *LocateError {
	return &LocateError{
		Base: Error{
			Category: CategoryLocate,
			Code:     CodeVersionDirectoryNotFound,
			Message: fmt.Sprintf("no Qt version directory starting with %q in %s (found: %s)",
				prefix, root, strings.Join(entries, ", ")),
		},
		Root:    root,
		Prefix:  prefix,
		Entries: entries,
	}
}

// NewBinPathNotFoundError reports that the compiler bin directory is missing.
// entries lists the siblings available under the version directory.
func NewBinPathNotFoundError(versionDir, binPath string, entries []string) *LocateError {
	return &LocateError{
		Base: Error{
			Category: CategoryLocate,
			Code:     CodeBinPathNotFound,
			Message: fmt.Sprintf("Qt bin directory %s does not exist (available: %s)",
				binPath, strings.Join(entries, ", ")),
			Hint: "Set the compiler input to one of the available directories.",
		},
		Root:    versionDir,
		Path:    binPath,
		Entries: entries,
	}
}

// Error implements the error interface.
func (e *LocateError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *LocateError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *LocateError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *LocateError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"fmt"
	"strings"
)

// InstallError represents a failure to run the vendor installer.
type InstallError struct {
	Base Error `json:"error"`

	// Executable is the installer binary that was run.
	Executable string `json:"executable,omitempty"`

	// Version is the Qt package being installed.
	Version string `json:"version,omitempty"`

	// ExitCode is the installer exit status, -1 if it never started.
	ExitCode int `json:"exitCode"`
}

// NewInstallerExecutionError creates an InstallError.
func NewInstallerExecutionError(executable, version string, exitCode int, cause error) *InstallError {
	return &InstallError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeInstallerExecution,
			Message:  "Qt installer failed",
			Cause:    cause,
			Hint:     "Check the Qt account credentials and that the requested package id exists.",
		},
		Executable: executable,
		Version:    version,
		ExitCode:   exitCode,
	}
}

// Error implements the error interface for InstallError.
func (e *InstallError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error for InstallError.
func (e *InstallError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *InstallError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *InstallError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

// PrepareError represents a failure while preparing the downloaded installer
// (mounting the disk image, locating the bundle or executable, unmounting).
type PrepareError struct {
	Base Error `json:"error"`

	// Path is the directory or image that was inspected.
	Path string `json:"path,omitempty"`

	// Entries is the directory listing at Path, for diagnosis.
	Entries []string `json:"entries,omitempty"`
}

func newPrepareError(code Code, message, path string, entries []string, cause error) *PrepareError {
	return &PrepareError{
		Base: Error{
			Category: CategoryInstall,
			Code:     code,
			Message:  message,
			Cause:    cause,
		},
		Path:    path,
		Entries: entries,
	}
}

// NewMountVolumeNotFoundError reports that no Qt installer volume appeared after attach.
func NewMountVolumeNotFoundError(volumesDir string, entries []string) *PrepareError {
	return newPrepareError(CodeMountVolumeNotFound,
		fmt.Sprintf("could not find mounted Qt installer volume in %s (found: %s)", volumesDir, strings.Join(entries, ", ")),
		volumesDir, entries, nil)
}

// NewAppBundleNotFoundError reports that the mounted volume has no .app bundle.
func NewAppBundleNotFoundError(mountPath string, entries []string) *PrepareError {
	return newPrepareError(CodeAppBundleNotFound,
		fmt.Sprintf("could not find Qt installer .app in %s (found: %s)", mountPath, strings.Join(entries, ", ")),
		mountPath, entries, nil)
}

// NewExecutableNotFoundError reports that the bundle has no installer executable.
func NewExecutableNotFoundError(dir string, entries []string) *PrepareError {
	return newPrepareError(CodeExecutableNotFound,
		fmt.Sprintf("could not find Qt installer executable in %s (found: %s)", dir, strings.Join(entries, ", ")),
		dir, entries, nil)
}

// NewUnmountError reports a failed detach of the installer image.
func NewUnmountError(mountPath string, cause error) *PrepareError {
	return newPrepareError(CodeUnmount, fmt.Sprintf("failed to unmount %s", mountPath), mountPath, nil, cause)
}

// Error implements the error interface for PrepareError.
func (e *PrepareError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error for PrepareError.
func (e *PrepareError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *PrepareError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *PrepareError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

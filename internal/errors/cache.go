//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// CacheError represents a cache store failure. These never fail a run.
type CacheError struct {
	Base Error `json:"error"`

	// Backend is the cache backend name (local, oci).
	Backend string `json:"backend,omitempty"`

	// Key is the cache key involved.
	Key string `json:"key,omitempty"`
}

// NewCacheSaveError creates a CacheError for a failed save.
func NewCacheSaveError(backend, key string, cause error) *CacheError {
	return &CacheError{
		Base: Error{
			Category: CategoryCache,
			Code:     CodeCacheSave,
			Message:  "failed to save Qt installation to cache",
			Cause:    cause,
		},
		Backend: backend,
		Key:     key,
	}
}

// NewCacheRestoreError creates a CacheError for a failed restore.
func NewCacheRestoreError(backend, key string, cause error) *CacheError {
	return &CacheError{
		Base: Error{
			Category: CategoryCache,
			Code:     CodeCacheRestore,
			Message:  "failed to restore Qt installation from cache",
			Cause:    cause,
		},
		Backend: backend,
		Key:     key,
	}
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *CacheError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *CacheError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

// ChecksumError represents a cache archive whose digest does not match its sidecar.
type ChecksumError struct {
	Base Error `json:"error"`

	// Path is the archive that was verified.
	Path string `json:"path,omitempty"`

	// Expected is the expected checksum.
	Expected string `json:"expected,omitempty"`

	// Got is the actual checksum.
	Got string `json:"got,omitempty"`
}

// NewChecksumError creates a ChecksumError.
func NewChecksumError(path, expected, got string) *ChecksumError {
	return &ChecksumError{
		Base: Error{
			Category: CategoryCache,
			Code:     CodeChecksumMismatch,
			Message:  "checksum verification failed",
			Hint:     "The cache entry is corrupted and will be ignored.",
		},
		Path:     path,
		Expected: expected,
		Got:      got,
	}
}

// Error implements the error interface for ChecksumError.
func (e *ChecksumError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error for ChecksumError.
func (e *ChecksumError) Unwrap() error {
	return e.Base.Cause
}

// ErrorCode returns the machine-readable code.
func (e *ChecksumError) ErrorCode() Code {
	return e.Base.Code
}

// Is reports whether the target error matches this error by code.
func (e *ChecksumError) Is(target error) bool {
	return matchesCode(e.Base.Code, target)
}

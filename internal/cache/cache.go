// Package cache stores and restores Qt installation trees between runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Backend names a cache store implementation.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendOCI   Backend = "oci"
	BackendNone  Backend = "none"
)

// Store is a keyed archive store for directory trees.
type Store interface {
	// Restore materializes the trees saved under key into paths.
	// It reports false without error when nothing is stored under key.
	Restore(ctx context.Context, key string, paths []string) (bool, error)

	// Save archives paths under key, replacing any previous entry.
	Save(ctx context.Context, key string, paths []string) error

	// Backend returns the store's backend name.
	Backend() Backend
}

// KeyPrefix is the leading component of every cache key.
const KeyPrefix = "qt"

// Key builds the cache key for an installation from the raw version string,
// the effective compiler id, and the host OS and architecture ids.
//
// The readable part joins the components with "-"; since components may
// themselves contain "-", a short digest of the NUL-separated components is
// appended so distinct inputs never collide.
func Key(rawVersion, compiler, osID, arch string) string {
	h := sha256.New()
	for _, part := range []string{rawVersion, compiler, osID, arch} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	sum := hex.EncodeToString(h.Sum(nil))[:12]
	return fmt.Sprintf("%s-%s-%s-%s-%s-%s", KeyPrefix, rawVersion, osID, arch, compiler, sum)
}

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendLocal, BackendOCI, BackendNone:
		return b, nil
	case "":
		return BackendLocal, nil
	default:
		return "", fmt.Errorf("unknown cache backend %q (want local, oci or none)", s)
	}
}

const maxTagLength = 128

var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Tag converts a cache key into a valid OCI tag (and file name).
func Tag(key string) string {
	tag := invalidTagChars.ReplaceAllString(key, "_")
	tag = strings.TrimLeft(tag, ".-")
	if tag == "" {
		tag = "_"
	}
	if len(tag) > maxTagLength {
		sum := sha256.Sum256([]byte(key))
		suffix := hex.EncodeToString(sum[:])[:16]
		tag = tag[:maxTagLength-len(suffix)-1] + "-" + suffix
	}
	return tag
}

// noopStore never hits and discards saves.
type noopStore struct{}

// NewNoopStore returns a Store that caches nothing.
func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Restore(context.Context, string, []string) (bool, error) { return false, nil }
func (noopStore) Save(context.Context, string, []string) error           { return nil }
func (noopStore) Backend() Backend                                         { return BackendNone }

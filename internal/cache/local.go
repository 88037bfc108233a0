package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/akshaybabloo/actions-setup-qt/internal/checksum"
	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

const (
	archiveExt    = ".tar.xz"
	lockFileName  = "cache.lock"
	lockRetryTick = 250 * time.Millisecond
)

// LocalStore keeps archives in a directory on the runner, typically the
// hosted tool cache. Each archive has a sha256 sidecar that is verified on
// restore. Access is serialized with a file lock.
type LocalStore struct {
	dir      string
	fileLock *flock.Flock
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a LocalStore rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &LocalStore{
		dir:      dir,
		fileLock: flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

// Backend implements Store.
func (s *LocalStore) Backend() Backend {
	return BackendLocal
}

// ArchivePath returns where the archive for key is stored.
func (s *LocalStore) ArchivePath(key string) string {
	return filepath.Join(s.dir, Tag(key)+archiveExt)
}

// Restore implements Store.
func (s *LocalStore) Restore(ctx context.Context, key string, paths []string) (bool, error) {
	archive := s.ArchivePath(key)

	unlock, err := s.lock(ctx)
	if err != nil {
		return false, qterrors.NewCacheRestoreError(string(BackendLocal), key, err)
	}
	defer unlock()

	if _, err := os.Stat(archive); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no local cache entry", "key", key, "path", archive)
		return false, nil
	}

	if err := checksum.VerifySidecar(archive); err != nil {
		return false, err
	}

	f, err := os.Open(archive)
	if err != nil {
		return false, qterrors.NewCacheRestoreError(string(BackendLocal), key, err)
	}
	defer f.Close()

	if err := ExtractArchive(f, paths); err != nil {
		return false, qterrors.NewCacheRestoreError(string(BackendLocal), key, err)
	}

	slog.Debug("restored local cache entry", "key", key, "path", archive)
	return true, nil
}

// Save implements Store.
func (s *LocalStore) Save(ctx context.Context, key string, paths []string) error {
	archive := s.ArchivePath(key)

	unlock, err := s.lock(ctx)
	if err != nil {
		return qterrors.NewCacheSaveError(string(BackendLocal), key, err)
	}
	defer unlock()

	if err := s.write(archive, paths); err != nil {
		return qterrors.NewCacheSaveError(string(BackendLocal), key, err)
	}

	slog.Debug("saved local cache entry", "key", key, "path", archive)
	return nil
}

func (s *LocalStore) write(archive string, paths []string) error {
	tmp, err := os.CreateTemp(s.dir, ".archive-*")
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name()) // Clean up on error

	if err := WriteArchive(tmp, paths); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp archive: %w", err)
	}

	// Drop the stale sidecar first so a crash never pairs a new archive with an old hash.
	_ = os.Remove(checksum.SidecarPath(archive))
	if err := os.Rename(tmp.Name(), archive); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	_, err = checksum.WriteSidecar(archive)
	return err
}

// lock blocks until the cache directory lock is held or ctx is done.
func (s *LocalStore) lock(ctx context.Context) (func(), error) {
	locked, err := s.fileLock.TryLockContext(ctx, lockRetryTick)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire cache lock: %w", err)
	}
	if !locked {
		return nil, errors.New("failed to acquire cache lock")
	}
	return func() {
		if err := s.fileLock.Unlock(); err != nil {
			slog.Warn("failed to release cache lock", "error", err)
		}
	}, nil
}

// Package locate finds the bin directory of an installed Qt tree.
package locate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/qtversion"
)

// Locator resolves <root>/<versionDir>/<compiler>/bin.
type Locator struct {
	readDir func(dir string) ([]fs.DirEntry, error)
	stat    func(name string) (fs.FileInfo, error)
}

// New creates a Locator backed by the OS filesystem.
func New() *Locator {
	return &Locator{readDir: os.ReadDir, stat: os.Stat}
}

// BinDir returns the bin directory for compiler under the first entry of root
// whose name starts with the major.minor of version. Entries are considered in
// lexical order.
func (l *Locator) BinDir(root, version, compiler string) (string, error) {
	versionDir, err := l.VersionDir(root, version)
	if err != nil {
		return "", err
	}

	binPath := filepath.Join(versionDir, compiler, "bin")
	info, err := l.stat(binPath)
	if err != nil || !info.IsDir() {
		siblings, _ := l.list(versionDir)
		return "", qterrors.NewBinPathNotFoundError(versionDir, binPath, siblings)
	}

	slog.Debug("located Qt bin directory", "path", binPath)
	return binPath, nil
}

// VersionDir returns the path of the installed version directory for version.
func (l *Locator) VersionDir(root, version string) (string, error) {
	prefix := qtversion.MajorMinor(version)

	entries, err := l.list(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read Qt root %s: %w", root, err)
	}

	for _, name := range entries {
		if strings.HasPrefix(name, prefix) {
			slog.Debug("found Qt version directory", "root", root, "prefix", prefix, "dir", name)
			return filepath.Join(root, name), nil
		}
	}
	return "", qterrors.NewVersionDirectoryNotFoundError(root, prefix, entries)
}

func (l *Locator) list(dir string) ([]string, error) {
	entries, err := l.readDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
)

const defaultVolumesDir = "/Volumes"

var (
	volumeMarkers     = []string{"qt-unified-macOS", "qt-online-installer-macOS"}
	executableMarkers = []string{"qt-unified-macOS", "qt-online-installer"}
)

// mountDMG attaches the disk image and returns the Qt installer volume under
// volumesDir.
func mountDMG(ctx context.Context, runner command.Runner, dmgPath, volumesDir string) (string, error) {
	slog.Info("mounting installer image", "path", dmgPath)

	if err := runner.Run(ctx, "hdiutil", "attach", dmgPath, "-nobrowse"); err != nil {
		return "", fmt.Errorf("failed to attach disk image: %w", err)
	}

	volumes, err := listDir(volumesDir)
	if err != nil {
		return "", err
	}

	volume, ok := firstMatch(volumes, func(name string) bool { return containsAny(name, volumeMarkers) })
	if !ok {
		return "", qterrors.NewMountVolumeNotFoundError(volumesDir, volumes)
	}

	mountPath := filepath.Join(volumesDir, volume)
	slog.Info("installer image mounted", "mount", mountPath)
	return mountPath, nil
}

// findInstaller locates the installer executable inside the mounted volume.
func findInstaller(mountPath string) (string, error) {
	files, err := listDir(mountPath)
	if err != nil {
		return "", err
	}
	slog.Debug("mounted volume contents", "mount", mountPath, "files", files)

	app, ok := firstMatch(files, func(name string) bool { return strings.HasSuffix(name, ".app") })
	if !ok {
		return "", qterrors.NewAppBundleNotFoundError(mountPath, files)
	}

	binDir := filepath.Join(mountPath, app, "Contents", "MacOS")
	binaries, err := listDir(binDir)
	if err != nil {
		return "", qterrors.NewExecutableNotFoundError(binDir, nil)
	}
	slog.Debug("app bundle binaries", "dir", binDir, "files", binaries)

	executable, ok := firstMatch(binaries, func(name string) bool { return containsAny(name, executableMarkers) })
	if !ok {
		return "", qterrors.NewExecutableNotFoundError(binDir, binaries)
	}

	path := filepath.Join(binDir, executable)
	slog.Info("found installer executable", "path", path)
	return path, nil
}

// listDir returns entry names in lexical order.
func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func firstMatch(names []string, match func(string) bool) (string, bool) {
	for _, name := range names {
		if match(name) {
			return name, true
		}
	}
	return "", false
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

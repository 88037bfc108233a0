package platform

import (
	"context"
	"log/slog"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
)

type macOS struct {
	runner     command.Runner
	volumesDir string
}

var _ Unmounter = (*macOS)(nil)

func (m *macOS) Variant() Variant {
	return VariantMacOS
}

// InstallerConfig returns the x64 disk image, which also runs on Apple Silicon.
func (m *macOS) InstallerConfig() InstallerConfig {
	slog.Debug("detected macOS platform")
	return InstallerConfig{
		URL:        installerBaseURL + "qt-online-installer-mac-x64-online.dmg",
		NeedsMount: true,
	}
}

// SetupDependencies checks for the Xcode command line tools and requests
// their installation when missing. xcode-select --install only schedules the
// installation, so the tools may still be absent when this returns.
func (m *macOS) SetupDependencies(ctx context.Context) error {
	slog.Info("checking Xcode installation")

	if m.runner.Check(ctx, "xcode-select", "-p") {
		slog.Info("Xcode command line tools already installed")
		return nil
	}

	slog.Info("installing Xcode command line tools")
	if err := m.runner.Run(ctx, "xcode-select", "--install"); err != nil {
		return qterrors.NewDependencyInstallError("xcode-select", []string{"command line tools"}, err)
	}
	slog.Warn("Xcode command line tools installation was requested; it completes asynchronously")
	return nil
}

func (m *macOS) DefaultCompiler() string {
	return "macos"
}

func (m *macOS) PrepareInstaller(ctx context.Context, path string) (Prepared, error) {
	mountPath, err := mountDMG(ctx, m.runner, path, m.volumesDir)
	if err != nil {
		return Prepared{}, err
	}

	executable, err := findInstaller(mountPath)
	if err != nil {
		return Prepared{MountPath: mountPath}, err
	}
	return Prepared{ExecutablePath: executable, MountPath: mountPath}, nil
}

func (m *macOS) Unmount(ctx context.Context, mountPath string) error {
	slog.Info("unmounting installer image", "mount", mountPath)
	if err := m.runner.Run(ctx, "hdiutil", "detach", mountPath); err != nil {
		return qterrors.NewUnmountError(mountPath, err)
	}
	slog.Info("installer image unmounted")
	return nil
}

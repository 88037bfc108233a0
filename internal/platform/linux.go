package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
)

// LinuxPackages are the development libraries Qt needs on Debian-based runners.
var LinuxPackages = []string{
	"libfontconfig1-dev",
	"libfreetype-dev",
	"libgtk-3-dev",
	"libx11-dev",
	"libx11-xcb-dev",
	"libxcb-cursor-dev",
	"libxcb-glx0-dev",
	"libxcb-icccm4-dev",
	"libxcb-image0-dev",
	"libxcb-keysyms1-dev",
	"libxcb-randr0-dev",
	"libxcb-render-util0-dev",
	"libxcb-shape0-dev",
	"libxcb-shm0-dev",
	"libxcb-sync-dev",
	"libxcb-util-dev",
	"libxcb-xfixes0-dev",
	"libxcb-xkb-dev",
	"libxcb1-dev",
	"libxext-dev",
	"libxfixes-dev",
	"libxi-dev",
	"libxkbcommon-dev",
	"libxkbcommon-x11-dev",
	"libxrender-dev",
}

type linux struct {
	arch       string
	runner     command.Runner
	privileged bool
}

func (l *linux) Variant() Variant {
	if l.arch == ArchARM64 {
		return VariantLinuxARM64
	}
	return VariantLinuxX64
}

func (l *linux) InstallerConfig() InstallerConfig {
	slog.Debug("detected Linux platform", "arch", l.arch)
	arch := ArchX64
	if l.arch == ArchARM64 {
		arch = ArchARM64
	}
	return InstallerConfig{
		URL: installerBaseURL + "qt-online-installer-linux-" + arch + "-online.run",
	}
}

func (l *linux) SetupDependencies(ctx context.Context) error {
	slog.Info("installing Linux dependencies", "packages", len(LinuxPackages))

	if err := l.aptGet(ctx, "update"); err != nil {
		return qterrors.NewDependencyInstallError("apt-get", nil, err)
	}

	args := append([]string{"install", "-y"}, LinuxPackages...)
	if err := l.aptGet(ctx, args...); err != nil {
		return qterrors.NewDependencyInstallError("apt-get", LinuxPackages, err)
	}
	return nil
}

func (l *linux) aptGet(ctx context.Context, args ...string) error {
	if l.privileged {
		return l.runner.Run(ctx, "apt-get", args...)
	}
	return l.runner.Run(ctx, "sudo", append([]string{"apt-get"}, args...)...)
}

func (l *linux) DefaultCompiler() string {
	if l.arch == ArchARM64 {
		return "gcc_arm64"
	}
	return "gcc_64"
}

func (l *linux) PrepareInstaller(_ context.Context, path string) (Prepared, error) {
	if err := os.Chmod(path, 0755); err != nil {
		return Prepared{}, fmt.Errorf("failed to make installer executable: %w", err)
	}
	return Prepared{ExecutablePath: path}, nil
}

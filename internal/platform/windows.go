package platform

import (
	"context"
	"log/slog"
)

type windows struct {
	arch string
}

func (w *windows) Variant() Variant {
	if w.arch == ArchARM64 {
		return VariantWindowsARM64
	}
	return VariantWindowsX64
}

func (w *windows) InstallerConfig() InstallerConfig {
	slog.Debug("detected Windows platform", "arch", w.arch)
	arch := ArchX64
	if w.arch == ArchARM64 {
		arch = ArchARM64
	}
	return InstallerConfig{
		URL: installerBaseURL + "qt-online-installer-windows-" + arch + "-online.exe",
	}
}

// SetupDependencies only logs guidance; the MSVC toolchain comes from a
// separate workflow step.
func (w *windows) SetupDependencies(context.Context) error {
	slog.Info("Windows MSVC environment will be set up separately using TheMrMilchmann/setup-msvc-dev@v4")
	slog.Info("Please ensure you have added the setup-msvc-dev action before this action in your workflow")
	return nil
}

// DefaultCompiler is msvc2022_64 on every architecture.
// TODO: return msvc2022_arm64 for arm64 hosts once the online installer ships that package by default.
func (w *windows) DefaultCompiler() string {
	return "msvc2022_64"
}

func (w *windows) PrepareInstaller(_ context.Context, path string) (Prepared, error) {
	return Prepared{ExecutablePath: path}, nil
}

// Package platform selects and implements the per-OS installer strategy.
package platform

import (
	"context"
	"os"
	"runtime"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
)

// OS ids, following the Node.js process.platform convention.
const (
	OSWindows = "win32"
	OSDarwin  = "darwin"
	OSLinux   = "linux"
)

// Architecture ids, following the Node.js process.arch convention.
const (
	ArchX64   = "x64"
	ArchARM64 = "arm64"
	ArchIA32  = "ia32"
)

const installerBaseURL = "https://download.qt.io/official_releases/online_installers/"

// Host identifies the runner's operating system and CPU architecture.
type Host struct {
	OS   string
	Arch string
}

// Detect returns the Host the program is running on.
func Detect() Host {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

// FromGo converts Go's GOOS/GOARCH values to host ids. Values without a
// mapping pass through unchanged.
func FromGo(goos, goarch string) Host {
	h := Host{OS: goos, Arch: goarch}
	if goos == "windows" {
		h.OS = OSWindows
	}
	switch goarch {
	case "amd64":
		h.Arch = ArchX64
	case "386":
		h.Arch = ArchIA32
	}
	return h
}

func (h Host) String() string {
	return h.OS + "/" + h.Arch
}

// Variant names a concrete strategy.
type Variant string

const (
	VariantLinuxX64     Variant = "linux-x64"
	VariantLinuxARM64   Variant = "linux-arm64"
	VariantMacOS        Variant = "macos"
	VariantWindowsX64   Variant = "windows-x64"
	VariantWindowsARM64 Variant = "windows-arm64"
)

// InstallerConfig describes where to fetch the online installer.
type InstallerConfig struct {
	URL        string
	NeedsMount bool
}

// Prepared is an installer ready to execute. MountPath is set when the
// executable lives inside a mounted disk image.
type Prepared struct {
	ExecutablePath string
	MountPath      string
}

// Strategy bundles the platform specific steps of an installation.
type Strategy interface {
	// Variant reports which strategy this is.
	Variant() Variant

	// InstallerConfig returns the installer download metadata. It does no I/O.
	InstallerConfig() InstallerConfig

	// SetupDependencies installs or checks the OS prerequisites for Qt.
	SetupDependencies(ctx context.Context) error

	// DefaultCompiler returns the compiler id used when none is configured.
	DefaultCompiler() string

	// PrepareInstaller makes the downloaded file at path runnable.
	PrepareInstaller(ctx context.Context, path string) (Prepared, error)
}

// Unmounter is implemented by strategies whose installer must be detached
// after a successful run.
type Unmounter interface {
	Unmount(ctx context.Context, mountPath string) error
}

type options struct {
	volumesDir string
	privileged bool
}

// Option configures strategy construction.
type Option func(*options)

// WithVolumesDir overrides the directory disk images are mounted under.
func WithVolumesDir(dir string) Option {
	return func(o *options) {
		o.volumesDir = dir
	}
}

// WithPrivileged controls whether package manager commands skip sudo.
func WithPrivileged(privileged bool) Option {
	return func(o *options) {
		o.privileged = privileged
	}
}

// New selects the strategy for host. Commands are run through runner.
func New(host Host, runner command.Runner, opts ...Option) (Strategy, error) {
	o := options{
		volumesDir: defaultVolumesDir,
		privileged: os.Geteuid() == 0,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch host.OS {
	case OSWindows:
		return &windows{arch: host.Arch}, nil
	case OSDarwin:
		return &macOS{runner: runner, volumesDir: o.volumesDir}, nil
	case OSLinux:
		return &linux{arch: host.Arch, runner: runner, privileged: o.privileged}, nil
	default:
		return nil, qterrors.NewUnsupportedPlatformError(host.OS, host.Arch)
	}
}

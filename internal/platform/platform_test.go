package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

// fakeRunner records invocations instead of spawning processes.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	checks map[string]bool
	onRun  func(name string, args []string)
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	line := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.calls = append(r.calls, line)
	r.mu.Unlock()
	if r.onRun != nil {
		r.onRun(name, args)
	}
	for prefix, err := range r.fail {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}

func (r *fakeRunner) Check(_ context.Context, name string, args ...string) bool {
	line := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.calls = append(r.calls, "check: "+line)
	r.mu.Unlock()
	return r.checks[line]
}

func TestFromGo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos, goarch string
		want         Host
	}{
		{"windows", "amd64", Host{OS: OSWindows, Arch: ArchX64}},
		{"windows", "arm64", Host{OS: OSWindows, Arch: ArchARM64}},
		{"darwin", "arm64", Host{OS: OSDarwin, Arch: ArchARM64}},
		{"linux", "amd64", Host{OS: OSLinux, Arch: ArchX64}},
		{"linux", "386", Host{OS: OSLinux, Arch: ArchIA32}},
		{"freebsd", "riscv64", Host{OS: "freebsd", Arch: "riscv64"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FromGo(tt.goos, tt.goarch))
		})
	}

	assert.Equal(t, FromGo(runtime.GOOS, runtime.GOARCH), Detect())
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		host           Host
		wantVariant    Variant
		wantURL        string
		wantNeedsMount bool
		wantCompiler   string
	}{
		{
			name:         "linux x64",
			host:         Host{OS: OSLinux, Arch: ArchX64},
			wantVariant:  VariantLinuxX64,
			wantURL:      "https://download.qt.io/official_releases/online_installers/qt-online-installer-linux-x64-online.run",
			wantCompiler: "gcc_64",
		},
		{
			name:         "linux arm64",
			host:         Host{OS: OSLinux, Arch: ArchARM64},
			wantVariant:  VariantLinuxARM64,
			wantURL:      "https://download.qt.io/official_releases/online_installers/qt-online-installer-linux-arm64-online.run",
			wantCompiler: "gcc_arm64",
		},
		{
			name:         "linux unknown arch falls back to x64",
			host:         Host{OS: OSLinux, Arch: "s390x"},
			wantVariant:  VariantLinuxX64,
			wantURL:      "https://download.qt.io/official_releases/online_installers/qt-online-installer-linux-x64-online.run",
			wantCompiler: "gcc_64",
		},
		{
			name:           "macos",
			host:           Host{OS: OSDarwin, Arch: ArchARM64},
			wantVariant:    VariantMacOS,
			wantURL:        "https://download.qt.io/official_releases/online_installers/qt-online-installer-mac-x64-online.dmg",
			wantNeedsMount: true,
			wantCompiler:   "macos",
		},
		{
			name:         "windows x64",
			host:         Host{OS: OSWindows, Arch: ArchX64},
			wantVariant:  VariantWindowsX64,
			wantURL:      "https://download.qt.io/official_releases/online_installers/qt-online-installer-windows-x64-online.exe",
			wantCompiler: "msvc2022_64",
		},
		{
			name:         "windows arm64 keeps msvc2022_64",
			host:         Host{OS: OSWindows, Arch: ArchARM64},
			wantVariant:  VariantWindowsARM64,
			wantURL:      "https://download.qt.io/official_releases/online_installers/qt-online-installer-windows-arm64-online.exe",
			wantCompiler: "msvc2022_64",
		},
		{
			name:         "windows ia32 falls back to x64",
			host:         Host{OS: OSWindows, Arch: ArchIA32},
			wantVariant:  VariantWindowsX64,
			wantURL:      "https://download.qt.io/official_releases/online_installers/qt-online-installer-windows-x64-online.exe",
			wantCompiler: "msvc2022_64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.host, &fakeRunner{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantVariant, s.Variant())
			assert.Equal(t, InstallerConfig{URL: tt.wantURL, NeedsMount: tt.wantNeedsMount}, s.InstallerConfig())
			assert.Equal(t, tt.wantCompiler, s.DefaultCompiler())

			_, isUnmounter := s.(Unmounter)
			assert.Equal(t, tt.wantNeedsMount, isUnmounter)
		})
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	for _, osID := range []string{"freebsd", "aix", "sunos", ""} {
		_, err := New(Host{OS: osID, Arch: ArchX64}, &fakeRunner{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, qterrors.ErrUnsupportedPlatform))

		var platErr *qterrors.PlatformError
		require.True(t, errors.As(err, &platErr))
		assert.Equal(t, osID, platErr.OS)
	}
}

func TestLinux_SetupDependencies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("uses sudo when unprivileged", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{}
		s, err := New(Host{OS: OSLinux, Arch: ArchX64}, r, WithPrivileged(false))
		require.NoError(t, err)

		require.NoError(t, s.SetupDependencies(ctx))
		require.Len(t, r.calls, 2)
		assert.Equal(t, "sudo apt-get update", r.calls[0])
		assert.Equal(t, "sudo apt-get install -y "+strings.Join(LinuxPackages, " "), r.calls[1])
	})

	t.Run("runs apt-get directly as root", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{}
		s, err := New(Host{OS: OSLinux, Arch: ArchARM64}, r, WithPrivileged(true))
		require.NoError(t, err)

		require.NoError(t, s.SetupDependencies(ctx))
		assert.Equal(t, "apt-get update", r.calls[0])
		assert.True(t, strings.HasPrefix(r.calls[1], "apt-get install -y libfontconfig1-dev"))
	})

	t.Run("install failure", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{fail: map[string]error{"sudo apt-get install": errors.New("exit status 100")}}
		s, err := New(Host{OS: OSLinux, Arch: ArchX64}, r, WithPrivileged(false))
		require.NoError(t, err)

		err = s.SetupDependencies(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, qterrors.ErrDependencyInstall))

		var depErr *qterrors.DependencyError
		require.True(t, errors.As(err, &depErr))
		assert.Equal(t, "apt-get", depErr.Manager)
		assert.Len(t, depErr.Packages, 25)
	})
}

func TestLinux_PrepareInstaller(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on Windows")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "installer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0644))

	s, err := New(Host{OS: OSLinux, Arch: ArchX64}, &fakeRunner{})
	require.NoError(t, err)

	prepared, err := s.PrepareInstaller(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Prepared{ExecutablePath: path}, prepared)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	_, err = s.PrepareInstaller(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestWindows(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	s, err := New(Host{OS: OSWindows, Arch: ArchX64}, r)
	require.NoError(t, err)

	require.NoError(t, s.SetupDependencies(context.Background()))
	assert.Empty(t, r.calls)

	prepared, err := s.PrepareInstaller(context.Background(), `C:\temp\installer.exe`)
	require.NoError(t, err)
	assert.Equal(t, Prepared{ExecutablePath: `C:\temp\installer.exe`}, prepared)
}

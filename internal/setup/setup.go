// Package setup drives a Qt installation from inputs to an exported PATH.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/akshaybabloo/actions-setup-qt/internal/cache"
	"github.com/akshaybabloo/actions-setup-qt/internal/checksum"
	"github.com/akshaybabloo/actions-setup-qt/internal/config"
	"github.com/akshaybabloo/actions-setup-qt/internal/env"
	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/download"
	qtpath "github.com/akshaybabloo/actions-setup-qt/internal/path"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
	"github.com/akshaybabloo/actions-setup-qt/internal/qtversion"
)

// Step output names.
const (
	OutputCacheHit  = "cache-hit"
	OutputCacheKey  = "cache-key"
	OutputQtRoot    = "qt-root"
	OutputQtBinPath = "qt-bin-path"
)

// restoreSuffix names the staging directory a cache entry is restored into.
const restoreSuffix = ".restore"

// Locator finds the bin directory of an installation.
type Locator interface {
	BinDir(root, version, compiler string) (string, error)
}

// Progress receives download progress.
type Progress interface {
	Start(name string)
	Callback() download.ProgressCallback
	Done()
	Abort(err error)
}

// OutputLog captures the installer's output for post-mortem inspection.
type OutputLog interface {
	Start(step, version string)
	Complete()
	Fail(err error) (string, error)
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Host       platform.Host
	Strategy   platform.Strategy
	Runner     command.Runner
	Downloader download.Downloader
	Cache      cache.Store
	Locator    Locator
	Exporter   env.Exporter

	// QtRoot is the directory the installer installs into.
	QtRoot string

	// Optional.
	Progress  Progress
	OutputLog OutputLog
	Now       func() time.Time
}

// Orchestrator runs the setup state machine:
//
//	select platform -> derive compiler -> build key -> restore cache
//	  hit:  export PATH
//	  miss: deps -> download -> prepare -> run installer -> [unmount]
//	        -> save cache -> export PATH
type Orchestrator struct {
	deps Deps
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopStore()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps}
}

// Result reports what a run did.
type Result struct {
	Spec     qtversion.Spec
	Compiler string
	CacheKey string
	CacheHit bool
	QtRoot   string
	BinPath  string
	Backend  cache.Backend
}

// ResolveCompiler applies the compiler precedence: explicit input, then the
// hint embedded in the version string, then the platform default.
func ResolveCompiler(explicit string, spec qtversion.Spec, strategy platform.Strategy) string {
	if explicit != "" {
		return explicit
	}
	if spec.HasCompiler() {
		return spec.Compiler
	}
	return strategy.DefaultCompiler()
}

// InstallerArgs returns the unattended install arguments for the vendor CLI.
func InstallerArgs(rawVersion, username, password, qtRoot string) []string {
	return []string{
		"install", rawVersion,
		"--email", username,
		"--password", password,
		"--root", qtRoot,
		"--accept-licenses",
		"--accept-obligations",
		"--default-answer",
		"--confirm-command",
		"--auto-answer", "telemetry-question=No",
	}
}

// Run installs or restores Qt per in and exports its bin directory.
func (o *Orchestrator) Run(ctx context.Context, in config.Inputs) (*Result, error) {
	d := o.deps
	spec := qtversion.Parse(in.Version)
	compiler := ResolveCompiler(in.Compiler, spec, d.Strategy)
	key := cache.Key(spec.Raw, compiler, d.Host.OS, d.Host.Arch)

	slog.Info("setting up Qt", "version", spec.Raw, "compiler", compiler, "host", d.Host.String(), "variant", d.Strategy.Variant())
	slog.Info("cache key", "key", key)
	if _, err := spec.Semver(); err != nil {
		slog.Warn("version is not a full Qt release number; the install directory is matched by prefix",
			"version", spec.Version, "prefix", spec.MajorMinor())
	}

	res := &Result{
		Spec:     spec,
		Compiler: compiler,
		CacheKey: key,
		QtRoot:   d.QtRoot,
		Backend:  d.Cache.Backend(),
	}
	if !in.EnableCache {
		res.Backend = cache.BackendNone
	}

	if in.EnableCache {
		res.CacheHit = o.restore(ctx, key)
	}

	if res.CacheHit {
		slog.Info("Qt installation restored from cache")
		o.checkRecord(key)
	} else {
		slog.Info("Qt installation not found in cache, proceeding with installation")
		if err := o.install(ctx, in, spec); err != nil {
			return nil, err
		}
		o.writeRecord(res)
		if in.EnableCache {
			o.save(ctx, key)
		}
	}

	bin, err := d.Locator.BinDir(d.QtRoot, spec.Version, compiler)
	if err != nil {
		return nil, err
	}
	res.BinPath = bin

	if err := o.export(res); err != nil {
		return nil, err
	}

	slog.Info("Qt setup completed successfully")
	return res, nil
}

// restore reports a hit only when the store restored the tree. The store
// writes into a staging directory beside QtRoot, which is moved into place
// only after a complete restore. Errors are logged and treated as a miss.
func (o *Orchestrator) restore(ctx context.Context, key string) bool {
	staging := o.deps.QtRoot + restoreSuffix
	if err := os.RemoveAll(staging); err != nil {
		slog.Warn("failed to clear cache staging directory, reinstalling", "path", staging, "error", err)
		return false
	}
	defer os.RemoveAll(staging)

	hit, err := o.deps.Cache.Restore(ctx, key, []string{staging})
	if err != nil {
		slog.Warn("failed to restore Qt from cache, reinstalling", "key", key, "error", err)
		return false
	}
	if !hit {
		return false
	}

	if err := promote(staging, o.deps.QtRoot); err != nil {
		slog.Warn("failed to move restored Qt into place, reinstalling", "path", o.deps.QtRoot, "error", err)
		return false
	}
	return true
}

// promote moves the top-level entries of staging into root, replacing
// entries of the same name.
func promote(staging, root string) error {
	entries, err := os.ReadDir(staging)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	for _, e := range entries {
		dst := filepath.Join(root, e.Name())
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(staging, e.Name()), dst); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) save(ctx context.Context, key string) {
	slog.Info("saving Qt installation to cache", "backend", o.deps.Cache.Backend())
	if err := o.deps.Cache.Save(ctx, key, []string{o.deps.QtRoot}); err != nil {
		slog.Error("failed to cache Qt installation", "key", key, "error", err)
		return
	}
	slog.Info("Qt installation cached successfully")
}

func (o *Orchestrator) install(ctx context.Context, in config.Inputs, spec qtversion.Spec) error {
	d := o.deps

	if d.Host.OS == platform.OSLinux || in.InstallDeps {
		if err := d.Strategy.SetupDependencies(ctx); err != nil {
			return err
		}
	}

	installerPath, err := o.download(ctx, d.Strategy.InstallerConfig(), in.InstallerChecksum)
	if err != nil {
		return err
	}

	prepared, err := d.Strategy.PrepareInstaller(ctx, installerPath)
	if err != nil {
		return err
	}

	if err := o.runInstaller(ctx, prepared.ExecutablePath, in, spec); err != nil {
		return err
	}

	if u, ok := d.Strategy.(platform.Unmounter); ok && prepared.MountPath != "" {
		if err := u.Unmount(ctx, prepared.MountPath); err != nil {
			slog.Warn("failed to unmount installer image", "mount", prepared.MountPath, "error", err)
		}
	}
	return nil
}

func (o *Orchestrator) download(ctx context.Context, cfg platform.InstallerConfig, expected string) (string, error) {
	d := o.deps
	slog.Info("downloading Qt installer", "url", cfg.URL)

	if d.Progress != nil {
		d.Progress.Start(filepath.Base(cfg.URL))
		ctx = download.WithProgress(ctx, d.Progress.Callback())
	}

	path, err := d.Downloader.Download(ctx, cfg.URL)
	if err != nil {
		if d.Progress != nil {
			d.Progress.Abort(err)
		}
		return "", err
	}
	if d.Progress != nil {
		d.Progress.Done()
	}
	slog.Debug("installer downloaded", "path", path)

	if expected != "" {
		algorithm, digest, err := checksum.Parse(expected)
		if err != nil {
			return "", err
		}
		if err := checksum.Verify(path, algorithm, digest); err != nil {
			var csErr *qterrors.ChecksumError
			if errors.As(err, &csErr) {
				csErr.Base.Hint = "The downloaded installer does not match installer-checksum."
			}
			return "", err
		}
		slog.Info("installer checksum verified", "checksum", checksum.String(algorithm, digest))
	}

	if d.Host.OS == platform.OSWindows {
		exe := path + ".exe"
		slog.Debug("renaming installer", "path", exe)
		if err := os.Rename(path, exe); err != nil {
			return "", fmt.Errorf("failed to rename installer: %w", err)
		}
		path = exe
	}
	return path, nil
}

func (o *Orchestrator) runInstaller(ctx context.Context, executable string, in config.Inputs, spec qtversion.Spec) error {
	d := o.deps
	slog.Info("running Qt installer", "root", d.QtRoot)

	if d.OutputLog != nil {
		d.OutputLog.Start("installer", spec.Raw)
	}

	args := InstallerArgs(spec.Raw, in.Username, in.Password, d.QtRoot)
	if err := d.Runner.Run(ctx, executable, args...); err != nil {
		installErr := qterrors.NewInstallerExecutionError(executable, spec.Raw, command.ExitCode(err), err)
		if d.OutputLog != nil {
			if logPath, lerr := d.OutputLog.Fail(installErr); lerr != nil {
				slog.Warn("failed to persist installer log", "error", lerr)
			} else if logPath != "" {
				slog.Info("installer log saved", "path", logPath)
			}
		}
		return installErr
	}

	if d.OutputLog != nil {
		d.OutputLog.Complete()
	}
	slog.Info("Qt installation completed successfully")
	return nil
}

func (o *Orchestrator) writeRecord(res *Result) {
	r := Record{
		Version:     res.Spec.Version,
		RawVersion:  res.Spec.Raw,
		Compiler:    res.Compiler,
		Host:        o.deps.Host.String(),
		CacheKey:    res.CacheKey,
		InstalledAt: o.deps.Now().UTC(),
	}
	if err := WriteRecord(o.recordPath(), r); err != nil {
		slog.Warn("failed to write install record", "error", err)
	}
}

func (o *Orchestrator) checkRecord(key string) {
	r, ok, err := ReadRecord(o.recordPath())
	switch {
	case err != nil:
		slog.Warn("failed to read install record", "error", err)
	case !ok:
		slog.Debug("restored tree has no install record")
	case r.CacheKey != key:
		slog.Warn("restored installation was recorded under a different key", "recorded", r.CacheKey, "key", key)
	default:
		slog.Info("restored installation", "version", r.Version, "compiler", r.Compiler, "installedAt", r.InstalledAt)
	}
}

func (o *Orchestrator) recordPath() string {
	return filepath.Join(o.deps.QtRoot, qtpath.RecordFileName)
}

func (o *Orchestrator) export(res *Result) error {
	d := o.deps
	slog.Info("adding Qt to PATH", "path", res.BinPath)
	if err := d.Exporter.AddPath(res.BinPath); err != nil {
		return err
	}

	outputs := []struct{ name, value string }{
		{OutputCacheHit, fmt.Sprint(res.CacheHit)},
		{OutputCacheKey, res.CacheKey},
		{OutputQtRoot, res.QtRoot},
		{OutputQtBinPath, res.BinPath},
	}
	for _, out := range outputs {
		if err := d.Exporter.SetOutput(out.name, out.value); err != nil {
			return fmt.Errorf("failed to set output %s: %w", out.name, err)
		}
	}
	return nil
}

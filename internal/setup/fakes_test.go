package setup_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akshaybabloo/actions-setup-qt/internal/cache"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/download"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	onRun func(name string, args []string)
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	line := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.calls = append(r.calls, line)
	r.mu.Unlock()
	for prefix, err := range r.fail {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	if r.onRun != nil {
		r.onRun(name, args)
	}
	return nil
}

func (r *fakeRunner) Check(context.Context, string, ...string) bool {
	return true
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeDownloader struct {
	dir   string
	urls  []string
	err   error
	total int64
}

func (d *fakeDownloader) Download(ctx context.Context, url string) (string, error) {
	d.urls = append(d.urls, url)
	if d.err != nil {
		return "", d.err
	}
	if cb := download.ProgressFromContext(ctx); cb != nil {
		cb(d.total, d.total)
	}
	path := filepath.Join(d.dir, "installer-download")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeCache struct {
	hit        bool
	restoreErr error
	saveErr    error
	onRestore  func(paths []string)
	paths      []string
	restored   []string
	saved      []string
}

func (c *fakeCache) Restore(_ context.Context, key string, paths []string) (bool, error) {
	c.restored = append(c.restored, key)
	c.paths = paths
	if c.restoreErr != nil {
		if c.onRestore != nil {
			c.onRestore(paths)
		}
		return false, c.restoreErr
	}
	if c.hit && c.onRestore != nil {
		c.onRestore(paths)
	}
	return c.hit, nil
}

func (c *fakeCache) Save(_ context.Context, key string, _ []string) error {
	c.saved = append(c.saved, key)
	return c.saveErr
}

func (c *fakeCache) Backend() cache.Backend { return cache.BackendLocal }

type fakeExporter struct {
	paths   []string
	outputs map[string]string
}

func (e *fakeExporter) AddPath(dir string) error {
	e.paths = append(e.paths, dir)
	return nil
}

func (e *fakeExporter) SetOutput(name, value string) error {
	if e.outputs == nil {
		e.outputs = map[string]string{}
	}
	e.outputs[name] = value
	return nil
}

type fakeProgress struct {
	started []string
	done    int
	aborted []error
	seen    int64
}

func (p *fakeProgress) Start(name string) { p.started = append(p.started, name) }
func (p *fakeProgress) Done()             { p.done++ }
func (p *fakeProgress) Abort(err error)   { p.aborted = append(p.aborted, err) }
func (p *fakeProgress) Callback() download.ProgressCallback {
	return func(downloaded, _ int64) { p.seen = downloaded }
}

type fakeOutputLog struct {
	started   []string
	completed int
	failed    []error
}

func (l *fakeOutputLog) Start(step, _ string) { l.started = append(l.started, step) }
func (l *fakeOutputLog) Complete()            { l.completed++ }
func (l *fakeOutputLog) Fail(err error) (string, error) {
	l.failed = append(l.failed, err)
	return "", nil
}

// mountStrategy is a macOS-like strategy whose installer lives in an image.
type mountStrategy struct {
	mountPath  string
	unmounted  []string
	unmountErr error
	deps       int
}

func (s *mountStrategy) Variant() platform.Variant { return platform.VariantMacOS }
func (s *mountStrategy) InstallerConfig() platform.InstallerConfig {
	return platform.InstallerConfig{URL: "https://example.test/qt-online-installer-mac-x64-online.dmg", NeedsMount: true}
}
func (s *mountStrategy) SetupDependencies(context.Context) error {
	s.deps++
	return nil
}
func (s *mountStrategy) DefaultCompiler() string { return "macos" }
func (s *mountStrategy) PrepareInstaller(context.Context, string) (platform.Prepared, error) {
	return platform.Prepared{
		ExecutablePath: filepath.Join(s.mountPath, "Qt.app", "Contents", "MacOS", "qt-online-installer-macOS"),
		MountPath:      s.mountPath,
	}, nil
}
func (s *mountStrategy) Unmount(_ context.Context, mountPath string) error {
	s.unmounted = append(s.unmounted, mountPath)
	return s.unmountErr
}

// makeBin creates <root>/<version>/<compiler>/bin.
func makeBin(root, version, compiler string) {
	if err := os.MkdirAll(filepath.Join(root, version, compiler, "bin"), 0755); err != nil {
		panic(err)
	}
}

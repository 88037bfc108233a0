package path

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// ToolkitDirName is the directory under the home directory the installer targets.
const ToolkitDirName = "Qt"

// RecordFileName is the install record written into the Qt root.
const RecordFileName = ".setup-qt.yaml"

const (
	cacheSubdir            = "setup-qt"
	defaultUserCacheSuffix = ".cache/setup-qt"
)

// Paths holds the directories a setup run reads and writes.
type Paths struct {
	home     string
	qtRoot   string
	tempDir  string
	cacheDir string
	getenv   func(string) string
}

// Option is a functional option for configuring Paths.
type Option func(*Paths)

// WithHome sets the home directory instead of detecting it.
func WithHome(dir string) Option {
	return func(p *Paths) {
		p.home = dir
	}
}

// WithQtRoot sets a custom Qt installation root.
func WithQtRoot(dir string) Option {
	return func(p *Paths) {
		p.qtRoot = dir
	}
}

// WithCacheDir sets a custom local cache directory.
func WithCacheDir(dir string) Option {
	return func(p *Paths) {
		p.cacheDir = dir
	}
}

// WithTempDir sets a custom download directory.
func WithTempDir(dir string) Option {
	return func(p *Paths) {
		p.tempDir = dir
	}
}

// WithGetenv sets the environment lookup, for tests.
func WithGetenv(getenv func(string) string) Option {
	return func(p *Paths) {
		p.getenv = getenv
	}
}

// New creates Paths. Defaults follow the GitHub hosted runner layout:
// downloads go to $RUNNER_TEMP and the local cache to $RUNNER_TOOL_CACHE,
// falling back to the OS temp dir and ~/.cache/setup-qt.
func New(opts ...Option) (*Paths, error) {
	p := &Paths{getenv: os.Getenv}
	for _, opt := range opts {
		opt(p)
	}

	if p.home == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		p.home = home
	}

	if p.qtRoot == "" {
		p.qtRoot = filepath.Join(p.home, ToolkitDirName)
	}

	if p.tempDir == "" {
		p.tempDir = p.getenv("RUNNER_TEMP")
		if p.tempDir == "" {
			p.tempDir = os.TempDir()
		}
	}

	if p.cacheDir == "" {
		if toolCache := p.getenv("RUNNER_TOOL_CACHE"); toolCache != "" {
			p.cacheDir = filepath.Join(toolCache, cacheSubdir)
		} else {
			p.cacheDir = filepath.Join(p.home, defaultUserCacheSuffix)
		}
	}

	return p, nil
}

// Home returns the home directory.
func (p *Paths) Home() string {
	return p.home
}

// QtRoot returns the installation root passed to the installer.
// Returns <home>/Qt by default.
func (p *Paths) QtRoot() string {
	return p.qtRoot
}

// TempDir returns the directory installers are downloaded into.
func (p *Paths) TempDir() string {
	return p.tempDir
}

// CacheDir returns the local cache store directory.
func (p *Paths) CacheDir() string {
	return p.cacheDir
}

// RecordFile returns the path to the install record.
// Returns <qtRoot>/.setup-qt.yaml
func (p *Paths) RecordFile() string {
	return filepath.Join(p.qtRoot, RecordFileName)
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Expand expands a leading ~ to the home directory.
func Expand(path string) (string, error) {
	return homedir.Expand(path)
}

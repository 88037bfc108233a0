package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/sethvargo/go-githubactions"
	"github.com/spf13/cobra"

	"github.com/akshaybabloo/actions-setup-qt/internal/cache"
	"github.com/akshaybabloo/actions-setup-qt/internal/config"
	"github.com/akshaybabloo/actions-setup-qt/internal/env"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/download"
	"github.com/akshaybabloo/actions-setup-qt/internal/locate"
	qtlog "github.com/akshaybabloo/actions-setup-qt/internal/log"
	qtpath "github.com/akshaybabloo/actions-setup-qt/internal/path"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
	"github.com/akshaybabloo/actions-setup-qt/internal/setup"
	"github.com/akshaybabloo/actions-setup-qt/internal/ui"
)

const (
	outputJSON = "json"

	// logSessionsKept bounds the installer log sessions kept in the temp dir.
	logSessionsKept = 5
)

// rootConfig holds the flags of the root command. Input flags only override
// lower layers when set explicitly.
type rootConfig struct {
	configFile  string
	shell       string
	noColor     bool
	errorFormat string

	username          string
	password          string
	version           string
	compiler          string
	installDeps       bool
	installerChecksum string
	enableCache       bool
	cacheBackend      string
	cacheDir          string
	cacheRepository   string
	logLevel          string
}

var rootCfg rootConfig

var rootCmd = &cobra.Command{
	Use:   "setup-qt",
	Short: "Install Qt with the official online installer",
	Long: `setup-qt installs Qt on a CI runner with the official Qt online installer,
caches the installation between runs, and puts its bin directory on PATH.

Inside GitHub Actions, inputs are read from INPUT_* variables and the result
is exported through $GITHUB_PATH, $GITHUB_ENV and $GITHUB_OUTPUT. Elsewhere,
shell statements are printed on stdout:

  eval "$(setup-qt --username me@example.com --password "$QT_PASSWORD")"

Configuration layers, lowest precedence first: built-in defaults, the CUE
file given by --config, action inputs, command-line flags.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSetup,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&rootCfg.configFile, "config", "c", "", "CUE config file with an inputs block")
	f.StringVar(&rootCfg.shell, "shell", "posix", "Shell syntax for exported variables outside Actions (posix, fish, pwsh)")
	f.BoolVar(&rootCfg.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&rootCfg.errorFormat, "error-format", "text", "Error output format outside Actions (text, json)")

	f.StringVar(&rootCfg.username, config.InputUsername, "", "Qt account email")
	f.StringVar(&rootCfg.password, config.InputPassword, "", "Qt account password")
	f.StringVar(&rootCfg.version, config.InputVersion, config.DefaultVersion, "Qt package to install")
	f.StringVar(&rootCfg.compiler, config.InputCompiler, "", "Compiler directory to put on PATH (default: from version or platform)")
	f.BoolVar(&rootCfg.installDeps, config.InputInstallDeps, false, "Install OS dependencies on Windows and macOS (always on Linux)")
	f.StringVar(&rootCfg.installerChecksum, config.InputInstallerChecksum, "", "Expected installer digest as sha256:<hex> or sha512:<hex>")
	f.BoolVar(&rootCfg.enableCache, config.InputEnableCache, true, "Restore and save the installation from the cache")
	f.StringVar(&rootCfg.cacheBackend, config.InputCacheBackend, string(cache.BackendLocal), "Cache backend (local, oci, none)")
	f.StringVar(&rootCfg.cacheDir, config.InputCacheDir, "", "Directory of the local cache backend")
	f.StringVar(&rootCfg.cacheRepository, config.InputCacheRepository, "", "OCI repository of the oci cache backend")
	f.StringVar(&rootCfg.logLevel, config.InputLogLevel, "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		versionCmd,
		cacheKeyCmd,
		locateCmd,
		configCmd,
	)
}

// flagValues returns the input flags the user set explicitly.
func flagValues(cmd *cobra.Command) map[string]string {
	all := map[string]string{
		config.InputUsername:          rootCfg.username,
		config.InputPassword:          rootCfg.password,
		config.InputVersion:           rootCfg.version,
		config.InputCompiler:          rootCfg.compiler,
		config.InputInstallDeps:       strconv.FormatBool(rootCfg.installDeps),
		config.InputInstallerChecksum: rootCfg.installerChecksum,
		config.InputEnableCache:       strconv.FormatBool(rootCfg.enableCache),
		config.InputCacheBackend:      rootCfg.cacheBackend,
		config.InputCacheDir:          rootCfg.cacheDir,
		config.InputCacheRepository:   rootCfg.cacheRepository,
		config.InputLogLevel:          rootCfg.logLevel,
	}

	values := make(map[string]string)
	for name, v := range all {
		if cmd.Flags().Changed(name) {
			values[name] = v
		}
	}
	return values
}

// resolveInputs layers the config file, action inputs and flags.
func resolveInputs(cmd *cobra.Command, action *githubactions.Action, host platform.Host, inActions bool) (config.Inputs, error) {
	var sources []config.Source

	if rootCfg.configFile != "" {
		file, err := qtpath.Expand(rootCfg.configFile)
		if err != nil {
			return config.Inputs{}, fmt.Errorf("failed to expand config path: %w", err)
		}
		values, err := config.NewLoader(config.Env{OS: host.OS, Arch: host.Arch}).LoadFile(file)
		if err != nil {
			return config.Inputs{}, err
		}
		sources = append(sources, config.Source{Name: file, Values: values})
	}
	if inActions {
		sources = append(sources, config.Source{Name: "action inputs", Values: config.FromActions(action)})
	}
	sources = append(sources, config.Source{Name: "flags", Values: flagValues(cmd)})

	return config.Resolve(sources...)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	if rootCfg.noColor {
		color.NoColor = true
	}

	ctx := cmd.Context()
	started := time.Now()
	inActions := qtlog.InActions()
	action := githubactions.New()
	host := platform.Detect()

	in, err := resolveInputs(cmd, action, host, inActions)
	if err != nil {
		return err
	}
	if inActions {
		action.AddMask(in.Password)
	}

	level, _ := config.ParseLevel(in.LogLevel)
	logOut := io.Writer(os.Stderr)
	if inActions {
		logOut = os.Stdout
	}
	slog.SetDefault(slog.New(qtlog.NewHandler(logOut, level, inActions)))
	slog.Debug("resolved inputs", "inputs", in.String())

	paths, err := newPaths(in)
	if err != nil {
		return err
	}

	logs := qtlog.NewStore(filepath.Join(paths.TempDir(), "setup-qt-logs"))
	defer logs.Close()
	if err := logs.Cleanup(logSessionsKept); err != nil {
		slog.Debug("failed to clean up old installer logs", "error", err)
	}

	if err := qtpath.EnsureDir(paths.TempDir()); err != nil {
		return err
	}
	executor := command.NewExecutor(
		command.WithWorkDir(paths.TempDir()),
		command.WithRedacted(in.Password),
		command.WithOutput(func(line string) {
			fmt.Fprintln(logOut, line)
			logs.Record(line)
		}),
	)

	strategy, err := platform.New(host, executor)
	if err != nil {
		return err
	}

	store, err := newCacheStore(in, paths)
	if err != nil {
		return err
	}

	exporter, err := newExporter(cmd.OutOrStdout(), action, inActions)
	if err != nil {
		return err
	}

	orch := setup.New(setup.Deps{
		Host:       host,
		Strategy:   strategy,
		Runner:     executor,
		Downloader: download.NewDownloader(paths.TempDir()),
		Cache:      store,
		Locator:    locate.New(),
		Exporter:   exporter,
		QtRoot:     paths.QtRoot(),
		Progress:   ui.NewDownloadProgress(os.Stderr, ui.IsTerminal(os.Stderr)),
		OutputLog:  logs,
	})

	res, err := orch.Run(ctx, in)
	if err != nil {
		return err
	}

	ui.PrintSummary(logOut, ui.Summary{
		Version:      res.Spec.Version,
		Compiler:     res.Compiler,
		Host:         host.String(),
		QtRoot:       res.QtRoot,
		BinPath:      res.BinPath,
		CacheKey:     res.CacheKey,
		CacheBackend: string(res.Backend),
		CacheHit:     res.CacheHit,
		Duration:     time.Since(started),
	})
	return nil
}

func newPaths(in config.Inputs) (*qtpath.Paths, error) {
	var opts []qtpath.Option
	if in.CacheDir != "" {
		dir, err := qtpath.Expand(in.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to expand cache dir: %w", err)
		}
		opts = append(opts, qtpath.WithCacheDir(dir))
	}
	paths, err := qtpath.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize paths: %w", err)
	}
	return paths, nil
}

// newCacheStore returns the store selected by the inputs.
func newCacheStore(in config.Inputs, paths *qtpath.Paths) (cache.Store, error) {
	if !in.EnableCache {
		return cache.NewNoopStore(), nil
	}

	backend, err := cache.ParseBackend(in.CacheBackend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case cache.BackendOCI:
		store, err := cache.NewOCIStore(in.CacheRepository, paths.TempDir(), ociCredentials(in.CacheRepository, os.Getenv)...)
		if err != nil {
			return nil, err
		}
		slog.Debug("using remote cache", "registry", store.Registry())
		return store, nil
	case cache.BackendNone:
		return cache.NewNoopStore(), nil
	default:
		return cache.NewLocalStore(paths.CacheDir())
	}
}

// ociCredentials authenticates ghcr.io with the job token when one is set.
// Other registries use the docker keychain.
func ociCredentials(repository string, getenv func(string) string) []cache.OCIOption {
	token := getenv("GITHUB_TOKEN")
	if token == "" {
		return nil
	}
	repo, err := name.NewRepository(repository)
	if err != nil || repo.RegistryStr() != "ghcr.io" {
		return nil
	}
	user := getenv("GITHUB_ACTOR")
	if user == "" {
		user = "github-actions"
	}
	return []cache.OCIOption{cache.WithAuthenticator(&authn.Basic{Username: user, Password: token})}
}

func newExporter(w io.Writer, action *githubactions.Action, inActions bool) (env.Exporter, error) {
	if inActions {
		return env.NewActionsExporter(action, nil, nil), nil
	}
	shell, err := env.ParseShellType(rootCfg.shell)
	if err != nil {
		return nil, err
	}
	return env.NewShellExporter(w, shell), nil
}

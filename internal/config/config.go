package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/akshaybabloo/actions-setup-qt/internal/checksum"
	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

// DefaultVersion is installed when no version is configured.
const DefaultVersion = "qt6.10.0-full-dev"

// Input names, shared by action inputs, config files and CLI flags.
const (
	InputUsername          = "username"
	InputPassword          = "password"
	InputVersion           = "version"
	InputCompiler          = "compiler"
	InputInstallDeps       = "install-deps"
	InputInstallerChecksum = "installer-checksum"
	InputEnableCache       = "enable-cache"
	InputCacheBackend      = "cache-backend"
	InputCacheDir          = "cache-dir"
	InputCacheRepository   = "cache-repository"
	InputLogLevel          = "log-level"
)

// InputNames lists every recognized input.
var InputNames = []string{
	InputUsername,
	InputPassword,
	InputVersion,
	InputCompiler,
	InputInstallDeps,
	InputInstallerChecksum,
	InputEnableCache,
	InputCacheBackend,
	InputCacheDir,
	InputCacheRepository,
	InputLogLevel,
}

// Inputs is the resolved configuration of a setup run.
type Inputs struct {
	Username          string `json:"username"`
	Password          string `json:"-"`
	Version           string `json:"version"`
	Compiler          string `json:"compiler,omitempty"`
	InstallDeps       bool   `json:"install-deps"`
	InstallerChecksum string `json:"installer-checksum,omitempty"`
	EnableCache       bool   `json:"enable-cache"`
	CacheBackend      string `json:"cache-backend"`
	CacheDir          string `json:"cache-dir,omitempty"`
	CacheRepository   string `json:"cache-repository,omitempty"`
	LogLevel          string `json:"log-level"`
}

// Defaults returns the built-in configuration.
func Defaults() Inputs {
	return Inputs{
		Version:      DefaultVersion,
		EnableCache:  true,
		CacheBackend: "local",
		LogLevel:     "info",
	}
}

// Set assigns the input called name from its string form.
func (in *Inputs) Set(name, value string) error {
	switch name {
	case InputUsername:
		in.Username = value
	case InputPassword:
		in.Password = value
	case InputVersion:
		in.Version = value
	case InputCompiler:
		in.Compiler = value
	case InputInstallDeps:
		b, err := ParseBool(name, value)
		if err != nil {
			return err
		}
		in.InstallDeps = b
	case InputInstallerChecksum:
		in.InstallerChecksum = strings.ToLower(value)
	case InputEnableCache:
		b, err := ParseBool(name, value)
		if err != nil {
			return err
		}
		in.EnableCache = b
	case InputCacheBackend:
		in.CacheBackend = strings.ToLower(value)
	case InputCacheDir:
		in.CacheDir = value
	case InputCacheRepository:
		in.CacheRepository = value
	case InputLogLevel:
		in.LogLevel = strings.ToLower(value)
	default:
		return qterrors.NewValidationError("input", "one of "+strings.Join(InputNames, ", "), name)
	}
	return nil
}

// Merge applies values on top of in. Empty values are ignored.
func (in *Inputs) Merge(source string, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		if value == "" {
			continue
		}
		if err := in.Set(name, value); err != nil {
			return err
		}
		slog.Debug("input set", "source", source, "name", name)
	}
	return nil
}

// Validate checks required inputs and enumerations.
func (in Inputs) Validate() error {
	if in.Username == "" {
		return qterrors.NewMissingInputError(InputUsername)
	}
	if in.Password == "" {
		return qterrors.NewMissingInputError(InputPassword)
	}
	if in.Version == "" {
		return qterrors.NewMissingInputError(InputVersion)
	}

	if in.InstallerChecksum != "" {
		if _, _, err := checksum.Parse(in.InstallerChecksum); err != nil {
			return qterrors.NewValidationError(InputInstallerChecksum, "sha256:<hex> or sha512:<hex>", in.InstallerChecksum)
		}
	}

	switch in.CacheBackend {
	case "local", "none":
	case "oci":
		if in.CacheRepository == "" {
			return qterrors.NewValidationError(InputCacheRepository, "an OCI repository when cache-backend is oci", "")
		}
	default:
		return qterrors.NewValidationError(InputCacheBackend, "local, oci or none", in.CacheBackend)
	}

	if _, err := ParseLevel(in.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseBool accepts the YAML 1.2 core schema booleans, as the Actions
// toolkit's getBooleanInput does.
func ParseBool(name, value string) (bool, error) {
	switch value {
	case "true", "True", "TRUE":
		return true, nil
	case "false", "False", "FALSE":
		return false, nil
	default:
		return false, qterrors.NewValidationError(name, "true or false", value).
			WithHint("Support boolean input list: `true | True | TRUE | false | False | FALSE`")
	}
}

// ParseLevel converts a log-level input to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, qterrors.NewValidationError(InputLogLevel, "debug, info, warn or error", s)
	}
}

// String renders the inputs for logs. The password is never included.
func (in Inputs) String() string {
	return fmt.Sprintf("version=%s compiler=%s install-deps=%t enable-cache=%t cache-backend=%s",
		in.Version, in.Compiler, in.InstallDeps, in.EnableCache, in.CacheBackend)
}

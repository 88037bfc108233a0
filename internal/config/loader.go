package config

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/akshaybabloo/actions-setup-qt/cuemodule"
	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

// Env is injected into config files as the hidden _env field so values can
// depend on the runner platform.
type Env struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

// Loader loads CUE config files and validates them against #Inputs.
type Loader struct {
	ctx *cue.Context
	env Env
}

// NewLoader creates a new Loader with the given environment.
func NewLoader(env Env) *Loader {
	return &Loader{
		ctx: cuecontext.New(),
		env: env,
	}
}

// envCUE returns CUE source code that defines the _env hidden field.
//
// Example usage in CUE:
//
//	inputs: {
//		if _env.os == "win32" { compiler: "msvc2022_64" }
//	}
func (l *Loader) envCUE() string {
	return fmt.Sprintf("_env: {\n\tos: %q\n\tarch: %q\n}", l.env.OS, l.env.Arch)
}

// detectPackageName extracts the package name from CUE source code.
// Returns empty string if no package declaration is found.
func detectPackageName(source string) string {
	for line := range strings.SplitSeq(source, "\n") {
		line = strings.TrimSpace(line)
		if pkg, found := strings.CutPrefix(line, "package "); found {
			return pkg
		}
		// Skip empty lines and comments at the beginning
		if line != "" && !strings.HasPrefix(line, "//") {
			break
		}
	}
	return ""
}

// LoadFile reads the inputs block of the config file at path and returns the
// values it sets, in string form.
func (l *Loader) LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qterrors.NewConfigError("failed to read config file", err).WithFile(path)
	}
	return l.LoadSource(path, string(data))
}

// LoadSource is LoadFile for in-memory source; filename is used in errors.
func (l *Loader) LoadSource(filename, source string) (map[string]string, error) {
	// _env must follow the package declaration if present
	var withEnv string
	if pkgName := detectPackageName(source); pkgName != "" {
		pkgDecl := "package " + pkgName
		idx := strings.Index(source, pkgDecl) + len(pkgDecl)
		withEnv = source[:idx] + "\n" + l.envCUE() + source[idx:]
	} else {
		withEnv = l.envCUE() + "\n" + source
	}

	value := l.ctx.CompileString(withEnv, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, configError(filename, "failed to compile config", err)
	}

	inputs := value.LookupPath(cue.ParsePath("inputs"))
	if !inputs.Exists() {
		return map[string]string{}, nil
	}

	schema := l.ctx.CompileString(cuemodule.SchemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, qterrors.NewConfigError("failed to compile embedded schema", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Inputs")).Unify(inputs)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, configError(filename, "config does not match schema", err)
	}

	var decoded map[string]any
	if err := unified.Decode(&decoded); err != nil {
		return nil, configError(filename, "failed to decode inputs", err)
	}

	values := make(map[string]string, len(decoded))
	for name, v := range decoded {
		values[name] = fmt.Sprint(v)
	}
	return values, nil
}

// configError converts a CUE error into a ConfigError carrying the first
// reported position.
func configError(filename, message string, err error) *qterrors.ConfigError {
	for _, e := range cueerrors.Errors(err) {
		pos := e.Position()
		if pos.IsValid() {
			return qterrors.NewConfigErrorAt(pos.Filename(), pos.Line(), pos.Column(), message, err)
		}
	}
	return qterrors.NewConfigError(message, err).WithFile(filename)
}

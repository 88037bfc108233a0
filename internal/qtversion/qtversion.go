// Package qtversion parses the version strings accepted by the installer
// into a normalized Qt version and an optional compiler id.
//
// Three shapes are recognized:
//
//	qt.qt6.6100.win64_msvc2022_64   package id, digits encode the version
//	qt6.10.0-full-dev               simple id, version is the first "-" segment
//	anything else                   passed through unchanged
package qtversion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	packageIDPattern = regexp.MustCompile(`^qt\.qt\d+\.(\d+)\.`)
	simpleIDPattern  = regexp.MustCompile(`^qt\d`)
	compilerPattern  = regexp.MustCompile(`msvc\d+_\d+|mingw_\d+`)
)

// Spec is the result of parsing a raw version string.
type Spec struct {
	// Raw is the string as supplied by the user.
	Raw string
	// Version is the normalized version, e.g. "6.10.0".
	Version string
	// Compiler is the compiler id embedded in Raw, empty if none.
	Compiler string
}

// HasCompiler reports whether the raw string carried a compiler id.
func (s Spec) HasCompiler() bool {
	return s.Compiler != ""
}

// MajorMinor returns the "major.minor" prefix of the normalized version.
func (s Spec) MajorMinor() string {
	return MajorMinor(s.Version)
}

// Semver parses the normalized version as a strict major.minor.patch release.
func (s Spec) Semver() (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s.Version)
	if err != nil {
		return nil, fmt.Errorf("version %q is not a Qt release number: %w", s.Version, err)
	}
	return v, nil
}

// Parse extracts the normalized version and compiler hint from raw.
func Parse(raw string) Spec {
	compiler, _ := ExtractCompiler(raw)
	return Spec{
		Raw:      raw,
		Version:  ExtractVersionNumber(raw),
		Compiler: compiler,
	}
}

// ExtractVersionNumber normalizes raw into a dotted version. It never fails:
// unrecognized input is returned verbatim.
func ExtractVersionNumber(raw string) string {
	if m := packageIDPattern.FindStringSubmatch(raw); m != nil {
		if v, ok := expandDigits(m[1]); ok {
			return v
		}
		return raw
	}

	if simpleIDPattern.MatchString(raw) {
		head, _, _ := strings.Cut(strings.TrimPrefix(raw, "qt"), "-")
		return head
	}

	return raw
}

// expandDigits maps "6100" to "6.10.0" and "610" to "6.10.0".
func expandDigits(d string) (string, bool) {
	switch len(d) {
	case 4:
		return fmt.Sprintf("%s.%s.%s", d[:1], d[1:3], d[3:]), true
	case 3:
		return fmt.Sprintf("%s.%s.0", d[:1], d[1:3]), true
	default:
		return "", false
	}
}

// ExtractCompiler returns the msvc or mingw compiler id embedded in raw.
// The second result is false when raw carries no compiler id.
func ExtractCompiler(raw string) (string, bool) {
	if !strings.Contains(raw, "msvc") && !strings.Contains(raw, "mingw") {
		return "", false
	}
	m := compilerPattern.FindString(raw)
	return m, m != ""
}

// MajorMinor returns the first two dot-separated components of version.
func MajorMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Formatter formats errors for CLI output.
type Formatter struct {
	NoColor bool
	Writer  io.Writer

	// Colors
	errorColor    *color.Color
	codeColor     *color.Color
	resourceColor *color.Color
	hintColor     *color.Color
	expectedColor *color.Color
	gotColor      *color.Color
	dimColor      *color.Color
}

// NewFormatter creates a new Formatter.
func NewFormatter(w io.Writer, noColor bool) *Formatter {
	if noColor {
		color.NoColor = true
	}

	return &Formatter{
		NoColor:       noColor,
		Writer:        w,
		errorColor:    color.New(color.FgRed, color.Bold),
		codeColor:     color.New(color.FgRed),
		resourceColor: color.New(color.FgCyan),
		hintColor:     color.New(color.FgGreen),
		expectedColor: color.New(color.FgYellow),
		gotColor:      color.New(color.FgRed),
		dimColor:      color.New(color.FgHiBlack),
	}
}

// Print writes the formatted error to the formatter's writer.
func (f *Formatter) Print(err error) {
	if err == nil || f.Writer == nil {
		return
	}
	fmt.Fprint(f.Writer, f.Format(err))
}

// formatErrorHeader writes the error header with code.
// Format: "Error [E101]: message" or "Error: message" if no code.
func (f *Formatter) formatErrorHeader(sb *strings.Builder, code Code, message string) {
	sb.WriteString(f.errorColor.Sprint("Error"))
	if code != "" {
		sb.WriteString(" ")
		sb.WriteString(f.codeColor.Sprintf("[%s]", code))
	}
	sb.WriteString(f.errorColor.Sprint(": "))
	sb.WriteString(message)
	sb.WriteString("\n")
}

// Format formats an error for CLI display.
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	var platformErr *PlatformError
	var depErr *DependencyError
	var installErr *InstallError
	var prepareErr *PrepareError
	var locateErr *LocateError
	var networkErr *NetworkError
	var cacheErr *CacheError
	var checksumErr *ChecksumError
	var configErr *ConfigError
	var valErr *ValidationError
	var baseErr *Error

	switch {
	case errors.As(err, &platformErr):
		f.formatPlatformError(&sb, platformErr)
	case errors.As(err, &depErr):
		f.formatDependencyError(&sb, depErr)
	case errors.As(err, &installErr):
		f.formatInstallError(&sb, installErr)
	case errors.As(err, &prepareErr):
		f.formatPrepareError(&sb, prepareErr)
	case errors.As(err, &locateErr):
		f.formatLocateError(&sb, locateErr)
	case errors.As(err, &networkErr):
		f.formatNetworkError(&sb, networkErr)
	case errors.As(err, &checksumErr):
		f.formatChecksumError(&sb, checksumErr)
	case errors.As(err, &cacheErr):
		f.formatCacheError(&sb, cacheErr)
	case errors.As(err, &configErr):
		f.formatConfigError(&sb, configErr)
	case errors.As(err, &valErr):
		f.formatValidationError(&sb, valErr)
	case errors.As(err, &baseErr):
		f.formatBaseError(&sb, baseErr)
	default:
		// Fallback for unstructured errors
		sb.WriteString(f.errorColor.Sprint("Error: "))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatJSON formats an error as JSON.
func (f *Formatter) FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return nil, nil
	}

	var platformErr *PlatformError
	var depErr *DependencyError
	var installErr *InstallError
	var prepareErr *PrepareError
	var locateErr *LocateError
	var networkErr *NetworkError
	var cacheErr *CacheError
	var checksumErr *ChecksumError
	var configErr *ConfigError
	var valErr *ValidationError
	var baseErr *Error

	switch {
	case errors.As(err, &platformErr):
		return json.MarshalIndent(platformErr, "", "  ")
	case errors.As(err, &depErr):
		return json.MarshalIndent(depErr, "", "  ")
	case errors.As(err, &installErr):
		return json.MarshalIndent(installErr, "", "  ")
	case errors.As(err, &prepareErr):
		return json.MarshalIndent(prepareErr, "", "  ")
	case errors.As(err, &locateErr):
		return json.MarshalIndent(locateErr, "", "  ")
	case errors.As(err, &networkErr):
		return json.MarshalIndent(networkErr, "", "  ")
	case errors.As(err, &checksumErr):
		return json.MarshalIndent(checksumErr, "", "  ")
	case errors.As(err, &cacheErr):
		return json.MarshalIndent(cacheErr, "", "  ")
	case errors.As(err, &configErr):
		return json.MarshalIndent(configErr, "", "  ")
	case errors.As(err, &valErr):
		return json.MarshalIndent(valErr, "", "  ")
	case errors.As(err, &baseErr):
		return json.MarshalIndent(baseErr, "", "  ")
	default:
		return json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
	}
}

// field writes one "  Label: value" line, skipping empty values.
func (f *Formatter) field(sb *strings.Builder, label, value string, c *color.Color) {
	if value == "" {
		return
	}
	sb.WriteString("  ")
	sb.WriteString(f.dimColor.Sprint(label))
	if c != nil {
		value = c.Sprint(value)
	}
	sb.WriteString(value)
	sb.WriteString("\n")
}

func (f *Formatter) formatCause(sb *strings.Builder, cause error) {
	if cause == nil {
		return
	}
	sb.WriteString("\n  ")
	sb.WriteString(f.dimColor.Sprint("Cause: "))
	sb.WriteString(cause.Error())
	sb.WriteString("\n")
}

func (f *Formatter) formatPlatformError(sb *strings.Builder, err *PlatformError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "OS:   ", err.OS, f.gotColor)
	f.field(sb, "Arch: ", err.Arch, nil)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatDependencyError(sb *strings.Builder, err *DependencyError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Manager:  ", err.Manager, f.resourceColor)
	if len(err.Packages) > 0 {
		f.field(sb, "Packages: ", err.PackageList(), nil)
	}
	f.formatCause(sb, err.Base.Cause)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatInstallError(sb *strings.Builder, err *InstallError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Installer: ", err.Executable, f.resourceColor)
	f.field(sb, "Version:   ", err.Version, nil)
	if err.ExitCode != 0 {
		f.field(sb, "Exit code: ", strconv.Itoa(err.ExitCode), f.gotColor)
	}
	f.formatCause(sb, err.Base.Cause)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatPrepareError(sb *strings.Builder, err *PrepareError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Path: ", err.Path, f.resourceColor)
	f.formatCause(sb, err.Base.Cause)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatLocateError(sb *strings.Builder, err *LocateError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Root:     ", err.Root, f.resourceColor)
	if err.Prefix != "" {
		f.field(sb, "Expected: ", err.Prefix+"*", f.expectedColor)
	}
	f.field(sb, "Missing:  ", err.Path, f.gotColor)
	if len(err.Entries) > 0 {
		f.field(sb, "Found:    ", strings.Join(err.Entries, ", "), nil)
	}
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatNetworkError(sb *strings.Builder, err *NetworkError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "URL:    ", err.URL, nil)
	if err.StatusCode > 0 {
		f.field(sb, "Status: ", strconv.Itoa(err.StatusCode), f.gotColor)
	}
	f.formatCause(sb, err.Base.Cause)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatCacheError(sb *strings.Builder, err *CacheError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Backend: ", err.Backend, f.resourceColor)
	f.field(sb, "Key:     ", err.Key, nil)
	f.formatCause(sb, err.Base.Cause)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatChecksumError(sb *strings.Builder, err *ChecksumError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Path:     ", err.Path, f.resourceColor)
	sb.WriteString("\n")
	sb.WriteString("  ")
	sb.WriteString(f.dimColor.Sprint("Expected: "))
	sb.WriteString(f.expectedColor.Sprint(err.Expected))
	sb.WriteString("\n")
	sb.WriteString("  ")
	sb.WriteString(f.dimColor.Sprint("Got:      "))
	sb.WriteString(f.gotColor.Sprint(err.Got))
	sb.WriteString("\n")
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatConfigError(sb *strings.Builder, err *ConfigError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")

	f.field(sb, "File: ", err.File, f.resourceColor)

	if err.Line > 0 {
		sb.WriteString("  ")
		sb.WriteString(f.dimColor.Sprint("Line: "))
		fmt.Fprintf(sb, "%d", err.Line)
		if err.Column > 0 {
			fmt.Fprintf(sb, ":%d", err.Column)
		}
		sb.WriteString("\n")
	}

	if err.Context != "" {
		sb.WriteString("\n")
		for line := range strings.SplitSeq(err.Context, "\n") {
			sb.WriteString("    ")
			sb.WriteString(f.dimColor.Sprint(line))
			sb.WriteString("\n")
		}
	}

	f.formatCause(sb, err.Base.Cause)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatValidationError(sb *strings.Builder, err *ValidationError) {
	f.formatErrorHeader(sb, err.Base.Code, err.Base.Message)
	sb.WriteString("\n")
	f.field(sb, "Field:    ", err.Field, nil)
	f.field(sb, "Expected: ", err.Expected, f.expectedColor)
	f.field(sb, "Got:      ", err.Got, f.gotColor)
	f.formatHint(sb, &err.Base)
}

func (f *Formatter) formatBaseError(sb *strings.Builder, err *Error) {
	f.formatErrorHeader(sb, err.Code, err.Message)
	f.formatCause(sb, err.Cause)
	f.formatHint(sb, err)
}

func (f *Formatter) formatHint(sb *strings.Builder, err *Error) {
	if err.Hint == "" {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(f.hintColor.Sprint("Hint: "))
	// Handle multi-line hints
	lines := strings.Split(err.Hint, "\n")
	sb.WriteString(lines[0])
	sb.WriteString("\n")
	for _, line := range lines[1:] {
		sb.WriteString("      ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

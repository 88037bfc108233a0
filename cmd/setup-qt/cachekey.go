package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akshaybabloo/actions-setup-qt/internal/cache"
	"github.com/akshaybabloo/actions-setup-qt/internal/config"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
	"github.com/akshaybabloo/actions-setup-qt/internal/qtversion"
	"github.com/akshaybabloo/actions-setup-qt/internal/setup"
)

type cacheKeyConfig struct {
	version  string
	compiler string
	os       string
	arch     string
	output   string
}

var cacheKeyCfg cacheKeyConfig

// cacheKeyResult is the json form of `setup-qt cache-key`.
type cacheKeyResult struct {
	Key      string `json:"key"`
	Tag      string `json:"tag"`
	Version  string `json:"version"`
	Compiler string `json:"compiler"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
}

var cacheKeyCmd = &cobra.Command{
	Use:   "cache-key",
	Short: "Print the cache key of an installation",
	Long: `Print the cache key setup-qt would use for a version and compiler.

The host platform is used unless --os and --arch are given (Node.js ids:
linux, darwin, win32; x64, arm64).`,
	Args: cobra.NoArgs,
	RunE: runCacheKey,
}

func init() {
	f := cacheKeyCmd.Flags()
	f.StringVar(&cacheKeyCfg.version, "version", config.DefaultVersion, "Qt package")
	f.StringVar(&cacheKeyCfg.compiler, "compiler", "", "Compiler id (default: from version or platform)")
	f.StringVar(&cacheKeyCfg.os, "os", "", "Target OS id")
	f.StringVar(&cacheKeyCfg.arch, "arch", "", "Target architecture id")
	f.StringVarP(&cacheKeyCfg.output, "output", "o", "text", "Output format (text, json)")
}

func runCacheKey(cmd *cobra.Command, _ []string) error {
	host := platform.Detect()
	if cacheKeyCfg.os != "" {
		host.OS = cacheKeyCfg.os
	}
	if cacheKeyCfg.arch != "" {
		host.Arch = cacheKeyCfg.arch
	}

	strategy, err := platform.New(host, command.NewExecutor())
	if err != nil {
		return err
	}

	spec := qtversion.Parse(cacheKeyCfg.version)
	compiler := setup.ResolveCompiler(cacheKeyCfg.compiler, spec, strategy)
	key := cache.Key(spec.Raw, compiler, host.OS, host.Arch)

	switch cacheKeyCfg.output {
	case outputJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cacheKeyResult{
			Key:      key,
			Tag:      cache.Tag(key),
			Version:  spec.Version,
			Compiler: compiler,
			OS:       host.OS,
			Arch:     host.Arch,
		})
	case "text", "":
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (supported: text, json)", cacheKeyCfg.output)
	}
}

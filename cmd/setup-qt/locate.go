package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/akshaybabloo/actions-setup-qt/internal/config"
	"github.com/akshaybabloo/actions-setup-qt/internal/installer/command"
	"github.com/akshaybabloo/actions-setup-qt/internal/locate"
	qtpath "github.com/akshaybabloo/actions-setup-qt/internal/path"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
	"github.com/akshaybabloo/actions-setup-qt/internal/qtversion"
	"github.com/akshaybabloo/actions-setup-qt/internal/setup"
)

var (
	locateVersion  string
	locateCompiler string
	locateRoot     string
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Print the bin directory of an installed Qt",
	Long: `Print the bin directory of an existing installation under the Qt root
(default ~/Qt). The version directory is matched by its major.minor prefix.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var opts []qtpath.Option
		if locateRoot != "" {
			root, err := qtpath.Expand(locateRoot)
			if err != nil {
				return fmt.Errorf("failed to expand root: %w", err)
			}
			opts = append(opts, qtpath.WithQtRoot(root))
		}
		paths, err := qtpath.New(opts...)
		if err != nil {
			return fmt.Errorf("failed to initialize paths: %w", err)
		}

		strategy, err := platform.New(platform.Detect(), command.NewExecutor())
		if err != nil {
			return err
		}
		spec := qtversion.Parse(locateVersion)
		compiler := setup.ResolveCompiler(locateCompiler, spec, strategy)

		bin, err := locate.New().BinDir(paths.QtRoot(), spec.Version, compiler)
		if err != nil {
			return err
		}
		if r, ok, err := setup.ReadRecord(paths.RecordFile()); err == nil && ok {
			slog.Debug("install record", "version", r.RawVersion, "compiler", r.Compiler, "key", r.CacheKey)
		}
		fmt.Fprintln(cmd.OutOrStdout(), bin)
		return nil
	},
}

func init() {
	locateCmd.Flags().StringVar(&locateVersion, "version", config.DefaultVersion, "Qt package")
	locateCmd.Flags().StringVar(&locateCompiler, "compiler", "", "Compiler id (default: from version or platform)")
	locateCmd.Flags().StringVar(&locateRoot, "root", "", "Qt root (default ~/Qt)")
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akshaybabloo/actions-setup-qt/cuemodule"
	"github.com/akshaybabloo/actions-setup-qt/internal/config"
	qtpath "github.com/akshaybabloo/actions-setup-qt/internal/path"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect CUE config files",
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example config file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), cuemodule.ExampleCUE)
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the #Inputs schema config files are checked against",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), cuemodule.SchemaCUE)
	},
}

var (
	configEvalOS   string
	configEvalArch string
)

var configEvalCmd = &cobra.Command{
	Use:   "eval <file>",
	Short: "Validate a config file and print the inputs it sets",
	Long: `Validate a config file against the schema and print the inputs it sets
as JSON. _env.os and _env.arch default to the host platform.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := qtpath.Expand(args[0])
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}

		host := platform.Detect()
		if configEvalOS != "" {
			host.OS = configEvalOS
		}
		if configEvalArch != "" {
			host.Arch = configEvalArch
		}

		values, err := config.NewLoader(config.Env{OS: host.OS, Arch: host.Arch}).LoadFile(file)
		if err != nil {
			return err
		}
		if _, ok := values[config.InputPassword]; ok {
			values[config.InputPassword] = "***"
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	},
}

func init() {
	configEvalCmd.Flags().StringVar(&configEvalOS, "os", "", "Value of _env.os")
	configEvalCmd.Flags().StringVar(&configEvalArch, "arch", "", "Value of _env.arch")

	configCmd.AddCommand(configExampleCmd, configSchemaCmd, configEvalCmd)
}

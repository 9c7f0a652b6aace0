package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/skillscope/configs"
	"github.com/Aman-CERP/skillscope/internal/config"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/output"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
		Long: `Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config ($XDG_CONFIG_HOME/skillscope/config.yaml)
  3. Project config (./` + config.ProjectConfigName + ` or --config)
  4. Environment variables (SKILLSCOPE_*)
  5. Command-line flags`,
		Example: `  # Show the effective configuration
  skillscope config show

  # Write a project config with the defaults
  skillscope config init`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(g.cfg)
			}
			data, err := yaml.Marshal(g.cfg)
			if err != nil {
				return serrors.InternalError("failed to marshal config", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	var user bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file with the defaults",
		Long: `Write the commented default configuration to ./` + config.ProjectConfigName + `, or to the user
config path with --user. An existing file is kept unless --force is given, in
which case it is backed up first.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ProjectConfigName
			if user {
				path = config.GetUserConfigPath()
			}
			path, _ = filepath.Abs(path)
			out := output.New(cmd.ErrOrStderr())

			if _, err := os.Stat(path); err == nil {
				if !force {
					return serrors.ValidationError(fmt.Sprintf("config file already exists: %s", path), nil).
						WithSuggestion("pass --force to overwrite it")
				}
				backup, err := config.BackupFile(path)
				if err != nil {
					return serrors.ConfigError("failed to back up existing config", err)
				}
				if backup != "" {
					out.Statusf(">", "Backed up existing config to %s", backup)
				}
			}

			if err := writeTemplate(path); err != nil {
				return serrors.ConfigError("failed to write config", err).WithDetail("path", path)
			}
			out.Successf("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")

	return cmd
}

func writeTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644)
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

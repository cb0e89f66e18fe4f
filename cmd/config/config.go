// Package config provides CLI commands for configuration management.
package config

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vbadoc configuration",
		Long: `View and initialize vbadoc settings.

Settings are read from ~/.vbadoc/config.yaml (or --config) and can be
overridden with VBADOC_* environment variables, e.g. VBADOC_FLOWCHART_FORMAT=svg.`,
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return output.Usagef("%s already exists (use --force to overwrite)", path)
			}
			written, err := config.Save(config.Default())
			if err != nil {
				return err
			}
			if output.JSONFlag(cmd) {
				return output.PrintJSON("config init", map[string]string{"path": written})
			}
			output.Success("Wrote %s", written)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if output.JSONFlag(cmd) {
				return output.PrintJSON("config show", cfg)
			}
			y, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", config.Path(), y)
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Path())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			issues := cfg.Validate()

			if output.JSONFlag(cmd) {
				return output.PrintJSON("config validate", issues)
			}

			errors, warnings := 0, 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errors++
				case "warning":
					warnings++
				}
			}

			if errors == 0 && warnings == 0 {
				color.New(color.FgGreen).Println("Configuration is valid")
				return nil
			}

			fmt.Printf("Config validation: %d errors, %d warnings\n\n", errors, warnings)
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					color.New(color.FgRed).Printf("  %s: %s\n", issue.Key, issue.Message)
				case "warning":
					color.New(color.FgYellow).Printf("  %s: %s\n", issue.Key, issue.Message)
				}
			}
			if errors > 0 {
				return output.Usagef("configuration has %d error(s)", errors)
			}
			return nil
		},
	}
}

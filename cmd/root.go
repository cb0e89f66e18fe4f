// Package cmd contains all CLI commands for the vbadoc binary.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/cmd/analyze"
	cmdaudit "github.com/klytics/vbadoc/cmd/audit"
	"github.com/klytics/vbadoc/cmd/batch"
	"github.com/klytics/vbadoc/cmd/completion"
	cmdconfig "github.com/klytics/vbadoc/cmd/config"
	"github.com/klytics/vbadoc/cmd/doctor"
	"github.com/klytics/vbadoc/cmd/extract"
	"github.com/klytics/vbadoc/cmd/flow"
	cmdmcp "github.com/klytics/vbadoc/cmd/mcp"
	"github.com/klytics/vbadoc/cmd/report"
	cmdshell "github.com/klytics/vbadoc/cmd/shell"
	"github.com/klytics/vbadoc/cmd/version"
	cmdwatch "github.com/klytics/vbadoc/cmd/watch"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vbadoc",
		Short: "Document the VBA macros embedded in Excel workbooks",
		Long: `vbadoc extracts the VBA macro code embedded in .xls and .xlsm workbooks,
lists its functions, subroutines, Dim variables and comments in a plain-text
report, and can draw the routines as a flow diagram with graphviz.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetFile(configFile)
			cfg, err := config.Load()
			if err != nil {
				return &output.UsageError{Err: err}
			}
			if noColor || !cfg.Output.Color {
				color.NoColor = true
			}
			if jsonOutput {
				os.Setenv("VBADOC_JSON", "true")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.vbadoc/config.yaml)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &output.UsageError{Err: err}
	})

	rootCmd.AddCommand(report.NewCommand())
	rootCmd.AddCommand(analyze.NewCommand())
	rootCmd.AddCommand(extract.NewCommand())
	rootCmd.AddCommand(flow.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdshell.NewCommand())
	rootCmd.AddCommand(cmdmcp.NewCommand())
	rootCmd.AddCommand(cmdaudit.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code matching any
// returned error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, NewRootCommand(), os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, rootCmd *cobra.Command, args []string) int {
	rootCmd.SetArgs(args)
	executed, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return output.ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return output.ExitSystemError
	}

	code := output.ExitCode(err)
	if jsonOutput {
		name := rootCmd.Name()
		if executed != nil {
			name = executed.Name()
		}
		output.PrintJSONError(name, err, code)
		return code
	}
	output.WriteError("%s", err)
	return code
}

// Package analyze provides the "vbadoc analyze" command.
package analyze

import (
	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/output"
)

// NewCommand creates the "analyze" command.
func NewCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <document>",
		Short: "Print the macro analysis of a workbook without writing files",
		Long: `Extract and analyze the VBA macros of a workbook and print the result.
Text output uses the report layout; json and yaml print the lists.

Example:
  vbadoc analyze Budget.xlsm
  vbadoc analyze legacy.xls --format yaml`,
		Args: output.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Output.Format
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return &output.UsageError{Err: err}
			}

			in := &inspect.Inspector{Logger: output.Logger(output.VerboseFlag(cmd))}
			out, err := in.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.JSONFlag(cmd) {
				return output.PrintJSON("analyze", out)
			}
			if out.NoMacros {
				output.Warn("No VBA macros found in %s", args[0])
				return nil
			}
			return output.NewWriterTo(cmd.OutOrStdout(), f).Write(out.Result, out.Report)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text | json | yaml (default from config)")

	return cmd
}

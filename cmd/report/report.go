// Package report provides the "vbadoc report" command.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/output"
	"github.com/klytics/vbadoc/internal/progress"
)

type reportData struct {
	*inspect.Outcome
	Flowchart string `json:"flowchart,omitempty"`
}

// NewCommand creates the "report" command.
func NewCommand() *cobra.Command {
	var (
		outputPath string
		flowPath   string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "report <document>",
		Short: "Write a macro report for an .xls or .xlsm workbook",
		Long: `Extract the VBA macros of a workbook and write a plain-text report listing
its functions, subroutines, Dim variables and comments.

The report is written next to the document unless -o is given; "-o -" prints
it instead. With --flowchart, a process-flow diagram is drawn after the report.

Example:
  vbadoc report Budget.xlsm
  vbadoc report legacy.xls -o audit/legacy.txt --flowchart audit/legacy.png
  vbadoc report Budget.xlsm -o -`,
		Args: output.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			docPath := args[0]
			jsonOut := output.JSONFlag(cmd)

			toStdout := outputPath == "-"
			if outputPath == "" {
				outputPath = inspect.DefaultReportPath(docPath, cfg.Report.Suffix)
			}
			if toStdout {
				outputPath = ""
			}

			in := &inspect.Inspector{
				Logger: output.Logger(output.VerboseFlag(cmd)),
				Audit:  audit.FromConfig(),
			}
			out, err := in.Report(cmd.Context(), docPath, outputPath)
			if err != nil {
				return err
			}
			data := reportData{Outcome: out}

			if out.NoMacros {
				if jsonOut {
					return output.PrintJSON("report", data)
				}
				output.Warn("No VBA macros found in %s", docPath)
				return nil
			}

			if toStdout && !jsonOut {
				fmt.Fprint(cmd.OutOrStdout(), out.Report)
			} else if !jsonOut {
				output.Success("Report saved to %s", out.ReportPath)
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", out.Result.Summary())
			}

			if flowPath != "" {
				opts := flowOptions(cfg, format, flowPath)
				spin := progress.NewSpinner("Rendering flowchart...")
				spin.Start()
				_, err := in.Flowchart(cmd.Context(), out.Result, flowPath, opts)
				spin.Stop("")
				if err != nil {
					return fmt.Errorf("report saved, but the flowchart failed: %w", err)
				}
				data.Flowchart = flowPath
				if !jsonOut {
					output.Success("Flowchart saved to %s", flowPath)
				}
			}

			if jsonOut {
				return output.PrintJSON("report", data)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report file path (\"-\" for stdout)")
	cmd.Flags().StringVar(&flowPath, "flowchart", "", "Also draw a flowchart to this path")
	cmd.Flags().StringVar(&format, "format", "", "Flowchart format: png | svg | pdf | dot (default from the file extension or config)")

	return cmd
}

// flowOptions picks the diagram format from the flag, the destination's
// extension, then the config.
func flowOptions(cfg *config.Config, format, dest string) flow.Options {
	if format == "" {
		if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(dest), ".")); flow.ValidFormat(ext) {
			format = ext
		}
	}
	if format == "" {
		format = cfg.Flowchart.Format
	}
	return flow.Options{Format: format, DotBinary: cfg.Flowchart.Dot}
}

// Package flow provides the "vbadoc flow" command.
package flow

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/output"
	"github.com/klytics/vbadoc/internal/progress"
)

// NewCommand creates the "flow" command.
func NewCommand() *cobra.Command {
	var (
		outputPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "flow <document>",
		Short: "Draw the macro routines of a workbook as a flow diagram",
		Long: `Draw the functions and subroutines of a workbook's VBA macros as a
sequential process-flow diagram. Rendering png, svg and pdf needs graphviz
(the "dot" program); --format dot writes the graph source only.
The diagram is drawn from the analysis alone; no report is written.

Example:
  vbadoc flow Budget.xlsm
  vbadoc flow Budget.xlsm -o budget.svg
  vbadoc flow legacy.xls --format dot -o - | dot -Tpng > legacy.png`,
		Args: output.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			docPath := args[0]

			if format == "" && outputPath != "" && outputPath != "-" {
				if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(outputPath), ".")); flow.ValidFormat(ext) {
					format = ext
				}
			}
			if format == "" {
				format = cfg.Flowchart.Format
			}
			if !flow.ValidFormat(format) {
				return output.Usagef("unsupported format %q (supported: %s)", format, strings.Join(flow.Formats, ", "))
			}

			in := &inspect.Inspector{Logger: output.Logger(output.VerboseFlag(cmd))}
			out, err := in.Analyze(cmd.Context(), docPath)
			if err != nil {
				return err
			}
			if out.NoMacros {
				if output.JSONFlag(cmd) {
					return output.PrintJSON("flow", out)
				}
				output.Warn("No VBA macros found in %s", docPath)
				return nil
			}

			if outputPath == "-" {
				if format != "dot" {
					return output.Usagef("only --format dot can be written to stdout")
				}
				_, err := fmt.Fprint(cmd.OutOrStdout(), flow.Build(out.Result).DOT())
				return err
			}
			if outputPath == "" {
				outputPath = inspect.DefaultFlowchartPath(docPath, format)
			}

			spin := progress.NewSpinner("Rendering flowchart...")
			spin.Start()
			g, err := in.Flowchart(cmd.Context(), out.Result, outputPath, flow.Options{Format: format, DotBinary: cfg.Flowchart.Dot})
			spin.Stop("")
			if err != nil {
				return err
			}

			if output.JSONFlag(cmd) {
				return output.PrintJSON("flow", map[string]interface{}{
					"path":  outputPath,
					"nodes": g.Nodes,
					"edges": g.Edges,
				})
			}
			output.Success("Flowchart saved to %s (%d nodes, %d edges)", outputPath, len(g.Nodes), len(g.Edges))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Diagram path (default <document>.flow.<format>; \"-\" prints DOT)")
	cmd.Flags().StringVar(&format, "format", "", "Diagram format: png | svg | pdf | dot")

	return cmd
}

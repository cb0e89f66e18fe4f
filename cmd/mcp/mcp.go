// Package mcp provides the "vbadoc mcp" command.
package mcp

import (
	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/mcpserver"
	"github.com/klytics/vbadoc/internal/output"
)

// NewCommand returns the mcp command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the report and flowchart actions over MCP (stdio)",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing two tools:
generate_report and generate_flowchart. Logs go to stderr.

Example client configuration:
  {"command": "vbadoc", "args": ["mcp"]}`,
		Args: output.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			in := &inspect.Inspector{
				Logger: output.Logger(output.VerboseFlag(cmd)),
				Audit:  audit.FromConfig(),
			}
			srv := mcpserver.New(in, mcpserver.Options{
				Suffix: cfg.Report.Suffix,
				Flow:   flow.Options{Format: cfg.Flowchart.Format, DotBinary: cfg.Flowchart.Dot},
			})
			return srv.ServeStdio()
		},
	}
}

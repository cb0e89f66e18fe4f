// Package shell provides the "vbadoc shell" command.
package shell

import (
	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/output"
	sh "github.com/klytics/vbadoc/internal/shell"
)

// NewCommand returns the shell command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: pick workbooks and destinations at a prompt",
		Long: `Start an interactive session. For each workbook you enter, vbadoc asks where
to save the report and, optionally, a flowchart. Tab completes file paths.`,
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
			s := sh.NewSession(in, config.Dir())
			s.Suffix = cfg.Report.Suffix
			s.Flow = flow.Options{Format: cfg.Flowchart.Format, DotBinary: cfg.Flowchart.Dot}
			return s.Run(cmd.Context())
		},
	}
}

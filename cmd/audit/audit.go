// Package audit provides the "vbadoc audit" commands for reading the trail of
// inspected documents.
package audit

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	auditpkg "github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/output"
)

// NewCommand creates the "audit" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View the trail of inspected documents",
		Long: `Every report action is appended to an audit log when audit.enabled is set
in the configuration: the document, whether it held macros, what was found
and where the report was written.`,
	}

	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func logPath() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.AuditPath(), nil
}

func newLogCmd() *cobra.Command {
	var (
		last   int
		since  string
		filter auditpkg.Filter
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return output.Usagef("invalid --since date %q (use YYYY-MM-DD)", since)
				}
				filter.Since = t
			}

			path, err := logPath()
			if err != nil {
				return err
			}
			entries, err := auditpkg.ReadEntries(path)
			if err != nil {
				return fmt.Errorf("could not read audit log: %w", err)
			}
			entries = filter.Apply(entries)
			if last > 0 && len(entries) > last {
				entries = entries[len(entries)-last:]
			}

			if output.JSONFlag(cmd) {
				return output.PrintJSON("audit log", entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No audit entries found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIMESTAMP\tDOCUMENT\tMODULES\tFOUND\tRESULT")
			for _, e := range entries {
				found := fmt.Sprintf("%dF %dS %dV %dC", e.Functions, e.Subroutines, e.Variables, e.Comments)
				result := "ok"
				switch {
				case e.Failed():
					result = "error: " + e.Error
				case e.NoMacros:
					result = "no macros"
					found = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Document, e.Modules, found, result)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show the last N entries")
	cmd.Flags().StringVar(&since, "since", "", "Only entries since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filter.Document, "document", "", "Only entries whose document path contains this text")
	cmd.Flags().BoolVar(&filter.OnlyMacros, "macros", false, "Only documents that carried macros")
	cmd.Flags().BoolVar(&filter.OnlyFailed, "failed", false, "Only failed actions")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show audit log location and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := cfg.AuditPath()
			entries, err := auditpkg.ReadEntries(path)
			if err != nil {
				return fmt.Errorf("could not read audit log: %w", err)
			}
			st := auditpkg.Summarize(entries)
			size := auditpkg.LogSize(path)

			if output.JSONFlag(cmd) {
				return output.PrintJSON("audit status", map[string]interface{}{
					"path":    path,
					"enabled": cfg.Audit.Enabled,
					"size":    size,
					"stats":   st,
				})
			}

			out := cmd.OutOrStdout()
			state := "disabled (set audit.enabled: true)"
			if cfg.Audit.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(out, "Audit log:  %s\n", path)
			fmt.Fprintf(out, "State:      %s\n", state)
			fmt.Fprintf(out, "Size:       %s\n", formatSize(size))
			fmt.Fprintf(out, "Entries:    %d\n", st.Entries)
			fmt.Fprintf(out, "Documents:  %d (%d with macros, %d failed actions)\n", st.Documents, st.WithMacro, st.Failed)
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logPath()
			if err != nil {
				return err
			}
			if err := auditpkg.Clear(path); err != nil {
				return fmt.Errorf("could not clear audit log: %w", err)
			}
			if output.JSONFlag(cmd) {
				return output.PrintJSON("audit clear", map[string]string{"cleared": path})
			}
			output.Success("Audit log cleared: %s", path)
			return nil
		},
	}
}

func formatSize(bytes int64) string {
	switch {
	case bytes == 0:
		return "empty"
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}

// Package doctor provides the "vbadoc doctor" command for checking system health.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/output"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// dotVersion is replaced in tests.
var dotVersion = flow.DotVersion

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system health and dependencies",
		Long:  "Run diagnostic checks to verify vbadoc is properly configured and graphviz is available.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			checks := runChecks(ctx)

			if output.JSONFlag(cmd) {
				return output.PrintJSON("doctor", checks)
			}

			errCount := printChecks(cmd.OutOrStdout(), checks)
			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

func printChecks(w io.Writer, checks []Check) int {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(w, "vbadoc doctor")
	fmt.Fprintln(w, "=============")
	fmt.Fprintln(w)

	okCount, warnCount, errCount := 0, 0, 0
	for _, c := range checks {
		var icon string
		switch c.Status {
		case "ok":
			icon = green("✓")
			okCount++
		case "warning":
			icon = yellow("!")
			warnCount++
		case "error":
			icon = red("✗")
			errCount++
		}
		fmt.Fprintf(w, "  %s %s: %s\n", icon, c.Name, c.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)
	return errCount
}

func runChecks(ctx context.Context) []Check {
	var checks []Check

	checks = append(checks, Check{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	path := config.Path()
	if _, err := os.Stat(path); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: path})
	} else {
		checks = append(checks, Check{
			Name:    "Config File",
			Status:  "warning",
			Message: fmt.Sprintf("%s not found, using defaults (run 'vbadoc config init')", path),
		})
	}

	cfg, err := config.Load()
	if err != nil {
		checks = append(checks, Check{Name: "Config", Status: "error", Message: err.Error()})
		cfg = config.Default()
	} else {
		for _, issue := range cfg.Validate() {
			if issue.Key == "flowchart.dot" {
				continue // reported by the graphviz check below
			}
			checks = append(checks, Check{Name: "Config " + issue.Key, Status: issue.Severity, Message: issue.Message})
		}
	}

	checks = append(checks, graphvizCheck(ctx, cfg))
	return checks
}

func graphvizCheck(ctx context.Context, cfg *config.Config) Check {
	v, err := dotVersion(ctx, cfg.Flowchart.Dot)
	if err == nil {
		return Check{Name: "Graphviz", Status: "ok", Message: v}
	}
	// Diagrams in dot format do not need graphviz.
	status := "warning"
	if cfg.Flowchart.Format != "dot" {
		status = "error"
	}
	return Check{Name: "Graphviz", Status: status, Message: err.Error()}
}

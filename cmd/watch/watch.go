// Package watch provides the "vbadoc watch" commands for regenerating reports
// as workbooks change.
package watch

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/output"
	w "github.com/klytics/vbadoc/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate macro reports when workbooks appear or change",
		Long: `Watch directories for new or modified .xls/.xlsm workbooks and write a
macro report for each one.

Example:
  vbadoc watch start ./shared --out-dir ./reports
  vbadoc watch status
  vbadoc watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		recursive bool
		pattern   string
		outDir    string
		debounce  int
	)

	cmd := &cobra.Command{
		Use:   "start <directory> [directory...]",
		Short: "Start watching directories for workbook changes",
		Args:  output.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.DebounceMs
			}
			if outDir == "" {
				outDir = cfg.Watch.OutDir
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("could not create output directory %s: %w", outDir, err)
				}
			}

			rules := w.DefaultRules()
			rules[0].Pattern = pattern

			wc := w.WatchConfig{
				Directories: args,
				Rules:       rules,
				Recursive:   recursive,
				Debounce:    debounce,
				OutDir:      outDir,
				Suffix:      cfg.Report.Suffix,
			}

			watcher, err := w.New(wc)
			if err != nil {
				return err
			}
			in := &inspect.Inspector{
				Logger: output.Logger(output.VerboseFlag(cmd)),
				Audit:  audit.FromConfig(),
			}
			watcher.Handler = w.ReportHandler(in, outDir, cfg.Report.Suffix)

			stateDir := config.Dir()
			if err := w.WritePIDFile(stateDir); err != nil {
				output.Warn("could not write PID file: %v", err)
			}
			defer w.RemovePIDFile(stateDir)

			if err := w.SaveConfig(stateDir, wc); err != nil {
				output.Warn("could not save watcher state: %v", err)
			}

			fmt.Printf("Watching %d directory(ies) for .xls and .xlsm files\n", len(args))
			fmt.Println("Press Ctrl+C to stop")

			err = watcher.Start(cmd.Context())
			fmt.Printf("\nStopped. %d event(s) handled.\n", len(watcher.GetEvents()))
			return err
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only handle files whose name matches this glob (e.g. 'budget_*')")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write reports here instead of next to each workbook")
	cmd.Flags().IntVar(&debounce, "debounce", 500, "Debounce interval in milliseconds")

	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := config.Dir()
			pid, err := w.ReadPIDFile(stateDir)
			if err != nil {
				return output.Usagef("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(stateDir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(stateDir)

			if output.JSONFlag(cmd) {
				return output.PrintJSON("watch stop", map[string]any{
					"stopped": true,
					"pid":     pid,
				})
			}

			fmt.Printf("Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current watcher status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := config.Dir()

			pid, err := w.ReadPIDFile(stateDir)
			running := err == nil

			if running {
				process, err := os.FindProcess(pid)
				if err != nil {
					running = false
				} else if err := process.Signal(syscall.Signal(0)); err != nil {
					running = false
					w.RemovePIDFile(stateDir)
				}
			}

			jsonOut := output.JSONFlag(cmd)

			if !running {
				if jsonOut {
					return output.PrintJSON("watch status", map[string]any{"running": false})
				}
				fmt.Println("Watcher is not running")
				return nil
			}

			wc, _ := w.LoadConfig(stateDir)

			status := map[string]any{
				"running": true,
				"pid":     pid,
			}
			if wc != nil {
				status["directories"] = wc.Directories
				status["recursive"] = wc.Recursive
				status["outDir"] = wc.OutDir
			}

			if jsonOut {
				return output.PrintJSON("watch status", status)
			}

			fmt.Printf("Watcher is running (PID %d)\n", pid)
			if wc != nil {
				fmt.Printf("  Directories: %s\n", strings.Join(wc.Directories, ", "))
				fmt.Printf("  Recursive:   %v\n", wc.Recursive)
				if wc.OutDir != "" {
					fmt.Printf("  Reports:     %s\n", wc.OutDir)
				}
			}
			return nil
		},
	}
}

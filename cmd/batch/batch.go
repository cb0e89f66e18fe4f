// Package batch provides the "vbadoc batch" command for reporting on many
// workbooks at once.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/config"
	"github.com/klytics/vbadoc/internal/fs"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/output"
	"github.com/klytics/vbadoc/internal/progress"
)

type batchResultItem struct {
	File      string `json:"file"`
	SHA256    string `json:"sha256,omitempty"`
	Status    string `json:"status"` // "ok", "no-macros", "error"
	Report    string `json:"report,omitempty"`
	Functions int    `json:"functions,omitempty"`
	Subs      int    `json:"subroutines,omitempty"`
	Error     string `json:"error,omitempty"`
}

type options struct {
	root   string
	outDir string
	suffix string
}

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	var (
		outDir    string
		recursive bool
		withHash  bool
	)

	cmd := &cobra.Command{
		Use:   "batch <glob-pattern|directory>",
		Short: "Write macro reports for many workbooks",
		Long: `Writes one report per .xls/.xlsm document matching a glob pattern or found
in a directory. On error, the batch logs the failure and continues to the
next file. Reports go next to each document unless --out-dir is given.

Example:
  vbadoc batch 'finance/*.xlsm' --out-dir reports
  vbadoc batch ./shared -r --hash --json`,
		Args: output.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			jsonFlag := output.JSONFlag(cmd)

			files, root, err := collect(args[0], recursive, withHash)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return output.Usagef("no .xls or .xlsm files matched %q", args[0])
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("could not create output directory %s: %w", outDir, err)
				}
			}

			in := &inspect.Inspector{
				Logger: output.Logger(output.VerboseFlag(cmd)),
				Audit:  audit.FromConfig(),
			}
			bar := progress.New("Reports", len(files))
			results := run(cmd.Context(), in, files, options{root: root, outDir: outDir, suffix: cfg.Report.Suffix}, bar)
			bar.Finish()

			if jsonFlag {
				return output.PrintJSON("batch", results)
			}

			succeeded, empty, failed := 0, 0, 0
			for _, r := range results {
				switch r.Status {
				case "ok":
					succeeded++
					fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s (%d functions, %d subroutines)\n", r.File, r.Report, r.Functions, r.Subs)
				case "no-macros":
					empty++
				default:
					failed++
					output.WriteError("%s: %s", r.File, r.Error)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nProcessed %d files. %d reported, %d without macros, %d failed.\n",
				len(files), succeeded, empty, failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for the reports")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories (directory argument only)")
	cmd.Flags().BoolVar(&withHash, "hash", false, "Include the SHA-256 of each document in the results")

	return cmd
}

// collect resolves the argument to documents. A directory is scanned; anything
// else is treated as a glob pattern. root is the scanned directory, if any.
func collect(arg string, recursive, withHash bool) ([]fs.FileInfo, string, error) {
	if st, err := os.Stat(arg); err == nil && st.IsDir() {
		files, err := fs.Scan(arg, fs.ScanOptions{Recursive: recursive, WithHash: withHash})
		if err != nil {
			return nil, "", err
		}
		root, _ := filepath.Abs(arg)
		return files, root, nil
	}
	files, err := fs.Glob(arg, withHash)
	if err != nil {
		return nil, "", &output.UsageError{Err: err}
	}
	return files, "", nil
}

// run reports on each file in order. Failures are recorded and skipped.
func run(ctx context.Context, in *inspect.Inspector, files []fs.FileInfo, opts options, bar *progress.Bar) []batchResultItem {
	results := make([]batchResultItem, 0, len(files))
	used := make(map[string]bool)

	for _, f := range files {
		item := batchResultItem{File: f.Path, SHA256: f.SHA256, Status: "ok"}
		if err := ctx.Err(); err != nil {
			item.Status = "error"
			item.Error = err.Error()
			results = append(results, item)
			bar.Step(f.Name, err)
			continue
		}

		dest, err := reportPath(f.Path, opts, used)
		if err != nil {
			item.Status = "error"
			item.Error = err.Error()
			results = append(results, item)
			bar.Step(f.Name, err)
			continue
		}
		out, err := in.Report(ctx, f.Path, dest)
		switch {
		case err != nil:
			item.Status = "error"
			item.Error = err.Error()
		case out.NoMacros:
			item.Status = "no-macros"
		default:
			item.Report = out.ReportPath
			item.Functions = len(out.Result.Functions)
			item.Subs = len(out.Result.Subroutines)
		}
		results = append(results, item)
		bar.Step(f.Name, err)
	}
	return results
}

// reportPath places the report for doc. Under an output directory, a scanned
// tree keeps its relative layout and glob matches are flattened. Two documents
// that would share a report within one run get a numeric suffix
// (book.macros.txt, book-2.macros.txt), with or without an output directory.
func reportPath(doc string, opts options, used map[string]bool) (string, error) {
	suffix := opts.suffix
	if suffix == "" {
		suffix = ".macros.txt"
	}
	dest := inspect.DefaultReportPath(doc, suffix)

	if opts.outDir != "" {
		rel := filepath.Base(dest)
		if opts.root != "" {
			if r, err := filepath.Rel(opts.root, dest); err == nil {
				rel = r
			}
		}
		dest = filepath.Join(opts.outDir, rel)
	}

	if used[dest] {
		base := strings.TrimSuffix(dest, suffix)
		for i := 2; ; i++ {
			candidate := fmt.Sprintf("%s-%d%s", base, i, suffix)
			if !used[candidate] {
				dest = candidate
				break
			}
		}
	}
	used[dest] = true

	if opts.outDir != "" {
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return "", fmt.Errorf("could not create report directory: %w", err)
		}
	}
	return dest, nil
}

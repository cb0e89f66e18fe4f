// Package extract provides the "vbadoc extract" command.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/fs"
	"github.com/klytics/vbadoc/internal/output"
	"github.com/klytics/vbadoc/internal/report"
	"github.com/klytics/vbadoc/internal/vba"
)

// NewCommand creates the "extract" command.
func NewCommand() *cobra.Command {
	var (
		outputPath string
		outDir     string
		noPager    bool
	)

	cmd := &cobra.Command{
		Use:   "extract <document>",
		Short: "Print or save the macro source code of a workbook",
		Long: `Extract the VBA modules of a workbook. By default the source listing is
printed (through $PAGER when it does not fit the terminal). -o writes the
listing to a file; --out-dir writes one .bas file per module.

Example:
  vbadoc extract Budget.xlsm
  vbadoc extract legacy.xls -o legacy-source.txt
  vbadoc extract Budget.xlsm --out-dir modules/`,
		Args: output.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := output.Logger(output.VerboseFlag(cmd))
			doc, err := vba.Open(args[0])
			if err != nil {
				return err
			}
			logger.Printf("opened %s: %d module(s)", doc.Path, len(doc.Modules))

			if output.JSONFlag(cmd) {
				return output.PrintJSON("extract", doc)
			}
			if !doc.HasMacros() {
				output.Warn("No VBA macros found in %s", args[0])
				return nil
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("could not create output directory %s: %w", outDir, err)
				}
				names := moduleFileNames(doc.Modules)
				for i, m := range doc.Modules {
					dest := filepath.Join(outDir, names[i])
					if err := fs.WriteFileAtomic(dest, []byte(m.Source)); err != nil {
						return err
					}
					logger.Printf("wrote %s", dest)
				}
				output.Success("%d module(s) written to %s", len(doc.Modules), outDir)
				return nil
			}

			listing := report.RenderSource(doc)
			if outputPath != "" {
				if err := report.Save(outputPath, listing); err != nil {
					return err
				}
				output.Success("Source listing saved to %s", outputPath)
				return nil
			}

			return output.NewPager(cmd.OutOrStdout(), noPager).Show(listing)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the source listing to this file")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write each module to <dir>/<module>.bas")
	cmd.Flags().BoolVar(&noPager, "no-pager", false, "Never pipe the listing through a pager")

	return cmd
}

// moduleFileNames returns one file name per module. Names that clean up to
// the same file get a numeric suffix: Mod_1.bas, Mod_1-2.bas.
func moduleFileNames(mods []vba.Module) []string {
	names := make([]string, len(mods))
	used := make(map[string]bool, len(mods))
	for i, m := range mods {
		name := moduleFileName(m.Name)
		if used[strings.ToLower(name)] {
			base := strings.TrimSuffix(name, ".bas")
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s-%d.bas", base, n)
				if !used[strings.ToLower(candidate)] {
					name = candidate
					break
				}
			}
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// moduleFileName maps a module name to a safe file name.
func moduleFileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
	if clean == "" {
		clean = "module"
	}
	return clean + ".bas"
}

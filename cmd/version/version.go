// Package version provides the version command for the vbadoc CLI.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewCommand returns the version subcommand.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vbadoc version",
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("json"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "{\"version\":%q,\"go\":%q}\n", Version, runtime.Version())
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vbadoc %s\n", Version)
		},
	}
}

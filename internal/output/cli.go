package output

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Logger returns the debug logger for a command. Lines are discarded unless
// verbose is set.
func Logger(verbose bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "[vbadoc] ", log.LstdFlags)
}

// ExactArgs is cobra.ExactArgs with the error marked as a usage error.
func ExactArgs(n int) cobra.PositionalArgs {
	return usage(cobra.ExactArgs(n))
}

// MinimumNArgs is cobra.MinimumNArgs with the error marked as a usage error.
func MinimumNArgs(n int) cobra.PositionalArgs {
	return usage(cobra.MinimumNArgs(n))
}

func usage(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// JSONFlag reports whether --json was given.
func JSONFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// VerboseFlag reports whether --verbose was given.
func VerboseFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}

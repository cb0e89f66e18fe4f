// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/klytics/vbadoc/internal/output"
)

type generator struct {
	install string
	gen     func(root *cobra.Command, w io.Writer) error
}

var shells = map[string]generator{
	"bash": {
		install: "vbadoc completion bash > /etc/bash_completion.d/vbadoc",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	"zsh": {
		install: "vbadoc completion zsh > ~/.zsh/completions/_vbadoc",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	"fish": {
		install: "vbadoc completion fish > ~/.config/fish/completions/vbadoc.fish",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	"powershell": {
		install: "vbadoc completion powershell >> $PROFILE",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for vbadoc.

Install instructions:
  Bash:       vbadoc completion bash > /etc/bash_completion.d/vbadoc
              echo 'source <(vbadoc completion bash)' >> ~/.bashrc
  Zsh:        vbadoc completion zsh > ~/.zsh/completions/_vbadoc
  Fish:       vbadoc completion fish > ~/.config/fish/completions/vbadoc.fish
  PowerShell: vbadoc completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      output.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, ok := shells[args[0]]
			if !ok {
				return output.Usagef("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# vbadoc %s completion\n# Install: %s\n\n", args[0], g.install)
			return g.gen(rootCmd, w)
		},
	}
}

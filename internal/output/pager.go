package output

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

const defaultPageHeight = 40

// Pager shows long text through $PAGER when it is written to a terminal.
type Pager struct {
	Out io.Writer
	// Disabled forces plain output (--no-pager).
	Disabled bool
	// Height is the line count above which text is paged; 0 reads $LINES.
	Height int
}

// NewPager returns a pager writing to out.
func NewPager(out io.Writer, disabled bool) *Pager {
	return &Pager{Out: out, Disabled: disabled}
}

// ShouldPage reports whether content would be sent through the pager: paging
// is enabled, JSON mode is off, Out is a terminal and content is taller than
// the page.
func (p *Pager) ShouldPage(content string) bool {
	if p.Disabled || os.Getenv("VBADOC_JSON") == "true" || os.Getenv("VBADOC_NO_PAGER") == "1" {
		return false
	}
	if !isTerminal(p.Out) {
		return false
	}
	return strings.Count(content, "\n") > p.height()
}

// Show writes content to Out, through the pager when ShouldPage says so.
// A pager that cannot be started falls back to plain output.
func (p *Pager) Show(content string) error {
	if !p.ShouldPage(content) {
		_, err := fmt.Fprint(p.Out, content)
		return err
	}
	args := strings.Fields(os.Getenv("PAGER"))
	if len(args) == 0 {
		args = []string{"less"}
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		_, err := fmt.Fprint(p.Out, content)
		return err
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = p.Out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pager %s: %w", args[0], err)
	}
	return nil
}

func (p *Pager) height() int {
	if p.Height > 0 {
		return p.Height
	}
	if n, err := strconv.Atoi(os.Getenv("LINES")); err == nil && n > 0 {
		return n
	}
	return defaultPageHeight
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

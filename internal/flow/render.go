package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/klytics/vbadoc/internal/fs"
)

// ErrRender marks a diagram that could not be produced.
var ErrRender = errors.New("flowchart rendering failed")

// Formats lists the supported output formats. "dot" writes the graph source
// and needs no graphviz installation.
var Formats = []string{"png", "svg", "pdf", "dot"}

// DefaultFormat is the image encoding used when none is given.
const DefaultFormat = "png"

// Options configures Rasterize.
type Options struct {
	// Format is one of Formats; empty means DefaultFormat.
	Format string
	// DotBinary is the graphviz executable; empty means "dot" on PATH.
	DotBinary string
}

// ValidFormat reports whether format is supported.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Rasterize renders g to dest. The image is produced in a temporary file and
// moved onto dest only when graphviz succeeds. Every failure wraps ErrRender.
func Rasterize(ctx context.Context, g *Graph, dest string, opts Options) error {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = DefaultFormat
	}
	if !ValidFormat(format) {
		return fmt.Errorf("%w: unsupported format %q (supported: %s)", ErrRender, format, strings.Join(Formats, ", "))
	}

	if format == "dot" {
		if err := fs.WriteFileAtomic(dest, []byte(g.DOT())); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		return nil
	}

	bin, err := LookupDot(opts.DotBinary)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	tmp, err := fs.TempFile(dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	defer fs.Discard(tmp)

	cmd := exec.CommandContext(ctx, bin, "-T"+format, "-o", tmp)
	cmd.Stdin = strings.NewReader(g.DOT())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: graphviz: %s", ErrRender, msg)
	}
	if err := fs.Commit(tmp, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// LookupDot resolves the graphviz executable.
func LookupDot(bin string) (string, error) {
	if bin == "" {
		bin = "dot"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("graphviz (%s) not found; install it (brew install graphviz, apt-get install graphviz) or set flowchart.dot: %w", bin, err)
	}
	return path, nil
}

// DotVersion returns the graphviz version line, for diagnostics.
func DotVersion(ctx context.Context, bin string) (string, error) {
	path, err := LookupDot(bin)
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, path, "-V").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s -V: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Package progress provides terminal progress bars and spinners for batch
// runs and diagram rendering. Output goes to stderr unless redirected.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Bar tracks a fixed number of documents and draws an ASCII bar.
type Bar struct {
	Label   string
	Total   int
	Width   int
	Enabled bool
	Out     io.Writer

	mu     sync.Mutex
	done   int
	failed int
}

// New creates a progress bar for total items.
// It is disabled when stderr is not a TTY, when VBADOC_JSON=true, or when
// VBADOC_NO_PROGRESS=1.
func New(label string, total int) *Bar {
	return &Bar{
		Label:   label,
		Total:   total,
		Width:   30,
		Enabled: shouldEnable(),
		Out:     os.Stderr,
	}
}

// Step records one finished item. A non-nil err counts it as failed.
func (b *Bar) Step(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done < b.Total {
		b.done++
	}
	if err != nil {
		b.failed++
	}
	b.render(name)
}

// Done returns the number of finished and failed items.
func (b *Bar) Done() (done, failed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done, b.failed
}

// Pct returns the completed share in percent.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.done) / float64(b.Total) * 100
}

// Finish clears the bar and prints a summary line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled {
		return
	}
	fmt.Fprintf(b.Out, "\r\033[K✓ %s: %d/%d done, %d failed\n", b.Label, b.done, b.Total, b.failed)
}

func (b *Bar) render(name string) {
	if !b.Enabled {
		return
	}
	filled := 0
	if b.Total > 0 {
		filled = b.done * b.Width / b.Total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", b.Width-filled)
	line := fmt.Sprintf("%s [%s] %d/%d %s", b.Label, bar, b.done, b.Total, name)
	if b.failed > 0 {
		line += fmt.Sprintf(" (%d failed)", b.failed)
	}
	fmt.Fprintf(b.Out, "\r\033[K%s", line)
}

// Spinner animates while a task of unknown length runs, such as a
// graphviz render.
type Spinner struct {
	Label   string
	Enabled bool
	Out     io.Writer

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner.
func NewSpinner(label string) *Spinner {
	return &Spinner{Label: label, Enabled: shouldEnable(), Out: os.Stderr}
}

var frames = []string{"|", "/", "-", "\\"}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Enabled || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stop)
}

func (s *Spinner) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		s.mu.Lock()
		fmt.Fprintf(s.Out, "\r\033[K%s %s", frames[i%len(frames)], s.Label)
		s.mu.Unlock()
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation and prints result, if any.
func (s *Spinner) Stop(result string) {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		s.wg.Wait()
	}
	if s.Enabled {
		if result == "" {
			fmt.Fprint(s.Out, "\r\033[K")
		} else {
			fmt.Fprintf(s.Out, "\r\033[K%s\n", result)
		}
	}
}

// Update changes the label of a running spinner.
func (s *Spinner) Update(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Label = label
}

func shouldEnable() bool {
	if os.Getenv("VBADOC_NO_PROGRESS") == "1" {
		return false
	}
	if os.Getenv("VBADOC_JSON") == "true" {
		return false
	}
	return isTTY()
}

func isTTY() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

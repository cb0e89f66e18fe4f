// Package audit keeps a JSON-lines trail of the documents vbadoc has looked
// at: which workbook, whether it carried macros, what was found and where the
// report went.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klytics/vbadoc/internal/config"
)

// Entry is one audited action.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	Machine     string    `json:"machine"`
	Action      string    `json:"action"` // "report"
	Document    string    `json:"document"`
	Format      string    `json:"format,omitempty"`
	Output      string    `json:"output,omitempty"`
	Modules     int       `json:"modules"`
	Functions   int       `json:"functions"`
	Subroutines int       `json:"subroutines"`
	Variables   int       `json:"variables"`
	Comments    int       `json:"comments"`
	NoMacros    bool      `json:"no_macros,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
}

// Failed reports whether the action ended with an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Logger appends entries to a file. A nil or disabled Logger records nothing.
type Logger struct {
	FilePath string
	Enabled  bool

	mu sync.Mutex
}

// NewLogger creates a Logger writing to filePath.
func NewLogger(filePath string, enabled bool) *Logger {
	return &Logger{FilePath: filePath, Enabled: enabled}
}

// FromConfig returns the logger described by the audit section of the
// loaded configuration. Configuration errors yield a disabled logger.
func FromConfig() *Logger {
	cfg, err := config.Load()
	if err != nil {
		return NewLogger("", false)
	}
	return NewLogger(cfg.AuditPath(), cfg.Audit.Enabled)
}

// Active reports whether Log writes anything.
func (l *Logger) Active() bool {
	return l != nil && l.Enabled && l.FilePath != ""
}

// Log appends one entry. Missing Timestamp and Machine are filled in.
// Failures are returned but callers treat the trail as best-effort.
func (l *Logger) Log(_ context.Context, entry Entry) error {
	if !l.Active() {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Machine == "" {
		entry.Machine, _ = os.Hostname()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.FilePath), 0700); err != nil {
		return fmt.Errorf("could not create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("could not open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// ReadEntries reads all entries from the log file. A missing file yields no
// entries; malformed lines are skipped.
func ReadEntries(filePath string) ([]Entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Filter selects entries.
type Filter struct {
	Since      time.Time
	Action     string
	Document   string // substring of the document path
	OnlyMacros bool
	OnlyFailed bool
}

// Apply returns the entries matching f, in their original order.
func (f Filter) Apply(entries []Entry) []Entry {
	var result []Entry
	for _, e := range entries {
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Document != "" && !strings.Contains(e.Document, f.Document) {
			continue
		}
		if f.OnlyMacros && (e.NoMacros || e.Modules == 0) {
			continue
		}
		if f.OnlyFailed && !e.Failed() {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Stats summarizes a set of entries.
type Stats struct {
	Entries   int `json:"entries"`
	Documents int `json:"documents"`
	WithMacro int `json:"withMacros"`
	Failed    int `json:"failed"`
}

// Summarize counts entries and distinct documents. A document counts as
// carrying macros if any of its entries found modules.
func Summarize(entries []Entry) Stats {
	st := Stats{Entries: len(entries)}
	docs := map[string]bool{}
	for _, e := range entries {
		if _, seen := docs[e.Document]; !seen {
			docs[e.Document] = false
		}
		if e.Modules > 0 {
			docs[e.Document] = true
		}
		if e.Failed() {
			st.Failed++
		}
	}
	st.Documents = len(docs)
	for _, macros := range docs {
		if macros {
			st.WithMacro++
		}
	}
	return st
}

// LogSize returns the size of the audit log in bytes, or 0 if not found.
func LogSize(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the audit log. A missing log is not an error.
func Clear(filePath string) error {
	err := os.Truncate(filePath, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

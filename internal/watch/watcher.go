// Package watch provides a file system watcher that regenerates macro reports.
// It monitors directories for new or modified .xls/.xlsm documents and runs a
// handler for each one after a debounce interval.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/klytics/vbadoc/internal/fs"
	"github.com/klytics/vbadoc/internal/inspect"
)

// Rule defines which files trigger the handler.
type Rule struct {
	ID         string   `json:"id"`
	Pattern    string   `json:"pattern"`    // Glob pattern on the base name (e.g., "budget_*")
	Extensions []string `json:"extensions"` // File extensions to match
	Enabled    bool     `json:"enabled"`
}

// WatchConfig holds the complete watcher configuration.
type WatchConfig struct {
	Directories []string `json:"directories"`
	Rules       []Rule   `json:"rules"`
	Recursive   bool     `json:"recursive"`
	Debounce    int      `json:"debounceMs"` // Milliseconds to wait before processing
	OutDir      string   `json:"outDir,omitempty"`
	Suffix      string   `json:"suffix,omitempty"`
}

// Event represents a file event that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	RuleID    string    `json:"ruleId,omitempty"`
	Status    string    `json:"status"` // "processed", "no-macros", "error", "skipped"
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Result is what a handler reports back for an event.
type Result struct {
	Output   string
	NoMacros bool
}

// EventHandler is called when a matching file event occurs.
type EventHandler func(ctx context.Context, path string) (Result, error)

// Watcher monitors directories for file changes and triggers actions.
type Watcher struct {
	Config   WatchConfig
	Logger   *log.Logger
	Events   []Event
	Handler  EventHandler
	mu       sync.Mutex
	run      sync.Mutex
	ctx      context.Context
	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
}

// Status represents the current watcher status.
type Status struct {
	Running     bool     `json:"running"`
	Directories []string `json:"directories"`
	Rules       int      `json:"rules"`
	EventCount  int      `json:"eventCount"`
}

// DefaultRules matches every macro-capable workbook.
func DefaultRules() []Rule {
	return []Rule{{ID: "default", Extensions: []string{".xls", ".xlsm"}, Enabled: true}}
}

// New creates a new Watcher with the given configuration.
func New(config WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = 500
	}
	if len(config.Rules) == 0 {
		config.Rules = DefaultRules()
	}

	w := &Watcher{
		Config:   config,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
		ctx:      context.Background(),
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}

	return w, nil
}

// Start begins watching the configured directories. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	for _, dir := range w.Config.Directories {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}

		if w.Config.Recursive {
			if err := w.addRecursive(absDir); err != nil {
				return err
			}
		} else {
			if err := w.watcher.Add(absDir); err != nil {
				return fmt.Errorf("could not watch %s: %w", absDir, err)
			}
		}
	}

	w.Logger.Printf("Watching %d directory(ies) with %d rule(s)", len(w.Config.Directories), len(w.Config.Rules))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Stopping watcher")
			w.stopTimers()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("Error: %v", err)
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	if fs.IsLockFile(filepath.Base(path)) {
		return
	}
	if w.matchingRule(path) == nil {
		return
	}

	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(time.Duration(w.Config.Debounce)*time.Millisecond, func() {
		w.processFile(path, event.Op.String())
	})
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
}

// processFile runs the handler for one debounced path. Handler calls are
// serialized.
func (w *Watcher) processFile(path string, operation string) {
	w.run.Lock()
	defer w.run.Unlock()

	w.mu.Lock()
	delete(w.debounce, path)
	ctx := w.ctx
	w.mu.Unlock()

	evt := Event{
		Time:      time.Now(),
		Path:      path,
		Operation: operation,
		Status:    "skipped",
	}
	rule := w.matchingRule(path)
	if rule == nil {
		w.record(evt)
		return
	}
	evt.RuleID = rule.ID

	if w.Handler == nil {
		evt.Status = "processed"
		w.Logger.Printf("Matched %s (rule: %s) [no handler]", path, rule.ID)
		w.record(evt)
		return
	}

	res, err := w.Handler(ctx, path)
	switch {
	case err != nil:
		evt.Status = "error"
		evt.Error = err.Error()
		w.Logger.Printf("Error processing %s: %v", path, err)
	case res.NoMacros:
		evt.Status = "no-macros"
		w.Logger.Printf("No macro content in %s", path)
	default:
		evt.Status = "processed"
		evt.Output = res.Output
		w.Logger.Printf("Processed %s -> %s", path, res.Output)
	}
	w.record(evt)
}

func (w *Watcher) record(evt Event) {
	w.mu.Lock()
	w.Events = append(w.Events, evt)
	w.mu.Unlock()
}

func (w *Watcher) matchingRule(path string) *Rule {
	for i := range w.Config.Rules {
		rule := &w.Config.Rules[i]
		if rule.Enabled && w.matchesRule(path, *rule) {
			return rule
		}
	}
	return nil
}

func (w *Watcher) matchesRule(path string, rule Rule) bool {
	ext := strings.ToLower(filepath.Ext(path))

	if len(rule.Extensions) > 0 {
		matched := false
		for _, e := range rule.Extensions {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if strings.ToLower(e) == ext {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if rule.Pattern != "" {
		matched, _ := filepath.Match(rule.Pattern, filepath.Base(path))
		if !matched {
			return false
		}
	}

	return true
}

// ReportHandler returns a handler that writes a macro report for each
// document, next to it or into outDir when set.
func ReportHandler(in *inspect.Inspector, outDir, suffix string) EventHandler {
	return func(ctx context.Context, path string) (Result, error) {
		dest := inspect.DefaultReportPath(path, suffix)
		if outDir != "" {
			dest = filepath.Join(outDir, filepath.Base(dest))
		}
		out, err := in.Report(ctx, path, dest)
		if err != nil {
			return Result{}, err
		}
		if out.NoMacros {
			return Result{NoMacros: true}, nil
		}
		return Result{Output: out.ReportPath}, nil
	}
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Running:     true,
		Directories: w.Config.Directories,
		Rules:       len(w.Config.Rules),
		EventCount:  len(w.Events),
	}
}

// GetEvents returns all recorded events.
func (w *Watcher) GetEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.Events))
	copy(events, w.Events)
	return events
}

const pidFile = "watch.pid"

// WritePIDFile writes the current process ID to the PID file in the given directory.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, pidFile)
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID from the PID file.
func ReadPIDFile(dir string) (int, error) {
	path := filepath.Join(dir, pidFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(dir string) error {
	err := os.Remove(filepath.Join(dir, pidFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// SaveConfig writes the watcher config to a JSON file.
func SaveConfig(dir string, config WatchConfig) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(filepath.Join(dir, "watch-config.json"), data)
}

// LoadConfig reads the watcher config from a JSON file.
func LoadConfig(dir string) (*WatchConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, "watch-config.json"))
	if err != nil {
		return nil, err
	}
	var config WatchConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid watch config: %w", err)
	}
	return &config, nil
}

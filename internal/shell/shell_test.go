package shell

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/vba/vbatest"
)

// scripted replays lines and records the prompts it was shown.
type scripted struct {
	lines   []string
	prompts []string
}

func (s *scripted) SetPrompt(p string) { s.prompts = append(s.prompts, p) }

func (s *scripted) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := NewSession(&inspect.Inspector{}, "")
	s.Out = &out
	return s, &out
}

func writeBook(t *testing.T, dir string) string {
	t.Helper()
	doc := filepath.Join(dir, "book.xlsm")
	vbatest.WriteXLSM(t, doc, []vbatest.Module{
		{Name: "Module1", Source: "Function Add(a, b)\r\nEnd Function\r\nSub Main()\r\nEnd Sub\r\n"},
	})
	return doc
}

func TestNewSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s := NewSession(&inspect.Inspector{}, dir)
	if s.HistoryFile != filepath.Join(dir, "shell_history") {
		t.Errorf("HistoryFile = %q", s.HistoryFile)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state dir not created: %v", err)
	}
	if s.Flow.Format != "png" || s.Suffix != ".macros.txt" {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestLoopDefaultReportPath(t *testing.T) {
	dir := t.TempDir()
	doc := writeBook(t, dir)
	s, out := newTestSession(t)

	r := &scripted{lines: []string{doc, "", "", "exit"}}
	if err := s.Loop(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "book.macros.txt"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "## Functions:\n- Add\n") {
		t.Errorf("unexpected report: %q", data)
	}
	if s.Reports != 1 {
		t.Errorf("Reports = %d", s.Reports)
	}
	if !strings.Contains(out.String(), "Report saved to") || !strings.Contains(out.String(), "Session ended. 1 document(s)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	want := []string{"document> ", "report [" + filepath.Join(dir, "book.macros.txt") + "]> ", "diagram (blank to skip)> ", "document> "}
	if !reflect.DeepEqual(r.prompts, want) {
		t.Errorf("prompts = %q, want %q", r.prompts, want)
	}
}

func TestLoopCustomPathsAndDiagram(t *testing.T) {
	dir := t.TempDir()
	doc := writeBook(t, dir)
	s, out := newTestSession(t)

	report := filepath.Join(dir, "custom.txt")
	diagram := filepath.Join(dir, "flow.dot")
	r := &scripted{lines: []string{`"` + doc + `"`, report, diagram}}
	if err := s.Loop(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(report); err != nil {
		t.Errorf("report not written: %v", err)
	}
	src, err := os.ReadFile(diagram)
	if err != nil {
		t.Fatalf("diagram not written: %v", err)
	}
	if !strings.Contains(string(src), `"Function: Add"`) {
		t.Errorf("unexpected DOT source:\n%s", src)
	}
	if !strings.Contains(out.String(), "Flowchart saved to") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestLoopDiagramFailureKeepsReport(t *testing.T) {
	dir := t.TempDir()
	doc := writeBook(t, dir)
	s, out := newTestSession(t)

	report := filepath.Join(dir, "r.txt")
	diagram := filepath.Join(dir, "missing", "flow.dot")
	r := &scripted{lines: []string{doc, report, diagram}}
	s.Loop(context.Background(), r)

	if _, err := os.Stat(report); err != nil {
		t.Errorf("report should survive a failed flowchart: %v", err)
	}
	if !strings.Contains(out.String(), "report kept, but the flowchart failed") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestLoopNoMacros(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "plain.xlsm")
	vbatest.WriteXLSM(t, doc, nil)
	s, out := newTestSession(t)

	s.Loop(context.Background(), &scripted{lines: []string{doc, "", ""}})

	if !strings.Contains(out.String(), "No VBA macros found") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "plain.macros.txt")); !os.IsNotExist(err) {
		t.Error("no report should be written without macros")
	}
}

func TestLoopRejectsOtherFormats(t *testing.T) {
	s, out := newTestSession(t)
	r := &scripted{lines: []string{"notes.docx", "help", "history"}}
	s.Loop(context.Background(), r)

	got := out.String()
	if !strings.Contains(got, "notes.docx is not an .xls or .xlsm file") {
		t.Errorf("expected rejection, got:\n%s", got)
	}
	if !strings.Contains(got, "Shell commands:") {
		t.Error("help not printed")
	}
	if !strings.Contains(got, "3  history") {
		t.Errorf("history not printed:\n%s", got)
	}
	if len(r.prompts) != 4 {
		t.Errorf("rejected document should not prompt for destinations, prompts = %q", r.prompts)
	}
}

func TestLoopMissingDocument(t *testing.T) {
	s, out := newTestSession(t)
	s.Loop(context.Background(), &scripted{lines: []string{"/nonexistent/book.xls", "", ""}})
	if !strings.Contains(out.String(), "file not found") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestLoopCancelled(t *testing.T) {
	s, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Loop(ctx, &scripted{lines: []string{"exit"}}); err == nil {
		t.Error("expected context error")
	}
}

func TestComplete(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Budget.xlsm", "budget.xls", "notes.txt", ".hidden.xls"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}
	os.Mkdir(filepath.Join(dir, "books"), 0755)

	s, _ := newTestSession(t)
	got := s.Complete(dir + string(filepath.Separator) + "b")
	sep := string(filepath.Separator)
	want := []string{
		dir + sep + "Budget.xlsm",
		dir + sep + "books" + sep,
		dir + sep + "budget.xls",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Complete = %q, want %q", got, want)
	}

	if got := s.Complete("/nonexistent/dir/x"); got != nil {
		t.Errorf("expected no candidates, got %q", got)
	}
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		`"a b.xls"`: "a b.xls",
		`'a.xlsm'`:  "a.xlsm",
		`"a.xls`:    `"a.xls`,
		"plain":     "plain",
		`"`:         `"`,
	}
	for in, want := range tests {
		if got := unquote(in); got != want {
			t.Errorf("unquote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{5 * time.Minute, "5m 0s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.input); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

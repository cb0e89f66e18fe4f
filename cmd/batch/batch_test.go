package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/vbadoc/internal/fs"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/progress"
	"github.com/klytics/vbadoc/internal/vba/vbatest"
)

var macros = []vbatest.Module{
	{Name: "Module1", Source: "Function Total()\r\nEnd Function\r\nSub Refresh()\r\nEnd Sub\r\n"},
}

func TestRunMixedResults(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.xlsm")
	vbatest.WriteXLSM(t, good, macros)
	empty := filepath.Join(dir, "b.xlsm")
	vbatest.WriteXLSM(t, empty, nil)
	bad := filepath.Join(dir, "c.xls")
	os.WriteFile(bad, []byte("not a compound file"), 0644)

	files, root, err := collect(dir, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 || root == "" {
		t.Fatalf("collect = %d files, root %q", len(files), root)
	}

	outDir := t.TempDir()
	bar := &progress.Bar{Total: len(files), Width: 10}
	results := run(context.Background(), &inspect.Inspector{}, files, options{root: root, outDir: outDir, suffix: ".macros.txt"}, bar)

	want := []string{"ok", "no-macros", "error"}
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("%s: status %q, want %q (%s)", r.File, r.Status, want[i], r.Error)
		}
		if r.SHA256 == "" {
			t.Errorf("%s: missing hash", r.File)
		}
	}
	if results[0].Functions != 1 || results[0].Subs != 1 {
		t.Errorf("unexpected counts: %+v", results[0])
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.macros.txt")); err != nil {
		t.Errorf("report not written: %v", err)
	}
	if done, failed := bar.Done(); done != 3 || failed != 1 {
		t.Errorf("bar done=%d failed=%d", done, failed)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "a.xlsm")
	vbatest.WriteXLSM(t, doc, macros)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files, _ := fs.Glob(filepath.Join(dir, "*.xlsm"), false)
	results := run(ctx, &inspect.Inspector{}, files, options{suffix: ".macros.txt"}, &progress.Bar{Total: 1})
	if len(results) != 1 || results[0].Status != "error" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestCollectGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.xlsm", "b.xls", "c.xlsx", "~$a.xlsm"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
	}
	files, root, err := collect(filepath.Join(dir, "*"), false, false)
	if err != nil {
		t.Fatal(err)
	}
	if root != "" {
		t.Errorf("glob should not set a root, got %q", root)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 documents, got %d", len(files))
	}

	if _, _, err := collect("[", false, false); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestReportPath(t *testing.T) {
	used := map[string]bool{}
	got, err := reportPath("/docs/a.xlsm", options{suffix: ".txt"}, used)
	if err != nil || got != "/docs/a.txt" {
		t.Errorf("without out dir: %q, %v", got, err)
	}

	out := t.TempDir()
	flat := options{outDir: out, suffix: ".txt"}
	first, _ := reportPath("/x/book.xlsm", flat, used)
	second, _ := reportPath("/y/book.xls", flat, used)
	if first != filepath.Join(out, "book.txt") || second != filepath.Join(out, "book-2.txt") {
		t.Errorf("collision handling: %q, %q", first, second)
	}

	tree := options{root: "/src", outDir: out, suffix: ".txt"}
	got, err = reportPath("/src/q1/book.xlsm", tree, used)
	if err != nil || got != filepath.Join(out, "q1", "book.txt") {
		t.Errorf("tree layout: %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(out, "q1")); err != nil {
		t.Errorf("subdirectory not created: %v", err)
	}
}

func TestReportPathSameStemInPlace(t *testing.T) {
	used := map[string]bool{}
	opts := options{suffix: ".macros.txt"}
	first, _ := reportPath("/docs/Book.xls", opts, used)
	second, _ := reportPath("/docs/Book.xlsm", opts, used)
	if first != "/docs/Book.macros.txt" || second != "/docs/Book-2.macros.txt" {
		t.Errorf("got %q, %q", first, second)
	}
}

func TestReportPathUnwritableOutDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	opts := options{root: "/src", outDir: blocker, suffix: ".txt"}
	if _, err := reportPath("/src/q1/book.xlsm", opts, map[string]bool{}); err == nil {
		t.Error("expected error when the output directory cannot be created")
	}
}

func TestRunSameStemKeepsBothReports(t *testing.T) {
	dir := t.TempDir()
	vbatest.WriteXLS(t, filepath.Join(dir, "Book.xls"), []vbatest.Module{
		{Name: "Module1", Source: "Function FromXLS()\r\nEnd Function\r\n"},
	})
	vbatest.WriteXLSM(t, filepath.Join(dir, "Book.xlsm"), []vbatest.Module{
		{Name: "Module1", Source: "Function FromXLSM()\r\nEnd Function\r\n"},
	})

	files, root, err := collect(dir, false, false)
	if err != nil {
		t.Fatal(err)
	}
	results := run(context.Background(), &inspect.Inspector{}, files, options{root: root, suffix: ".macros.txt"}, &progress.Bar{Total: len(files)})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Report == results[1].Report {
		t.Fatalf("both documents reported to %q", results[0].Report)
	}
	for i, want := range []string{"FromXLS\n", "FromXLSM\n"} {
		data, err := os.ReadFile(results[i].Report)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "- "+want) {
			t.Errorf("%s: report does not list %q:\n%s", results[i].File, want, data)
		}
	}
}

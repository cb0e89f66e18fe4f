package vba

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klytics/vbadoc/internal/vba/vbatest"
)

var testModules = []vbatest.Module{
	{Name: "Module1", Source: "Function Add(a, b)\r\nDim total\r\n' sums two numbers\r\nEnd Function\r\n"},
	{Name: "Módulo2", Source: "Sub Run()\r\nAdd 1, 2\r\nEnd Sub\r\n"},
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenFileNotFound(t *testing.T) {
	_, err := Open("/nonexistent/book.xlsm")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if verr.Path != "/nonexistent/book.xlsm" {
		t.Errorf("unexpected path %q", verr.Path)
	}
}

func TestOpenUnsupportedFormat(t *testing.T) {
	// Content is never inspected: the extension alone decides.
	path := writeFile(t, "report.docx", vbatest.XLS(t, testModules))
	_, err := Open(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "folder.xls")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound for directory, got %v", err)
	}
}

func TestFormatOf(t *testing.T) {
	if f, ok := FormatOf("BOOK.XLSM"); !ok || f != FormatXLSM {
		t.Errorf("FormatOf(BOOK.XLSM) = %q, %v", f, ok)
	}
	if f, ok := FormatOf("legacy.xls"); !ok || f != FormatXLS {
		t.Errorf("FormatOf(legacy.xls) = %q, %v", f, ok)
	}
	if _, ok := FormatOf("data.xlsx"); ok {
		t.Error("xlsx has no macros and should not be recognized")
	}
}

func TestOpenXLS(t *testing.T) {
	path := writeFile(t, "legacy.xls", vbatest.XLS(t, testModules))

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if doc.Format != FormatXLS {
		t.Errorf("expected xls format, got %q", doc.Format)
	}
	if len(doc.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(doc.Modules))
	}
	if doc.Modules[0].Name != "Module1" || doc.Modules[1].Name != "Módulo2" {
		t.Errorf("unexpected module order: %q, %q", doc.Modules[0].Name, doc.Modules[1].Name)
	}
	want := "Function Add(a, b)\nDim total\n' sums two numbers\nEnd Function\n"
	if doc.Modules[0].Source != want {
		t.Errorf("expected source %q, got %q", want, doc.Modules[0].Source)
	}
}

func TestOpenXLSWithoutMacros(t *testing.T) {
	path := writeFile(t, "plain.xls", vbatest.XLS(t, nil))

	mods, err := ExtractModules(path)
	if err != nil {
		t.Fatalf("ExtractModules failed: %v", err)
	}
	if len(mods) != 0 {
		t.Errorf("expected no modules, got %d", len(mods))
	}
}

func TestOpenXLSNotOLE(t *testing.T) {
	path := writeFile(t, "fake.xls", []byte("this is not a workbook"))

	_, err := Open(path)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestOpenXLSM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.xlsm")
	vbatest.WriteXLSM(t, path, testModules)

	mods, err := ExtractModules(path)
	if err != nil {
		t.Fatalf("ExtractModules failed: %v", err)
	}
	if len(mods) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(mods))
	}
	if mods[1].Source != "Sub Run()\nAdd 1, 2\nEnd Sub\n" {
		t.Errorf("unexpected source %q", mods[1].Source)
	}
}

func TestOpenXLSMWithoutMacros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsm")
	vbatest.WriteXLSM(t, path, nil)

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if doc.HasMacros() {
		t.Errorf("expected no macros, got %d modules", len(doc.Modules))
	}
}

func TestOpenXLSMCorrupt(t *testing.T) {
	path := writeFile(t, "broken.xlsm", []byte("PK\x03\x04 truncated"))
	if _, err := Open(path); !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestSource(t *testing.T) {
	got := Source([]Module{{Source: "Sub A()"}, {Source: "Sub B()"}})
	if got != "Sub A()\nSub B()" {
		t.Errorf("unexpected concatenation %q", got)
	}
	if Source(nil) != "" {
		t.Error("expected empty source for no modules")
	}
}

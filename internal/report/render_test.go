package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/vbadoc/internal/analysis"
	"github.com/klytics/vbadoc/internal/vba"
)

func TestRenderRoundTrip(t *testing.T) {
	res := analysis.Result{
		Functions:   []string{"Add"},
		Subroutines: []string{"Run"},
		Variables:   []string{"total"},
		Comments:    []string{" sums two numbers"},
	}

	got := Render(res)
	want := "## Functions:\n- Add\n\n## Subroutines:\n- Run\n\n## Variables:\n- total\n\n## Comments:\n-  sums two numbers\n"
	if got != want {
		t.Errorf("unexpected report:\n got %q\nwant %q", got, want)
	}
}

func TestRenderEmpty(t *testing.T) {
	got := Render(analysis.Analyze("x = 1"))
	want := "## Functions:\n\n## Subroutines:\n\n## Variables:\n\n## Comments:\n"
	if got != want {
		t.Errorf("unexpected empty report:\n got %q\nwant %q", got, want)
	}
	if strings.Contains(got, "- ") {
		t.Error("empty report should have no bullets")
	}
}

func TestRenderVerbatim(t *testing.T) {
	got := Render(analysis.Result{Comments: []string{"<b>*not* escaped</b>"}})
	if !strings.Contains(got, "- <b>*not* escaped</b>\n") {
		t.Errorf("comment was altered: %q", got)
	}
}

func TestRenderKeepsOrderAndDuplicates(t *testing.T) {
	got := Render(analysis.Result{Subroutines: []string{"Beta", "Alpha", "Beta"}})
	if !strings.Contains(got, "## Subroutines:\n- Beta\n- Alpha\n- Beta\n") {
		t.Errorf("unexpected subroutine section: %q", got)
	}
}

func TestRenderSource(t *testing.T) {
	doc := &vba.Document{
		Path:       "book.xlsm",
		Properties: map[string]string{"Author": "Ann", "Title": "Budget"},
		Modules: []vba.Module{
			{Name: "Module1", Source: "Sub A()\nEnd Sub"},
		},
	}

	got := RenderSource(doc)
	for _, want := range []string{
		"VBA Code Documentation\n",
		"Author: Ann\nTitle: Budget\n",
		"Module: Module1\n---------------\nSub A()\nEnd Sub\n",
		strings.Repeat("=", 50),
	} {
		if !strings.Contains(got, want) {
			t.Errorf("listing missing %q:\n%s", want, got)
		}
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := Save(path, "## Functions:\n"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "## Functions:\n" {
		t.Errorf("unexpected content %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the report in the directory, found %d entries", len(entries))
	}
}

func TestSaveMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.txt")
	if err := Save(path, "x"); err == nil {
		t.Error("expected error writing into a missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should exist after a failed save")
	}
}

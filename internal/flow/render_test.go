package flow

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/vbadoc/internal/analysis"
)

func sampleGraph() *Graph {
	return Build(analysis.Result{Functions: []string{"Add", "Mul"}, Subroutines: []string{"Run"}})
}

func TestRasterizeDotSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "flow.dot")
	if err := Rasterize(context.Background(), sampleGraph(), dest, Options{Format: "dot"}); err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"function:Add" -> "function:Mul"`) {
		t.Errorf("unexpected dot file:\n%s", data)
	}
}

func TestRasterizeUnsupportedFormat(t *testing.T) {
	err := Rasterize(context.Background(), sampleGraph(), filepath.Join(t.TempDir(), "x.bmp"), Options{Format: "bmp"})
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender, got %v", err)
	}
}

func TestRasterizeMissingBackend(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "flow.png")
	err := Rasterize(context.Background(), sampleGraph(), dest, Options{DotBinary: "vbadoc-no-such-graphviz"})
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("no image should exist after a failed render")
	}
}

func TestRasterizeUnwritableDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "missing", "flow.dot")
	err := Rasterize(context.Background(), sampleGraph(), dest, Options{Format: "dot"})
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender, got %v", err)
	}
}

func TestRasterizePNG(t *testing.T) {
	if _, err := exec.LookPath("dot"); err != nil {
		t.Skip("graphviz not installed")
	}
	dir := t.TempDir()
	dest := filepath.Join(dir, "flow.png")
	if err := Rasterize(context.Background(), sampleGraph(), dest, Options{}); err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Error("output is not a PNG image")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"png", "svg", "pdf", "dot"} {
		if !ValidFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if ValidFormat("gif") {
		t.Error("gif should not be valid")
	}
}

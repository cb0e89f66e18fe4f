package vbatest_test

import (
	"path/filepath"
	"testing"

	"github.com/klytics/vbadoc/internal/vba"
	"github.com/klytics/vbadoc/internal/vba/vbatest"
)

var mods = []vbatest.Module{
	{Name: "Module1", Source: "Sub A()\r\nEnd Sub\r\n"},
	{Name: "Module2", Source: "Function B()\r\nEnd Function\r\n"},
}

func TestProjectBinIsCompoundFile(t *testing.T) {
	if bin := vbatest.ProjectBin(t, mods); !vba.IsOLE(bin) {
		t.Error("ProjectBin should start with the OLE signature")
	}
}

func TestFixturesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	xls := filepath.Join(dir, "book.xls")
	xlsm := filepath.Join(dir, "book.xlsm")
	vbatest.WriteXLS(t, xls, mods)
	vbatest.WriteXLSM(t, xlsm, mods)

	for _, path := range []string{xls, xlsm} {
		got, err := vba.ExtractModules(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if len(got) != len(mods) {
			t.Fatalf("%s: got %d modules, want %d", path, len(got), len(mods))
		}
		for i, m := range got {
			if m.Name != mods[i].Name {
				t.Errorf("%s: module %d named %q, want %q", path, i, m.Name, mods[i].Name)
			}
		}
		if got[0].Source != "Sub A()\nEnd Sub\n" {
			t.Errorf("%s: source = %q", path, got[0].Source)
		}
	}
}

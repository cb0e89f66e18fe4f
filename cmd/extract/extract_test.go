package extract

import (
	"reflect"
	"testing"

	"github.com/klytics/vbadoc/internal/vba"
)

func TestModuleFileName(t *testing.T) {
	tests := map[string]string{
		"Module1":   "Module1.bas",
		"Módulo2":   "Módulo2.bas",
		"This/Book": "This_Book.bas",
		"..\\evil":  "___evil.bas",
		"":          "module.bas",
	}
	for in, want := range tests {
		if got := moduleFileName(in); got != want {
			t.Errorf("moduleFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModuleFileNamesUnique(t *testing.T) {
	mods := []vba.Module{{Name: "Mod 1"}, {Name: "Mod_1"}, {Name: "mod?1"}, {Name: "Sheet1"}}
	want := []string{"Mod_1.bas", "Mod_1-2.bas", "mod_1-3.bas", "Sheet1.bas"}
	if got := moduleFileNames(mods); !reflect.DeepEqual(got, want) {
		t.Errorf("moduleFileNames = %v, want %v", got, want)
	}
}

// Package vba extracts VBA macro modules from spreadsheet documents.
//
// Two containers are recognized: legacy .xls workbooks, which are OLE compound
// files with the project under _VBA_PROJECT_CUR/VBA, and .xlsm packages, which
// carry the same compound file as the xl/vbaProject.bin part.
package vba

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies the container type of a document.
type Format string

const (
	FormatXLS  Format = "xls"
	FormatXLSM Format = "xlsm"
)

// Module is one named unit of macro source code.
type Module struct {
	Name       string `json:"name" yaml:"name"`
	StreamName string `json:"stream" yaml:"stream"`
	Source     string `json:"source" yaml:"source"`
}

// Document is an opened macro container.
type Document struct {
	Path       string            `json:"path" yaml:"path"`
	Format     Format            `json:"format" yaml:"format"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Modules    []Module          `json:"modules" yaml:"modules"`
}

// HasMacros reports whether any module was found.
func (d *Document) HasMacros() bool {
	return len(d.Modules) > 0
}

// FormatOf returns the container format for path based on its extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		return FormatXLS, true
	case ".xlsm":
		return FormatXLSM, true
	}
	return "", false
}

// ExtractModules returns the macro modules of the document at path, in the
// order the project lists them. A document without macros yields an empty
// slice and no error.
func ExtractModules(path string) ([]Module, error) {
	doc, err := Open(path)
	if err != nil {
		return nil, err
	}
	return doc.Modules, nil
}

// Open checks path, reads the container and decodes its modules.
func Open(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", path)
		}
		return nil, &Error{Op: "open", Path: path, Kind: ErrFileNotFound, Err: err}
	}

	format, ok := FormatOf(path)
	if !ok {
		return nil, &Error{
			Op:   "open",
			Path: path,
			Kind: ErrUnsupportedFormat,
			Err:  fmt.Errorf("expected a .xls or .xlsm file, got %q", filepath.Ext(path)),
		}
	}

	doc := &Document{Path: path, Format: format, Properties: map[string]string{}}
	switch format {
	case FormatXLS:
		err = doc.readXLS()
	case FormatXLSM:
		err = doc.readXLSM()
	}
	if err != nil {
		return nil, &Error{Op: "extract", Path: path, Kind: ErrExtraction, Err: err}
	}
	return doc, nil
}

func (d *Document) readXLS() error {
	f, err := os.Open(d.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	sig := make([]byte, len(oleSignature))
	if _, err := io.ReadFull(f, sig); err != nil || !IsOLE(sig) {
		return fmt.Errorf("not an OLE compound file")
	}
	return d.readProject(f)
}

func (d *Document) readXLSM() error {
	f, err := excelize.OpenFile(d.Path)
	if err != nil {
		return fmt.Errorf("could not open package (is this a valid .xlsm file?): %w", err)
	}
	defer f.Close()

	if props, err := f.GetDocProps(); err == nil {
		addProp(d.Properties, "Title", props.Title)
		addProp(d.Properties, "Subject", props.Subject)
		addProp(d.Properties, "Author", props.Creator)
		addProp(d.Properties, "LastAuthor", props.LastModifiedBy)
		addProp(d.Properties, "Created", props.Created)
		addProp(d.Properties, "Modified", props.Modified)
	}

	bin := vbaProjectPart(f)
	if bin == nil {
		return nil
	}
	if !IsOLE(bin) {
		return fmt.Errorf("vbaProject.bin is not an OLE compound file")
	}
	return d.readProject(bytes.NewReader(bin))
}

func (d *Document) readProject(ra io.ReaderAt) error {
	c, err := readContainer(ra)
	if err != nil {
		return err
	}
	for k, v := range c.props {
		if _, ok := d.Properties[k]; !ok {
			d.Properties[k] = v
		}
	}
	mods, err := c.modules()
	if err != nil {
		return err
	}
	d.Modules = mods
	return nil
}

// vbaProjectPart returns the raw vbaProject.bin part of a package, or nil.
func vbaProjectPart(f *excelize.File) []byte {
	if v, ok := f.Pkg.Load("xl/vbaProject.bin"); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	var found []byte
	f.Pkg.Range(func(k, v any) bool {
		name, _ := k.(string)
		if strings.HasSuffix(strings.ToLower(name), "vbaproject.bin") {
			found, _ = v.([]byte)
			return false
		}
		return true
	})
	return found
}

func addProp(m map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}

// Source concatenates the source of all modules, separated by newlines.
func Source(mods []Module) string {
	parts := make([]string, len(mods))
	for i, m := range mods {
		parts[i] = m.Source
	}
	return strings.Join(parts, "\n")
}

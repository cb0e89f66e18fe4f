// Package report renders the plain-text macro report and writes it to disk.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/klytics/vbadoc/internal/analysis"
	"github.com/klytics/vbadoc/internal/fs"
	"github.com/klytics/vbadoc/internal/vba"
)

// sections lists the report headings in output order.
var sections = []struct {
	Heading  string
	Category analysis.Category
}{
	{"## Functions:", analysis.Functions},
	{"## Subroutines:", analysis.Subroutines},
	{"## Variables:", analysis.Variables},
	{"## Comments:", analysis.Comments},
}

// Render formats an analysis result as the plain-text macro report: one
// heading per category, each followed by a "- item" line per fact. Items are
// written verbatim and empty categories keep their heading.
func Render(res analysis.Result) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Heading)
		b.WriteString("\n")
		for _, item := range res.Get(s.Category) {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderSource lists every module of a document with its full source.
func RenderSource(doc *vba.Document) string {
	var b strings.Builder
	b.WriteString("VBA Code Documentation\n\n")
	fmt.Fprintf(&b, "Document: %s\n", doc.Path)

	if len(doc.Properties) > 0 {
		keys := make([]string, 0, len(doc.Properties))
		for k := range doc.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, doc.Properties[k])
		}
	}
	b.WriteString("\n")

	for _, m := range doc.Modules {
		header := "Module: " + m.Name
		b.WriteString(header + "\n")
		b.WriteString(strings.Repeat("-", len(header)) + "\n")
		b.WriteString(m.Source)
		if !strings.HasSuffix(m.Source, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(strings.Repeat("=", 50) + "\n\n")
	}
	return b.String()
}

// Save writes content to path. The data goes to a temporary file in the same
// directory first and is renamed into place, so a failed write never leaves a
// truncated report behind.
func Save(path, content string) error {
	return fs.WriteFileAtomic(path, []byte(content))
}

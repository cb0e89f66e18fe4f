// Package inspect implements the two user actions of vbadoc: producing a
// macro report from a document, and drawing a flow diagram from the same
// analysis. Presentation layers (CLI, shell, watcher, MCP server) call these
// and decide how to show the outcome.
package inspect

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/klytics/vbadoc/internal/analysis"
	"github.com/klytics/vbadoc/internal/audit"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/report"
	"github.com/klytics/vbadoc/internal/vba"
)

// Outcome is the result of a successful report action.
type Outcome struct {
	Document   *vba.Document   `json:"document"`
	Result     analysis.Result `json:"analysis"`
	Report     string          `json:"-"`
	ReportPath string          `json:"reportPath,omitempty"`
	// NoMacros is set when the document holds no macro code. No report is
	// written in that case; it is not an error.
	NoMacros bool `json:"noMacros"`
}

// Inspector runs the actions. The zero value is usable.
type Inspector struct {
	// Logger receives debug lines; nil discards them.
	Logger *log.Logger
	// Audit records every report action; nil records nothing.
	Audit *audit.Logger
}

func (in *Inspector) logf(format string, args ...any) {
	if in != nil && in.Logger != nil {
		in.Logger.Printf(format, args...)
	}
}

// Analyze opens a document and analyzes its concatenated macro source
// without writing anything.
func (in *Inspector) Analyze(ctx context.Context, docPath string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := vba.Open(docPath)
	if err != nil {
		return nil, err
	}
	in.logf("opened %s (%s): %d module(s)", docPath, doc.Format, len(doc.Modules))
	for _, m := range doc.Modules {
		in.logf("  module %s: %d bytes", m.Name, len(m.Source))
	}

	out := &Outcome{Document: doc}
	if !doc.HasMacros() {
		out.NoMacros = true
		return out, nil
	}
	out.Result = analysis.Analyze(vba.Source(doc.Modules))
	out.Report = report.Render(out.Result)
	in.logf("analysis: %s", out.Result.Summary())
	return out, nil
}

// Report extracts, analyzes and writes the report for docPath to reportPath.
// An empty reportPath renders without saving.
func (in *Inspector) Report(ctx context.Context, docPath, reportPath string) (*Outcome, error) {
	start := time.Now()
	out, err := in.report(ctx, docPath, reportPath)
	in.record(ctx, docPath, out, err, time.Since(start))
	return out, err
}

func (in *Inspector) report(ctx context.Context, docPath, reportPath string) (*Outcome, error) {
	out, err := in.Analyze(ctx, docPath)
	if err != nil || out.NoMacros {
		return out, err
	}
	if reportPath == "" {
		return out, nil
	}
	if err := report.Save(reportPath, out.Report); err != nil {
		return nil, err
	}
	out.ReportPath = reportPath
	in.logf("report written to %s", reportPath)
	return out, nil
}

func (in *Inspector) record(ctx context.Context, docPath string, out *Outcome, err error, took time.Duration) {
	if in == nil || !in.Audit.Active() {
		return
	}
	if abs, aerr := filepath.Abs(docPath); aerr == nil {
		docPath = abs
	}
	e := audit.Entry{Action: "report", Document: docPath, DurationMs: took.Milliseconds()}
	if err != nil {
		e.Error = err.Error()
	}
	if out != nil {
		e.NoMacros = out.NoMacros
		e.Output = out.ReportPath
		e.Functions = len(out.Result.Functions)
		e.Subroutines = len(out.Result.Subroutines)
		e.Variables = len(out.Result.Variables)
		e.Comments = len(out.Result.Comments)
		if out.Document != nil {
			e.Format = string(out.Document.Format)
			e.Modules = len(out.Document.Modules)
		}
	}
	if lerr := in.Audit.Log(ctx, e); lerr != nil {
		in.logf("audit: %v", lerr)
	}
}

// Flowchart draws the routines of res to dest. It is independent from the
// report: a failure here leaves an already written report in place.
func (in *Inspector) Flowchart(ctx context.Context, res analysis.Result, dest string, opts flow.Options) (*flow.Graph, error) {
	g := flow.Build(res)
	in.logf("flowchart: %d node(s), %d edge(s)", len(g.Nodes), len(g.Edges))
	if err := flow.Rasterize(ctx, g, dest, opts); err != nil {
		return g, err
	}
	in.logf("flowchart written to %s", dest)
	return g, nil
}

// DefaultReportPath derives the report file name from the document path:
// dir/Book.xlsm with suffix ".macros.txt" becomes dir/Book.macros.txt.
func DefaultReportPath(docPath, suffix string) string {
	if suffix == "" {
		suffix = ".macros.txt"
	}
	base := strings.TrimSuffix(docPath, filepath.Ext(docPath))
	return base + suffix
}

// DefaultFlowchartPath derives the diagram file name from the document path.
func DefaultFlowchartPath(docPath, format string) string {
	if format == "" {
		format = flow.DefaultFormat
	}
	base := strings.TrimSuffix(docPath, filepath.Ext(docPath))
	return base + ".flow." + format
}

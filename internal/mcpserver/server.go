// Package mcpserver exposes the report and flowchart actions as tools of a
// Model Context Protocol server speaking over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/klytics/vbadoc/cmd/version"
	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/inspect"
)

// Options configures the tool defaults.
type Options struct {
	Suffix string
	Flow   flow.Options
	Logger *log.Logger
}

// Server wraps an MCP server with the vbadoc tools registered.
type Server struct {
	mcp    *server.MCPServer
	in     *inspect.Inspector
	opts   Options
	logger *log.Logger
}

// New creates a server whose tools run on in.
func New(in *inspect.Inspector, opts Options) *Server {
	if opts.Logger == nil {
		// stdout carries the protocol.
		opts.Logger = log.New(os.Stderr, "[mcp] ", log.LstdFlags)
	}
	if opts.Flow.Format == "" {
		opts.Flow.Format = flow.DefaultFormat
	}
	s := &Server{
		mcp: server.NewMCPServer(
			"vbadoc",
			version.Version,
			server.WithLogging(),
			server.WithRecovery(),
		),
		in:     in,
		opts:   opts,
		logger: opts.Logger,
	}

	reportTool := mcp.NewTool("generate_report",
		mcp.WithDescription("Extract the VBA macros of an .xls or .xlsm workbook and write a report listing its functions, subroutines, Dim variables and comments."),
		mcp.WithString("document_path",
			mcp.Description("Path of the .xls or .xlsm document."),
			mcp.Required(),
		),
		mcp.WithString("report_path",
			mcp.Description("Where to write the report. Defaults to the document path with its extension replaced by the report suffix."),
		),
	)

	flowTool := mcp.NewTool("generate_flowchart",
		mcp.WithDescription("Draw the functions and subroutines of a workbook's VBA macros as a sequential flow diagram using graphviz. The document is analyzed without writing a report."),
		mcp.WithString("document_path",
			mcp.Description("Path of the .xls or .xlsm document."),
			mcp.Required(),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the diagram."),
			mcp.Required(),
		),
		mcp.WithString("format",
			mcp.Description("Diagram encoding. 'dot' writes the graphviz source and needs no graphviz install."),
			mcp.DefaultString(opts.Flow.Format),
			mcp.Enum(flow.Formats...),
		),
	)

	s.mcp.AddTool(reportTool, s.handleReport)
	s.mcp.AddTool(flowTool, s.handleFlowchart)
	return s
}

// ServeStdio serves the protocol on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Printf("Starting vbadoc MCP server %s via stdio", version.Version)
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	docPath, ok := args["document_path"].(string)
	if !ok || docPath == "" {
		return nil, fmt.Errorf("missing or invalid required argument: document_path (string)")
	}
	reportPath, _ := args["report_path"].(string)
	if reportPath == "" {
		reportPath = inspect.DefaultReportPath(docPath, s.opts.Suffix)
	}
	reportPath = absolute(reportPath)

	s.logger.Printf("Handling generate_report: document=%s report=%s", docPath, reportPath)
	out, err := s.in.Report(ctx, docPath, reportPath)
	if err != nil {
		s.logger.Printf("Report failed for %s: %v", docPath, err)
		return errorResult(err), nil
	}
	if out.NoMacros {
		return textResult(fmt.Sprintf("No VBA macros found in %s. No report was written.", docPath)), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("Report written to %s (%s).", out.ReportPath, out.Result.Summary()),
			},
			mcp.TextContent{
				Type: "text",
				Text: out.Report,
			},
		},
	}, nil
}

func (s *Server) handleFlowchart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	docPath, ok := args["document_path"].(string)
	if !ok || docPath == "" {
		return nil, fmt.Errorf("missing or invalid required argument: document_path (string)")
	}
	outPath, ok := args["output_path"].(string)
	if !ok || outPath == "" {
		return nil, fmt.Errorf("missing or invalid required argument: output_path (string)")
	}
	opts := s.opts.Flow
	if format, ok := args["format"].(string); ok && format != "" {
		opts.Format = strings.ToLower(format)
	}
	outPath = absolute(outPath)

	s.logger.Printf("Handling generate_flowchart: document=%s output=%s format=%s", docPath, outPath, opts.Format)
	out, err := s.in.Analyze(ctx, docPath)
	if err != nil {
		return errorResult(err), nil
	}
	if out.NoMacros {
		return textResult(fmt.Sprintf("No VBA macros found in %s. No diagram was drawn.", docPath)), nil
	}

	g, err := s.in.Flowchart(ctx, out.Result, outPath, opts)
	if err != nil {
		s.logger.Printf("Flowchart failed for %s: %v", docPath, err)
		res := errorResult(err)
		if _, lerr := flow.LookupDot(opts.DotBinary); lerr != nil && opts.Format != "dot" {
			res.Content = append(res.Content, mcp.TextContent{Type: "text", Text: "Install graphviz or request format 'dot'."})
		}
		return res, nil
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("Flowchart with %d node(s) and %d edge(s) written to %s.", len(g.Nodes), len(g.Edges), outPath),
			},
		},
	}
	if opts.Format == "dot" || opts.Format == "svg" {
		if data, err := os.ReadFile(outPath); err == nil {
			result.Content = append(result.Content, mcp.TextContent{Type: "text", Text: string(data)})
		}
	}
	return result, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}

// absolute resolves relative paths against the server's working directory.
func absolute(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

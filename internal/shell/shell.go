// Package shell provides the interactive vbadoc session. It asks for a
// document, a report destination and an optional diagram destination, then
// runs the report and flowchart actions.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/klytics/vbadoc/internal/flow"
	"github.com/klytics/vbadoc/internal/inspect"
	"github.com/klytics/vbadoc/internal/vba"
)

// LineReader is the part of a readline instance the session needs.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Session manages an interactive vbadoc session.
type Session struct {
	Inspector   *inspect.Inspector
	Flow        flow.Options
	Suffix      string
	HistoryFile string
	StartTime   time.Time
	Out         io.Writer

	// Reports counts documents processed in this session.
	Reports int
	History []string
}

// NewSession creates a new interactive session with its history stored
// under stateDir.
func NewSession(in *inspect.Inspector, stateDir string) *Session {
	histFile := ""
	if stateDir != "" {
		histFile = filepath.Join(stateDir, "shell_history")
		os.MkdirAll(stateDir, 0755)
	}
	return &Session{
		Inspector:   in,
		Flow:        flow.Options{Format: flow.DefaultFormat},
		Suffix:      ".macros.txt",
		HistoryFile: histFile,
		StartTime:   time.Now(),
		Out:         os.Stdout,
	}
}

// Run starts the prompt loop on the terminal. Blocks until 'exit' or Ctrl+D.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "document> ",
		HistoryFile:     s.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(readline.PcItemDynamic(s.Complete)),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(s.Out, "vbadoc interactive shell")
	fmt.Fprintln(s.Out, "Type 'help' for commands, 'exit' to quit.")
	fmt.Fprintln(s.Out)

	return s.Loop(ctx, rl)
}

var errQuit = errors.New("quit")

// Loop reads requests from r until it is exhausted or the user exits.
func (s *Session) Loop(ctx context.Context, r LineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.SetPrompt("document> ")
		line, err := r.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.History = append(s.History, line)

		switch line {
		case "exit", "quit":
			s.goodbye()
			return nil
		case "help":
			s.printHelp()
			continue
		case "history":
			for i, h := range s.History {
				fmt.Fprintf(s.Out, "  %d  %s\n", i+1, h)
			}
			continue
		}

		if err := s.handle(ctx, r, unquote(line)); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			fmt.Fprintf(s.Out, "%s %s\n", color.RedString("Error:"), err)
		}
	}
	return nil
}

// handle asks for the destinations of one document and runs the actions.
func (s *Session) handle(ctx context.Context, r LineReader, doc string) error {
	if _, ok := vba.FormatOf(doc); !ok {
		return fmt.Errorf("%s is not an .xls or .xlsm file", doc)
	}

	def := inspect.DefaultReportPath(doc, s.Suffix)
	reportPath, err := ask(r, fmt.Sprintf("report [%s]> ", def))
	if err != nil {
		return err
	}
	if reportPath == "" {
		reportPath = def
	}

	diagram, err := ask(r, "diagram (blank to skip)> ")
	if err != nil {
		return err
	}

	out, err := s.Inspector.Report(ctx, doc, reportPath)
	if err != nil {
		return err
	}
	s.Reports++
	if out.NoMacros {
		color.New(color.FgYellow).Fprintf(s.Out, "No VBA macros found in %s\n", doc)
		return nil
	}
	color.New(color.FgGreen).Fprintf(s.Out, "Report saved to %s (%s)\n", out.ReportPath, out.Result.Summary())

	if diagram == "" {
		return nil
	}
	opts := s.Flow
	if ext := strings.TrimPrefix(filepath.Ext(diagram), "."); flow.ValidFormat(ext) {
		opts.Format = ext
	}
	if _, err := s.Inspector.Flowchart(ctx, out.Result, diagram, opts); err != nil {
		return fmt.Errorf("report kept, but the flowchart failed: %w", err)
	}
	color.New(color.FgGreen).Fprintf(s.Out, "Flowchart saved to %s\n", diagram)
	return nil
}

func ask(r LineReader, prompt string) (string, error) {
	r.SetPrompt(prompt)
	line, err := r.Readline()
	if err != nil {
		return "", errQuit
	}
	return unquote(strings.TrimSpace(line)), nil
}

// unquote strips the quotes a terminal adds when a file is dragged in.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Complete returns file path candidates for the given input: directories and
// .xls/.xlsm documents whose path starts with it.
func (s *Session) Complete(input string) []string {
	dir, prefix := filepath.Split(input)
	lookIn := dir
	if lookIn == "" {
		lookIn = "."
	}
	entries, err := os.ReadDir(lookIn)
	if err != nil {
		return nil
	}

	var matches []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			continue
		}
		switch {
		case e.IsDir():
			matches = append(matches, dir+name+string(filepath.Separator))
		default:
			if _, ok := vba.FormatOf(name); ok {
				matches = append(matches, dir+name)
			}
		}
	}
	sort.Strings(matches)
	return matches
}

func (s *Session) goodbye() {
	fmt.Fprintf(s.Out, "\nSession ended. %d document(s) processed in %s.\n",
		s.Reports, formatDuration(time.Since(s.StartTime)))
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.Out, "Enter the path of an .xls or .xlsm document. You will be asked for")
	fmt.Fprintln(s.Out, "the report destination (Enter keeps the default) and an optional")
	fmt.Fprintln(s.Out, "flowchart destination (.png, .svg, .pdf or .dot).")
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, "Shell commands:")
	fmt.Fprintln(s.Out, "  help       show this help")
	fmt.Fprintln(s.Out, "  history    show entered lines")
	fmt.Fprintln(s.Out, "  exit       leave the shell")
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

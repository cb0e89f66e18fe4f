// Package analysis performs a lexical scan of VBA source text.
//
// The scan is a set of independent pattern rules, one per fact category. It
// does not parse VBA: a keyword inside a string literal, a comment or another
// identifier ("MySub Foo") still fires, and there is no notion of scope. A
// grammar-based analyzer can replace the rules without touching callers.
package analysis

import (
	"fmt"
	"regexp"
)

// Category names a kind of extracted fact.
type Category string

const (
	Functions   Category = "functions"
	Subroutines Category = "subroutines"
	Variables   Category = "variables"
	Comments    Category = "comments"
)

// Result holds the facts found in a source text, each in order of first
// textual occurrence. Repeated declarations are kept.
type Result struct {
	Functions   []string `json:"functions" yaml:"functions"`
	Subroutines []string `json:"subroutines" yaml:"subroutines"`
	Variables   []string `json:"variables" yaml:"variables"`
	Comments    []string `json:"comments" yaml:"comments"`
}

// Rule extracts one category of facts. The first capture group of Pattern is
// the extracted value.
type Rule struct {
	Category Category
	Pattern  *regexp.Regexp
}

// Find returns every capture of the rule in text, left to right.
func (r Rule) Find(text string) []string {
	matches := r.Pattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// declaration builds the rule for a keyword followed by an identifier on the
// same line.
func declaration(c Category, keyword string) Rule {
	return Rule{
		Category: c,
		Pattern:  regexp.MustCompile(`(?i)` + keyword + `[ \t]+([\p{L}\p{N}_]+)`),
	}
}

var defaultRules = []Rule{
	declaration(Functions, "Function"),
	declaration(Subroutines, "Sub"),
	declaration(Variables, "Dim"),
	// Everything after the first quote on a line.
	{Category: Comments, Pattern: regexp.MustCompile(`'(.+)`)},
}

// Rules returns the rules used by Analyze.
func Rules() []Rule {
	rules := make([]Rule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}

// Analyze scans source and returns the facts of every category. It never
// fails: text without matches yields empty slices.
func Analyze(source string) Result {
	return AnalyzeWith(Rules(), source)
}

// AnalyzeWith scans source with the given rules.
func AnalyzeWith(rules []Rule, source string) Result {
	res := Result{
		Functions:   []string{},
		Subroutines: []string{},
		Variables:   []string{},
		Comments:    []string{},
	}
	for _, r := range rules {
		found := r.Find(source)
		switch r.Category {
		case Functions:
			res.Functions = append(res.Functions, found...)
		case Subroutines:
			res.Subroutines = append(res.Subroutines, found...)
		case Variables:
			res.Variables = append(res.Variables, found...)
		case Comments:
			res.Comments = append(res.Comments, found...)
		}
	}
	return res
}

// Get returns the facts of one category.
func (r Result) Get(c Category) []string {
	switch c {
	case Functions:
		return r.Functions
	case Subroutines:
		return r.Subroutines
	case Variables:
		return r.Variables
	case Comments:
		return r.Comments
	}
	return nil
}

// Empty reports whether no facts were found.
func (r Result) Empty() bool {
	return len(r.Functions)+len(r.Subroutines)+len(r.Variables)+len(r.Comments) == 0
}

// Summary returns a one-line count of each category.
func (r Result) Summary() string {
	return fmt.Sprintf("%d functions, %d subroutines, %d variables, %d comments",
		len(r.Functions), len(r.Subroutines), len(r.Variables), len(r.Comments))
}

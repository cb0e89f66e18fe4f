package analysis

import (
	"reflect"
	"testing"
)

const roundTrip = `Function Add(a, b)
Dim total
' sums two numbers
End Function
Sub Run()
Add 1, 2
End Sub
`

func TestAnalyzeRoundTrip(t *testing.T) {
	res := Analyze(roundTrip)

	want := Result{
		Functions:   []string{"Add"},
		Subroutines: []string{"Run"},
		Variables:   []string{"total"},
		Comments:    []string{" sums two numbers"},
	}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("unexpected result:\n got %+v\nwant %+v", res, want)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := Analyze(roundTrip)
	b := Analyze(roundTrip)
	if !reflect.DeepEqual(a, b) {
		t.Error("Analyze is not deterministic")
	}
}

func TestAnalyzeNoMatches(t *testing.T) {
	res := Analyze("x = 1\ny = x + 2\n")
	if !res.Empty() {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Functions == nil || res.Comments == nil {
		t.Error("empty categories should be empty slices, not nil")
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	if res := Analyze(""); !res.Empty() {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestAnalyzeOrder(t *testing.T) {
	res := Analyze("Sub Alpha()\nEnd Sub\nSub Beta()\nEnd Sub\n")
	if !reflect.DeepEqual(res.Subroutines, []string{"Alpha", "Beta"}) {
		t.Errorf("expected [Alpha Beta], got %v", res.Subroutines)
	}
}

func TestAnalyzeDuplicatesKept(t *testing.T) {
	res := Analyze("Function X()\nEnd Function\nFunction X()\nEnd Function\n")
	if !reflect.DeepEqual(res.Functions, []string{"X", "X"}) {
		t.Errorf("expected [X X], got %v", res.Functions)
	}
}

func TestAnalyzeVariableAndCommentSameLine(t *testing.T) {
	res := Analyze("Dim x As Integer 'initialize counter\n")
	if !reflect.DeepEqual(res.Variables, []string{"x"}) {
		t.Errorf("expected variable x, got %v", res.Variables)
	}
	if !reflect.DeepEqual(res.Comments, []string{"initialize counter"}) {
		t.Errorf("expected comment, got %v", res.Comments)
	}
}

func TestAnalyzeCaseInsensitive(t *testing.T) {
	res := Analyze("PRIVATE SUB Loud()\nprivate function quiet()\nDIM n\n")
	if !reflect.DeepEqual(res.Subroutines, []string{"Loud"}) {
		t.Errorf("subroutines = %v", res.Subroutines)
	}
	if !reflect.DeepEqual(res.Functions, []string{"quiet"}) {
		t.Errorf("functions = %v", res.Functions)
	}
	if !reflect.DeepEqual(res.Variables, []string{"n"}) {
		t.Errorf("variables = %v", res.Variables)
	}
}

func TestAnalyzeKeywordDoesNotSpanLines(t *testing.T) {
	res := Analyze("End Function\nSub Next1()\n")
	if len(res.Functions) != 0 {
		t.Errorf("End Function followed by a new line must not match, got %v", res.Functions)
	}
}

func TestAnalyzeSubstringFalsePositive(t *testing.T) {
	// Known limitation: no word boundary before the keyword.
	res := Analyze("Call MySub Foo\n")
	if !reflect.DeepEqual(res.Subroutines, []string{"Foo"}) {
		t.Errorf("expected the substring match to fire, got %v", res.Subroutines)
	}
}

func TestAnalyzeCommentsFirstQuote(t *testing.T) {
	res := Analyze("MsgBox \"it's\" ' note\n'\nx = 1\n")
	want := []string{"s\" ' note"}
	if !reflect.DeepEqual(res.Comments, want) {
		t.Errorf("expected %q, got %q", want, res.Comments)
	}
}

func TestAnalyzeUnicodeIdentifiers(t *testing.T) {
	res := Analyze("Sub Größe_1()\n")
	if !reflect.DeepEqual(res.Subroutines, []string{"Größe_1"}) {
		t.Errorf("subroutines = %v", res.Subroutines)
	}
}

func TestAnalyzeWithCustomRules(t *testing.T) {
	rules := []Rule{declaration(Functions, "Property Get")}
	res := AnalyzeWith(rules, "Property Get Name()\nSub Ignored()\n")
	if !reflect.DeepEqual(res.Functions, []string{"Name"}) {
		t.Errorf("functions = %v", res.Functions)
	}
	if len(res.Subroutines) != 0 {
		t.Errorf("only the given rules should run, got %v", res.Subroutines)
	}
}

func TestSummary(t *testing.T) {
	got := Analyze(roundTrip).Summary()
	want := "1 functions, 1 subroutines, 1 variables, 1 comments"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

package flow

import (
	"strings"
	"testing"

	"github.com/klytics/vbadoc/internal/analysis"
)

func TestBuildChainsInDeclarationOrder(t *testing.T) {
	g := Build(analysis.Result{
		Functions:   []string{"A", "B", "C"},
		Subroutines: []string{"Main", "Helper"},
	})

	if len(g.Nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(g.Nodes))
	}
	want := []Edge{
		{From: "function:A", To: "function:B"},
		{From: "function:B", To: "function:C"},
		{From: "subroutine:Main", To: "subroutine:Helper"},
	}
	if len(g.Edges) != len(want) {
		t.Fatalf("expected %d edges, got %d", len(want), len(g.Edges))
	}
	for i, e := range want {
		if g.Edges[i] != e {
			t.Errorf("edge %d = %+v, want %+v", i, g.Edges[i], e)
		}
	}
}

func TestBuildNoCrossSetEdges(t *testing.T) {
	g := Build(analysis.Result{Functions: []string{"F"}, Subroutines: []string{"S"}})
	if len(g.Edges) != 0 {
		t.Errorf("expected no edges between a single function and a single sub, got %v", g.Edges)
	}
}

func TestBuildEmpty(t *testing.T) {
	g := Build(analysis.Result{})
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("expected empty graph, got %d nodes %d edges", len(g.Nodes), len(g.Edges))
	}
}

func TestBuildDuplicateNamesCollapse(t *testing.T) {
	res := analysis.Analyze("Function X()\nEnd Function\nFunction X()\nEnd Function\n")
	g := Build(res)

	if n := len(g.NodesOf(KindFunction)); n != 1 {
		t.Errorf("expected one node named X, got %d", n)
	}
	// Edge count still follows the declaration list.
	if len(g.Edges) != 1 || g.Edges[0].From != g.Edges[0].To {
		t.Errorf("expected a single self loop, got %v", g.Edges)
	}
}

func TestBuildSameNameInBothSets(t *testing.T) {
	g := Build(analysis.Result{Functions: []string{"Go"}, Subroutines: []string{"Go"}})
	if len(g.Nodes) != 2 {
		t.Fatalf("function and sub sets are disjoint, expected 2 nodes, got %d", len(g.Nodes))
	}
	n, ok := g.Lookup(KindSubroutine, "Go")
	if !ok || n.Label != "Subroutine: Go" {
		t.Errorf("unexpected lookup result %+v, %v", n, ok)
	}
}

func TestDOT(t *testing.T) {
	g := Build(analysis.Result{Functions: []string{"Add"}, Subroutines: []string{"Run", "Stop"}})
	dot := g.DOT()

	for _, want := range []string{
		"// VBA Macro Process Flow\n",
		"digraph {\n",
		"\t\"function:Add\" [label=\"Function: Add\"]\n",
		"\t\"subroutine:Run\" -> \"subroutine:Stop\"\n",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("DOT output not terminated")
	}
}

func TestQuote(t *testing.T) {
	if got := quote(`a"b\c`); got != `"a\"b\\c"` {
		t.Errorf("quote = %s", got)
	}
}

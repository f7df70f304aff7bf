package cst_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/token"
)

// entry is a flattened, order-preserving view of one node or token in a
// tree, depth included, so a mismatch anywhere in a deep tree still shows up
// as one readable cmp.Diff line rather than a single "not equal" failure.
type entry struct {
	Depth int
	Kind  string
	Start int
	End   int
	Text  string // tokens only
}

func flatten(r *cst.Red) []entry {
	var out []entry
	var walk func(r *cst.Red, depth int)
	walk = func(r *cst.Red, depth int) {
		span := r.Span()
		out = append(out, entry{Depth: depth, Kind: r.Kind().String(), Start: span.Start, End: span.End})
		for _, e := range r.ChildrenWithTokens() {
			if e.Node != nil {
				walk(e.Node, depth+1)
				continue
			}
			out = append(out, entry{
				Depth: depth + 1,
				Kind:  e.Token.Kind.String(),
				Start: e.Token.Span.Start,
				End:   e.Token.Span.End,
				Text:  e.Token.Text,
			})
		}
	}
	walk(r, 0)
	return out
}

// buildSum builds "12 + 345" the same way TestSpanCover does.
func buildSum() *cst.Red {
	in := cst.NewInterner()
	b := cst.NewBuilder(in)
	b.StartNode(cst.NodeInfixOp)
	b.StartNode(cst.NodeInteger)
	b.Token(token.INTEGER, "12")
	b.FinishNode()
	b.Token(token.SPACE, " ")
	b.Token(token.PLUS, "+")
	b.Token(token.SPACE, " ")
	b.StartNode(cst.NodeInteger)
	b.Token(token.INTEGER, "345")
	b.FinishNode()
	b.FinishNode()
	return cst.NewRoot(b.Root())
}

// TestFlattenedDumpIsDeterministic builds the same tree twice from
// independent Builder sessions and asserts the flattened shapes are
// byte-identical - the CST layer has no hidden nondeterminism (map
// iteration order, pointer-derived IDs, etc.) that would make two builds of
// identical input diverge, which the check-syntax fixture harness
// relies on for stable golden comparisons.
func TestFlattenedDumpIsDeterministic(t *testing.T) {
	first := flatten(buildSum())
	second := flatten(buildSum())

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("two builds of the same source produced different trees (-first +second):\n%s", diff)
	}
}

// TestFlattenedDumpMatchesExpectedShape pins the exact node/token sequence
// for "12 + 345" so a change to how InfixOp wraps its operands shows up as a
// precise, per-entry cmp.Diff rather than a single opaque string mismatch.
func TestFlattenedDumpMatchesExpectedShape(t *testing.T) {
	got := flatten(buildSum())
	want := []entry{
		{Depth: 0, Kind: "InfixOp", Start: 0, End: 8},
		{Depth: 1, Kind: "Integer", Start: 0, End: 2},
		{Depth: 2, Kind: token.INTEGER.String(), Start: 0, End: 2, Text: "12"},
		{Depth: 1, Kind: token.SPACE.String(), Start: 2, End: 3, Text: " "},
		{Depth: 1, Kind: token.PLUS.String(), Start: 3, End: 4, Text: "+"},
		{Depth: 1, Kind: token.SPACE.String(), Start: 4, End: 5, Text: " "},
		{Depth: 1, Kind: "Integer", Start: 5, End: 8},
		{Depth: 2, Kind: token.INTEGER.String(), Start: 5, End: 8, Text: "345"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected tree shape (-want +got):\n%s", diff)
	}
}

package cst

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders r and its descendants as an indented debug tree: one line
// per node ("KIND@start..end") or token ("KIND@start..end \"text\"" with
// the text quoted by strconv.Quote, so newlines are escaped), in document
// order. This is the
// "debug form of the resulting CST" the check-syntax fixture harness
// compares byte-exact against a golden.expect file.
func (r *Red) Dump() string {
	var b strings.Builder
	r.dump(&b, 0)
	return b.String()
}

func (r *Red) dump(b *strings.Builder, depth int) {
	indent(b, depth)
	span := r.Span()
	fmt.Fprintf(b, "%s@%d..%d\n", r.Kind(), span.Start, span.End)

	for _, e := range r.ChildrenWithTokens() {
		if e.Node != nil {
			e.Node.dump(b, depth+1)
			continue
		}
		indent(b, depth+1)
		fmt.Fprintf(b, "%s@%d..%d %s\n", e.Token.Kind, e.Token.Span.Start, e.Token.Span.End, strconv.Quote(e.Token.Text))
	}
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

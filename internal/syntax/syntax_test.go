package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
	"cull-os/cab/internal/syntax"
)

func parseExpr(t *testing.T, src string) syntax.Node {
	t.Helper()
	p := noder.NewParseOracle().Parse(lexer.Tokenize(src))
	require.Empty(t, p.Reports)
	n, ok := syntax.From(p.Root.Children()[0])
	require.True(t, ok)
	return n
}

func TestIfTyped(t *testing.T) {
	n := parseExpr(t, "if a then b else c")
	ifExpr, ok := n.(syntax.If)
	require.True(t, ok)
	require.Equal(t, "a", ifExpr.Condition().Red().Text())
	require.Equal(t, "b", ifExpr.Consequence().Red().Text())
	require.Equal(t, "c", ifExpr.Alternative().Red().Text())
}

func TestListItems(t *testing.T) {
	n := parseExpr(t, "[1, 2, 3]")
	list, ok := n.(syntax.List)
	require.True(t, ok)
	items := list.Items()
	require.Len(t, items, 3)
	require.Equal(t, "1", items[0].Red().Text())
	require.Equal(t, "3", items[2].Red().Text())
}

func TestInfixOperator(t *testing.T) {
	n := parseExpr(t, "1 + 2")
	op, ok := n.(syntax.InfixOp)
	require.True(t, ok)
	kind, hasToken := op.Operator()
	require.True(t, hasToken)
	require.Equal(t, "PLUS", kind.String())
	require.Equal(t, "1", op.Left().Red().Text())
	require.Equal(t, "2", op.Right().Red().Text())
}

func TestBindIdentifier(t *testing.T) {
	n := parseExpr(t, "@name")
	bind, ok := n.(syntax.Bind)
	require.True(t, ok)
	id, ok := bind.Expression().(syntax.Identifier)
	require.True(t, ok)
	require.True(t, id.Plain())
}

package cst_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/token"
)

func TestBuilderCheckpointWrap(t *testing.T) {
	in := cst.NewInterner()
	b := cst.NewBuilder(in)

	b.StartNode(cst.NodeInfixOp) // outermost wrapper so FinishNode below has somewhere to attach
	cp := b.Checkpoint()
	b.StartNode(cst.NodeInteger)
	b.Token(token.INTEGER, "1")
	b.FinishNode()

	// Retroactively wrap the "1" integer we just closed into an InfixOp,
	// then add the operator and right operand.
	b.StartNodeAt(cp, cst.NodeInfixOp)
	b.Token(token.PLUS, "+")
	b.StartNode(cst.NodeInteger)
	b.Token(token.INTEGER, "2")
	b.FinishNode()
	b.FinishNode() // inner InfixOp
	b.FinishNode() // outer wrapper

	root := cst.NewRoot(b.Root())
	require.Equal(t, "1+2", root.Text())
	require.Equal(t, cst.NodeInfixOp, root.Kind())

	inner := root.Children()[0]
	require.Equal(t, cst.NodeInfixOp, inner.Kind())
	require.Len(t, inner.Children(), 2)
	require.Equal(t, "1", inner.Children()[0].Text())
	require.Equal(t, "2", inner.Children()[1].Text())
}

func TestSpanCover(t *testing.T) {
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

	root := cst.NewRoot(b.Root())
	require.Equal(t, 0, root.Span().Start)
	require.Equal(t, len("12 + 345"), root.Span().End)

	left := root.Children()[0]
	require.Equal(t, 0, left.Span().Start)
	require.Equal(t, 2, left.Span().End)

	right := root.Children()[1]
	require.Equal(t, len("12 + "), right.Span().Start)
}

func TestInternerDedup(t *testing.T) {
	in := cst.NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hello")
	require.Equal(t, a, b)
	require.Equal(t, 1, in.Len())
	in.Intern("world")
	require.Equal(t, 2, in.Len())
}

package noder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
)

func parse(t *testing.T, src string) noder.Parse {
	t.Helper()
	toks := lexer.Tokenize(src)
	return noder.NewParseOracle().Parse(toks)
}

func TestLosslessRoundTrip(t *testing.T) {
	srcs := []string{
		"1 + 2 * 3",
		"a.b.c",
		"if a then b else c",
		`"hello \(name)!"`,
		"f x y",
		"[1, 2, 3]",
		"{a = 1; b = 2}",
	}
	for _, src := range srcs {
		p := parse(t, src)
		require.Equal(t, src, p.Root.Text(), "source: %q", src)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	p := parse(t, "1 + 2 * 3")
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, cst.NodeInfixOp, top.Kind())
	require.Equal(t, "1", top.Children()[0].Text())
	require.Equal(t, "2 * 3", top.Children()[1].Text())
}

func TestPowerIsRightAssociative(t *testing.T) {
	p := parse(t, "2^3^4")
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, "2", top.Children()[0].Text())
	require.Equal(t, "3^4", top.Children()[1].Text())
}

func TestImplicitCall(t *testing.T) {
	p := parse(t, "f x y")
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, cst.NodeInfixOp, top.Kind())
	require.Equal(t, "f x", top.Children()[0].Text())
	require.Equal(t, "y", top.Children()[1].Text())
}

func TestIfThenElse(t *testing.T) {
	p := parse(t, "if a then b else c")
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, cst.NodeIf, top.Kind())
	require.Len(t, top.Children(), 3)
}

func TestSelectBindsTighterThanCall(t *testing.T) {
	p := parse(t, "f a.b")
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, "f", top.Children()[0].Text())
	require.Equal(t, "a.b", top.Children()[1].Text())
}

func TestListOfSameItems(t *testing.T) {
	p := parse(t, "[1, 2, 3]")
	require.Empty(t, p.Reports)

	list := p.Root.Children()[0]
	require.Equal(t, cst.NodeList, list.Kind())

	inner := list.Children()[0]
	require.Equal(t, cst.NodeInfixOp, inner.Kind())
}

func TestUnclosedParenthesisReportsNothingFromNoder(t *testing.T) {
	// The noder leaves the closer missing and keeps the unclosed text; the
	// "unclosed parenthesis" report in p.Reports comes from the validator
	// pass that Parse runs afterwards. This test checks only the text.
	p := parse(t, "(1 + 2")
	require.Equal(t, "(1 + 2", p.Root.Text())
}

func TestUnexpectedTokenRecovers(t *testing.T) {
	p := parse(t, "1 + )")
	require.NotEmpty(t, p.Reports)
	require.Equal(t, "1 + )", p.Root.Text())
}

func TestEmptyInputProducesEOFReport(t *testing.T) {
	p := parse(t, "")
	require.Len(t, p.Reports, 1)
	require.Equal(t, "", p.Root.Text())
}

func TestBindParsesIdentifier(t *testing.T) {
	p := parse(t, "@name")
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, cst.NodeBind, top.Kind())
}

func TestTrailingTokensStayInTree(t *testing.T) {
	p := parse(t, "1 ] 2")
	require.NotEmpty(t, p.Reports)
	require.Equal(t, "1 ] 2", p.Root.Text())
}

func FuzzNoderLossless(f *testing.F) {
	seeds := []string{
		"1 + 2 * 3",
		`"foo \(bar)"`,
		"x = x; x",
		"(1 +",
		"[a; b]",
		"if a then b",
		"1 ] 2",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		toks := lexer.Tokenize(src)
		p := noder.NewParseOracle().Parse(toks)
		require.Equal(t, src, p.Root.Text())
	})
}

func TestStringInterpolation(t *testing.T) {
	p := parse(t, `"a\(b)c"`)
	require.Empty(t, p.Reports)

	top := p.Root.Children()[0]
	require.Equal(t, cst.NodeString, top.Kind())

	var sawInterpolation bool
	for _, c := range top.Children() {
		if c.Kind() == cst.NodeInterpolation {
			sawInterpolation = true
		}
	}
	require.True(t, sawInterpolation)
}

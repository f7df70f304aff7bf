package position_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/position"
)

func TestSpanCover(t *testing.T) {
	a := position.NewSpan(2, 5)
	b := position.NewSpan(10, 12)
	require.Equal(t, position.Span{Start: 2, End: 12}, a.Cover(b))

	var dummy position.Span
	require.True(t, dummy.IsDummy())
	require.Equal(t, a, dummy.Cover(a))
}

func TestSpanIntersect(t *testing.T) {
	a := position.NewSpan(0, 10)
	b := position.NewSpan(5, 15)
	require.Equal(t, position.Span{Start: 5, End: 10}, a.Intersect(b))

	c := position.NewSpan(20, 25)
	require.True(t, a.Intersect(c).Empty())
}

func TestPositionStrBasic(t *testing.T) {
	src := "foo\nbar\nbaz"
	p := position.NewPositionStr(src)

	require.Equal(t, position.Position{Line: 1, Column: 1}, p.Position(0))
	require.Equal(t, position.Position{Line: 2, Column: 1}, p.Position(4))
	require.Equal(t, position.Position{Line: 3, Column: 3}, p.Position(10))
	require.Equal(t, 3, p.LineCount())
}

func TestPositionStrTabWidth(t *testing.T) {
	src := "\tx"
	p := position.NewPositionStr(src)
	// tab counts as width 4, so 'x' starts at column 5.
	require.Equal(t, position.Position{Line: 1, Column: 5}, p.Position(1))
}

func TestPositionStrEmojiWidth(t *testing.T) {
	src := "😀x"
	p := position.NewPositionStr(src)
	emojiLen := len("😀")
	require.Equal(t, position.Position{Line: 1, Column: 3}, p.Position(emojiLen))
}

func TestLineSpan(t *testing.T) {
	src := "foo\nbar\nbaz"
	p := position.NewPositionStr(src)

	require.Equal(t, "foo", p.Line(1).Slice(src))
	require.Equal(t, "bar", p.Line(2).Slice(src))
	require.Equal(t, "baz", p.Line(3).Slice(src))
}

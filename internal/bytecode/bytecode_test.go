package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/bytecode"
	"cull-os/cab/internal/position"
)

func TestSpanMapDedupAndMonotonic(t *testing.T) {
	b := bytecode.NewBuilder()
	s1 := position.Span{Start: 0, End: 1}
	s2 := position.Span{Start: 1, End: 2}

	b.Op(bytecode.Push, s1)
	b.Op(bytecode.Pop, s1) // same span: must not duplicate the entry
	b.Op(bytecode.Force, s2)

	code := b.Finish()
	require.Len(t, code.Spans, 2)

	require.Equal(t, s1, code.SpanAt(0))
	require.Equal(t, s1, code.SpanAt(1))
	require.Equal(t, s2, code.SpanAt(2))
	require.Equal(t, s2, code.SpanAt(100))
}

func TestVarintRoundTrip(t *testing.T) {
	b := bytecode.NewBuilder()
	b.OpVarint(bytecode.Push, 300, position.Span{})
	code := b.Finish()

	r := bytecode.NewReader(code)
	require.Equal(t, bytecode.Push, r.Next())
	require.Equal(t, uint64(300), r.ReadVarint())
	require.True(t, r.Done())
}

func TestU16JumpPatch(t *testing.T) {
	b := bytecode.NewBuilder()
	b.OpU16(bytecode.Jump, 0, position.Span{})
	argAt := 1 // right after the 1-byte opcode
	b.Op(bytecode.Pop, position.Span{})
	b.PatchU16(argAt, uint16(b.Len()))

	code := b.Finish()
	r := bytecode.NewReader(code)
	require.Equal(t, bytecode.Jump, r.Next())
	require.Equal(t, uint16(len(code.Bytes)), r.ReadU16())
}

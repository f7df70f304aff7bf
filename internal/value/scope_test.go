package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/value"
)

func TestAttributesInsertDoesNotMutateReceiver(t *testing.T) {
	a := value.NewAttributes()
	b := a.Insert("x", value.Boolean(true))

	_, ok := a.Get("x")
	require.False(t, ok, "Insert must not mutate the original Attributes")

	v, ok := b.Get("x")
	require.True(t, ok)
	require.Equal(t, value.Boolean(true), v)
}

func TestAttributesMergeOverlaysRight(t *testing.T) {
	left := value.NewAttributes().Insert("x", value.Boolean(true)).Insert("y", value.Boolean(true))
	right := value.NewAttributes().Insert("y", value.Boolean(false))

	merged := left.Merge(right)
	require.Equal(t, 2, merged.Len())

	x, _ := merged.Get("x")
	y, _ := merged.Get("y")
	require.Equal(t, value.Boolean(true), x)
	require.Equal(t, value.Boolean(false), y, "Merge's right operand overrides the left on key collision")
}

func TestScopesResolveWalksTopFirst(t *testing.T) {
	var s *value.Scopes
	s = s.Push(value.NewAttributes().Insert("x", value.Boolean(false)))
	s = s.Push(value.NewAttributes().Insert("x", value.Boolean(true)))

	v, ok := s.Resolve("x")
	require.True(t, ok)
	require.Equal(t, value.Boolean(true), v, "Resolve finds the innermost binding first")
}

func TestScopesResolveFallsThroughToParent(t *testing.T) {
	var s *value.Scopes
	s = s.Push(value.NewAttributes().Insert("x", value.Boolean(true)))
	s = s.Push(value.NewAttributes())

	v, ok := s.Resolve("x")
	require.True(t, ok)
	require.Equal(t, value.Boolean(true), v)
}

func TestScopesResolveMissingFails(t *testing.T) {
	var s *value.Scopes
	s = s.Push(value.NewAttributes())
	_, ok := s.Resolve("nope")
	require.False(t, ok)
}

func TestScopesPopRestoresParent(t *testing.T) {
	var s *value.Scopes
	s = s.Push(value.NewAttributes().Insert("x", value.Boolean(true)))
	inner := s.Push(value.NewAttributes().Insert("x", value.Boolean(false)))

	popped := inner.Pop()
	v, ok := popped.Resolve("x")
	require.True(t, ok)
	require.Equal(t, value.Boolean(true), v)
}

func TestScopesReplaceTopKeepsParent(t *testing.T) {
	var s *value.Scopes
	s = s.Push(value.NewAttributes().Insert("parent", value.Boolean(true)))
	s = s.Push(value.NewAttributes())
	s = s.ReplaceTop(value.NewAttributes().Insert("child", value.Boolean(true)))

	_, ok := s.Resolve("parent")
	require.True(t, ok, "ReplaceTop must preserve the parent chain")
	_, ok = s.Resolve("child")
	require.True(t, ok)
}

package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/position"
	"cull-os/cab/internal/value"
)

func TestNewErrorHasSingleTraceEntry(t *testing.T) {
	loc := value.Location{Path: "a.cab", Span: position.NewSpan(0, 1)}
	e := value.NewError("boom", loc)
	require.Equal(t, "boom", e.Message)
	require.Equal(t, []value.Location{loc}, e.Trace)
}

func TestWithLocationAppendsWithoutMutatingOriginal(t *testing.T) {
	first := value.Location{Path: "a.cab", Span: position.NewSpan(0, 1)}
	second := value.Location{Path: "b.cab", Span: position.NewSpan(2, 3)}

	e := value.NewError("boom", first)
	e2 := e.WithLocation(second)

	require.Len(t, e.Trace, 1, "WithLocation must not mutate the receiver's trace")
	require.Equal(t, []value.Location{first, second}, e2.Trace)
}

func TestIsError(t *testing.T) {
	require.True(t, value.IsError(value.NewError("boom", value.Location{})))
	require.False(t, value.IsError(value.Boolean(true)))
}

func TestKindNames(t *testing.T) {
	require.Equal(t, "boolean", value.Boolean(true).Kind())
	require.Equal(t, "nil", value.Nil{}.Kind())
	require.Equal(t, "cons", value.Cons{}.Kind())
	require.Equal(t, "attributes", value.NewAttributes().Kind())
	require.Equal(t, "error", value.Error{}.Kind())
}

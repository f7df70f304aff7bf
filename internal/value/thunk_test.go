package value_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/value"
)

func TestNewEvaluatedForcesToItself(t *testing.T) {
	th := value.NewEvaluated(value.Integer{Int: big.NewInt(42)})
	v := th.Force(nil)
	i, ok := v.(value.Integer)
	require.True(t, ok)
	require.Equal(t, int64(42), i.Int64())
}

func TestSuspendedNativeForcesOnce(t *testing.T) {
	calls := 0
	th := value.NewSuspendedNative(value.Location{}, func(arg value.Value) value.Value {
		calls++
		return arg
	}, value.Boolean(true))

	first := th.Force(nil)
	second := th.Force(nil)
	require.Equal(t, value.Boolean(true), first)
	require.Equal(t, value.Boolean(true), second)
	require.Equal(t, 1, calls, "a thunk forces its underlying work at most once")
}

func TestBlackHoleTripsOnSelfReference(t *testing.T) {
	var th *value.Thunk
	th = value.NewSuspendedNative(value.Location{Path: "<test>"}, func(value.Value) value.Value {
		// Re-entering Force on the same thunk while it is mid-force must
		// observe the black hole rather than deadlock.
		return th.Force(nil)
	}, nil)

	v := th.Force(nil)
	e, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
	require.Equal(t, "infinite recursion encountered", e.Message)
}

func TestRebindRequiresUnboundSuspended(t *testing.T) {
	th := value.NewSuspended(value.Location{}, nil, nil, nil)
	bound, ok := th.Rebind(value.Integer{Int: big.NewInt(1)})
	require.True(t, ok)
	require.NotNil(t, bound)

	_, ok = bound.Rebind(value.Integer{Int: big.NewInt(2)})
	require.False(t, ok, "a thunk whose argument is already bound cannot be rebound")
}

func TestRebindRejectsNonSuspended(t *testing.T) {
	th := value.NewEvaluated(value.Boolean(true))
	_, ok := th.Rebind(value.Integer{Int: big.NewInt(1)})
	require.False(t, ok)
}

func TestIsBlackHoleFalseBeforeAndAfterForce(t *testing.T) {
	th := value.NewSuspendedNative(value.Location{}, func(arg value.Value) value.Value { return arg }, value.Boolean(false))
	require.False(t, th.IsBlackHole())
	th.Force(nil)
	require.False(t, th.IsBlackHole())
}

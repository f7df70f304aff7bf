package invariant_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/invariant"
)

func TestPreconditionPass(t *testing.T) {
	invariant.Precondition(true, "this should pass")
	invariant.Precondition(1 == 1, "math works")
}

func TestPreconditionFail(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic for false precondition")
		msg := fmt.Sprintf("%v", r)
		require.Contains(t, msg, "PRECONDITION VIOLATION")
		require.Contains(t, msg, "stack underflow")
		require.Contains(t, msg, "at ")
	}()

	invariant.Precondition(false, "stack underflow")
}

func TestPostconditionFail(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.Contains(t, fmt.Sprintf("%v", r), "POSTCONDITION VIOLATION")
	}()

	invariant.Postcondition(false, "result must be positive")
}

func TestInvariantFail(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.Contains(t, fmt.Sprintf("%v", r), "INVARIANT VIOLATION")
	}()

	invariant.Invariant(false, "span map must be monotonic")
}

func TestNotNil(t *testing.T) {
	invariant.NotNil(&struct{}{}, "node")

	var p *int
	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.Contains(t, fmt.Sprintf("%v", r), "code must not be nil")
	}()
	invariant.NotNil(p, "code")
}

func TestInRange(t *testing.T) {
	invariant.InRange(2, 0, 4, "index")

	defer func() {
		r := recover()
		require.NotNil(t, r)
	}()
	invariant.InRange(5, 0, 4, "index")
}

func TestExpectNoError(t *testing.T) {
	invariant.ExpectNoError(nil, "parse")

	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.Contains(t, fmt.Sprintf("%v", r), "parse must not fail")
	}()
	invariant.ExpectNoError(fmt.Errorf("boom"), "parse")
}

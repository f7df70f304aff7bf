package eval_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/compiler"
	"cull-os/cab/internal/eval"
	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
	"cull-os/cab/internal/value"
)

// run lexes, nodes, compiles, and forces src end to end - the pipeline the
// public ParseOracle/CompileOracle/Thunk surface wires together.
func run(t *testing.T, src string) value.Value {
	t.Helper()

	toks := lexer.Tokenize(src)
	p := noder.NewParseOracle().Parse(toks)
	require.Empty(t, p.Reports, "source: %q", src)

	result := compiler.NewCompileOracle().Compile(p.Expression).Path("<test>")
	require.Empty(t, result.Reports, "source: %q", src)
	require.NotNil(t, result.Code)

	return eval.New("<test>", nil).Eval(result.Code, nil)
}

// "1 + 2 * 3" evaluates to integer 7, respecting precedence.
func TestArithmeticEvaluation(t *testing.T) {
	v := run(t, "1 + 2 * 3")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(7), i.Int)
}

// Building "1 : undefined" and reading only the head must not force the
// undefined tail.
func TestLazyConstructDoesNotForceTail(t *testing.T) {
	v := run(t, "(1 : undefined)")
	cons, ok := v.(value.Cons)
	require.True(t, ok, "got %T", v)

	head := cons.Head
	if th, ok := head.(*value.Thunk); ok {
		head = th.Force(eval.New("<test>", nil).Runner())
	}
	i, ok := head.(value.Integer)
	require.True(t, ok, "got %T", head)
	require.Equal(t, big.NewInt(1), i.Int)
	// cons.Tail is never forced here - doing so would surface the
	// "undefined" reference error and fail the test.
}

// "false && undefined" must not resolve the undefined reference.
func TestBooleanShortCircuit(t *testing.T) {
	v := run(t, "false && undefined")
	b, ok := v.(value.Boolean)
	require.True(t, ok, "got %T", v)
	require.False(t, bool(b))
}

// A self-referential binding must trip the black hole instead of
// looping.
func TestSelfReferenceTripsBlackHole(t *testing.T) {
	v := run(t, "{x = x; y = x}. y")
	e, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
	require.Equal(t, "infinite recursion encountered", e.Message)
}

func TestIfThenElse(t *testing.T) {
	require.Equal(t, value.Boolean(true), run(t, "if 1 < 2 then true else false"))
	require.Equal(t, value.Boolean(false), run(t, "if 2 < 1 then true else false"))
}

func TestLambdaApplication(t *testing.T) {
	v := run(t, "(x => x + 1) <| 41")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(42), i.Int)
}

func TestPipeReversesOperands(t *testing.T) {
	v := run(t, "41 |> (x => x + 1)")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(42), i.Int)
}

func TestSelectIntoAttributes(t *testing.T) {
	v := run(t, "{a = 1; b = 2}.b")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(2), i.Int)
}

func TestStringConcat(t *testing.T) {
	v := run(t, `"foo" ++ "bar"`)
	s, ok := v.(value.String)
	require.True(t, ok, "got %T", v)
	require.Equal(t, value.String("foobar"), s)
}

func TestDivisionByZeroIsAnError(t *testing.T) {
	v := run(t, "1 / 0")
	_, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
}

// Forcing a thunk twice returns the same value; the second force is a
// cache hit.
func TestThunkIdempotence(t *testing.T) {
	toks := lexer.Tokenize("1 + 1")
	p := noder.NewParseOracle().Parse(toks)
	result := compiler.NewCompileOracle().Compile(p.Expression).Path("<test>")

	runner := eval.New("<test>", nil).Runner()
	th := value.NewSuspended(value.Location{}, result.Code, nil, nil)

	first := th.Force(runner)
	second := th.Force(runner)
	require.Equal(t, first, second)
	require.True(t, th.IsBlackHole() == false)
}

// TestUndefinedReferenceError verifies that resolving an unbound name
// produces a first-class Error rather than panicking.
func TestUndefinedReferenceError(t *testing.T) {
	v := run(t, "undefined")
	e, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
	require.Contains(t, e.Message, "undefined")
}

func TestLambdaWithComputedArgument(t *testing.T) {
	v := run(t, "(x => x + 1) <| (20 * 2 + 1)")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(42), i.Int)
}

// TestEqualComparesConstants exercises Equal's structural branch: neither
// operand is a bind pattern, so the operands are forced and compared.
func TestEqualComparesConstants(t *testing.T) {
	require.Equal(t, value.Boolean(true), run(t, "1 = 1"))
	require.Equal(t, value.Boolean(false), run(t, "1 = 2"))
	require.Equal(t, value.Boolean(true), run(t, "1 != 2"))
}

// TestTopLevelBindingThenUse is the sequence operator's binding flow: the
// left side's capture lands in a frame the right side's thunks share.
func TestTopLevelBindingThenUse(t *testing.T) {
	v := run(t, "x = 5; x * x")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(25), i.Int)
}

func TestSequencePropagatesLeftError(t *testing.T) {
	v := run(t, "(1 / 0); 2")
	_, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
}

func TestUpdateMergesAttributes(t *testing.T) {
	v := run(t, "({a = 1; b = 2} // {b = 3}).b")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(3), i.Int)
}

func TestMultilineStringNormalization(t *testing.T) {
	v := run(t, "\"\n  foo\n  bar\n\"")
	s, ok := v.(value.String)
	require.True(t, ok, "got %T", v)
	require.Equal(t, value.String("foo\nbar\n"), s)
}

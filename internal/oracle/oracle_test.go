package oracle_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/oracle"
	"cull-os/cab/internal/value"
)

func TestOracleEvalArithmetic(t *testing.T) {
	v := oracle.New(nil).Eval("1 + 2 * 3", "<test>")
	i, ok := v.(value.Integer)
	require.True(t, ok, "got %T", v)
	require.Equal(t, big.NewInt(7), i.Int)
}

func TestOracleEvalUndefinedReference(t *testing.T) {
	v := oracle.New(nil).Eval("undefined", "<test>")
	e, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
	require.Contains(t, e.Message, "undefined")
}

func TestOracleCompileSyntaxError(t *testing.T) {
	_, result := oracle.New(nil).Compile("(1 +", "<test>")
	require.Nil(t, result.Code)
	require.NotEmpty(t, result.Reports)
}

func TestOracleParseReturnsExpression(t *testing.T) {
	parse := oracle.New(nil).Parse("1 + 2")
	require.NotNil(t, parse.Expression)
	require.Empty(t, parse.Reports)
}

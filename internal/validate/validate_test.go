package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
	"cull-os/cab/internal/validate"
)

func validateSrc(t *testing.T, src string) []string {
	t.Helper()
	p := noder.NewParseOracle().Parse(lexer.Tokenize(src))
	reports := validate.Validate(p.Root)
	titles := make([]string, len(reports))
	for i, r := range reports {
		titles[i] = r.Title
	}
	return titles
}

func TestUnclosedParenthesis(t *testing.T) {
	titles := validateSrc(t, "(1 + 2")
	require.Contains(t, titles, "unclosed parenthesis")
}

func TestEmptyParenthesis(t *testing.T) {
	titles := validateSrc(t, "()")
	require.Contains(t, titles, "empty parenthesis expression")
}

func TestBindNonIdentifier(t *testing.T) {
	titles := validateSrc(t, "@1")
	require.Contains(t, titles, "bind expects an identifier")
}

func TestListWithSequence(t *testing.T) {
	titles := validateSrc(t, "[a; b]")
	require.Contains(t, titles, "a list containing a semicolon-joined expression must be parenthesized")
}

func TestCharMultipleCodepoints(t *testing.T) {
	titles := validateSrc(t, `'ab'`)
	require.Contains(t, titles, "char literal must contain exactly one codepoint")
}

func TestCharSingleCodepointOk(t *testing.T) {
	titles := validateSrc(t, `'a'`)
	require.Empty(t, titles)
}

func TestCrossAssociation(t *testing.T) {
	titles := validateSrc(t, "a <| b |> c")
	require.Contains(t, titles, "application and pipe operators do not cross-associate")
}

func TestValidProgramHasNoReports(t *testing.T) {
	titles := validateSrc(t, "1 + 2 * 3")
	require.Empty(t, titles)
}

package noder

import "cull-os/cab/internal/token"

// prefixPower gives the right binding power of Cab's unary prefix
// operators.
var prefixPower = map[token.Kind]int{
	token.PLUS:  145, // swwallation
	token.MINUS: 145, // negation
	token.NOT:   125,
}

// infixEntry is one row of the (left, right) binding-power table.
type infixEntry struct {
	left, right int
	name        string
}

// infixTable maps an infix operator's leading token to its binding powers.
// ImplicitCall has no token of its own and is handled separately in the
// Pratt loop.
var infixTable = map[token.Kind]infixEntry{
	token.DOT:       {185, 180, "Select"},
	token.CONCAT:    {160, 165, "Concat"},
	token.STAR:      {150, 155, "Multiplication"},
	token.SLASH:     {150, 155, "Division"},
	token.CARET:     {155, 150, "Power"},
	token.PLUS:      {130, 135, "Addition"},
	token.MINUS:     {130, 135, "Subtraction"},
	token.UPDATE:    {110, 115, "Update"},
	token.LE:        {100, 105, "Relational"},
	token.LT:        {100, 105, "Relational"},
	token.GE:        {100, 105, "Relational"},
	token.GT:        {100, 105, "Relational"},
	token.COLON:     {95, 90, "Construct"},
	token.AND:       {85, 80, "And"},
	token.ALL:       {85, 80, "All"},
	token.OR:        {75, 70, "Or"},
	token.ANY:       {75, 70, "Any"},
	token.ARROW:     {65, 60, "Implication"},
	token.PIPE:      {50, 55, "Pipe"},
	token.CALL:      {55, 50, "Call"},
	token.FATARROW:  {45, 40, "Lambda"},
	token.EQUAL:     {35, 30, "Equal"},
	token.NOT_EQUAL: {35, 30, "NotEqual"},
	token.COMMA:     {25, 20, "Same"},
	token.SEMICOLON: {15, 10, "Sequence"},
}

// implicitCallLeft and implicitCallRight are the binding powers of
// token-less application by juxtaposition.
const implicitCallLeft = 170
const implicitCallRight = 175

// startsSingle reports whether kind can begin an implicit call's argument:
// any token nodeSingle dispatches on, plus the prefix operator NOT. PLUS and
// MINUS are left out: after an operand they are always read as the infix
// Addition/Subtraction operators, never as the sign of an argument.
func startsSingle(kind token.Kind) bool {
	switch kind {
	case token.LPAREN, token.LBRACKET, token.LBRACE,
		token.INTEGER, token.FLOAT, token.IDENTIFIER, token.IF,
		token.STRING_START, token.CHAR_START, token.QUOTED_IDENTIFIER_START, token.PATH_START,
		token.AT, token.NOT:
		return true
	default:
		return false
	}
}

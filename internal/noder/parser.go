// Package noder turns a flat token stream into a lossless CST. It is a
// Pratt precedence-climbing parser built directly on top of cst.Builder's
// checkpoint/retroactive-wrap API.
package noder

import (
	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/report"
	"cull-os/cab/internal/syntax"
	"cull-os/cab/internal/token"
	"cull-os/cab/internal/validate"
)

// Parse is the noder's result: the typed top-level expression, the raw CST
// node it wraps, and every report collected while building and validating
// it.
type Parse struct {
	Expression syntax.Node
	Root       *cst.Red
	Reports    []report.Report
}

// ParseOracle exposes the noder as a stage that can be driven
// repeatedly, reusing one interner across parses.
type ParseOracle struct {
	interner *cst.Interner
}

// NewParseOracle returns a ParseOracle backed by a fresh string interner.
func NewParseOracle() *ParseOracle {
	return &ParseOracle{interner: cst.NewInterner()}
}

// Parse builds a CST from tokens.
func (o *ParseOracle) Parse(tokens []token.Token) Parse {
	p := &parser{toks: tokens, b: cst.NewBuilder(o.interner)}

	p.b.StartNode(cst.NodeSource)
	p.nodeExpression(0, nil)
	p.drainTrailing()
	p.bumpTrivia()
	p.b.FinishNode()

	root := cst.NewRoot(p.b.Root())
	reports := dedupeReports(p.reports)
	reports = append(reports, validate.Validate(root)...)

	var expr syntax.Node
	if len(root.Children()) > 0 {
		expr, _ = syntax.From(root.Children()[0])
	}

	return Parse{Expression: expr, Root: root, Reports: reports}
}

type parser struct {
	toks    []token.Token
	pos     int
	offset  int
	b       *cst.Builder
	reports []report.Report
}

// peekIndex returns the index into toks of the next significant (non-
// trivia) token, or len(toks) if none remains.
func (p *parser) peekIndex() int {
	i := p.pos
	for i < len(p.toks) && p.toks[i].Kind.IsTrivia() {
		i++
	}
	return i
}

func (p *parser) peek() token.Kind {
	i := p.peekIndex()
	if i >= len(p.toks) {
		return token.EOF
	}
	return p.toks[i].Kind
}

func (p *parser) atEOF() bool {
	return p.peekIndex() >= len(p.toks)
}

// peekSpan computes the span the next significant token would occupy
// without consuming anything, for attaching a report before we know
// whether we'll actually bump that token.
func (p *parser) peekSpan() position.Span {
	off := p.offset
	i := p.pos
	for i < len(p.toks) && p.toks[i].Kind.IsTrivia() {
		off += len(p.toks[i].Text)
		i++
	}
	if i >= len(p.toks) {
		return position.Span{Start: off, End: off}
	}
	return position.Span{Start: off, End: off + len(p.toks[i].Text)}
}

// bumpTrivia commits any pending trivia tokens to the current node without
// treating them as significant.
func (p *parser) bumpTrivia() {
	for p.pos < len(p.toks) && p.toks[p.pos].Kind.IsTrivia() {
		p.commit(p.toks[p.pos])
		p.pos++
	}
}

// bump commits leading trivia, then the next significant token.
func (p *parser) bump() token.Token {
	p.bumpTrivia()
	tok := p.toks[p.pos]
	p.commit(tok)
	p.pos++
	return tok
}

func (p *parser) commit(tok token.Token) {
	p.b.Token(tok.Kind, tok.Text)
	p.offset += len(tok.Text)
}

// nodeExpression is the Pratt loop: a prefix operator (if any)
// wraps a single expression, then infix operators - and token-less
// ImplicitCall - repeatedly wrap the accumulated left operand as long as
// their left binding power meets minPower.
//
// The checkpoint is taken before the left operand is parsed (after its
// leading trivia is committed to the enclosing node), so StartNodeAt can
// retroactively wrap the finished operand once an operator shows up.
func (p *parser) nodeExpression(minPower int, until []token.Kind) {
	p.bumpTrivia()
	cp := p.b.Checkpoint()

	if pow, ok := prefixPower[p.peek()]; ok {
		p.b.StartNode(cst.NodePrefixOp)
		p.bump()
		p.nodeExpression(pow, until)
		p.b.FinishNode()
	} else {
		p.nodeSingle(until)
	}

	for {
		kind := p.peek()

		if entry, ok := infixTable[kind]; ok && entry.left >= minPower {
			p.b.StartNodeAt(cp, cst.NodeInfixOp)
			p.bump()
			p.nodeExpression(entry.right, until)
			p.b.FinishNode()
			continue
		}

		if implicitCallLeft >= minPower && startsSingle(kind) {
			p.b.StartNodeAt(cp, cst.NodeInfixOp)
			p.nodeExpression(implicitCallRight, until)
			p.b.FinishNode()
			continue
		}

		break
	}
}

// nodeSingle dispatches on the next significant token to parse one of the
// non-operator expression forms.
func (p *parser) nodeSingle(until []token.Kind) {
	switch p.peek() {
	case token.LPAREN:
		p.nodeParenthesis(until)
	case token.LBRACKET:
		p.nodeList(until)
	case token.LBRACE:
		p.nodeAttributes(until)
	case token.INTEGER:
		p.nodeLeaf(cst.NodeInteger)
	case token.FLOAT:
		p.nodeLeaf(cst.NodeFloat)
	case token.IDENTIFIER:
		p.nodeLeaf(cst.NodeIdentifier)
	case token.IF:
		p.nodeIf(until)
	case token.AT:
		p.nodeBind(until)
	case token.STRING_START:
		p.nodeDelimited(cst.NodeString, token.STRING_END, until)
	case token.CHAR_START:
		p.nodeDelimited(cst.NodeChar, token.CHAR_END, until)
	case token.QUOTED_IDENTIFIER_START:
		p.nodeDelimited(cst.NodeIdentifier, token.QUOTED_IDENTIFIER_END, until)
	case token.PATH_START:
		p.nodeDelimited(cst.NodePath, token.PATH_END, until)
	default:
		p.nodeError(until)
	}
}

func (p *parser) nodeLeaf(kind cst.NodeKind) {
	p.b.StartNode(kind)
	p.bump()
	p.b.FinishNode()
}

// closeDelimiter consumes a closing token of kind if it's next; if not, it
// leaves the stream untouched. The validator, not the noder, reports
// missing closers.
func (p *parser) closeDelimiter(kind token.Kind) {
	if p.peek() == kind {
		p.bump()
	}
}

func (p *parser) nodeParenthesis(until []token.Kind) {
	p.b.StartNode(cst.NodeParenthesis)
	p.bump() // (
	if p.peek() != token.RPAREN {
		p.nodeExpression(0, append(until, token.RPAREN))
	}
	p.closeDelimiter(token.RPAREN)
	p.b.FinishNode()
}

// nodeList parses a bracketed expression whose inner content is usually an
// InfixOp(Same, ...) chain produced naturally by COMMA's binding power -
// the validator later flags a bare InfixOp(Sequence, ...) inside.
func (p *parser) nodeList(until []token.Kind) {
	p.b.StartNode(cst.NodeList)
	p.bump() // [
	if p.peek() != token.RBRACKET {
		p.nodeExpression(0, append(until, token.RBRACKET))
	}
	p.closeDelimiter(token.RBRACKET)
	p.b.FinishNode()
}

func (p *parser) nodeAttributes(until []token.Kind) {
	p.b.StartNode(cst.NodeAttributes)
	p.bump() // {
	if p.peek() != token.RBRACE {
		p.nodeExpression(0, append(until, token.RBRACE))
	}
	p.closeDelimiter(token.RBRACE)
	p.b.FinishNode()
}

func (p *parser) nodeIf(until []token.Kind) {
	p.b.StartNode(cst.NodeIf)
	p.bump() // if
	p.nodeExpression(0, append(until, token.THEN))
	p.closeDelimiter(token.THEN)
	p.nodeExpression(0, append(until, token.ELSE))
	p.closeDelimiter(token.ELSE)
	p.nodeExpression(0, until)
	p.b.FinishNode()
}

// nodeBind parses "@ expression", binding only a tight operand - not a
// full low-precedence expression - the same way a prefix operator does.
func (p *parser) nodeBind(until []token.Kind) {
	p.b.StartNode(cst.NodeBind)
	p.bump() // @
	p.nodeExpression(prefixPower[token.MINUS], until)
	p.b.FinishNode()
}

// nodeDelimited parses any of the delimited-literal forms (String, Char,
// quoted Identifier, Path): an opening marker, a run of CONTENT and
// \(expr) interpolations, and a closing marker.
func (p *parser) nodeDelimited(kind cst.NodeKind, endKind token.Kind, until []token.Kind) {
	p.b.StartNode(kind)
	p.bump() // *_START

	for {
		switch p.peek() {
		case token.CONTENT:
			p.bump()
		case token.INTERPOLATION_START:
			p.b.StartNode(cst.NodeInterpolation)
			p.bump()
			p.nodeExpression(0, append(until, token.INTERPOLATION_END))
			p.closeDelimiter(token.INTERPOLATION_END)
			p.b.FinishNode()
		case endKind, token.EOF:
			p.closeDelimiter(endKind)
			p.b.FinishNode()
			return
		default:
			// Unrecognized token inside a delimited literal; stop so the
			// caller's own recovery can take over rather than looping.
			p.closeDelimiter(endKind)
			p.b.FinishNode()
			return
		}
	}
}

// drainTrailing wraps any tokens left over after the top-level expression
// in a single Error node, so the tree stays lossless even when the source
// continues past what the grammar accepts.
func (p *parser) drainTrailing() {
	if p.atEOF() {
		return
	}
	span := p.peekSpan()

	p.b.StartNode(cst.NodeError)
	for !p.atEOF() {
		p.bump()
	}
	p.b.FinishNode()

	p.reports = append(p.reports,
		report.New(report.Error, "unexpected trailing input").Primary(span, "expected the end of the source here"))
}

// isAnchor reports whether kind is one of the caller-supplied tokens that
// should end recovery without being consumed.
func isAnchor(kind token.Kind, until []token.Kind) bool {
	for _, u := range until {
		if u == kind {
			return true
		}
	}
	return false
}

// nodeError wraps an unexpected token (or, at EOF, an empty span) in a
// synthetic Error node and records a report, then resumes at the next
// recognized anchor.
func (p *parser) nodeError(until []token.Kind) {
	span := p.peekSpan()

	p.b.StartNode(cst.NodeError)
	kind := p.peek()
	if !p.atEOF() && !isAnchor(kind, until) {
		p.bump()
	}
	p.b.FinishNode()

	text := "unexpected token"
	if p.atEOF() {
		text = "unexpected end of input"
	}
	p.reports = append(p.reports,
		report.New(report.Error, text).Primary(span, "expected an expression here"))
}

// dedupeReports drops a report whose first label starts at the same offset
// as the previously retained report's, collapsing the cascades of identical
// "unexpected token" reports that recovery tends to produce at the same
// recovery point. Two reports at one offset with a retained report at
// another offset between them are both kept.
func dedupeReports(reports []report.Report) []report.Report {
	if len(reports) == 0 {
		return reports
	}

	out := make([]report.Report, 0, len(reports))
	lastStart := -1
	first := true
	for _, r := range reports {
		start := r.FirstLabelStart()
		if !first && start == lastStart {
			continue
		}
		first = false
		lastStart = start
		out = append(out, r)
	}
	return out
}

// Package compiler lowers a validated typed expression into bytecode:
// every non-trivial expression becomes a sub-thunk (Value::Suspend or
// Value::Lambda) pushed into the enclosing Code's value pool, trivial
// constants are pushed directly, and scope boundaries match expression
// boundaries exactly.
//
// Lowering is one Go function per syntax-tree shape, dispatched by a
// type switch, emitting into a bytecode.Builder.
package compiler

import (
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"cull-os/cab/internal/bytecode"
	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/report"
	"cull-os/cab/internal/segment"
	"cull-os/cab/internal/syntax"
	"cull-os/cab/internal/token"
	"cull-os/cab/internal/value"
)

// Result is CompileOracle's terminal output. Code is nil when any
// collected report is severity >= Error.
type Result struct {
	Code    *bytecode.Code
	Reports []report.Report
}

// CompileOracle is the public compile-stage entry point.
type CompileOracle struct {
	logger *slog.Logger
}

// NewCompileOracle returns a CompileOracle with tracing disabled.
func NewCompileOracle() *CompileOracle {
	return &CompileOracle{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithLogger attaches a logger used for debug-level lowering traces,
// matching the ambient-logging convention internal/lexer and
// internal/eval follow.
func (o *CompileOracle) WithLogger(logger *slog.Logger) *CompileOracle {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// Request is the chained builder CompileOracle.Compile returns; Path
// finalizes it by supplying the source path every emitted Location
// carries.
type Request struct {
	oracle *CompileOracle
	expr   syntax.Node
}

// Compile begins a compile request for expr.
func (o *CompileOracle) Compile(expr syntax.Node) *Request {
	return &Request{oracle: o, expr: expr}
}

// Path finalizes the request, compiling expr against path and returning
// the Result.
func (r *Request) Path(path string) Result {
	c := &compiler{path: path, logger: r.oracle.logger}

	if r.expr == nil {
		return Result{Reports: []report.Report{report.New(report.Error, "nothing to compile")}}
	}

	// The top-level expression compiles directly into the returned Code;
	// the caller's suspended thunk is the outermost one. The trailing
	// Force ensures the program's result is never itself a thunk.
	b := bytecode.NewBuilder()
	span := r.expr.Red().Span()
	c.compileBody(b, r.expr, span)
	b.Op(bytecode.Force, span)
	code := b.Finish()

	if report.HasSeverityAtLeast(c.reports, report.Error) {
		return Result{Reports: c.reports}
	}
	return Result{Code: code, Reports: c.reports}
}

type compiler struct {
	path    string
	logger  *slog.Logger
	reports []report.Report
	dead    int
}

func (c *compiler) loc(span position.Span) value.Location {
	return value.Location{Path: c.path, Span: span}
}

func exprSpan(n syntax.Node, fallback position.Span) position.Span {
	if n == nil {
		return fallback
	}
	return n.Red().Span()
}

// fwdJump emits a jump-family opcode with a zero placeholder target and
// returns the byte offset of its u16 argument for a later patch call.
func fwdJump(b *bytecode.Builder, op bytecode.Opcode, span position.Span) int {
	argPos := b.Len() + 1
	b.OpU16(op, 0, span)
	return argPos
}

func patch(b *bytecode.Builder, argPos int) {
	b.PatchU16(argPos, uint16(b.Len()))
}

// emitThunk pushes expr's value lazily onto b's stack: a plain constant
// push for trivial literals, or a fresh Suspend sub-thunk for everything
// else.
func (c *compiler) emitThunk(b *bytecode.Builder, n syntax.Node, fallback position.Span) {
	span := exprSpan(n, fallback)

	if n == nil {
		idx := b.PushValue(value.NewError("missing expression", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)
		return
	}

	if v, ok := c.constantValue(n); ok {
		idx := b.PushValue(v)
		b.OpVarint(bytecode.Push, uint64(idx), span)
		return
	}

	if c.dead > 0 {
		// Dead branches are still lowered for their validation side effects
		// (segment reports etc.) but contribute no bytecode.
		dummy := bytecode.NewBuilder()
		c.compileBody(dummy, n, span)
		return
	}

	inner := bytecode.NewBuilder()
	c.compileBody(inner, n, span)
	idx := b.PushValue(value.Suspend{Code: inner.Finish()})
	b.OpVarint(bytecode.Push, uint64(idx), span)
}

// emitForced pushes expr's thunk then forces it, leaving the realized
// value (not a Thunk) on top of the stack.
func (c *compiler) emitForced(b *bytecode.Builder, n syntax.Node, fallback position.Span) {
	c.emitThunk(b, n, fallback)
	if c.dead > 0 {
		return
	}
	b.Op(bytecode.Force, exprSpan(n, fallback))
}

// constantValue reports the direct Value a trivial leaf lowers to, without
// wrapping it in a sub-thunk. The identifiers "true" and "false"
// are the boolean constants; every other identifier goes through
// Reference+Resolve. Shadowing "true"/"false" is therefore ineffective in
// reference position - a decision recorded in DESIGN.md.
func (c *compiler) constantValue(n syntax.Node) (value.Value, bool) {
	switch node := n.(type) {
	case syntax.Integer:
		return c.parseInteger(node), true
	case syntax.Float:
		return c.parseFloat(node), true
	case syntax.Char:
		return c.parseChar(node), true
	case syntax.String:
		return c.trivialSegmentValue(node.Red(), segmentKindString)
	case syntax.Path:
		return c.trivialSegmentValue(node.Red(), segmentKindPath)
	case syntax.Identifier:
		if ok, val := isBoolLiteralIdent(node); ok {
			return value.Boolean(val), true
		}
		return nil, false
	default:
		return nil, false
	}
}

const (
	segmentKindString = iota
	segmentKindPath
	segmentKindIdentifier
)

func (c *compiler) trivialSegmentValue(n *cst.Red, kind int) (value.Value, bool) {
	segs, segReports := segment.Compute(n)
	if !segs.IsTrivial() {
		return nil, false
	}
	c.reports = append(c.reports, segReports...)

	text := segs.Items[0].Content.Text
	if kind == segmentKindPath {
		return parsePath(text), true
	}
	return value.String(text), true
}

func parsePath(text string) value.Value {
	hasRoot := strings.HasPrefix(text, "/")
	root := ""
	if hasRoot {
		root = "/"
	}
	trimmed := strings.TrimPrefix(text, "/")
	var components []string
	if trimmed != "" {
		components = strings.Split(trimmed, "/")
	}
	return value.Path{Root: root, HasRoot: hasRoot, Components: components}
}

// identifierName decodes an Identifier's name: the literal text for a
// plain identifier, or the concatenation of a quoted identifier's content
// segments for a quoted one. Interpolated quoted identifiers resolve their
// static content only - the interpolated parts are skipped, since a
// dynamically-named Reference/Bind has no compile-time-known name to carry.
func identifierName(id syntax.Identifier) string {
	if id.Plain() {
		return id.Text()
	}
	segs, _ := segment.Compute(id.Red())
	var b strings.Builder
	for _, s := range segs.Items {
		if s.Content != nil {
			b.WriteString(s.Content.Text)
		}
	}
	return b.String()
}

func (c *compiler) parseInteger(node syntax.Integer) value.Value {
	text := strings.ReplaceAll(node.Text(), "_", "")
	base := 10
	switch {
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base, text = 2, text[2:]
	case strings.HasPrefix(text, "0o"), strings.HasPrefix(text, "0O"):
		base, text = 8, text[2:]
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base, text = 16, text[2:]
	}

	n := new(big.Int)
	if text == "" {
		n = big.NewInt(0)
	} else if _, ok := n.SetString(text, base); !ok {
		c.reports = append(c.reports, report.New(report.Error, "invalid integer literal").
			Primary(node.Red().Span(), "cannot parse this integer"))
		n = big.NewInt(0)
	}
	return value.Integer{Int: n}
}

func (c *compiler) parseFloat(node syntax.Float) value.Value {
	text := strings.ReplaceAll(node.Text(), "_", "")
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		c.reports = append(c.reports, report.New(report.Error, "invalid float literal").
			Primary(node.Red().Span(), "cannot parse this float"))
	}
	return value.Float(f)
}

func (c *compiler) parseChar(node syntax.Char) value.Value {
	segs, segReports := segment.Compute(node.Red())
	c.reports = append(c.reports, segReports...)
	if len(segs.Items) != 1 || segs.Items[0].Content == nil {
		return value.Char(0)
	}
	for _, r := range segs.Items[0].Content.Text {
		return value.Char(r)
	}
	return value.Char(0)
}

// compileBody lowers n directly into b - the body of whatever sub-thunk
// (or top-level program) b represents - leaving exactly one value on the
// stack at the end.
func (c *compiler) compileBody(b *bytecode.Builder, n syntax.Node, fallback position.Span) {
	span := exprSpan(n, fallback)

	switch node := n.(type) {
	case nil:
		idx := b.PushValue(value.NewError("missing expression", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)

	case syntax.Error:
		idx := b.PushValue(value.NewError("syntax error", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)

	case syntax.Parenthesis:
		b.Op(bytecode.ScopeStart, span)
		c.emitForced(b, node.Expression(), span)
		b.Op(bytecode.ScopeEnd, span)

	case syntax.List:
		c.compileList(b, node, span)

	case syntax.Attributes:
		c.compileAttributes(b, node, span)

	case syntax.PrefixOp:
		c.compilePrefix(b, node, span)

	case syntax.InfixOp:
		c.compileInfix(b, node, span)

	case syntax.Bind:
		idx := b.PushValue(value.Bind{Name: bindName(node)})
		b.OpVarint(bytecode.Push, uint64(idx), span)

	case syntax.Identifier:
		c.compileIdentifierReference(b, node, span)

	case syntax.Integer, syntax.Float, syntax.Char:
		if v, ok := c.constantValue(n); ok {
			idx := b.PushValue(v)
			b.OpVarint(bytecode.Push, uint64(idx), span)
			return
		}
		idx := b.PushValue(value.NewError("cannot compile this literal", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)

	case syntax.String:
		if v, ok := c.constantValue(n); ok {
			idx := b.PushValue(v)
			b.OpVarint(bytecode.Push, uint64(idx), span)
			return
		}
		c.compileInterpolated(b, node.Red(), segmentKindString, span)

	case syntax.Path:
		if v, ok := c.constantValue(n); ok {
			idx := b.PushValue(v)
			b.OpVarint(bytecode.Push, uint64(idx), span)
			return
		}
		c.compileInterpolated(b, node.Red(), segmentKindPath, span)

	case syntax.If:
		c.compileIf(b, node, span)

	case syntax.SuffixOp:
		// Reserved, currently-empty operator set; nothing in
		// the noder's operator tables produces one today.
		idx := b.PushValue(value.NewError("suffix operators are not yet defined", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)

	default:
		idx := b.PushValue(value.NewError("cannot compile this expression", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)
	}
}

func bindName(b syntax.Bind) string {
	if id, ok := b.Expression().(syntax.Identifier); ok {
		return identifierName(id)
	}
	return ""
}

func (c *compiler) compileIdentifierReference(b *bytecode.Builder, id syntax.Identifier, span position.Span) {
	idx := b.PushValue(value.Reference{Name: identifierName(id)})
	b.OpVarint(bytecode.Push, uint64(idx), span)
	b.Op(bytecode.Resolve, span)
}

// compileInterpolated lowers a non-trivial delimited literal: each content
// segment is a pushed string constant, each interpolation is a forced
// sub-expression, and a trailing Interpolate(n) folds them. The opcode's
// varint argument packs the segment count and the target kind
// (string/path/identifier) as arity*4+kind, which execInterpolate in
// internal/eval decodes.
func (c *compiler) compileInterpolated(b *bytecode.Builder, n *cst.Red, kind int, span position.Span) {
	segs, segReports := segment.Compute(n)
	c.reports = append(c.reports, segReports...)

	if len(segs.Items) == 0 {
		idx := b.PushValue(value.String(""))
		b.OpVarint(bytecode.Push, uint64(idx), span)
		return
	}

	for _, item := range segs.Items {
		switch {
		case item.Content != nil:
			idx := b.PushValue(value.String(item.Content.Text))
			b.OpVarint(bytecode.Push, uint64(idx), item.Content.Span)
		case item.Interpolation != nil:
			expr := interpolationExpr(item.Interpolation)
			c.emitForced(b, expr, item.Interpolation.Span())
		}
	}
	b.OpVarint(bytecode.Interpolate, uint64(len(segs.Items))*4+uint64(kind), span)
}

func interpolationExpr(n *cst.Red) syntax.Node {
	for _, c := range n.Children() {
		if node, ok := syntax.From(c); ok {
			return node
		}
	}
	return nil
}

// compileList lowers "[a, b, c]": a trailing Nil, then one Construct per
// item folding head (an independent lazy thunk) and the tail built so
// far. Nothing here forces an item, preserving the lazy-head property.
func (c *compiler) compileList(b *bytecode.Builder, node syntax.List, span position.Span) {
	items := node.Items()

	nilIdx := b.PushValue(value.Nil{})
	b.OpVarint(bytecode.Push, uint64(nilIdx), span)

	for i := len(items) - 1; i >= 0; i-- {
		itemSpan := exprSpan(items[i], span)
		c.emitThunk(b, items[i], span)
		b.Op(bytecode.Construct, itemSpan)
	}
}

// compileAttributes lowers "{e}": e runs inside a fresh scope (its Equal
// operations capture bindings into that scope as a side effect), then
// ScopePush captures the resulting frame as the Attributes value.
func (c *compiler) compileAttributes(b *bytecode.Builder, node syntax.Attributes, span position.Span) {
	expr := node.Expression()
	if expr == nil {
		idx := b.PushValue(value.NewAttributes())
		b.OpVarint(bytecode.Push, uint64(idx), span)
		return
	}

	b.Op(bytecode.ScopeStart, span)
	c.emitForced(b, expr, span)
	b.Op(bytecode.Pop, span)
	b.Op(bytecode.ScopePush, span)
	b.Op(bytecode.ScopeEnd, span)
}

func (c *compiler) compilePrefix(b *bytecode.Builder, node syntax.PrefixOp, span position.Span) {
	c.emitForced(b, node.Operand(), span)

	op := node.Operator()
	if op == nil {
		c.reports = append(c.reports, report.New(report.Bug, "prefix operator missing its token").Primary(span, "here"))
		return
	}

	switch op.Kind {
	case token.MINUS:
		b.Op(bytecode.Negation, span)
	case token.PLUS:
		b.Op(bytecode.Swwallation, span)
	case token.NOT:
		b.Op(bytecode.Not, span)
	default:
		c.reports = append(c.reports, report.New(report.Bug, "unknown prefix operator").Primary(span, "here"))
	}
}

func (c *compiler) compileInfix(b *bytecode.Builder, node syntax.InfixOp, span position.Span) {
	left, right := node.Left(), node.Right()

	kind, hasTok := node.Operator()
	if !hasTok {
		c.compileCall(b, left, right, span) // ImplicitCall: token-less juxtaposition.
		return
	}

	switch kind {
	case token.DOT:
		c.compileSelect(b, left, right, span)
	case token.CONCAT:
		c.compileBinaryForced(b, left, right, bytecode.Concat, span)
	case token.STAR:
		c.compileBinaryForced(b, left, right, bytecode.Multiplication, span)
	case token.SLASH:
		c.compileBinaryForced(b, left, right, bytecode.Division, span)
	case token.CARET:
		c.compileBinaryForced(b, left, right, bytecode.Power, span)
	case token.PLUS:
		c.compileBinaryForced(b, left, right, bytecode.Addition, span)
	case token.MINUS:
		c.compileBinaryForced(b, left, right, bytecode.Subtraction, span)
	case token.UPDATE:
		c.compileBinaryForced(b, left, right, bytecode.Update, span)
	case token.LE:
		c.compileBinaryForced(b, left, right, bytecode.LessOrEqual, span)
	case token.LT:
		c.compileBinaryForced(b, left, right, bytecode.Less, span)
	case token.GE:
		c.compileBinaryForced(b, left, right, bytecode.MoreOrEqual, span)
	case token.GT:
		c.compileBinaryForced(b, left, right, bytecode.More, span)
	case token.COLON:
		c.compileConstruct(b, left, right, span)
	case token.ALL:
		c.compileStrictLogical(b, left, right, bytecode.All, false, span)
	case token.ANY:
		c.compileStrictLogical(b, left, right, bytecode.Any, true, span)
	case token.AND:
		c.compileAnd(b, left, right, span)
	case token.OR:
		c.compileOr(b, left, right, span)
	case token.ARROW:
		c.compileImplication(b, left, right, span)
	case token.PIPE:
		c.compileCall(b, right, left, span) // Pipe reverses operands.
	case token.CALL:
		c.compileCall(b, left, right, span)
	case token.FATARROW:
		c.compileLambda(b, left, right, span)
	case token.EQUAL:
		c.compileEqual(b, left, right, span, false)
	case token.NOT_EQUAL:
		c.compileEqual(b, left, right, span, true)
	case token.COMMA, token.SEMICOLON:
		c.compileSequence(b, left, right, span)
	default:
		idx := b.PushValue(value.NewError("unsupported operator", c.loc(span)))
		b.OpVarint(bytecode.Push, uint64(idx), span)
	}
}

func (c *compiler) compileBinaryForced(b *bytecode.Builder, left, right syntax.Node, op bytecode.Opcode, span position.Span) {
	c.emitForced(b, left, span)
	c.emitForced(b, right, span)
	b.Op(op, span)
}

// compileConstruct lowers "h : t": both sides stay lazy, matching List's
// element laziness.
func (c *compiler) compileConstruct(b *bytecode.Builder, left, right syntax.Node, span position.Span) {
	c.emitThunk(b, right, span)
	c.emitThunk(b, left, span)
	b.Op(bytecode.Construct, span)
}

// compileSequence lowers ";" (and bare ","): force left, short-circuit on
// error, discard it, force right.
func (c *compiler) compileSequence(b *bytecode.Builder, left, right syntax.Node, span position.Span) {
	c.emitForced(b, left, span)
	jErr := fwdJump(b, bytecode.JumpIfError, span)
	b.Op(bytecode.Pop, span)
	c.emitForced(b, right, span)
	patch(b, jErr)
}

// isBoolLiteralIdent reports whether n is the bare identifier
// "true"/"false" - the only shape the constant-folding pass recognizes.
// Shadowing is not tracked: a user binding named true/false is still read
// as the literal.
func isBoolLiteralIdent(n syntax.Node) (isBool, val bool) {
	id, ok := n.(syntax.Identifier)
	if !ok || !id.Plain() {
		return false, false
	}
	switch id.Text() {
	case "true":
		return true, true
	case "false":
		return true, false
	default:
		return false, false
	}
}

// foldLogical implements the four documented identities: "false ||",
// "|| true", "true &&", "&& false" (and, via the caller, their bitwise
// forms). The folded-away operand is still lowered under the dead counter
// so its validation reports survive.
func (c *compiler) foldLogical(b *bytecode.Builder, left, right syntax.Node, span position.Span, isOr bool) bool {
	identity := !isOr // And's identity is true, Or's is false.
	short := isOr     // Or short-circuits to true, And to false.

	if ok, val := isBoolLiteralIdent(left); ok && val == identity {
		c.deadLower(left)
		c.emitForced(b, right, span)
		return true
	}
	if ok, val := isBoolLiteralIdent(right); ok && val == short {
		c.deadLower(left)
		idx := b.PushValue(value.Boolean(short))
		b.OpVarint(bytecode.Push, uint64(idx), span)
		return true
	}
	return false
}

func (c *compiler) deadLower(n syntax.Node) {
	c.dead++
	dummy := bytecode.NewBuilder()
	c.compileBody(dummy, n, position.Span{})
	c.dead--
}

func (c *compiler) compileAnd(b *bytecode.Builder, left, right syntax.Node, span position.Span) {
	if c.foldLogical(b, left, right, span, false) {
		return
	}

	c.emitForced(b, left, span)
	b.Op(bytecode.AssertBoolean, span)
	jErr := fwdJump(b, bytecode.JumpIfError, span)
	jTrue := fwdJump(b, bytecode.JumpIf, span)
	jFalse := fwdJump(b, bytecode.Jump, span)

	patch(b, jTrue)
	b.Op(bytecode.Pop, span)
	c.emitForced(b, right, span)

	patch(b, jErr)
	patch(b, jFalse)
}

func (c *compiler) compileOr(b *bytecode.Builder, left, right syntax.Node, span position.Span) {
	if c.foldLogical(b, left, right, span, true) {
		return
	}

	c.emitForced(b, left, span)
	b.Op(bytecode.AssertBoolean, span)
	jErr := fwdJump(b, bytecode.JumpIfError, span)
	jTrue := fwdJump(b, bytecode.JumpIf, span)

	b.Op(bytecode.Pop, span)
	c.emitForced(b, right, span)

	patch(b, jErr)
	patch(b, jTrue)
}

// compileImplication lowers "a -> b" as "!a || b".
func (c *compiler) compileImplication(b *bytecode.Builder, left, right syntax.Node, span position.Span) {
	c.emitForced(b, left, span)
	b.Op(bytecode.AssertBoolean, span)
	b.Op(bytecode.Not, span)

	jErr := fwdJump(b, bytecode.JumpIfError, span)
	jTrue := fwdJump(b, bytecode.JumpIf, span)

	b.Op(bytecode.Pop, span)
	c.emitForced(b, right, span)

	patch(b, jErr)
	patch(b, jTrue)
}

func (c *compiler) compileStrictLogical(b *bytecode.Builder, left, right syntax.Node, op bytecode.Opcode, isOr bool, span position.Span) {
	if c.foldLogical(b, left, right, span, isOr) {
		return
	}
	c.emitForced(b, left, span)
	c.emitForced(b, right, span)
	b.Op(op, span)
}

// compileCall lowers application (both the token-less ImplicitCall and
// "<|"; "|>" reverses its operands before calling this): fn and arg both
// stay lazy, and Call binds arg into fn without forcing the result.
func (c *compiler) compileCall(b *bytecode.Builder, fn, arg syntax.Node, span position.Span) {
	c.emitThunk(b, fn, span)
	c.emitThunk(b, arg, span)
	b.Op(bytecode.Call, span)
}

// compileEqualOperand compiles one side of an Equal comparison lazily: an
// explicit @bind pushes its reflective placeholder directly (Bind is
// already a concrete value), everything else stays an unforced thunk the
// Equal opcode forces only when it actually compares.
// Keeping operands lazy is what lets a captured binding refer to itself:
// the thunk lands in the shared scope frame before anything forces it.
func (c *compiler) compileEqualOperand(b *bytecode.Builder, n syntax.Node, span position.Span) {
	if bind, ok := n.(syntax.Bind); ok {
		idx := b.PushValue(value.Bind{Name: bindName(bind)})
		b.OpVarint(bytecode.Push, uint64(idx), exprSpan(n, span))
		return
	}
	c.emitThunk(b, n, span)
}

// compileBindPosition compiles the pattern side of an Equal: a bare
// identifier acts as a bind the same way an explicit @bind does, so
// "x = 1" captures x. Comparing two already-bound names for equality
// requires parenthesizing the left side, "(x) = y" - an Open Question
// decision recorded in DESIGN.md.
func (c *compiler) compileBindPosition(b *bytecode.Builder, n syntax.Node, span position.Span) {
	if id, ok := n.(syntax.Identifier); ok {
		idx := b.PushValue(value.Bind{Name: identifierName(id)})
		b.OpVarint(bytecode.Push, uint64(idx), exprSpan(n, span))
		return
	}
	c.compileEqualOperand(b, n, span)
}

func (c *compiler) compileEqual(b *bytecode.Builder, left, right syntax.Node, span position.Span, negate bool) {
	c.compileBindPosition(b, left, span)
	c.compileEqualOperand(b, right, span)
	b.Op(bytecode.Equal, span)
	if negate {
		b.Op(bytecode.Not, span)
	}
}

// compileSelect lowers "left.right": force left to an Attributes frame,
// swap it in as the innermost scope, force right (typically an Identifier
// reference) against it, then restore the prior scope.
func (c *compiler) compileSelect(b *bytecode.Builder, left, right syntax.Node, span position.Span) {
	c.emitForced(b, left, span)
	b.Op(bytecode.ScopeStart, span)
	b.Op(bytecode.ScopeSwap, span)

	jErr := fwdJump(b, bytecode.JumpIfError, span)
	b.Op(bytecode.Pop, span)
	c.emitForced(b, right, span)

	patch(b, jErr)
	b.Op(bytecode.ScopeEnd, span)
}

// compileLambda lowers "param => body" into a Value::Lambda sub-thunk
// whose body forces the call argument, matches it against param via
// Equal (capturing any Bind), and either evaluates body or yields a
// mismatch error.
func (c *compiler) compileLambda(b *bytecode.Builder, param, body syntax.Node, span position.Span) {
	inner := bytecode.NewBuilder()

	// The whole body runs in its own scope so the parameter capture lands
	// in a frame private to this application, not the definition site's.
	inner.Op(bytecode.ScopeStart, span)
	inner.Op(bytecode.Force, span)
	c.compileBindPosition(inner, param, span)
	inner.Op(bytecode.Equal, span)

	jOk := fwdJump(inner, bytecode.JumpIf, span)
	inner.Op(bytecode.Pop, span)
	errIdx := inner.PushValue(value.NewError("lambda argument does not match parameter", c.loc(exprSpan(param, span))))
	inner.OpVarint(bytecode.Push, uint64(errIdx), span)
	jEnd := fwdJump(inner, bytecode.Jump, span)

	patch(inner, jOk)
	inner.Op(bytecode.Pop, span)
	c.emitForced(inner, body, span)

	patch(inner, jEnd)
	inner.Op(bytecode.ScopeEnd, span)

	idx := b.PushValue(value.Lambda{Code: inner.Finish()})
	b.OpVarint(bytecode.Push, uint64(idx), span)
}

func (c *compiler) compileIf(b *bytecode.Builder, node syntax.If, span position.Span) {
	c.emitForced(b, node.Condition(), span)
	b.Op(bytecode.AssertBoolean, span)

	jErr := fwdJump(b, bytecode.JumpIfError, span)
	jTrue := fwdJump(b, bytecode.JumpIf, span)

	b.Op(bytecode.Pop, span)
	b.Op(bytecode.ScopeStart, span)
	c.emitForced(b, node.Alternative(), span)
	b.Op(bytecode.ScopeEnd, span)
	jEnd := fwdJump(b, bytecode.Jump, span)

	patch(b, jTrue)
	b.Op(bytecode.Pop, span)
	b.Op(bytecode.ScopeStart, span)
	c.emitForced(b, node.Consequence(), span)
	b.Op(bytecode.ScopeEnd, span)

	patch(b, jEnd)
	patch(b, jErr)
}

// Package eval is Cab's bytecode dispatcher: a stack machine driven by a
// flat instruction reader, implementing the value.CodeRunner hook a Thunk
// calls to force itself.
package eval

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"cull-os/cab/internal/bytecode"
	"cull-os/cab/internal/invariant"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/value"
)

// Evaluator wires bytecode execution to package value's lazy Thunk
// machine via the CodeRunner hook.
type Evaluator struct {
	path   string
	logger *slog.Logger
}

// New returns an Evaluator that attributes every Location it builds to
// path.
func New(path string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{path: path, logger: logger}
}

// Runner returns the CodeRunner callback a *value.Thunk calls to execute
// its Suspended bytecode - the dependency-inversion seam that keeps
// package value free of any import on package eval.
func (e *Evaluator) Runner() value.CodeRunner {
	var runner value.CodeRunner
	runner = func(code *bytecode.Code, arg value.Value, scopes *value.Scopes) (value.Value, *value.Scopes) {
		m := &machine{path: e.path, logger: e.logger, scopes: scopes, runner: runner}
		if arg != nil {
			m.push(arg)
		}
		v := m.run(code)
		return v, m.scopes
	}
	return runner
}

// Eval builds the top-level suspended thunk over code and forces it
// under initial. A nil initial chain is seeded with one empty frame so
// top-level bind-captures have a shared frame to land in.
func (e *Evaluator) Eval(code *bytecode.Code, initial *value.Scopes) value.Value {
	if initial == nil {
		initial = initial.Push(value.NewFrame())
	}
	runner := e.Runner()
	t := value.NewSuspended(value.Location{Path: e.path}, code, nil, initial)
	return t.Force(runner)
}

// machine is one bytecode execution: a value stack and the scope chain in
// effect, private to a single Thunk.Force call (a nested Force spawns its
// own machine via runner, never sharing a stack with its caller).
type machine struct {
	path   string
	logger *slog.Logger
	stack  []value.Value
	scopes *value.Scopes
	runner value.CodeRunner
}

func (m *machine) loc(span position.Span) value.Location {
	return value.Location{Path: m.path, Span: span}
}

func (m *machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *machine) pop() value.Value {
	n := len(m.stack)
	invariant.Invariant(n > 0, "bytecode stack underflow")
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v
}

func (m *machine) peek() value.Value {
	invariant.Invariant(len(m.stack) > 0, "bytecode stack underflow on peek")
	return m.stack[len(m.stack)-1]
}

// force repeatedly resolves v while it is a forceable Thunk, spawning a
// fresh machine run per layer via m's runner. A lambda-derived thunk still
// waiting for its argument passes through untouched - forcing it without
// an argument would underflow its body's stack. Equal's bind-captures
// reach this machine through the scope frames the two machines share, not
// by adopting the forced thunk's recorded scopagate chain: a lambda
// body's leading Force pops the caller-built argument thunk, and adopting
// that thunk's chain would replace the body's own scope stack with the
// call site's.
func (m *machine) force(v value.Value) value.Value {
	for {
		t, ok := v.(*value.Thunk)
		if !ok || t.NeedsArgument() {
			return v
		}
		v = t.Force(m.runner)
	}
}

// execForce is the Force opcode: pop, force to a non-thunk,
// push.
func (m *machine) execForce() {
	m.push(m.force(m.pop()))
}

// run executes code to completion and returns the single value left on
// the stack.
func (m *machine) run(code *bytecode.Code) value.Value {
	r := bytecode.NewReader(code)

	for !r.Done() {
		pos := r.Pos()
		op := r.Next()
		span := code.SpanAt(pos)
		invariant.Invariant(!span.IsDummy(), "bytecode opcode %s reached with a dummy span", op)

		switch op {
		case bytecode.Push:
			idx := r.ReadVarint()
			m.execPush(code, int(idx), span)

		case bytecode.Pop:
			m.pop()

		case bytecode.Swap:
			n := len(m.stack)
			invariant.Invariant(n >= 2, "Swap opcode reached with fewer than two stack values")
			m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]

		case bytecode.Jump:
			target := r.ReadU16()
			r.Seek(int(target))

		case bytecode.JumpIf:
			target := r.ReadU16()
			if b, ok := m.peek().(value.Boolean); ok {
				if bool(b) {
					r.Seek(int(target))
				}
			} else {
				top := m.pop()
				m.push(value.NewError(fmt.Sprintf("expected a boolean, got a %s value", top.Kind()), m.loc(span)))
			}

		case bytecode.JumpIfError:
			target := r.ReadU16()
			if e, ok := m.peek().(value.Error); ok {
				m.pop()
				m.push(e.WithLocation(m.loc(span)))
				r.Seek(int(target))
			}

		case bytecode.Force:
			m.execForce()

		case bytecode.ScopeStart:
			m.scopes = m.scopes.Push(value.NewFrame())

		case bytecode.ScopeEnd:
			m.scopes = m.scopes.Pop()

		case bytecode.ScopePush:
			m.push(m.scopes.Top())

		case bytecode.ScopeSwap:
			m.execScopeSwap(span)

		case bytecode.Resolve:
			m.execResolve(span)

		case bytecode.Interpolate:
			arg := r.ReadVarint()
			m.execInterpolate(arg, span)

		case bytecode.AssertBoolean:
			m.execAssertBoolean(span)

		case bytecode.Addition, bytecode.Subtraction, bytecode.Multiplication, bytecode.Power, bytecode.Division:
			m.execArith(op, span)

		case bytecode.Concat:
			m.execConcat(span)

		case bytecode.Construct:
			m.execConstruct()

		case bytecode.Update:
			m.execUpdate(span)

		case bytecode.LessOrEqual, bytecode.Less, bytecode.MoreOrEqual, bytecode.More:
			m.execCompare(op, span)

		case bytecode.Equal:
			m.execEqual(span)

		case bytecode.Not:
			m.execNot(span)

		case bytecode.All, bytecode.Any:
			m.execLogical(op, span)

		case bytecode.Negation, bytecode.Swwallation:
			m.execUnaryNumeric(op, span)

		case bytecode.Call:
			m.execCall(span)

		default:
			invariant.Invariant(false, "unrecognized opcode %s", op)
		}
	}

	invariant.Invariant(len(m.stack) == 1, "code finished with %d values on the stack, want 1", len(m.stack))
	return m.stack[0]
}

// execPush boxes a Suspend or Lambda pool entry into a fresh *Thunk
// capturing the current scope chain; every other pool
// value is already a concrete Value and is pushed as-is.
func (m *machine) execPush(code *bytecode.Code, idx int, span position.Span) {
	switch pv := code.Value(idx).(type) {
	case value.Suspend:
		m.push(value.NewSuspended(m.loc(span), pv.Code, nil, m.scopes))
	case value.Lambda:
		m.push(value.NewLambda(m.loc(span), pv.Code, m.scopes))
	default:
		m.push(pv.(value.Value))
	}
}

func (m *machine) execScopeSwap(span position.Span) {
	top := m.pop()
	if e, ok := top.(value.Error); ok {
		m.push(e.WithLocation(m.loc(span)))
		return
	}
	attrs, ok := top.(value.Attributes)
	if !ok {
		m.push(value.NewError(fmt.Sprintf("cannot select into a %s value", top.Kind()), m.loc(span)))
		return
	}
	old := m.scopes.Top()
	m.scopes = m.scopes.ReplaceTop(attrs)
	m.push(old)
}

func (m *machine) execResolve(span position.Span) {
	top := m.pop()
	ref, ok := top.(value.Reference)
	invariant.Invariant(ok, "Resolve opcode reached with a non-Reference operand")

	if v, found := m.scopes.Resolve(ref.Name); found {
		m.push(m.force(v))
		return
	}

	msg := fmt.Sprintf("undefined value %q", ref.Name)
	if hint := suggest(ref.Name, m.scopes.Names()); hint != "" {
		msg = fmt.Sprintf("%s (did you mean %q?)", msg, hint)
	}
	m.push(value.NewError(msg, m.loc(span)))
}

// suggest returns, among the candidates that fuzzy-match name (contain its
// characters in order), the closest one by Levenshtein distance, or "" if
// none matches - Resolve's "did you mean" diagnostic,
// wiring github.com/lithammer/fuzzysearch.
func suggest(name string, candidates []string) string {
	ranks := fuzzy.RankFind(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].Distance < ranks[j].Distance })
	return ranks[0].Target
}

// execInterpolate folds arity pushed segment values (literal strings and
// forced sub-expression results) into a single String or Path value. The
// argument packs arity*4+kind; kind 0 is string, 1 is path, 2 is
// identifier (never produced by the compiler today - identifiers resolve
// their static name at compile time - but handled the same as string for
// forward compatibility).
func (m *machine) execInterpolate(arg uint64, span position.Span) {
	arity := int(arg / 4)
	kind := int(arg % 4)

	parts := make([]string, arity)
	var firstErr *value.Error
	for i := arity - 1; i >= 0; i-- {
		piece := m.pop()
		if e, ok := piece.(value.Error); ok {
			firstErr = &e
			continue
		}
		parts[i] = stringify(piece)
	}
	if firstErr != nil {
		m.push(firstErr.WithLocation(m.loc(span)))
		return
	}
	text := strings.Join(parts, "")

	if kind == 1 {
		m.push(parsePath(text))
		return
	}
	m.push(value.String(text))
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

func pathString(p value.Path) string {
	var b strings.Builder
	if p.HasRoot {
		b.WriteString("/")
	}
	b.WriteString(strings.Join(p.Components, "/"))
	return b.String()
}

func stringify(v value.Value) string {
	switch vv := v.(type) {
	case value.String:
		return string(vv)
	case value.Char:
		return string(rune(vv))
	case value.Boolean:
		if vv {
			return "true"
		}
		return "false"
	case value.Integer:
		return vv.String()
	case value.Float:
		return strconv.FormatFloat(float64(vv), 'g', -1, 64)
	case value.Path:
		return pathString(vv)
	case value.Nil:
		return ""
	case value.Error:
		return vv.Message
	default:
		return vv.Kind()
	}
}

// propagatedError reports the first Error among vs, with span appended to
// its trace.
func (m *machine) propagatedError(span position.Span, vs...value.Value) (value.Error, bool) {
	for _, v := range vs {
		if e, ok := v.(value.Error); ok {
			return e.WithLocation(m.loc(span)), true
		}
	}
	return value.Error{}, false
}

func (m *machine) typeError(op bytecode.Opcode, left, right value.Value, span position.Span) value.Error {
	return value.NewError(fmt.Sprintf("cannot apply %s to %s and %s", op, left.Kind(), right.Kind()), m.loc(span))
}

func numericFloat(v value.Value) (float64, bool) {
	switch vv := v.(type) {
	case value.Integer:
		f := new(big.Float).SetInt(vv.Int)
		out, _ := f.Float64()
		return out, true
	case value.Float:
		return float64(vv), true
	default:
		return 0, false
	}
}

func (m *machine) execArith(op bytecode.Opcode, span position.Span) {
	right := m.pop()
	left := m.pop()
	if e, ok := m.propagatedError(span, left, right); ok {
		m.push(e)
		return
	}

	li, liok := left.(value.Integer)
	ri, riok := right.(value.Integer)

	if op == bytecode.Division {
		if liok && riok {
			if ri.Sign() == 0 {
				m.push(value.NewError("division by zero", m.loc(span)))
				return
			}
			q, rem := new(big.Int), new(big.Int)
			q.QuoRem(li.Int, ri.Int, rem)
			if rem.Sign() == 0 {
				m.push(value.Integer{Int: q})
				return
			}
		}
		lf, lfok := numericFloat(left)
		rf, rfok := numericFloat(right)
		if !lfok || !rfok {
			m.push(m.typeError(op, left, right, span))
			return
		}
		if rf == 0 {
			m.push(value.NewError("division by zero", m.loc(span)))
			return
		}
		m.push(value.Float(lf / rf))
		return
	}

	if liok && riok {
		var out *big.Int
		switch op {
		case bytecode.Addition:
			out = new(big.Int).Add(li.Int, ri.Int)
		case bytecode.Subtraction:
			out = new(big.Int).Sub(li.Int, ri.Int)
		case bytecode.Multiplication:
			out = new(big.Int).Mul(li.Int, ri.Int)
		case bytecode.Power:
			if ri.Sign() >= 0 {
				out = new(big.Int).Exp(li.Int, ri.Int, nil)
			}
		}
		if out != nil {
			m.push(value.Integer{Int: out})
			return
		}
	}

	lf, lfok := numericFloat(left)
	rf, rfok := numericFloat(right)
	if !lfok || !rfok {
		m.push(m.typeError(op, left, right, span))
		return
	}
	switch op {
	case bytecode.Addition:
		m.push(value.Float(lf + rf))
	case bytecode.Subtraction:
		m.push(value.Float(lf - rf))
	case bytecode.Multiplication:
		m.push(value.Float(lf * rf))
	case bytecode.Power:
		m.push(value.Float(math.Pow(lf, rf)))
	}
}

// execAssertBoolean checks the top-of-stack value without consuming it:
// a Boolean or an Error (which JumpIfError will catch) is left as-is, any
// other value is replaced by a type-mismatch Error, used before And/Or/Implication/If branch on it.
func (m *machine) execAssertBoolean(span position.Span) {
	top := m.peek()
	switch top.(type) {
	case value.Boolean, value.Error:
		return
	default:
		m.pop()
		m.push(value.NewError(fmt.Sprintf("expected a boolean, got a %s value", top.Kind()), m.loc(span)))
	}
}

func (m *machine) execConcat(span position.Span) {
	right := m.pop()
	left := m.pop()
	if e, ok := m.propagatedError(span, left, right); ok {
		m.push(e)
		return
	}

	switch lv := left.(type) {
	case value.String:
		if rv, ok := right.(value.String); ok {
			m.push(lv + rv)
			return
		}
	case value.Path:
		if rv, ok := right.(value.Path); ok {
			components := make([]string, 0, len(lv.Components)+len(rv.Components))
			components = append(components, lv.Components...)
			components = append(components, rv.Components...)
			m.push(value.Path{Root: lv.Root, HasRoot: lv.HasRoot, Components: components})
			return
		}
	case value.Nil:
		m.push(right)
		return
	case value.Cons:
		m.push(m.concatList(lv, right, span))
		return
	}
	m.push(m.typeError(bytecode.Concat, left, right, span))
}

// concatList appends tail after c's spine, forcing each cell as it walks
// it - list ++ is not itself lazy.
func (m *machine) concatList(c value.Cons, tail value.Value, span position.Span) value.Value {
	restTail := m.force(c.Tail)
	var newTail value.Value
	switch rv := restTail.(type) {
	case value.Nil:
		newTail = tail
	case value.Cons:
		newTail = m.concatList(rv, tail, span)
	default:
		return m.typeError(bytecode.Concat, restTail, tail, span)
	}
	return value.Cons{Head: c.Head, Tail: newTail}
}

// execConstruct pops head then tail and pushes Cons(head, tail) - spec
// §4.4 "Construct pops head, tail and pushes Cons(head, tail)". Neither
// operand is forced, preserving the lazy-head property bytecode.Construct
// relies on for both List and the ":" operator.
func (m *machine) execConstruct() {
	head := m.pop()
	tail := m.pop()
	m.push(value.Cons{Head: head, Tail: tail})
}

func (m *machine) execUpdate(span position.Span) {
	right := m.pop()
	left := m.pop()
	if e, ok := m.propagatedError(span, left, right); ok {
		m.push(e)
		return
	}
	la, lok := left.(value.Attributes)
	ra, rok := right.(value.Attributes)
	if !lok || !rok {
		m.push(m.typeError(bytecode.Update, left, right, span))
		return
	}
	m.push(la.Merge(ra))
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (m *machine) compareValues(left, right value.Value) (int, bool) {
	switch lv := left.(type) {
	case value.Integer:
		if rv, ok := right.(value.Integer); ok {
			return lv.Cmp(rv.Int), true
		}
		if rf, ok := numericFloat(right); ok {
			lf, _ := numericFloat(left)
			return floatCmp(lf, rf), true
		}
	case value.Float:
		if rf, ok := numericFloat(right); ok {
			return floatCmp(float64(lv), rf), true
		}
	case value.String:
		if rv, ok := right.(value.String); ok {
			return strings.Compare(string(lv), string(rv)), true
		}
	case value.Char:
		if rv, ok := right.(value.Char); ok {
			return int(lv) - int(rv), true
		}
	}
	return 0, false
}

func (m *machine) execCompare(op bytecode.Opcode, span position.Span) {
	right := m.pop()
	left := m.pop()
	if e, ok := m.propagatedError(span, left, right); ok {
		m.push(e)
		return
	}

	cmp, ok := m.compareValues(left, right)
	if !ok {
		m.push(m.typeError(op, left, right, span))
		return
	}

	var result bool
	switch op {
	case bytecode.LessOrEqual:
		result = cmp <= 0
	case bytecode.Less:
		result = cmp < 0
	case bytecode.MoreOrEqual:
		result = cmp >= 0
	case bytecode.More:
		result = cmp > 0
	}
	m.push(value.Boolean(result))
}

// execEqual implements both plain structural equality and the Bind
// pattern-capture mechanism: an operand that is a Value::Bind captures the
// other operand - still unforced, so a recursive binding stays a thunk
// that can later trip the black hole - into the current innermost scope
// and reports success. Two Binds capture each other.
func (m *machine) execEqual(span position.Span) {
	right := m.pop()
	left := m.pop()

	lb, lok := left.(value.Bind)
	rb, rok := right.(value.Bind)
	switch {
	case lok && rok:
		m.scopes = m.scopes.Bind(lb.Name, right)
		m.scopes = m.scopes.Bind(rb.Name, left)
		m.push(value.Boolean(true))
		return
	case lok:
		m.scopes = m.scopes.Bind(lb.Name, right)
		m.push(value.Boolean(true))
		return
	case rok:
		m.scopes = m.scopes.Bind(rb.Name, left)
		m.push(value.Boolean(true))
		return
	}

	left = m.force(left)
	right = m.force(right)
	if e, ok := m.propagatedError(span, left, right); ok {
		m.push(e)
		return
	}

	m.push(value.Boolean(m.structEqual(left, right)))
}

func (m *machine) structEqual(a, b value.Value) bool {
	a = m.force(a)
	b = m.force(b)

	switch av := a.(type) {
	case value.Boolean:
		bv, ok := b.(value.Boolean)
		return ok && av == bv
	case value.Char:
		bv, ok := b.(value.Char)
		return ok && av == bv
	case value.Integer:
		bv, ok := b.(value.Integer)
		return ok && av.Cmp(bv.Int) == 0
	case value.Float:
		bv, ok := b.(value.Float)
		return ok && av == bv
	case value.String:
		bv, ok := b.(value.String)
		return ok && av == bv
	case value.Nil:
		_, ok := b.(value.Nil)
		return ok
	case value.Cons:
		bv, ok := b.(value.Cons)
		return ok && m.structEqual(av.Head, bv.Head) && m.structEqual(av.Tail, bv.Tail)
	case value.Path:
		bv, ok := b.(value.Path)
		if !ok || av.HasRoot != bv.HasRoot || len(av.Components) != len(bv.Components) {
			return false
		}
		for i := range av.Components {
			if av.Components[i] != bv.Components[i] {
				return false
			}
		}
		return true
	case value.Attributes:
		bv, ok := b.(value.Attributes)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			v1, _ := av.Get(k)
			v2, ok2 := bv.Get(k)
			if !ok2 || !m.structEqual(v1, v2) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (m *machine) execNot(span position.Span) {
	top := m.pop()
	switch v := top.(type) {
	case value.Error:
		m.push(v.WithLocation(m.loc(span)))
	case value.Boolean:
		m.push(!v)
	default:
		m.push(value.NewError(fmt.Sprintf("cannot negate a %s value", top.Kind()), m.loc(span)))
	}
}

func (m *machine) execLogical(op bytecode.Opcode, span position.Span) {
	right := m.pop()
	left := m.pop()
	if e, ok := m.propagatedError(span, left, right); ok {
		m.push(e)
		return
	}
	lb, lok := left.(value.Boolean)
	rb, rok := right.(value.Boolean)
	if !lok || !rok {
		m.push(m.typeError(op, left, right, span))
		return
	}
	switch op {
	case bytecode.All:
		m.push(value.Boolean(bool(lb) && bool(rb)))
	case bytecode.Any:
		m.push(value.Boolean(bool(lb) || bool(rb)))
	}
}

func (m *machine) execUnaryNumeric(op bytecode.Opcode, span position.Span) {
	top := m.pop()
	if e, ok := m.propagatedError(span, top); ok {
		m.push(e)
		return
	}
	switch v := top.(type) {
	case value.Integer:
		if op == bytecode.Negation {
			m.push(value.Integer{Int: new(big.Int).Neg(v.Int)})
		} else {
			m.push(v)
		}
	case value.Float:
		if op == bytecode.Negation {
			m.push(-v)
		} else {
			m.push(v)
		}
	default:
		m.push(value.NewError(fmt.Sprintf("cannot apply %s to a %s value", op, top.Kind()), m.loc(span)))
	}
}

// execCall binds the argument into the lambda thunk beneath it without
// forcing the result. The function operand is itself usually a plain suspend thunk
// wrapping the lambda expression; force peels those layers off and stops
// at the argument-awaiting lambda thunk.
func (m *machine) execCall(span position.Span) {
	arg := m.pop()
	fn := m.force(m.pop())
	if e, ok := m.propagatedError(span, fn); ok {
		m.push(e)
		return
	}

	fnThunk, ok := fn.(*value.Thunk)
	if !ok || !fnThunk.NeedsArgument() {
		m.push(value.NewError(fmt.Sprintf("cannot call a %s value", fn.Kind()), m.loc(span)))
		return
	}
	bound, ok := fnThunk.Rebind(arg)
	if !ok {
		m.push(value.NewError("value is not a callable function", m.loc(span)))
		return
	}
	m.push(bound)
}

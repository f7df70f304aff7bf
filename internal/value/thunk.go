// Thunk is Cab's lazy value cell: a state wrapped behind a lock, a
// one-shot transition to Evaluated, and a transient black-hole marker
// that trips self-referential re-entrancy instead of deadlocking.
package value

import (
	"sync"

	"cull-os/cab/internal/bytecode"
)

type thunkState interface{ isThunkState() }

type stateSuspendedNative struct {
	Location Location
	Fn       func(arg Value) Value
	Arg      Value
}

func (stateSuspendedNative) isThunkState() {}

type stateSuspended struct {
	Location Location
	Code     *bytecode.Code
	Arg      Value
	Scopes   *Scopes

	// NeedsArg marks a lambda-derived thunk that must receive a call
	// argument (via Rebind) before it may be forced. Force treats such a
	// thunk as an ordinary value; only the Call opcode consumes it.
	NeedsArg bool
}

func (stateSuspended) isThunkState() {}

type stateEvaluated struct {
	Scopagate *Scopes
	Value     Value
}

func (stateEvaluated) isThunkState() {}

type stateBlackHole struct {
	Location Location
}

func (stateBlackHole) isThunkState() {}

// Thunk wraps a thunkState behind a readers-writer lock: the common case
// (already Evaluated) is a read-only fast path; transitioning into and
// out of the black hole takes the write lock only for the instant of the
// swap, not for the duration of whatever work the thunk does.
type Thunk struct {
	mu    sync.RWMutex
	state thunkState
}

func (*Thunk) CabValue()    {}
func (*Thunk) Kind() string { return "thunk" }

// NewSuspendedNative builds a thunk around a built-in function.
func NewSuspendedNative(loc Location, fn func(Value) Value, arg Value) *Thunk {
	return &Thunk{state: stateSuspendedNative{Location: loc, Fn: fn, Arg: arg}}
}

// NewSuspended builds a thunk around bytecode to run under scopes, with
// an optional call argument.
func NewSuspended(loc Location, code *bytecode.Code, arg Value, scopes *Scopes) *Thunk {
	return &Thunk{state: stateSuspended{Location: loc, Code: code, Arg: arg, Scopes: scopes}}
}

// NewLambda builds a thunk around a lambda's bytecode, flagged as waiting
// for its call argument (see NeedsArgument). Thunk.Force does not check the
// flag; the evaluator passes such a thunk through untouched until Rebind
// supplies the argument.
func NewLambda(loc Location, code *bytecode.Code, scopes *Scopes) *Thunk {
	return &Thunk{state: stateSuspended{Location: loc, Code: code, Scopes: scopes, NeedsArg: true}}
}

// NeedsArgument reports whether t is a lambda-derived thunk still waiting
// for its call argument - a value Force must pass through untouched.
func (t *Thunk) NeedsArgument() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.state.(stateSuspended)
	return ok && s.NeedsArg && s.Arg == nil
}

// NewEvaluated builds an already-forced thunk, used for memoized
// constants.
func NewEvaluated(v Value) *Thunk {
	return &Thunk{state: stateEvaluated{Value: v}}
}

// CodeRunner executes a Suspended thunk's bytecode, producing a value and
// the resulting scope chain (recorded as the Evaluated state's
// scopagate). The evaluator supplies this so package value never depends
// on the opcode dispatcher.
type CodeRunner func(code *bytecode.Code, arg Value, scopes *Scopes) (Value, *Scopes)

// Force resolves t to its Evaluated value. A thunk forces at most once:
// later calls observe the cached Evaluated value. A thunk observed as a
// black hole - entered while already being forced along the same call
// path - returns the "infinite recursion" tripwire rather than
// deadlocking or looping.
func (t *Thunk) Force(run CodeRunner) Value {
	v, _ := t.ForceWithScopagate(run)
	return v
}

// ForceWithScopagate is Force plus the recorded scopagate chain, for
// callers that need the scope mutations a run produced.
func (t *Thunk) ForceWithScopagate(run CodeRunner) (Value, *Scopes) {
	t.mu.RLock()
	if ev, ok := t.state.(stateEvaluated); ok {
		t.mu.RUnlock()
		return ev.Value, ev.Scopagate
	}
	t.mu.RUnlock()

	t.mu.Lock()
	switch s := t.state.(type) {
	case stateEvaluated:
		t.mu.Unlock()
		return s.Value, s.Scopagate

	case stateBlackHole:
		t.mu.Unlock()
		return NewError("infinite recursion encountered", s.Location), nil

	case stateSuspendedNative:
		t.state = stateBlackHole{Location: s.Location}
		t.mu.Unlock()

		v := s.Fn(s.Arg)

		t.mu.Lock()
		t.state = stateEvaluated{Value: v}
		t.mu.Unlock()
		return v, nil

	case stateSuspended:
		t.state = stateBlackHole{Location: s.Location}
		t.mu.Unlock()

		v, scopagate := run(s.Code, s.Arg, s.Scopes)

		t.mu.Lock()
		t.state = stateEvaluated{Value: v, Scopagate: scopagate}
		t.mu.Unlock()
		return v, scopagate

	default:
		t.mu.Unlock()
		return NewError("thunk in an unrecognized state", Location{}), nil
	}
}

// IsBlackHole reports whether t is currently being forced - exposed for
// diagnostics/tests, not used by ordinary evaluation.
func (t *Thunk) IsBlackHole() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.state.(stateBlackHole)
	return ok
}

// Rebind binds arg into an unforced suspended thunk, returning a new
// Thunk ready to be forced - the Call opcode's argument-binding step.
// Called only on a thunk still holding its code with no argument yet
// bound; the evaluator reports malformed calls as errors rather than
// rebinding.
func (t *Thunk) Rebind(arg Value) (*Thunk, bool) {
	t.mu.RLock()
	s, ok := t.state.(stateSuspended)
	t.mu.RUnlock()
	if !ok || s.Arg != nil {
		return nil, false
	}
	return &Thunk{state: stateSuspended{Location: s.Location, Code: s.Code, Arg: arg, Scopes: s.Scopes}}, true
}

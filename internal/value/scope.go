package value

// Attributes is a persistent (copy-on-write) string-keyed map: Cab's
// compound "Attributes" value and also the building block of a Scopes
// frame. Insert/Merge never mutate the receiver, so a shared
// Attributes can be captured by many thunks safely.
//
// A true persistent hash trie (structural sharing below the top level)
// would avoid the O(n) copy on Insert; this copies the underlying map
// instead - see DESIGN.md.
type Attributes struct {
	m map[string]Value
}

func (Attributes) CabValue()    {}
func (Attributes) Kind() string { return "attributes" }

// NewAttributes returns an empty Attributes.
func NewAttributes() Attributes {
	return Attributes{}
}

// Get looks up name.
func (a Attributes) Get(name string) (Value, bool) {
	v, ok := a.m[name]
	return v, ok
}

// Insert returns a new Attributes with name bound to v.
func (a Attributes) Insert(name string, v Value) Attributes {
	m := make(map[string]Value, len(a.m)+1)
	for k, existing := range a.m {
		m[k] = existing
	}
	m[name] = v
	return Attributes{m: m}
}

// Merge returns a new Attributes with other's bindings overlaid on a's
// (the Update opcode's semantics).
func (a Attributes) Merge(other Attributes) Attributes {
	m := make(map[string]Value, len(a.m)+len(other.m))
	for k, v := range a.m {
		m[k] = v
	}
	for k, v := range other.m {
		m[k] = v
	}
	return Attributes{m: m}
}

// Len returns the number of bindings.
func (a Attributes) Len() int { return len(a.m) }

// Keys returns every bound name, in no particular order.
func (a Attributes) Keys() []string {
	out := make([]string, 0, len(a.m))
	for k := range a.m {
		out = append(out, k)
	}
	return out
}

// Scopes is an ordered linked stack of Attributes frames: cheap to
// clone (a new head node), with resolution walking top-first.
type Scopes struct {
	frame  Attributes
	parent *Scopes
}

// NewFrame returns an empty frame with its binding map already allocated.
// Scope frames are shared by reference: every chain (and every thunk that
// captured a chain) holding the same frame observes Bind writes into it,
// which is what lets a recursive binding's thunk resolve its own name.
func NewFrame() Attributes {
	return Attributes{m: make(map[string]Value)}
}

// Push returns a new Scopes with a fresh frame on top.
func (s *Scopes) Push(frame Attributes) *Scopes {
	return &Scopes{frame: frame, parent: s}
}

// Bind writes name into the innermost frame in place - the Equal opcode's
// bind-capture. It returns the chain, allocating a frame when s is nil.
func (s *Scopes) Bind(name string, v Value) *Scopes {
	if s == nil {
		s = s.Push(NewFrame())
	}
	if s.frame.m == nil {
		s.frame.m = make(map[string]Value, 1)
	}
	s.frame.m[name] = v
	return s
}

// ReplaceTop returns a new Scopes with the innermost frame replaced by
// frame - the ScopeSwap opcode's semantics.
func (s *Scopes) ReplaceTop(frame Attributes) *Scopes {
	var parent *Scopes
	if s != nil {
		parent = s.parent
	}
	return &Scopes{frame: frame, parent: parent}
}

// Top returns the innermost frame, or an empty Attributes if s is nil.
func (s *Scopes) Top() Attributes {
	if s == nil {
		return NewAttributes()
	}
	return s.frame
}

// Pop returns the chain with the innermost frame removed - the ScopeEnd
// opcode's semantics.
func (s *Scopes) Pop() *Scopes {
	if s == nil {
		return nil
	}
	return s.parent
}

// Names returns every name bound anywhere in the chain, nearest frame
// first, used to build "did you mean" suggestions for an undefined
// Resolve.
func (s *Scopes) Names() []string {
	var out []string
	for cur := s; cur != nil; cur = cur.parent {
		out = append(out, cur.frame.Keys()...)
	}
	return out
}

// Resolve walks the scope chain top-first looking for name.
func (s *Scopes) Resolve(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.frame.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

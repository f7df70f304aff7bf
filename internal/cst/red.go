package cst

import (
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/token"
)

// Red is a parent-linked projection of a green node at a specific source
// offset. Red nodes give O(1) span queries; they are constructed lazily -
// only the path a caller actually walks is materialized - and are cheap
// handles (kind, offset, a pointer to the green node and to the parent).
type Red struct {
	green  *GreenNode
	parent *Red
	offset int
}

// NewRoot wraps a root green node as a Red at offset 0.
func NewRoot(green *GreenNode) *Red {
	return &Red{green: green, offset: 0}
}

// Kind returns the node kind.
func (r *Red) Kind() NodeKind { return r.green.Kind }

// Span returns the half-open byte range this node covers: the cover of its
// first-to-last leaf token spans.
func (r *Red) Span() position.Span {
	return position.Span{Start: r.offset, End: r.offset + r.green.Len}
}

// Parent returns the enclosing Red node, or nil at the root.
func (r *Red) Parent() *Red { return r.parent }

// Text reconstructs this node's exact source text.
func (r *Red) Text() string { return r.green.Text() }

// Element is either a child Red node or a RedToken, mirroring GreenChild
// but carrying an absolute span.
type Element struct {
	Token *RedToken
	Node  *Red
}

// RedToken is a token leaf with its absolute span.
type RedToken struct {
	Kind token.Kind
	Text string
	Span position.Span
}

// ChildrenWithTokens returns every direct child (nodes and tokens) in
// document order, each carrying its absolute span.
func (r *Red) ChildrenWithTokens() []Element {
	out := make([]Element, 0, len(r.green.Children))
	offset := r.offset
	for _, c := range r.green.Children {
		if c.Token != nil {
			span := position.Span{Start: offset, End: offset + len(c.Token.Text)}
			out = append(out, Element{Token: &RedToken{Kind: c.Token.Kind, Text: c.Token.Text, Span: span}})
			offset += len(c.Token.Text)
		} else {
			child := &Red{green: c.Node, parent: r, offset: offset}
			out = append(out, Element{Node: child})
			offset += c.Node.Len
		}
	}
	return out
}

// Children returns only the node children, in document order.
func (r *Red) Children() []*Red {
	var out []*Red
	for _, e := range r.ChildrenWithTokens() {
		if e.Node != nil {
			out = append(out, e.Node)
		}
	}
	return out
}

// Tokens returns only the token children (skipping nested nodes), in
// document order.
func (r *Red) Tokens() []*RedToken {
	var out []*RedToken
	for _, e := range r.ChildrenWithTokens() {
		if e.Token != nil {
			out = append(out, e.Token)
		}
	}
	return out
}

// SignificantTokens returns Tokens filtered to non-trivia kinds.
func (r *Red) SignificantTokens() []*RedToken {
	var out []*RedToken
	for _, t := range r.Tokens() {
		if !t.Kind.IsTrivia() {
			out = append(out, t)
		}
	}
	return out
}

// FirstToken returns the first leaf token under r, in document order, or
// nil if r has no tokens at all.
func (r *Red) FirstToken() *RedToken {
	for _, e := range r.ChildrenWithTokens() {
		if e.Token != nil {
			return e.Token
		}
		if t := e.Node.FirstToken(); t != nil {
			return t
		}
	}
	return nil
}

// LastToken returns the last leaf token under r, in document order.
func (r *Red) LastToken() *RedToken {
	elems := r.ChildrenWithTokens()
	for i := len(elems) - 1; i >= 0; i-- {
		e := elems[i]
		if e.Token != nil {
			return e.Token
		}
		if t := e.Node.LastToken(); t != nil {
			return t
		}
	}
	return nil
}

// NthNode returns the index-th (0-based) direct child node of the given
// kind, or nil. This is the getter primitive the typed node layer uses.
func (r *Red) NthNode(kind NodeKind, index int) *Red {
	n := 0
	for _, c := range r.Children() {
		if c.Kind() == kind {
			if n == index {
				return c
			}
			n++
		}
	}
	return nil
}

// NthToken returns the index-th (0-based) direct significant token child of
// the given kind, or nil.
func (r *Red) NthToken(kind token.Kind, index int) *RedToken {
	n := 0
	for _, t := range r.SignificantTokens() {
		if t.Kind == kind {
			if n == index {
				return t
			}
			n++
		}
	}
	return nil
}

// SameItems flattens a right-leaning chain of InfixOp(Same, ...) nodes into
// a flat sequence of items. isSame reports whether an InfixOp node is a
// Same (comma) operation.
func SameItems(r *Red, isSame func(*Red) bool) []*Red {
	var out []*Red
	var walk func(n *Red)
	walk = func(n *Red) {
		if n.Kind() == NodeInfixOp && isSame(n) {
			children := n.Children()
			if len(children) == 2 {
				walk(children[0])
				walk(children[1])
				return
			}
		}
		out = append(out, n)
	}
	walk(r)
	return out
}

package cst

import "cull-os/cab/internal/token"

// Builder assembles a green tree from a stream of start-node/token/finish-
// node events. It builds the tree directly rather than replaying a flat
// event log, since the noder needs the tree itself to run validation.
type Builder struct {
	interner *Interner
	stack    []partial
	root     *GreenNode
}

type partial struct {
	kind     NodeKind
	children []GreenChild
}

// NewBuilder returns a Builder that interns token text through in.
func NewBuilder(in *Interner) *Builder {
	return &Builder{interner: in}
}

// StartNode opens a new node of the given kind; children pushed after this
// call (tokens or finished nodes) become its children until the matching
// FinishNode.
func (b *Builder) StartNode(kind NodeKind) {
	b.stack = append(b.stack, partial{kind: kind})
}

// Checkpoint returns a marker that can later be passed to StartNodeAt to
// retroactively wrap every child emitted since the checkpoint into a new
// node - the mechanism the Pratt loop uses to wrap an already-parsed left
// operand into an InfixOp once the operator token is seen.
func (b *Builder) Checkpoint() int {
	return len(b.top().children)
}

// StartNodeAt opens a new node of the given kind containing every child of
// the current node emitted since checkpoint.
func (b *Builder) StartNodeAt(checkpoint int, kind NodeKind) {
	top := &b.stack[len(b.stack)-1]
	tail := append([]GreenChild(nil), top.children[checkpoint:]...)
	top.children = top.children[:checkpoint]
	b.stack = append(b.stack, partial{kind: kind, children: tail})
}

// Token appends a leaf token to the current node.
func (b *Builder) Token(kind token.Kind, text string) {
	top := &b.stack[len(b.stack)-1]
	top.children = append(top.children, GreenChild{Token: &GreenToken{Kind: kind, Text: b.interner.Intern(text)}})
}

// FinishNode closes the current node, attaching it as a child of its new
// parent (or, if it is the outermost node, recording it as the tree root).
// It returns the finished green node either way.
func (b *Builder) FinishNode() *GreenNode {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	green := newGreenNode(top.kind, top.children)
	if len(b.stack) > 0 {
		parent := &b.stack[len(b.stack)-1]
		parent.children = append(parent.children, GreenChild{Node: green})
	} else {
		b.root = green
	}
	return green
}

func (b *Builder) top() *partial {
	return &b.stack[len(b.stack)-1]
}

// Root returns the finished root green node. Valid only after the
// outermost StartNode/FinishNode pair has completed.
func (b *Builder) Root() *GreenNode {
	return b.root
}

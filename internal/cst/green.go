package cst

import "cull-os/cab/internal/token"

// GreenToken is a leaf of the green tree: an interned text slice tagged
// with its lexical kind. Trivia tokens are ordinary leaves like
// any other - the green tree never discards them.
type GreenToken struct {
	Kind token.Kind
	Text string // interned
}

// GreenChild is either a GreenToken leaf or a nested *GreenNode; exactly
// one of the two is set.
type GreenChild struct {
	Token *GreenToken
	Node  *GreenNode
}

func (c GreenChild) len() int {
	if c.Token != nil {
		return len(c.Token.Text)
	}
	return c.Node.Len
}

// GreenNode is an immutable, shareable tree node: a kind plus an ordered
// list of children (tokens and/or nested nodes). Green nodes are cheap to
// clone (copy the pointer) and contain no parent links or absolute
// positions - those live on the red tree.
type GreenNode struct {
	Kind     NodeKind
	Children []GreenChild
	Len      int // total byte length of every leaf token under this node
}

func newGreenNode(kind NodeKind, children []GreenChild) *GreenNode {
	total := 0
	for _, c := range children {
		total += c.len()
	}
	return &GreenNode{Kind: kind, Children: children, Len: total}
}

// Text reconstructs the exact source text spanned by n by concatenating
// every leaf token in document order.
func (n *GreenNode) Text() string {
	var b []byte
	n.appendText(&b)
	return string(b)
}

func (n *GreenNode) appendText(b *[]byte) {
	for _, c := range n.Children {
		if c.Token != nil {
			*b = append(*b, c.Token.Text...)
		} else {
			c.Node.appendText(b)
		}
	}
}

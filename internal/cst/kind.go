package cst

// NodeKind is the closed set of CST node kinds. Error is the synthetic
// wrapper the noder uses to recover from an unexpected token.
//
// IMPORTANT: add new kinds at the end so existing kinds keep their numeric
// values. The CST debug dump prints kind names, not numbers.
type NodeKind uint16

const (
	// NodeSource is the whole-document root, wrapping the single top-level
	// expression plus any leading/trailing trivia. It is a structural
	// container, not one of the expression variants.
	NodeSource NodeKind = iota
	NodeError
	NodeParenthesis
	NodeList
	NodeAttributes
	NodePrefixOp
	NodeInfixOp
	NodeSuffixOp
	NodePath
	NodeBind
	NodeIdentifier
	NodeString
	NodeChar
	NodeInteger
	NodeFloat
	NodeIf
	NodeInterpolation // \( expr ) inside a delimited literal
)

var nodeNames = [...]string{
	NodeSource:      "Source",
	NodeError:       "Error",
	NodeParenthesis: "Parenthesis",
	NodeList:        "List",
	NodeAttributes:  "Attributes",
	NodePrefixOp:    "PrefixOp",
	NodeInfixOp:     "InfixOp",
	NodeSuffixOp:    "SuffixOp",
	NodePath:        "Path",
	NodeBind:        "Bind",
	NodeIdentifier:  "Identifier",
	NodeString:      "String",
	NodeChar:        "Char",
	NodeInteger:     "Integer",
	NodeFloat:       "Float",
	NodeIf:          "If",
	NodeInterpolation: "Interpolation",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeNames) && nodeNames[k] != "" {
		return nodeNames[k]
	}
	return "Unknown"
}

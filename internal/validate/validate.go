// Package validate runs the structural validation pass over a noded
// tree: everything the noder itself does not report because it can
// recover and keep parsing.
package validate

import (
	"unicode/utf8"

	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/report"
	"cull-os/cab/internal/segment"
	"cull-os/cab/internal/syntax"
	"cull-os/cab/internal/token"
)

// Validate walks root and every descendant, returning every report the
// rules below produce. It never mutates the tree.
func Validate(root *cst.Red) []report.Report {
	var reports []report.Report
	var walk func(n *cst.Red)
	walk = func(n *cst.Red) {
		reports = append(reports, validateNode(n)...)
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return reports
}

func validateNode(n *cst.Red) []report.Report {
	var reports []report.Report

	switch n.Kind() {
	case cst.NodeParenthesis:
		reports = append(reports, checkClosed(n, token.RPAREN, "parenthesis")...)
		if p, ok := syntax.From(n); ok {
			if p.(syntax.Parenthesis).Expression() == nil {
				reports = append(reports, emptyBodyReport(n, "parenthesis"))
			}
		}

	case cst.NodeList:
		reports = append(reports, checkClosed(n, token.RBRACKET, "list")...)
		if l, ok := syntax.From(n); ok {
			if expr, ok := l.(syntax.List).Expression().(syntax.InfixOp); ok {
				if kind, hasTok := expr.Operator(); hasTok && kind == token.SEMICOLON {
					reports = append(reports, report.New(report.Error,
						"a list containing a semicolon-joined expression must be parenthesized").
						Primary(expr.Red().Span(), "wrap this in parentheses"))
				}
			}
		}

	case cst.NodeAttributes:
		reports = append(reports, checkClosed(n, token.RBRACE, "attributes")...)

	case cst.NodeBind:
		if b, ok := syntax.From(n); ok {
			expr := b.(syntax.Bind).Expression()
			switch expr.(type) {
			case nil, syntax.Identifier, syntax.Error:
			default:
				reports = append(reports, report.New(report.Error,
					"bind expects an identifier").
					Primary(expr.Red().Span(), "found "+expr.Red().Kind().String()+" here"))
			}
		}

	case cst.NodeString:
		reports = append(reports, checkClosed(n, token.STRING_END, "string")...)
		_, segReports := segment.Compute(n)
		reports = append(reports, segReports...)

	case cst.NodePath:
		reports = append(reports, checkClosed(n, token.PATH_END, "path")...)
		_, segReports := segment.Compute(n)
		reports = append(reports, segReports...)

	case cst.NodeIdentifier:
		if id, ok := syntax.From(n); ok && !id.(syntax.Identifier).Plain() {
			reports = append(reports, checkClosed(n, token.QUOTED_IDENTIFIER_END, "quoted identifier")...)
			_, segReports := segment.Compute(n)
			reports = append(reports, segReports...)
		}

	case cst.NodeChar:
		reports = append(reports, checkClosed(n, token.CHAR_END, "char literal")...)
		reports = append(reports, validateChar(n)...)

	case cst.NodeInfixOp:
		reports = append(reports, validateCrossAssociation(n)...)
	}

	return reports
}

// checkClosed reports an unclosed-delimiter error when n's last leaf
// token isn't the expected closer: primary at the zero-width span past
// n's end, secondary at the opening token.
func checkClosed(n *cst.Red, closeKind token.Kind, what string) []report.Report {
	last := n.LastToken()
	if last != nil && last.Kind == closeKind {
		return nil
	}

	end := n.Span().End
	r := report.New(report.Error, "unclosed "+what).
		Primary(position.Span{Start: end, End: end}, "expected the closing delimiter here")
	if first := n.FirstToken(); first != nil {
		r = r.Secondary(first.Span, "opened here")
	}
	return []report.Report{r}
}

func emptyBodyReport(n *cst.Red, what string) report.Report {
	first := n.FirstToken()
	span := n.Span()
	if first != nil {
		span = position.Span{Start: first.Span.End, End: first.Span.End}
	}
	return report.New(report.Error, "empty "+what+" expression").
		Primary(span, "expected an expression here")
}

func validateChar(n *cst.Red) []report.Report {
	segs, reports := segment.Compute(n)

	if len(segs.Items) == 0 {
		reports = append(reports, report.New(report.Error, "char literal must contain exactly one codepoint").
			Primary(n.Span(), "this char literal is empty"))
		return reports
	}
	if len(segs.Items) != 1 || segs.Items[0].Content == nil {
		reports = append(reports, report.New(report.Error, "char literal cannot contain interpolation").
			Primary(n.Span(), "in this char literal"))
		return reports
	}

	text := segs.Items[0].Content.Text
	if count := utf8.RuneCountInString(text); count != 1 {
		reports = append(reports, report.New(report.Error, "char literal must contain exactly one codepoint").
			Primary(segs.Items[0].Content.Span, "found this many codepoints"))
	}
	for _, r := range text {
		if r == '\n' {
			reports = append(reports, report.New(report.Error, "char literal cannot contain a newline").
				Primary(segs.Items[0].Content.Span, "here"))
			break
		}
	}
	return reports
}

// validateCrossAssociation rejects Call/Pipe chains that mix without
// parentheses ("a <| b |> c").
func validateCrossAssociation(n *cst.Red) []report.Report {
	op, ok := syntax.From(n)
	if !ok {
		return nil
	}
	infix := op.(syntax.InfixOp)
	kind, hasTok := infix.Operator()
	if !hasTok || (kind != token.CALL && kind != token.PIPE) {
		return nil
	}
	opposite := token.PIPE
	if kind == token.PIPE {
		opposite = token.CALL
	}

	var reports []report.Report
	for _, side := range []syntax.Node{infix.Left(), infix.Right()} {
		sideOp, ok := side.(syntax.InfixOp)
		if !ok {
			continue
		}
		if sk, hasSk := sideOp.Operator(); hasSk && sk == opposite {
			reports = append(reports, report.New(report.Error,
				"application and pipe operators do not cross-associate").
				Primary(n.Span(), "wrap one side in parentheses"))
		}
	}
	return reports
}

// Package segment implements the segment engine: turning a
// delimited literal's raw CONTENT/Interpolation children into a sequence of
// escape-processed, indent-normalized Segments.
package segment

import (
	"strings"

	"cull-os/cab/internal/cst"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/report"
	"cull-os/cab/internal/token"
)

// Segment is either a Content piece or a reference to an Interpolation
// node to be compiled and evaluated separately.
type Segment struct {
	Content       *Content
	Interpolation *cst.Red
}

// Content is a straight-line run of escape-processed literal text.
type Content struct {
	Span position.Span
	Text string
}

// Segments is the computed result of running the segment engine over one
// delimited literal.
type Segments struct {
	Items       []Segment
	IsMultiline bool
}

// IsTrivial reports whether the literal has exactly one segment and that
// segment is pure content - the compiler emits a constant push instead of
// an interpolating thunk in that case.
func (s Segments) IsTrivial() bool {
	return len(s.Items) == 1 && s.Items[0].Content != nil
}

// rawPiece is one child of a delimited literal, tagged as either a
// CONTENT token's text or a reference to an Interpolation node.
type rawPiece struct {
	span     position.Span
	text     string
	isInterp bool
	node     *cst.Red
}

// line is one physical line of raw (pre-escape) text gathered from
// CONTENT tokens, used only to compute the common indent.
type line struct {
	text          string
	interior      bool // not the first or last line of the whole literal
	hasInterp     bool // an interpolation occurs on this line
	whitespaceOnl bool
}

// Compute walks delim's children (expected to be a String/Char/Identifier/
// Path node whose direct children are *_START/*_END markers, CONTENT
// tokens, and NodeInterpolation nodes) and returns the decoded segments.
func Compute(delim *cst.Red) (Segments, []report.Report) {
	var reports []report.Report

	var raw []rawPiece

	for _, e := range delim.ChildrenWithTokens() {
		if e.Token != nil && e.Token.Kind == token.CONTENT {
			raw = append(raw, rawPiece{span: e.Token.Span, text: e.Token.Text})
		}
		if e.Node != nil && e.Node.Kind() == cst.NodeInterpolation {
			raw = append(raw, rawPiece{span: e.Node.Span(), isInterp: true, node: e.Node})
		}
	}

	multiline := false
	for _, p := range raw {
		if !p.isInterp && strings.Contains(p.text, "\n") {
			multiline = true
			break
		}
	}

	lines := splitLines(raw)
	if multiline {
		reports = append(reports, validateEdges(lines, delim)...)
	}

	indentChar, indentWidth, mixedReport := commonIndent(lines)
	if mixedReport != nil {
		reports = append(reports, *mixedReport)
	}

	var items []Segment
	var buf strings.Builder
	var bufSpan position.Span
	bufOpen := false

	flush := func() {
		if bufOpen {
			items = append(items, Segment{Content: &Content{Span: bufSpan, Text: buf.String()}})
			buf.Reset()
			bufOpen = false
		}
	}

	lineIdx := 0
	for _, p := range raw {
		if p.isInterp {
			flush()
			items = append(items, Segment{Interpolation: p.node})
			continue
		}

		text := p.text
		if multiline {
			text = stripIndentLines(text, indentChar, indentWidth, &lineIdx, len(lines))
		}
		decoded := unescape(text)

		if !bufOpen {
			bufSpan = p.span
			bufOpen = true
		} else {
			bufSpan = bufSpan.Cover(p.span)
		}
		buf.WriteString(decoded)
	}
	flush()

	if multiline {
		// Drop the delimiter-adjacent first and last lines; they must be
		// whitespace-only and are not part of the value.
		for i := range items {
			if items[i].Content == nil {
				continue
			}
			items[i].Content.Text = trimFirstAndLastLine(items[i].Content.Text, i == 0, i == len(items)-1)
		}
	}

	return Segments{Items: items, IsMultiline: multiline}, reports
}

func splitLines(raw []rawPiece) []line {
	var lines []line
	cur := strings.Builder{}
	curHasInterp := false
	for _, p := range raw {
		if p.isInterp {
			curHasInterp = true
			continue
		}
		parts := strings.Split(p.text, "\n")
		for i, part := range parts {
			cur.WriteString(part)
			if i < len(parts)-1 {
				lines = append(lines, line{text: cur.String(), hasInterp: curHasInterp})
				cur.Reset()
				curHasInterp = false
			}
		}
	}
	lines = append(lines, line{text: cur.String(), hasInterp: curHasInterp})

	for i := range lines {
		lines[i].interior = i != 0 && i != len(lines)-1
		lines[i].whitespaceOnl = strings.TrimSpace(lines[i].text) == "" && !lines[i].hasInterp
	}
	return lines
}

func validateEdges(lines []line, delim *cst.Red) []report.Report {
	var reports []report.Report
	if len(lines) == 0 {
		return reports
	}
	if !lines[0].whitespaceOnl {
		reports = append(reports, report.New(report.Error, "first line of a multi-line literal must be whitespace-only").
			Primary(delim.Span(), "in this literal"))
	}
	if !lines[len(lines)-1].whitespaceOnl {
		reports = append(reports, report.New(report.Error, "last line of a multi-line literal must be whitespace-only").
			Primary(delim.Span(), "in this literal"))
	}
	return reports
}

// commonIndent finds the shared leading-whitespace prefix over every
// interior, non-whitespace-only, non-interpolated line. Mixed indent
// characters (some lines tabs, some spaces) produce a validation error.
func commonIndent(lines []line) (rune, int, *report.Report) {
	var char rune
	width := -1
	mixed := false

	for _, l := range lines {
		if !l.interior || l.whitespaceOnl || l.hasInterp {
			continue
		}
		prefixLen := 0
		var prefixChar rune
		for _, r := range l.text {
			if r != ' ' && r != '\t' {
				break
			}
			if prefixLen == 0 {
				prefixChar = r
			} else if r != prefixChar {
				mixed = true
			}
			prefixLen++
		}
		if width == -1 {
			char, width = prefixChar, prefixLen
		} else {
			if prefixChar != char {
				mixed = true
			}
			if prefixLen < width {
				width = prefixLen
			}
		}
	}

	if width == -1 {
		width = 0
	}
	if mixed {
		r := report.New(report.Error, "multi-line literal mixes indentation characters")
		return char, width, &r
	}
	return char, width, nil
}

// stripIndentLines removes the common indent from each interior line of
// text, advancing *lineIdx for every "\n"-terminated line consumed so the
// caller's global line index stays in sync across CONTENT tokens.
func stripIndentLines(text string, indentChar rune, width int, lineIdx *int, total int) string {
	parts := strings.Split(text, "\n")
	for i, part := range parts {
		idx := *lineIdx
		interior := idx != 0 && idx != total-1
		if interior && width > 0 {
			trimmed := 0
			for _, r := range part {
				if trimmed >= width || r != indentChar {
					break
				}
				trimmed++
			}
			parts[i] = part[trimmed:]
		}
		if i < len(parts)-1 {
			*lineIdx++
		}
	}
	return strings.Join(parts, "\n")
}

func trimFirstAndLastLine(text string, isFirstSegment, isLastSegment bool) string {
	if isFirstSegment {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		}
	}
	if isLastSegment {
		if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
			text = text[:idx+1]
		}
	}
	return text
}

// unescape applies Cab's delimited-literal escapes: \0 \t \n \r \\ \' \"
// \` \= \space, plus a trailing backslash at end-of-line escaping the
// newline itself.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '0':
			b.WriteByte(0)
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case '`':
			b.WriteByte('`')
		case '=':
			b.WriteByte('=')
		case ' ':
			b.WriteByte(' ')
		case '\n':
			// Trailing backslash at end of line escapes the newline: drop
			// both bytes, contributing nothing.
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}

// Escape is the inverse of unescape, used by the round-trip test property.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 0:
			b.WriteString(`\0`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package render formats a report.Report as styled text: a severity
// header, a box-drawing gutter with line numbers, the affected source
// lines with severity-colored style spans, strike columns for multi-line
// labels, per-label pointer lines below the source, and trailing tip/help
// points. Styling goes through pre-built fatih/color Sprint functions.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"cull-os/cab/internal/position"
	"cull-os/cab/internal/report"
)

// WidthMax is the column budget label and point text is wrapped to.
var WidthMax = 120

const (
	glyphRightToBottom    = "┏"
	glyphTopToBottom      = "┃"
	glyphTopToBottomGap   = "┇"
	glyphTopToRight       = "┗"
	glyphLeftToRight      = "━"
	glyphLeftToTopBottom  = "┫"
	glyphTopToBottomLeft  = "▏"
	glyphTopLeftToRight   = "╲"
	glyphTopToBottomRight = "▕"
)

var (
	bold       = color.New(color.Bold).Sprint
	boldRed    = color.New(color.Bold, color.FgRed).Sprint
	boldYellow = color.New(color.Bold, color.FgYellow).Sprint
	boldCyan   = color.New(color.Bold, color.FgCyan).Sprint
	boldBlue   = color.New(color.Bold, color.FgBlue).Sprint
	dim        = color.New(color.Faint).Sprint
)

func severityTag(s report.Severity) string {
	switch s {
	case report.Note:
		return boldCyan("note:")
	case report.Warn:
		return boldYellow("warn:")
	case report.Error:
		return boldRed("error:")
	case report.Bug:
		return boldRed("bug:")
	default:
		return "?:"
	}
}

func pointTag(k report.PointKind) string {
	if k == report.Tip {
		return boldBlue("tip:")
	}
	return boldCyan("help:")
}

// roleSprint picks the color a label role renders in: primary labels take
// the report severity's color, secondary labels are always blue.
func roleSprint(role report.LabelRole, severity report.Severity) func(...interface{}) string {
	if role == report.Secondary {
		return boldBlue
	}
	switch severity {
	case report.Note:
		return boldCyan
	case report.Warn:
		return boldYellow
	default:
		return boldRed
	}
}

type strikeStatus uint8

const (
	strikeStart strikeStatus = iota
	strikeContinue
	strikeEnd
)

// lineStrike is one multi-line label crossing a rendered line; its id is
// the label's index so the same label occupies the same prefix slot on
// every line it crosses.
type lineStrike struct {
	id     int
	status strikeStatus
	role   report.LabelRole
}

// lineStyle is a byte span within one line's content to color by role.
type lineStyle struct {
	start, end int
	role       report.LabelRole
}

// lineLabel is a pointer line to draw under a rendered line. start is the
// display column the pointer elbow sits at, or -1 for a multi-line
// label's end ("up to" form); end is the display column the label text
// hangs off.
type lineLabel struct {
	start int
	end   int
	text  string
	role  report.LabelRole
}

func (l lineLabel) isEmpty() bool {
	return l.start >= 0 && l.start == l.end
}

type renderLine struct {
	number  int
	strikes []lineStrike
	content string
	styles  []lineStyle
	labels  []lineLabel
}

// Render writes r to w, styled against src's line structure and prefixed
// with location (e.g. a file path), using box-drawing glyphs for the
// gutter.
func Render(w io.Writer, r report.Report, location string, src *position.PositionStr) {
	fmt.Fprintf(w, "%s %s\n", severityTag(r.Severity), bold(r.Title))

	labels := append([]report.Label(nil), r.Labels...)
	sort.SliceStable(labels, func(i, j int) bool {
		si, ei := src.Range(labels[i].Span)
		sj, ej := src.Range(labels[j].Span)
		if si.Line != sj.Line {
			return si.Line < sj.Line
		}
		return ei.Column < ej.Column
	})

	lines := collectLines(labels, src)

	for i := range lines {
		sortLine(&lines[i])
	}

	if len(lines) == 0 {
		renderPoints(w, r.Points, 0)
		return
	}

	numberWidth := digits(lines[len(lines)-1].number)
	first, _ := src.Range(labels[0].Span)
	fmt.Fprintf(w, "%s %s %s:%d:%d\n",
		strings.Repeat(" ", numberWidth),
		dim(glyphRightToBottom+glyphLeftToRight+glyphLeftToRight+glyphLeftToRight),
		location, first.Line, first.Column)

	strikeWidth := 0
	for _, line := range lines {
		if len(line.strikes) > strikeWidth {
			strikeWidth = len(line.strikes)
		}
	}
	slots := make([]*lineStrike, strikeWidth)

	previous := -1
	for _, line := range lines {
		if previous != -1 && line.number > previous+1 {
			fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", numberWidth), dim(glyphTopToBottomGap))
		}
		previous = line.number

		patchSlots(slots, line.strikes)

		fmt.Fprintf(w, "%*d %s %s%s\n",
			numberWidth, line.number, dim(glyphTopToBottom),
			strikePrefix(slots, r.Severity),
			resolveStyles(line.content, line.styles, r.Severity))

		renderLabels(w, line, slots, numberWidth, strikeWidth, r.Severity)
	}

	renderPoints(w, r.Points, numberWidth)
}

// collectLines walks every label's line range, accumulating the per-line
// strikes, styles and pointer labels.
func collectLines(labels []report.Label, src *position.PositionStr) []renderLine {
	var lines []renderLine

	lineAt := func(number int) *renderLine {
		for i := range lines {
			if lines[i].number == number {
				return &lines[i]
			}
		}
		lines = append(lines, renderLine{
			number:  number,
			content: src.Line(number).Slice(src.Source()),
		})
		return &lines[len(lines)-1]
	}

	for index, label := range labels {
		start, end := src.Range(label.Span)

		for number := start.Line; number <= end.Line; number++ {
			line := lineAt(number)
			lineSpan := src.Line(number)

			isFirst := number == start.Line
			isLast := number == end.Line

			if !(isFirst && isLast) {
				status := strikeContinue
				if isFirst {
					status = strikeStart
				} else if isLast {
					status = strikeEnd
				}
				line.strikes = append(line.strikes, lineStrike{id: index, status: status, role: label.Role})
			}

			switch {
			case isFirst && isLast:
				s := label.Span.Start - lineSpan.Start
				e := label.Span.End - lineSpan.Start
				line.styles = append(line.styles, lineStyle{start: s, end: e, role: label.Role})
				line.labels = append(line.labels, lineLabel{
					start: position.Width(line.content[:s]),
					end:   position.Width(line.content[:e]),
					text:  label.Text,
					role:  label.Role,
				})

			case isFirst:
				s := label.Span.Start - lineSpan.Start
				line.styles = append(line.styles, lineStyle{start: s, end: len(line.content), role: label.Role})

			case isLast:
				e := label.Span.End - lineSpan.Start
				line.styles = append(line.styles, lineStyle{start: 0, end: e, role: label.Role})
				line.labels = append(line.labels, lineLabel{
					start: -1,
					end:   position.Width(line.content[:e]),
					text:  label.Text,
					role:  label.Role,
				})

			default:
				line.styles = append(line.styles, lineStyle{start: 0, end: len(line.content), role: label.Role})
			}
		}
	}
	return lines
}

func sortLine(line *renderLine) {
	sort.SliceStable(line.styles, func(i, j int) bool {
		a, b := line.styles[i], line.styles[j]
		if a.start != b.start {
			return a.start < b.start
		}
		return a.role == report.Primary && b.role == report.Secondary
	})
	// Empty labels print one column to the right of their position, so
	// order them as if they did.
	sort.SliceStable(line.labels, func(i, j int) bool {
		a, b := line.labels[i], line.labels[j]
		ae, be := a.end, b.end
		if a.isEmpty() {
			ae++
		}
		if b.isEmpty() {
			be++
		}
		return ae < be
	})
}

// patchSlots updates the persistent strike slot assignment with the
// strikes present on the next line: a known id keeps its slot, a new one
// takes the first free slot.
func patchSlots(slots []*lineStrike, strikes []lineStrike) {
	for i := range slots {
		if slots[i] != nil && slots[i].status == strikeEnd {
			// Ended strikes whose label already rendered are cleared by
			// renderLabels; anything left here was consumed last line.
			slots[i] = nil
		}
	}
	for _, strike := range strikes {
		strike := strike
		replaced := false
		for i := range slots {
			if slots[i] != nil && slots[i].id == strike.id {
				slots[i] = &strike
				replaced = true
				break
			}
		}
		if replaced {
			continue
		}
		for i := range slots {
			if slots[i] == nil {
				slots[i] = &strike
				break
			}
		}
	}
}

// strikePrefix renders the multi-line label columns to the left of a
// source line: `┏` (then `━` across the rest) on the label's first line,
// `┃` while it continues.
func strikePrefix(slots []*lineStrike, severity report.Severity) string {
	if len(slots) == 0 {
		return ""
	}

	var b strings.Builder
	override := ""
	for _, slot := range slots {
		if slot == nil {
			if override != "" {
				b.WriteString(override)
			} else {
				b.WriteString(" ")
			}
			continue
		}
		paint := roleSprint(slot.role, severity)
		switch slot.status {
		case strikeStart:
			b.WriteString(paint(glyphRightToBottom))
			override = paint(glyphLeftToRight)
		default:
			if override != "" {
				b.WriteString(override)
			} else {
				b.WriteString(paint(glyphTopToBottom))
			}
		}
	}
	if override != "" {
		b.WriteString(override)
	} else {
		b.WriteString(" ")
	}
	return b.String()
}

// resolveStyles colors content by the style spans: a primary span
// contained inside a secondary span steals its slice, otherwise the
// span encountered first (the outermost after sorting) wins.
func resolveStyles(content string, styles []lineStyle, severity report.Severity) string {
	var b strings.Builder
	offset := 0

	for offset < len(content) {
		current := -1
		for i, style := range styles {
			if style.start <= offset && offset < style.end {
				current = i
				break
			}
		}

		if current == -1 {
			next := len(content)
			for _, style := range styles {
				if style.start > offset && style.start < next {
					next = style.start
				}
			}
			b.WriteString(content[offset:next])
			offset = next
			continue
		}

		style := styles[current]
		paint := roleSprint(style.role, severity)

		if style.role == report.Secondary {
			if inner, ok := containedPrimary(styles[current+1:], style, offset); ok {
				b.WriteString(paint(content[offset:inner.start]))
				b.WriteString(roleSprint(report.Primary, severity)(content[inner.start:inner.end]))
				b.WriteString(paint(content[inner.end:style.end]))
				offset = style.end
				continue
			}
		}

		b.WriteString(paint(content[offset:style.end]))
		offset = style.end
	}
	return b.String()
}

func containedPrimary(styles []lineStyle, outer lineStyle, offset int) (lineStyle, bool) {
	for _, style := range styles {
		if style.start > outer.end {
			break
		}
		if style.role == report.Primary && style.start > offset && style.end <= outer.end {
			return style, true
		}
	}
	return lineStyle{}, false
}

// renderLabels draws the pointer lines below a source line, last-ending
// label first so earlier pointers can cross through later ones.
func renderLabels(w io.Writer, line renderLine, slots []*lineStrike, numberWidth, strikeWidth int, severity report.Severity) {
	for index := len(line.labels) - 1; index >= 0; index-- {
		label := line.labels[index]
		paint := roleSprint(label.role, severity)

		gutter := fmt.Sprintf("%s %s ", strings.Repeat(" ", numberWidth), dim(glyphTopToBottom))

		if label.start == -1 {
			renderUpToLabel(w, gutter, line, index, slots, strikeWidth, severity)
			continue
		}

		var b strings.Builder
		b.WriteString(gutter)
		for _, slot := range slots {
			if slot == nil {
				b.WriteString(" ")
			} else {
				b.WriteString(roleSprint(slot.role, severity)(glyphTopToBottom))
			}
		}
		if strikeWidth > 0 {
			b.WriteString(" ")
		}

		width := label.end - label.start
		stop := label.end
		if width > 0 {
			stop = label.end - 1
		}
		for col := 0; col < stop; col++ {
			switch {
			case col == label.start:
				b.WriteString(paint(glyphTopToRight))
			case crossingLabel(line.labels[:index], col, &b, severity):
			case col > label.start:
				b.WriteString(paint(glyphLeftToRight))
			default:
				b.WriteString(" ")
			}
		}
		switch {
		case width == 0:
			b.WriteString(paint(glyphTopLeftToRight))
		case width == 1:
			b.WriteString(paint(glyphTopToBottom))
		default:
			b.WriteString(paint(glyphLeftToTopBottom))
		}
		b.WriteString(" ")

		writeWrapped(w, b.String(), label.text, paint)
	}
}

// renderUpToLabel draws the two-part pointer for a multi-line label's end
// line: the strike column elbows right (`┗━━`), runs under the content up
// to the label end, and hangs the text off a `┫`.
func renderUpToLabel(w io.Writer, gutter string, line renderLine, index int, slots []*lineStrike, strikeWidth int, severity report.Severity) {
	label := line.labels[index]
	paint := roleSprint(label.role, severity)

	elbow := -1
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i] != nil && slots[i].status == strikeEnd {
			elbow = i
			break
		}
	}

	var b strings.Builder
	b.WriteString(gutter)
	for i, slot := range slots {
		switch {
		case elbow != -1 && i == elbow:
			b.WriteString(paint(glyphTopToRight))
		case elbow != -1 && i > elbow:
			b.WriteString(paint(glyphLeftToRight))
		case slot != nil:
			b.WriteString(roleSprint(slot.role, severity)(glyphTopToBottom))
		default:
			b.WriteString(" ")
		}
	}
	if strikeWidth > 0 {
		b.WriteString(paint(glyphLeftToRight))
	}

	for col := 0; col < label.end; col++ {
		if crossingLabel(line.labels[:index], col, &b, severity) {
			continue
		}
		b.WriteString(paint(glyphLeftToRight))
	}
	b.WriteString(paint(glyphLeftToTopBottom))
	b.WriteString(" ")

	if elbow != -1 {
		slots[elbow] = nil
	}

	writeWrapped(w, b.String(), label.text, paint)
}

// crossingLabel writes the vertical glyph of an earlier (not yet drawn)
// label whose pointer column crosses the current pointer line, so stacked
// labels stay connected to their spans.
func crossingLabel(labels []lineLabel, col int, b *strings.Builder, severity report.Severity) bool {
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		hit := (label.end == col+1 && !label.isEmpty()) ||
			(label.start >= 0 && label.start == col)
		if !hit {
			continue
		}
		if label.isEmpty() {
			b.WriteString(roleSprint(label.role, severity)(glyphTopToBottomLeft))
		} else {
			b.WriteString(roleSprint(label.role, severity)(glyphTopToBottom))
		}
		return true
	}
	return false
}

func renderPoints(w io.Writer, points []report.Point, numberWidth int) {
	for _, p := range points {
		prefix := fmt.Sprintf("%s %s %s ", strings.Repeat(" ", numberWidth), dim("="), pointTag(p.Kind))
		writeWrapped(w, prefix, p.Text, nil)
	}
}

// writeWrapped writes prefix then text, wrapping text at WidthMax and
// indenting continuation lines under the prefix. Wrapping happens on the
// plain text; paint (optional) styles each chunk afterwards, so escape
// sequences never count against the width budget. A word that does not fit
// the rest of the line moves whole to the next line; only a word wider than
// the whole budget is broken mid-word, on rune boundaries.
func writeWrapped(w io.Writer, prefix, text string, paint func(...interface{}) string) {
	budget := WidthMax - visibleWidth(prefix)
	if budget < 16 {
		budget = 16
	}

	indent := strings.Repeat(" ", visibleWidth(prefix))
	first := true
	for _, chunk := range wrapText(text, budget) {
		if paint != nil {
			chunk = paint(chunk)
		}
		if first {
			fmt.Fprintf(w, "%s%s\n", prefix, chunk)
			first = false
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, chunk)
	}
	if first {
		fmt.Fprintf(w, "%s\n", prefix)
	}
}

// visibleWidth measures prefix ignoring ANSI escape sequences, which
// occupy bytes but no columns.
func visibleWidth(s string) int {
	total := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			total += position.RuneWidth(r)
		}
	}
	return total
}

func wrapText(text string, budget int) []string {
	if text == "" {
		return nil
	}

	var out []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		if line.Len() > 0 {
			out = append(out, line.String())
			line.Reset()
			lineWidth = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wordWidth := position.Width(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > budget {
			flush()
		}
		if wordWidth > budget {
			// Break an over-long word on rune boundaries.
			for _, r := range word {
				rw := position.RuneWidth(r)
				if lineWidth+rw > budget {
					flush()
				}
				line.WriteRune(r)
				lineWidth += rw
			}
			line.WriteString(" ")
			lineWidth++
			continue
		}

		if lineWidth > 0 {
			line.WriteString(" ")
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += wordWidth
	}
	flush()

	for i := range out {
		out[i] = strings.TrimRight(out[i], " ")
	}
	return out
}

func digits(n int) int {
	if n <= 0 {
		return 1
	}
	count := 0
	for n > 0 {
		count++
		n /= 10
	}
	return count
}

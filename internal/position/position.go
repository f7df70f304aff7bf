// Package position maps byte offsets in Cab source text to human-facing
// (line, column) positions, and models the half-open byte spans used
// throughout the lexer, CST, bytecode and evaluator.
package position

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/text/width"

	"cull-os/cab/internal/invariant"
)

// Position is a one-based (line, column) pair. Column is a display width
// (graphemes, tabs counted as width 4, wide runes as width 2) measured from
// the start of the line to the offset, not a byte or rune count.
type Position struct {
	Line   int
	Column int
}

// Span is a half-open byte range [Start, End) over a source string.
//
// The dummy span Span{} (equivalently [0, 0)) marks a synthesized location,
// e.g. a bytecode write with no corresponding source text; the evaluator
// rejects it with a fatal (see invariant.Invariant call sites in
// internal/eval).
type Span struct {
	Start int
	End   int
}

// IsDummy reports whether s is the synthetic zero span.
func (s Span) IsDummy() bool {
	return s.Start == 0 && s.End == 0
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Empty reports whether the span covers zero bytes.
func (s Span) Empty() bool {
	return s.Start == s.End
}

// Slice returns the substring of src covered by s.
func (s Span) Slice(src string) string {
	return src[s.Start:s.End]
}

// Cover returns the smallest span enclosing both s and other.
func (s Span) Cover(other Span) Span {
	if other.IsDummy() {
		return s
	}
	if s.IsDummy() {
		return other
	}

	start := s.Start
	if other.Start < start {
		start = other.Start
	}
	end := s.End
	if other.End > end {
		end = other.End
	}
	return Span{Start: start, End: end}
}

// CoverAll returns the cover of every non-dummy span in spans, or the dummy
// span if spans is empty or all dummy.
func CoverAll(spans...Span) Span {
	var out Span
	for _, s := range spans {
		out = out.Cover(s)
	}
	return out
}

// Intersect returns the overlap of s and other, or the empty span at
// max(s.Start, other.Start) if they do not overlap.
func (s Span) Intersect(other Span) Span {
	start := max(s.Start, other.Start)
	end := min(s.End, other.End)
	if end < start {
		end = start
	}
	return Span{Start: start, End: end}
}

// Contains reports whether offset falls within [Start, End).
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// ContainsSpan reports whether other is fully contained within s.
func (s Span) ContainsSpan(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// StartSpan returns the zero-width span at s.Start.
func (s Span) StartSpan() Span {
	return Span{Start: s.Start, End: s.Start}
}

// EndSpan returns the zero-width span at s.End.
func (s Span) EndSpan() Span {
	return Span{Start: s.End, End: s.End}
}

// Offset shifts both bounds of s by delta bytes.
func (s Span) Offset(delta int) Span {
	return Span{Start: s.Start + delta, End: s.End + delta}
}

// NewSpan builds a span, asserting the invariant that Start <= End.
func NewSpan(start, end int) Span {
	invariant.Precondition(start <= end, "span start %d must not exceed end %d", start, end)
	return Span{Start: start, End: end}
}

// PositionStr answers offset -> Position queries for a fixed source string.
// Newline offsets are computed lazily on first use and cached, after which
// every query is an O(log n) binary search plus an O(column width) scan of
// the matched line.
type PositionStr struct {
	source    string
	lineStart []int // byte offset of the first byte of each line; lineStart[0] == 0
}

// NewPositionStr returns a PositionStr over source. Newline offsets are not
// computed until the first Position/Span query.
func NewPositionStr(source string) *PositionStr {
	return &PositionStr{source: source}
}

func (p *PositionStr) ensureLines() {
	if p.lineStart != nil {
		return
	}
	starts := make([]int, 1, 32)
	starts[0] = 0
	for i := 0; i < len(p.source); i++ {
		if p.source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	p.lineStart = starts
}

// Position returns the (line, column) for a byte offset into the source.
func (p *PositionStr) Position(offset int) Position {
	p.ensureLines()
	invariant.InRange(offset, 0, len(p.source), "offset")

	// Largest lineStart[i] <= offset.
	i := sort.Search(len(p.lineStart), func(i int) bool {
		return p.lineStart[i] > offset
	}) - 1
	if i < 0 {
		i = 0
	}

	lineStart := p.lineStart[i]
	column := columnWidth(p.source[lineStart:offset])
	return Position{Line: i + 1, Column: column + 1}
}

// Range returns the start and end Position of a span.
func (p *PositionStr) Range(s Span) (start, end Position) {
	return p.Position(s.Start), p.Position(s.End)
}

// Line returns the span of line n (1-based), excluding its trailing
// newline.
func (p *PositionStr) Line(n int) Span {
	p.ensureLines()
	invariant.InRange(n, 1, len(p.lineStart), "line")

	start := p.lineStart[n-1]
	var end int
	if n < len(p.lineStart) {
		end = p.lineStart[n] - 1 // exclude the newline itself
		if end < start {
			end = start
		}
	} else {
		end = len(p.source)
	}
	return Span{Start: start, End: end}
}

// Source returns the underlying source string.
func (p *PositionStr) Source() string {
	return p.source
}

// LineCount returns the number of lines in the source.
func (p *PositionStr) LineCount() int {
	p.ensureLines()
	return len(p.lineStart)
}

// Width computes the display width of s, treating tabs as width 4 and
// wide/emoji runes as width 2. The report renderer uses it to line label
// pointers up under styled source text.
func Width(s string) int {
	total := 0
	for _, r := range s {
		total += RuneWidth(r)
	}
	return total
}

func columnWidth(s string) int {
	return Width(s)
}

// RuneWidth returns the display width contribution of a single rune: 4 for
// tab, 2 for East-Asian wide/fullwidth runes and common emoji blocks, 1
// otherwise. Newlines, carriage returns, combining diacritical marks,
// zero-width spaces/joiners and variation selector-16 contribute 0.
func RuneWidth(r rune) int {
	switch r {
	case '\t':
		return 4
	case '\n', '\r':
		return 0
	}

	if isCombining(r) {
		return 0
	}

	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}

	if isEmoji(r) {
		return 2
	}

	if r < utf8.RuneSelf {
		return 1
	}
	return 1
}

func isCombining(r rune) bool {
	return (r >= 0x0300 && r <= 0x036F) || // combining diacritical marks
		(r >= 0x200B && r <= 0x200F) || // zero-width space/joiners
		r == 0xFE0F // variation selector-16
}

// isEmoji approximates "is this rune typically rendered double-width" for
// the common emoji blocks. Unicode's East Asian Width property does not
// cover most emoji, so this list is maintained separately.
func isEmoji(r rune) bool {
	ranges := [][2]rune{
		{0x1F300, 0x1FAFF}, // misc symbols/pictographs through symbols & pictographs extended-A
		{0x2600, 0x27BF},   // misc symbols and dingbats
		{0x1F1E6, 0x1F1FF}, // regional indicators (flags)
		{0x2300, 0x23FF},   // misc technical (includes some emoji like ⌛)
	}
	for _, rg := range ranges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

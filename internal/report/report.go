// Package report defines Cab's diagnostic model: the Report value that
// every lex/parse/validate/compile stage accumulates.
package report

import "cull-os/cab/internal/position"

// Severity orders a Report's urgency. Stages gate on "is any report of
// severity >= Error".
type Severity uint8

const (
	Note Severity = iota
	Warn
	Error
	Bug
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Bug:
		return "bug"
	default:
		return "unknown"
	}
}

// LabelRole distinguishes a label that points straight at the problem from
// one that provides context (e.g. "opened here").
type LabelRole uint8

const (
	Primary LabelRole = iota
	Secondary
)

// Label attaches explanatory text to a span inside the reported source.
type Label struct {
	Span position.Span
	Role LabelRole
	Text string
}

// PointKind distinguishes the two kinds of trailing footnote a Report can
// carry.
type PointKind uint8

const (
	Tip PointKind = iota
	Help
)

// Point is a trailing footnote rendered below a Report's labeled source,
// not anchored to any span.
type Point struct {
	Kind PointKind
	Text string
}

// Report is one diagnostic: a severity, a title, zero or more spans
// labeled within the source, and zero or more trailing points.
type Report struct {
	Severity Severity
	Title    string
	Labels   []Label
	Points   []Point
}

// New starts a Report at the given severity and title.
func New(severity Severity, title string) Report {
	return Report{Severity: severity, Title: title}
}

// Primary appends a primary label and returns the Report for chaining.
func (r Report) Primary(span position.Span, text string) Report {
	r.Labels = append(r.Labels, Label{Span: span, Role: Primary, Text: text})
	return r
}

// Secondary appends a secondary label and returns the Report for chaining.
func (r Report) Secondary(span position.Span, text string) Report {
	r.Labels = append(r.Labels, Label{Span: span, Role: Secondary, Text: text})
	return r
}

// Tip appends a tip point and returns the Report for chaining.
func (r Report) Tip(text string) Report {
	r.Points = append(r.Points, Point{Kind: Tip, Text: text})
	return r
}

// Help appends a help point and returns the Report for chaining.
func (r Report) Help(text string) Report {
	r.Points = append(r.Points, Point{Kind: Help, Text: text})
	return r
}

// FirstLabelStart returns the Start offset of the first label, or -1 if
// there are none. Used by the noder's duplicate-report suppression pass.
func (r Report) FirstLabelStart() int {
	if len(r.Labels) == 0 {
		return -1
	}
	return r.Labels[0].Span.Start
}

// HasSeverityAtLeast reports whether any report in reports has severity >=
// min, the gate every pipeline stage applies before proceeding.
func HasSeverityAtLeast(reports []Report, min Severity) bool {
	for _, r := range reports {
		if r.Severity >= min {
			return true
		}
	}
	return false
}

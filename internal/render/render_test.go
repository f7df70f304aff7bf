package render_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"cull-os/cab/internal/position"
	"cull-os/cab/internal/render"
	"cull-os/cab/internal/report"
)

func TestRenderBasicLabel(t *testing.T) {
	src := "let x = \n"
	r := report.New(report.Error, "unclosed string").
		Primary(position.Span{Start: 8, End: 9}, "expected the closing delimiter here").
		Secondary(position.Span{Start: 8, End: 9}, "opened here").
		Tip("strings must be closed with a matching quote")

	var buf bytes.Buffer
	render.Render(&buf, r, "input.cab", position.NewPositionStr(src))

	out := buf.String()
	require.Contains(t, out, "unclosed string")
	require.Contains(t, out, "input.cab")
	require.Contains(t, out, "strings must be closed with a matching quote")
}

func TestRenderMultiLineLabelStrikes(t *testing.T) {
	src := "first line\nsecond line\nthird line\n"
	r := report.New(report.Error, "spanning problem").
		Primary(position.Span{Start: 6, End: 17}, "crosses a line boundary").
		Secondary(position.Span{Start: 23, End: 28}, "and context here")

	var buf bytes.Buffer
	render.Render(&buf, r, "multi.cab", position.NewPositionStr(src))

	out := buf.String()
	require.Contains(t, out, "spanning problem")
	require.Contains(t, out, "crosses a line boundary")
	require.Contains(t, out, "and context here")
	require.Contains(t, out, "first line")
	require.Contains(t, out, "second line")
	require.Contains(t, out, "third line")
	// The multi-line label opens a strike column on its first line.
	require.Contains(t, out, "┏")
}

func TestRenderGapMarkerBetweenDistantLines(t *testing.T) {
	src := "one\ntwo\nthree\nfour\nfive\nsix\n"
	r := report.New(report.Warn, "two far-apart labels").
		Primary(position.Span{Start: 0, End: 3}, "starts here").
		Secondary(position.Span{Start: 24, End: 27}, "ends here")

	var buf bytes.Buffer
	render.Render(&buf, r, "gap.cab", position.NewPositionStr(src))

	require.Contains(t, buf.String(), "┇")
}

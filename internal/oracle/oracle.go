// Package oracle wires the lexer, noder, compiler and evaluator into the
// single "source text in, result out" pipeline cmd/cab drives.
// The per-stage public surfaces (noder.ParseOracle, compiler.CompileOracle,
// eval.Evaluator/value.Thunk) each stand on their own; Oracle is a thin
// CLI-facing convenience that chains them behind the command layer.
package oracle

import (
	"log/slog"

	"cull-os/cab/internal/compiler"
	"cull-os/cab/internal/eval"
	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/report"
	"cull-os/cab/internal/value"
)

// Oracle chains the four pipeline stages under one logger.
type Oracle struct {
	logger *slog.Logger
}

// New returns an Oracle that attributes debug tracing to logger (nil
// disables tracing, matching every other stage's nil-logger convention).
func New(logger *slog.Logger) *Oracle {
	return &Oracle{logger: logger}
}

// Parse lexes and nodes src, returning the noder's Parse result.
func (o *Oracle) Parse(src string) noder.Parse {
	toks := lexer.Tokenize(src)
	return noder.NewParseOracle().Parse(toks)
}

// Compile parses then compiles src against path, returning the compiler's
// Result. If parsing alone already produced an Error-severity report, the
// compile step is skipped and those reports are returned directly -
// compiling an expression the noder/validator already rejected would
// otherwise re-report the same problem through a different stage.
func (o *Oracle) Compile(src, path string) (noder.Parse, compiler.Result) {
	p := o.Parse(src)
	if report.HasSeverityAtLeast(p.Reports, report.Error) {
		return p, compiler.Result{Reports: p.Reports}
	}

	result := compiler.NewCompileOracle().
		WithLogger(o.logger).
		Compile(p.Expression).
		Path(path)

	reports := append(append([]report.Report{}, p.Reports...), result.Reports...)
	return p, compiler.Result{Code: result.Code, Reports: reports}
}

// Eval parses, compiles and forces src to a final value.Value. If compiling
// produced no usable Code (any Error-severity report), it returns a
// value.Error built from the first such report instead of evaluating.
func (o *Oracle) Eval(src, path string) value.Value {
	_, result := o.Compile(src, path)
	if result.Code == nil {
		return errorFromReports(path, result.Reports)
	}
	return eval.New(path, o.logger).Eval(result.Code, nil)
}

func errorFromReports(path string, reports []report.Report) value.Value {
	for _, r := range reports {
		if r.Severity >= report.Error {
			span := position.Span{}
			if len(r.Labels) > 0 {
				span = r.Labels[0].Span
			}
			return value.NewError(r.Title, value.Location{Path: path, Span: span})
		}
	}
	return value.NewError("compilation failed", value.Location{Path: path})
}

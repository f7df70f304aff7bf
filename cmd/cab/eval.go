package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cull-os/cab/internal/oracle"
	"cull-os/cab/internal/value"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <file>",
		Short: "Parse, compile and force a .cab file's expression, printing the resulting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			v := oracle.New(nil).Eval(string(src), path)
			fmt.Println(formatValue(v))

			if _, isErr := v.(value.Error); isErr {
				return fmt.Errorf("%s evaluated to an error", path)
			}
			return nil
		},
	}
}

// formatValue renders v for CLI display; this is display logic specific to
// the command layer, not part of the value model itself.
func formatValue(v value.Value) string {
	switch vv := v.(type) {
	case value.Boolean:
		if vv {
			return "true"
		}
		return "false"
	case value.Char:
		return fmt.Sprintf("%q", rune(vv))
	case value.Integer:
		return vv.String()
	case value.Float:
		return fmt.Sprintf("%g", float64(vv))
	case value.String:
		return fmt.Sprintf("%q", string(vv))
	case value.Nil:
		return "[]"
	case value.Cons:
		return formatList(vv)
	case value.Path:
		return formatPath(vv)
	case value.Attributes:
		return formatAttributes(vv)
	case value.Error:
		return "error: " + vv.Message
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// formatList renders a Cons spine. Any element still a *value.Thunk is
// shown unforced ("<thunk>") - the CLI's display pass has no CodeRunner to
// force nested elements with, only the top-level value is ever the result
// of a completed Evaluator.Eval call.
func formatList(c value.Cons) string {
	items := []string{formatValue(c.Head)}
	tail := c.Tail
	for {
		switch t := tail.(type) {
		case value.Cons:
			items = append(items, formatValue(t.Head))
			tail = t.Tail
		case value.Nil:
			return "[" + joinComma(items) + "]"
		default:
			return "[" + joinComma(items) + " : " + formatValue(tail) + "]"
		}
	}
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func formatPath(p value.Path) string {
	s := ""
	if p.HasRoot {
		s += "/"
	}
	for i, c := range p.Components {
		if i > 0 {
			s += "/"
		}
		s += c
	}
	return s
}

func formatAttributes(a value.Attributes) string {
	keys := a.Keys()
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := a.Get(k)
		items = append(items, k+" = "+formatValue(v))
	}
	return "{" + joinComma(items) + "}"
}

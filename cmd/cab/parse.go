package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
	"cull-os/cab/internal/position"
	"cull-os/cab/internal/render"
	"cull-os/cab/internal/report"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a .cab file and print the CST debug dump and any reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			toks := lexer.Tokenize(string(src))
			parse := noder.NewParseOracle().Parse(toks)

			fmt.Print(parse.Root.Dump())
			printReports(path, string(src), parse.Reports)

			if report.HasSeverityAtLeast(parse.Reports, report.Error) {
				return fmt.Errorf("%s failed to parse", path)
			}
			return nil
		},
	}
}

func printReports(path, src string, reports []report.Report) {
	if len(reports) == 0 {
		return
	}
	ps := position.NewPositionStr(src)
	for _, r := range reports {
		render.Render(os.Stdout, r, path, ps)
	}
}

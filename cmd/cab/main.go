// Command cab is the Cab toolchain's CLI driver: a fixture-sweep
// "check syntax" command plus small parse/compile/eval inspection
// subcommands, all arranged as a cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "cab",
		Short:         "Parse, compile and evaluate Cab expressions",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newCheckCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newEvalCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cab: %v\n", err)
		os.Exit(1)
	}
}

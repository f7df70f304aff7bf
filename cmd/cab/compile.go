package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cull-os/cab/internal/bytecode"
	"cull-os/cab/internal/oracle"
)

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <file>",
		Short: "Parse and compile a .cab file and print its disassembled bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			o := oracle.New(nil)
			_, result := o.Compile(string(src), path)
			printReports(path, string(src), result.Reports)

			if result.Code == nil {
				return fmt.Errorf("%s failed to compile", path)
			}
			disassemble(result.Code)
			return nil
		},
	}
}

// disassemble prints one line per instruction: its byte offset, opcode
// name, and argument when the opcode carries one.
func disassemble(code *bytecode.Code) {
	r := bytecode.NewReader(code)
	for !r.Done() {
		pos := r.Pos()
		op := r.Next()
		switch op {
		case bytecode.Push, bytecode.Interpolate:
			fmt.Printf("%6d  %-14s %d\n", pos, op, r.ReadVarint())
		case bytecode.Jump, bytecode.JumpIf, bytecode.JumpIfError:
			fmt.Printf("%6d  %-14s -> %d\n", pos, op, r.ReadU16())
		default:
			fmt.Printf("%6d  %s\n", pos, op)
		}
	}
}

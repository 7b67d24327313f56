package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/dr8co/eva/ast"
	"github.com/dr8co/eva/compiler"
	"github.com/dr8co/eva/global"
	"github.com/dr8co/eva/parser"
	"github.com/dr8co/eva/value"
)

// disasmCmd compiles a source file without running it and prints the
// disassembly of every Code object it produced.
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "compile an Eva source file and print its bytecode" }
func (*disasmCmd) Usage() string {
	return "disasm <file.eva>: compile a source file and dump each function's disassembly\n"
}
func (*disasmCmd) SetFlags(*flag.FlagSet) {}

func (*disasmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "disasm: no source file given")
		return subcommands.ExitUsageError
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "disasm: %s\n", err)
		return subcommands.ExitFailure
	}

	root, errs := parser.Parse(string(source))
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return subcommands.ExitFailure
	}

	heap := value.NewHeap()
	c := compiler.New(global.Standard(heap), heap)
	if _, err := c.Compile(ast.Expr(root)); err != nil {
		fmt.Fprintf(os.Stderr, "disasm: %s\n", err)
		return subcommands.ExitFailure
	}

	for _, co := range c.CodeObjects() {
		fmt.Printf("==== %s (arity %d) ====\n", co.Name, co.Arity)
		fmt.Print(co.Instructions.String())
		if len(co.Constants) > 0 {
			fmt.Println("constants:")
			for i, cst := range co.Constants {
				fmt.Printf("  %d: %s\n", i, cst.Inspect())
			}
		}
		fmt.Println()
	}

	return subcommands.ExitSuccess
}

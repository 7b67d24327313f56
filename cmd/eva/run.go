package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/dr8co/eva/vm"
)

// runCmd executes an Eva source file and prints the value its top-level
// "begin" form evaluates to.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "execute an Eva source file" }
func (*runCmd) Usage() string {
	return "run <file.eva>: compile and execute a source file, printing its result\n"
}
func (*runCmd) SetFlags(*flag.FlagSet) {}

func (*runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "run: no source file given")
		return subcommands.ExitUsageError
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %s\n", err)
		return subcommands.ExitFailure
	}

	machine := vm.New()
	result, err := machine.Exec(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %s\n", err)
		return subcommands.ExitFailure
	}

	fmt.Println(result.Inspect())
	return subcommands.ExitSuccess
}

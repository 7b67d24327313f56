package main

import (
	"context"
	"flag"
	"os/user"

	"github.com/google/subcommands"

	"github.com/dr8co/eva/repl"
)

// replCmd starts an interactive, Bubble Tea-driven REPL.
type replCmd struct {
	noColor bool
	debug   bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start an interactive Eva session" }
func (*replCmd) Usage() string {
	return "repl [-nocolor] [-debug]: start an interactive read-eval-print loop\n"
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.noColor, "nocolor", false, "disable syntax highlighting and colored output")
	f.BoolVar(&r.debug, "debug", false, "print per-evaluation timing to stdout")
}

func (r *replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	username := ""
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{NoColor: r.noColor, Debug: r.debug})
	return subcommands.ExitSuccess
}

package analyzer

import "fmt"

// CompileError reports a problem found during static analysis, before any
// bytecode is generated, per §7's CompileError taxonomy.
type CompileError struct {
	Kind    string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("CompileError/%s: %s", e.Kind, e.Message)
}

func unresolvedName(name string) error {
	return &CompileError{Kind: "UnresolvedName", Message: fmt.Sprintf("%s is not defined", name)}
}

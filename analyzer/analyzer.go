// Package analyzer performs the static scope-analysis pass described in
// §4.2: a pre-pass over the parsed program that decides, for every name, how
// it must be allocated (global slot, stack-frame slot, or heap cell) before
// a single byte of bytecode is generated. The compiler (package compiler)
// consumes the resulting scope tree instead of resolving names on the fly,
// so a name captured by a nested function is known to need a Cell before
// the function that declares it is compiled.
package analyzer

import "github.com/dr8co/eva/ast"

// keywords are the special forms and operators whose argument list is
// analyzed in place (without opening a new scope) rather than treated as a
// plain function call.
var keywords = map[string]bool{
	"set": true, "while": true, "if": true,
	"+": true, "-": true, "*": true, "/": true,
	"<": true, ">": true, "==": true, ">=": true, "<=": true, "!=": true,
}

// Scopes maps every begin/def/lambda form in a program to the Scope that
// opens at that point, keyed by the ast.Expr's own identity (a pointer, so
// map lookups by the same *ast.List compare correctly).
type Scopes map[ast.Expr]*Scope

// Analyze walks root, builds the scope tree, and returns the mapping from
// each scope-opening form to its Scope. root must be the program's
// top-level "(begin ...)" list, as produced by parser.Parse.
func Analyze(root ast.Expr) (Scopes, error) {
	scopes := Scopes{}
	if err := analyze(root, nil, scopes); err != nil {
		return nil, err
	}
	return scopes, nil
}

func analyze(exp ast.Expr, scope *Scope, scopes Scopes) error {
	switch e := exp.(type) {
	case *ast.Number:
		return nil
	case *ast.String:
		return nil
	case *ast.Symbol:
		if e.Name == "true" || e.Name == "false" {
			return nil
		}
		return scope.maybePromote(e.Name)
	case *ast.List:
		return analyzeList(e, scope, scopes)
	}
	return nil
}

func analyzeList(list *ast.List, scope *Scope, scopes Scopes) error {
	if len(list.Items) == 0 {
		return nil
	}

	head, isSymbolHead := list.Head().(*ast.Symbol)
	if !isSymbolHead {
		return analyzeChildren(list.Items, 0, scope, scopes)
	}

	switch head.Name {
	case "begin":
		kind := ScopeBlock
		if scope == nil {
			kind = ScopeGlobal
		}
		newScope := newScope(kind, scope)
		scopes[list] = newScope
		return analyzeChildren(list.Items, 1, newScope, scopes)

	case "var":
		name, ok := list.Items[1].(*ast.Symbol)
		if !ok {
			return nil
		}
		scope.AddLocal(name.Name)
		return analyze(list.Items[2], scope, scopes)

	case "def":
		fnName, ok := list.Items[1].(*ast.Symbol)
		if !ok {
			return nil
		}
		scope.AddLocal(fnName.Name)

		newScope := newScope(ScopeFunction, scope)
		scopes[list] = newScope

		params, ok := list.Items[2].(*ast.List)
		if !ok {
			return nil
		}
		for _, p := range params.Items {
			if sym, ok := p.(*ast.Symbol); ok {
				newScope.AddLocal(sym.Name)
			}
		}
		return analyze(list.Items[3], newScope, scopes)

	case "lambda":
		newScope := newScope(ScopeFunction, scope)
		scopes[list] = newScope

		params, ok := list.Items[1].(*ast.List)
		if !ok {
			return nil
		}
		for _, p := range params.Items {
			if sym, ok := p.(*ast.Symbol); ok {
				newScope.AddLocal(sym.Name)
			}
		}
		return analyze(list.Items[2], newScope, scopes)

	default:
		if keywords[head.Name] {
			return analyzeChildren(list.Items, 1, scope, scopes)
		}
		return analyzeChildren(list.Items, 0, scope, scopes)
	}
}

func analyzeChildren(items []ast.Expr, from int, scope *Scope, scopes Scopes) error {
	for i := from; i < len(items); i++ {
		if err := analyze(items[i], scope, scopes); err != nil {
			return err
		}
	}
	return nil
}

// Package compiler turns an analyzed AST into bytecode, per §4.3. It
// consumes the scope tree produced by package analyzer instead of resolving
// names on the fly, so every GET_*/SET_* it emits already knows whether the
// name lives in a global slot, a stack-frame slot, or a heap cell.
package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/dr8co/eva/analyzer"
	"github.com/dr8co/eva/ast"
	"github.com/dr8co/eva/code"
	"github.com/dr8co/eva/global"
	"github.com/dr8co/eva/value"
)

var compareOps = map[string]int{
	"<": 0, ">": 1, "==": 2, ">=": 3, "<=": 4, "!=": 5,
}

// Compiler holds the state needed to emit bytecode for one program: the
// global environment being defined into, the heap new Code/Function/String
// objects are allocated from, the scope tree from analysis, and the Code
// currently being emitted into.
type Compiler struct {
	global *global.Global
	heap   *value.Heap
	scopes analyzer.Scopes

	co          *value.Code
	codeObjects []*value.Code

	scopeStack []*analyzer.Scope
}

// New creates a Compiler that defines globals into g and allocates heap
// objects from heap.
func New(g *global.Global, heap *value.Heap) *Compiler {
	return &Compiler{global: g, heap: heap}
}

// Compile analyzes and compiles root (the program's top-level "(begin ...)"
// form) into a main Function of arity 0.
func (c *Compiler) Compile(root ast.Expr) (*value.Function, error) {
	scopes, err := analyzer.Analyze(root)
	if err != nil {
		return nil, err
	}
	c.scopes = scopes

	c.co = c.heap.AllocCode("main", 0)
	c.codeObjects = append(c.codeObjects, c.co)

	if err := c.gen(root); err != nil {
		return nil, err
	}
	c.emit(code.HALT)

	return c.heap.AllocFunction(c.co), nil
}

// CodeObjects returns every Code object produced during compilation, in
// creation order. The VM treats the constant pool of each as a permanent
// root for the program's lifetime, and the disassembler uses this list to
// print every compiled function, per §4.3.
func (c *Compiler) CodeObjects() []*value.Code {
	return c.codeObjects
}

func (c *Compiler) currentScope() *analyzer.Scope {
	return c.scopeStack[len(c.scopeStack)-1]
}

func (c *Compiler) emit(op code.Opcode, operands ...int) {
	c.co.Instructions = append(c.co.Instructions, code.Make(op, operands...)...)
}

func (c *Compiler) offset() int { return len(c.co.Instructions) }

func (c *Compiler) patchJump(at, target int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(target))
	c.co.Instructions[at] = buf[0]
	c.co.Instructions[at+1] = buf[1]
}

func (c *Compiler) internString(s string) int {
	for i, v := range c.co.Constants {
		if v.IsString() && v.AsString().Value == s {
			return i
		}
	}
	obj := c.heap.AllocString(s)
	return c.co.AddConstant(value.FromObject(obj))
}

func (c *Compiler) isGlobalScope() bool {
	return c.co.Name == "main" && c.co.ScopeLevel == 1
}

func (c *Compiler) isFunctionBody() bool {
	return c.co.Name != "main" && c.co.ScopeLevel == 1
}

func (c *Compiler) blockEnter() {
	c.co.ScopeLevel++
}

func (c *Compiler) blockExit() {
	varsCount := c.popLocalsAtCurrentScopeLevel()
	if varsCount > 0 || c.co.Arity > 0 {
		if c.isFunctionBody() {
			varsCount += 1 + c.co.Arity
		}
		c.emit(code.SCOPE_EXIT, varsCount)
	}
	c.co.ScopeLevel--
}

func (c *Compiler) popLocalsAtCurrentScopeLevel() int {
	count := 0
	for len(c.co.Locals) > 0 && c.co.Locals[len(c.co.Locals)-1].ScopeLevel == c.co.ScopeLevel {
		c.co.Locals = c.co.Locals[:len(c.co.Locals)-1]
		count++
	}
	return count
}

// gen emits bytecode for exp into the current Code.
func (c *Compiler) gen(exp ast.Expr) error {
	switch e := exp.(type) {
	case *ast.Number:
		idx := c.co.InternConstant(value.Number(e.Value))
		c.emit(code.CONST, idx)
		return nil

	case *ast.String:
		idx := c.internString(e.Value)
		c.emit(code.CONST, idx)
		return nil

	case *ast.Symbol:
		return c.genSymbol(e)

	case *ast.List:
		return c.genList(e)
	}
	return &analyzer.CompileError{Kind: "InvalidForm", Message: fmt.Sprintf("cannot compile %T", exp)}
}

func (c *Compiler) genSymbol(sym *ast.Symbol) error {
	if sym.Name == "true" {
		c.emit(code.CONST, c.co.InternConstant(value.Boolean(true)))
		return nil
	}
	if sym.Name == "false" {
		c.emit(code.CONST, c.co.InternConstant(value.Boolean(false)))
		return nil
	}

	name := sym.Name
	kind, ok := c.currentScope().AllocInfo[name]
	if !ok {
		return &analyzer.CompileError{Kind: "UnresolvedName", Message: fmt.Sprintf("%s is not defined", name)}
	}

	switch kind {
	case analyzer.AllocLocal:
		c.emit(code.GET_LOCAL, c.co.LocalIndex(name))
	case analyzer.AllocCell:
		c.emit(code.GET_CELL, c.co.CellIndex(name))
	default:
		if !c.global.Exists(name) {
			return &analyzer.CompileError{Kind: "UnresolvedName", Message: fmt.Sprintf("%s is not defined", name)}
		}
		c.emit(code.GET_GLOBAL, c.global.GetIndex(name))
	}
	return nil
}

func (c *Compiler) genList(list *ast.List) error {
	if len(list.Items) == 0 {
		return &analyzer.CompileError{Kind: "InvalidForm", Message: "cannot compile an empty list"}
	}

	head, isSymbolHead := list.Head().(*ast.Symbol)
	if !isSymbolHead {
		return c.functionCall(list)
	}

	switch head.Name {
	case "+":
		return c.genBinaryOp(list, code.ADD)
	case "-":
		return c.genBinaryOp(list, code.SUB)
	case "*":
		return c.genBinaryOp(list, code.MUL)
	case "/":
		return c.genBinaryOp(list, code.DIV)
	}

	if op, ok := compareOps[head.Name]; ok {
		if err := c.gen(list.Items[1]); err != nil {
			return err
		}
		if err := c.gen(list.Items[2]); err != nil {
			return err
		}
		c.emit(code.COMPARE, op)
		return nil
	}

	switch head.Name {
	case "if":
		return c.genIf(list)
	case "var":
		return c.genVar(list)
	case "set":
		return c.genSet(list)
	case "begin":
		return c.genBegin(list)
	case "while":
		return c.genWhile(list)
	case "def":
		return c.genDef(list)
	case "lambda":
		params, _ := list.Items[1].(*ast.List)
		return c.compileFunction(list, "lambda", params, list.Items[2])
	default:
		return c.functionCall(list)
	}
}

func (c *Compiler) genBinaryOp(list *ast.List, op code.Opcode) error {
	if err := c.gen(list.Items[1]); err != nil {
		return err
	}
	if err := c.gen(list.Items[2]); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

func (c *Compiler) genIf(list *ast.List) error {
	if err := c.gen(list.Items[1]); err != nil {
		return err
	}
	c.emit(code.JMP_IF_FALSE, 0)
	elsePatch := c.offset() - 2

	if err := c.gen(list.Items[2]); err != nil {
		return err
	}
	c.emit(code.JMP, 0)
	endPatch := c.offset() - 2

	c.patchJump(elsePatch, c.offset())

	if len(list.Items) == 4 {
		if err := c.gen(list.Items[3]); err != nil {
			return err
		}
	}

	c.patchJump(endPatch, c.offset())
	return nil
}

func (c *Compiler) genWhile(list *ast.List) error {
	loopStart := c.offset()

	if err := c.gen(list.Items[1]); err != nil {
		return err
	}
	c.emit(code.JMP_IF_FALSE, 0)
	endPatch := c.offset() - 2

	if err := c.gen(list.Items[2]); err != nil {
		return err
	}
	c.emit(code.JMP, 0)
	backPatch := c.offset() - 2

	c.patchJump(backPatch, loopStart)
	c.patchJump(endPatch, c.offset())
	return nil
}

func (c *Compiler) genVar(list *ast.List) error {
	name := list.Items[1].(*ast.Symbol).Name
	kind := c.currentScope().AllocInfo[name]

	if lambda, ok := list.Items[2].(*ast.List); ok && ast.IsTaggedList(lambda, "lambda") {
		params, _ := lambda.Items[1].(*ast.List)
		if err := c.compileFunction(lambda, name, params, lambda.Items[2]); err != nil {
			return err
		}
	} else if err := c.gen(list.Items[2]); err != nil {
		return err
	}

	switch kind {
	case analyzer.AllocGlobal:
		idx := c.global.Define(name)
		c.emit(code.SET_GLOBAL, idx)
	case analyzer.AllocCell:
		c.co.CellNames = append(c.co.CellNames, name)
		c.emit(code.SET_CELL, len(c.co.CellNames)-1)
		c.emit(code.POP)
	default:
		c.co.AddLocal(name)
	}
	return nil
}

func (c *Compiler) genSet(list *ast.List) error {
	name := list.Items[1].(*ast.Symbol).Name
	kind, ok := c.currentScope().AllocInfo[name]
	if !ok {
		return &analyzer.CompileError{Kind: "UnresolvedName", Message: fmt.Sprintf("%s is not defined", name)}
	}

	if err := c.gen(list.Items[2]); err != nil {
		return err
	}

	// A block that assigns a name before its own var of that name has no
	// local slot for it yet; the assignment then targets the global binding.
	if kind == analyzer.AllocLocal && c.co.LocalIndex(name) == -1 {
		kind = analyzer.AllocGlobal
	}

	switch kind {
	case analyzer.AllocLocal:
		c.emit(code.SET_LOCAL, c.co.LocalIndex(name))
	case analyzer.AllocCell:
		c.emit(code.SET_CELL, c.co.CellIndex(name))
	default:
		idx := c.global.GetIndex(name)
		if idx == -1 {
			return &analyzer.CompileError{Kind: "UnresolvedName", Message: fmt.Sprintf("%s is not defined", name)}
		}
		// SET_GLOBAL pops; re-read the global so set leaves its value on
		// the stack like SET_LOCAL and SET_CELL do.
		c.emit(code.SET_GLOBAL, idx)
		c.emit(code.GET_GLOBAL, idx)
	}
	return nil
}

func (c *Compiler) genBegin(list *ast.List) error {
	c.scopeStack = append(c.scopeStack, c.scopes[list])
	c.blockEnter()

	for i := 1; i < len(list.Items); i++ {
		isLast := i == len(list.Items)-1

		if err := c.gen(list.Items[i]); err != nil {
			return err
		}

		isDecl := ast.IsTaggedList(list.Items[i], "var") || ast.IsTaggedList(list.Items[i], "def")
		if !isLast && !ast.IsTaggedList(list.Items[i], "while") && !isDecl {
			c.emit(code.POP)
		}

		if isLast && ast.IsTaggedList(list.Items[i], "var") {
			name := list.Items[i].(*ast.List).Items[1]
			if err := c.gen(name); err != nil {
				return err
			}
		}
	}

	c.blockExit()
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	return nil
}

func (c *Compiler) genDef(list *ast.List) error {
	fnName := list.Items[1].(*ast.Symbol).Name
	params, _ := list.Items[2].(*ast.List)
	body := list.Items[3]

	if err := c.compileFunction(list, fnName, params, body); err != nil {
		return err
	}

	if c.isGlobalScope() {
		idx := c.global.Define(fnName)
		c.emit(code.SET_GLOBAL, idx)
	} else {
		c.co.AddLocal(fnName)
	}
	return nil
}

func (c *Compiler) functionCall(list *ast.List) error {
	if err := c.gen(list.Items[0]); err != nil {
		return err
	}
	for i := 1; i < len(list.Items); i++ {
		if err := c.gen(list.Items[i]); err != nil {
			return err
		}
	}
	c.emit(code.CALL, len(list.Items)-1)
	return nil
}

// compileFunction compiles a def or lambda body into its own Code object,
// installs it as a constant (directly, if it captures nothing, or via
// MAKE_FUNCTION over a set of loaded cells otherwise), and leaves the
// resulting Function value on the operand stack, per §4.3's "compileFunction"
// algorithm.
func (c *Compiler) compileFunction(form *ast.List, fnName string, params *ast.List, body ast.Expr) error {
	scopeInfo, ok := c.scopes[form]
	if !ok {
		return &analyzer.CompileError{Kind: "InvalidForm", Message: fmt.Sprintf("no scope recorded for %s", fnName)}
	}
	c.scopeStack = append(c.scopeStack, scopeInfo)

	arity := 0
	if params != nil {
		arity = len(params.Items)
	}

	prevCo := c.co
	co := c.heap.AllocCode(fnName, arity)
	c.codeObjects = append(c.codeObjects, co)
	c.co = co

	co.FreeCount = len(scopeInfo.Free)
	co.CellNames = append(append([]string{}, scopeInfo.Free...), scopeInfo.Cells...)

	co.AddLocal(fnName)

	if params != nil {
		for _, p := range params.Items {
			sym, ok := p.(*ast.Symbol)
			if !ok {
				continue
			}
			co.AddLocal(sym.Name)
			if idx := co.CellIndex(sym.Name); idx != -1 {
				// Box a copy of the parameter's own slot; the slot itself
				// stays on the stack until the function's SCOPE_EXIT.
				c.emit(code.GET_LOCAL, co.LocalIndex(sym.Name))
				c.emit(code.SET_CELL, idx)
				c.emit(code.POP)
			} else {
				co.NonCellFnParams++
			}
		}
	}

	if err := c.gen(body); err != nil {
		return err
	}

	if !ast.IsTaggedList(body, "begin") {
		c.emit(code.SCOPE_EXIT, 1+co.Arity)
	}

	c.emit(code.RETURN)

	c.co = prevCo

	if len(scopeInfo.Free) == 0 {
		fn := c.heap.AllocFunction(co)
		idx := c.co.AddConstant(value.FromObject(fn))
		c.emit(code.CONST, idx)
	} else {
		for _, freeVar := range scopeInfo.Free {
			c.emit(code.LOAD_CELL, c.co.CellIndex(freeVar))
		}
		idx := c.co.AddConstant(value.FromObject(co))
		c.emit(code.CONST, idx)
		c.emit(code.MAKE_FUNCTION, len(scopeInfo.Free))
	}

	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	return nil
}

// Package vm implements Eva's bytecode interpreter: an operand stack, a call
// stack of Frames, and the dispatch loop that executes a compiled Function
// against a shared global environment and heap, per §4.6.
package vm

import (
	"github.com/dr8co/eva/ast"
	"github.com/dr8co/eva/code"
	"github.com/dr8co/eva/compiler"
	"github.com/dr8co/eva/gc"
	"github.com/dr8co/eva/global"
	"github.com/dr8co/eva/parser"
	"github.com/dr8co/eva/value"
)

// stackLimit bounds the operand stack, per §4.6's STACK_LIMIT.
const stackLimit = 512

// gcThreshold is the bytesAllocated level that triggers a collection before
// the next heap allocation, per §4.5's "Trigger" rule.
const gcThreshold = 1 << 15

// VM executes compiled Eva bytecode. A VM owns one global environment and
// heap for its whole lifetime; successive calls to Exec compile and run
// further programs against that same shared state, so top-level defs from
// one Exec call remain visible to the next.
type VM struct {
	global *global.Global
	heap   *value.Heap

	stack [stackLimit]value.Value
	sp    int
	bp    int

	fn        *value.Function
	ip        int
	callStack []Frame

	// codeObjects holds every Code object produced by every Compile call
	// made on this VM, across its lifetime. Each one's constant pool is a
	// permanent GC root, per §4.6's getConstantGCRoots.
	codeObjects []*value.Code
}

// New creates a VM with a standard global environment (§6.1) and an empty
// heap.
func New() *VM {
	heap := value.NewHeap()
	return &VM{global: global.Standard(heap), heap: heap}
}

// Global exposes the VM's global environment, for embedders that want to
// inspect or extend it between Exec calls.
func (vm *VM) Global() *global.Global { return vm.global }

// Heap exposes the VM's heap, for embedders and tests that need direct
// access (for example, to read BytesAllocated after a run).
func (vm *VM) Heap() *value.Heap { return vm.heap }

// Exec parses, compiles, and runs source, returning the value of its last
// expression. Top-level defs and vars become entries in the VM's global
// environment and persist across calls.
func (vm *VM) Exec(source string) (value.Value, error) {
	root, errs := parser.Parse(source)
	if len(errs) > 0 {
		return value.Value{}, &RuntimeError{Kind: "ParseError", Message: errs[0]}
	}

	c := compiler.New(vm.global, vm.heap)
	mainFn, err := c.Compile(ast.Expr(root))
	if err != nil {
		return value.Value{}, err
	}
	vm.codeObjects = append(vm.codeObjects, c.CodeObjects()...)

	vm.fn = mainFn
	vm.sp = 0
	vm.bp = 0
	vm.ip = 0
	vm.callStack = vm.callStack[:0]

	return vm.eval()
}

// Peek implements value.NativeContext.
func (vm *VM) Peek(offset int) value.Value { return vm.peek(offset) }

// Push implements value.NativeContext.
func (vm *VM) Push(v value.Value) { vm.push(v) }

func (vm *VM) push(v value.Value) {
	if vm.sp == stackLimit {
		panic(stackOverflow())
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	if vm.sp == 0 {
		panic(stackUnderflow("pop"))
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(offset int) value.Value {
	if vm.sp == 0 {
		panic(stackUnderflow("peek"))
	}
	return vm.stack[vm.sp-1-offset]
}

func (vm *VM) popN(count int) {
	if vm.sp < count {
		panic(stackUnderflow("popN"))
	}
	vm.sp -= count
}

func (vm *VM) readByte() byte {
	b := vm.fn.Code.Instructions[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readUint16() int {
	n := int(code.ReadUint16(vm.fn.Code.Instructions[vm.ip:]))
	vm.ip += 2
	return n
}

// maybeGC runs a collection if bytesAllocated has crossed the threshold.
// Callers invoke it immediately before any allocation that can happen
// mid-execution (string concatenation, cell boxing, function creation), per
// §4.5.
func (vm *VM) maybeGC() {
	if vm.heap.BytesAllocated < gcThreshold {
		return
	}
	roots := vm.gcRoots()
	if len(roots) == 0 {
		return
	}
	gc.Collect(vm.heap, roots)
}

// gcRoots assembles the stack, constant-pool, and global root sets, per
// §4.6's getGCRoots.
func (vm *VM) gcRoots() []value.Object {
	var roots []value.Object

	for i := 0; i < vm.sp; i++ {
		if v := vm.stack[i]; v.IsObject() && v.AsObject() != nil {
			roots = append(roots, v.AsObject())
		}
	}

	for _, co := range vm.codeObjects {
		roots = append(roots, co)
	}

	for _, gv := range vm.global.Vars {
		if gv.Value.IsObject() && gv.Value.AsObject() != nil {
			roots = append(roots, gv.Value.AsObject())
		}
	}

	return roots
}

// eval runs the fetch-decode-execute loop until HALT, returning the value
// left on top of the stack.
func (vm *VM) eval() (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(error); ok {
				err = re
				return
			}
			panic(r)
		}
	}()

	for {
		op := code.Opcode(vm.readByte())
		switch op {
		case code.HALT:
			return vm.pop(), nil

		case code.CONST:
			idx := int(vm.readByte())
			vm.push(vm.fn.Code.Constants[idx])

		case code.ADD:
			op2 := vm.pop()
			op1 := vm.pop()
			switch {
			case op1.IsNumber() && op2.IsNumber():
				vm.push(value.Number(op1.AsNumber() + op2.AsNumber()))
			case op1.IsString() && op2.IsString():
				vm.maybeGC()
				vm.push(value.FromObject(vm.heap.AllocString(op1.AsString().Value + op2.AsString().Value)))
			default:
				return value.Value{}, typeError("ADD", op1.Inspect(), op2.Inspect())
			}

		case code.SUB, code.MUL, code.DIV:
			op2 := vm.pop()
			op1 := vm.pop()
			if !op1.IsNumber() || !op2.IsNumber() {
				return value.Value{}, typeError(opcodeName(op), op1.Inspect(), op2.Inspect())
			}
			vm.push(value.Number(arith(op, op1.AsNumber(), op2.AsNumber())))

		case code.COMPARE:
			cmpOp := int(vm.readByte())
			op2 := vm.pop()
			op1 := vm.pop()
			result, err := compareValues(cmpOp, op1, op2)
			if err != nil {
				return value.Value{}, err
			}
			vm.push(value.Boolean(result))

		case code.JMP_IF_FALSE:
			addr := vm.readUint16()
			cond := vm.pop()
			if !cond.AsBoolean() {
				vm.ip = addr
			}

		case code.JMP:
			vm.ip = vm.readUint16()

		case code.GET_GLOBAL:
			idx := int(vm.readByte())
			v, err := vm.global.Get(idx)
			if err != nil {
				return value.Value{}, invalidIndex("global", idx)
			}
			vm.push(v)

		case code.SET_GLOBAL:
			idx := int(vm.readByte())
			v := vm.pop()
			if err := vm.global.Set(idx, v); err != nil {
				return value.Value{}, invalidIndex("global", idx)
			}

		case code.POP:
			vm.pop()

		case code.GET_LOCAL:
			slot := int(vm.readByte())
			if slot < 0 || vm.bp+slot >= vm.sp {
				return value.Value{}, invalidIndex("local", slot)
			}
			vm.push(vm.stack[vm.bp+slot])

		case code.SET_LOCAL:
			slot := int(vm.readByte())
			if slot < 0 || vm.bp+slot >= vm.sp {
				return value.Value{}, invalidIndex("local", slot)
			}
			vm.stack[vm.bp+slot] = vm.peek(0)

		case code.SCOPE_EXIT:
			count := int(vm.readByte())
			vm.stack[vm.sp-1-count] = vm.peek(0)
			vm.popN(count)

		case code.CALL:
			if err := vm.call(int(vm.readByte())); err != nil {
				return value.Value{}, err
			}

		case code.RETURN:
			last := len(vm.callStack) - 1
			frame := vm.callStack[last]
			vm.callStack = vm.callStack[:last]
			vm.ip = frame.ra
			vm.bp = frame.bp
			vm.fn = frame.fn

		case code.GET_CELL:
			idx := int(vm.readByte())
			if idx < 0 || idx >= len(vm.fn.Cells) {
				return value.Value{}, invalidIndex("cell", idx)
			}
			vm.push(vm.fn.Cells[idx].Value)

		case code.SET_CELL:
			idx := int(vm.readByte())
			v := vm.peek(0)
			if idx >= len(vm.fn.Cells) {
				vm.maybeGC()
				vm.fn.Cells = append(vm.fn.Cells, vm.heap.AllocCell(v))
			} else {
				vm.fn.Cells[idx].Value = v
			}

		case code.LOAD_CELL:
			idx := int(vm.readByte())
			if idx < 0 || idx >= len(vm.fn.Cells) {
				return value.Value{}, invalidIndex("cell", idx)
			}
			vm.push(value.FromObject(vm.fn.Cells[idx]))

		case code.MAKE_FUNCTION:
			coVal := vm.pop()
			co := coVal.AsObject().(*value.Code)
			captureCount := int(vm.readByte())
			vm.maybeGC()
			fn := vm.heap.AllocFunction(co)
			fn.Cells = make([]*value.Cell, captureCount)
			for i := captureCount - 1; i >= 0; i-- {
				fn.Cells[i] = vm.pop().AsObject().(*value.Cell)
			}
			vm.push(value.FromObject(fn))

		default:
			return value.Value{}, invalidOpcode(byte(op))
		}
	}
}

// call dispatches a CALL instruction to either a Native or a Function.
func (vm *VM) call(argc int) error {
	callee := vm.peek(argc)

	if callee.IsObject() {
		if native, ok := callee.AsObject().(*value.Native); ok {
			native.Fn(vm)
			result := vm.pop()
			vm.popN(argc + 1)
			vm.push(result)
			return nil
		}
	}

	fn, ok := callee.AsObject().(*value.Function)
	if !ok {
		return typeError("CALL", callee.Inspect(), "<callable>")
	}

	vm.callStack = append(vm.callStack, Frame{ra: vm.ip, bp: vm.bp, fn: vm.fn})
	vm.fn = fn

	// Resize to freeCount: MAKE_FUNCTION only ever populates the captured
	// free-variable cells, so any own cells a prior call through this same
	// Function object appended via SET_CELL must not leak into this call.
	freeCount := fn.Code.FreeCount
	if len(fn.Cells) > freeCount {
		fn.Cells = fn.Cells[:freeCount]
	} else if len(fn.Cells) < freeCount {
		fn.Cells = append(fn.Cells, make([]*value.Cell, freeCount-len(fn.Cells))...)
	}

	vm.bp = vm.sp - argc - 1
	vm.ip = 0
	return nil
}

func opcodeName(op code.Opcode) string {
	def, err := code.Lookup(byte(op))
	if err != nil {
		return "UNKNOWN"
	}
	return def.Name
}

func arith(op code.Opcode, a, b float64) float64 {
	switch op {
	case code.SUB:
		return a - b
	case code.MUL:
		return a * b
	case code.DIV:
		return a / b
	}
	return 0
}

// compareValues implements COMPARE's operand-byte dispatch over either two
// numbers or two strings, per §4.3.
func compareValues(op int, a, b value.Value) (bool, error) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return compareOrdered(op, a.AsNumber(), b.AsNumber())
	case a.IsString() && b.IsString():
		return compareOrdered(op, a.AsString().Value, b.AsString().Value)
	default:
		return false, typeError("COMPARE", a.Inspect(), b.Inspect())
	}
}

type ordered interface {
	~float64 | ~string
}

func compareOrdered[T ordered](op int, a, b T) (bool, error) {
	switch code.Opcode(op) {
	case code.CmpLT:
		return a < b, nil
	case code.CmpGT:
		return a > b, nil
	case code.CmpEQ:
		return a == b, nil
	case code.CmpGE:
		return a >= b, nil
	case code.CmpLE:
		return a <= b, nil
	case code.CmpNE:
		return a != b, nil
	default:
		return false, &RuntimeError{Kind: "InvalidOpcode", Message: "unknown comparison operator"}
	}
}

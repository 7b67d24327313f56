package vm

import "github.com/dr8co/eva/value"

// Frame is one activation record on the call stack: the return address and
// base pointer to restore on RETURN, plus the Function whose Code the VM
// is currently executing.
type Frame struct {
	ra int
	bp int
	fn *value.Function
}

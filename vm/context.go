package vm

import (
	"fmt"

	"github.com/lookbusy1344/plc-emulator/datatable"
)

// MaxCallDepth bounds nested (and cyclic) subroutine calls
const MaxCallDepth = 32

// StateKey identifies one slot of per-opcode persistent state: timers,
// counters and edge-detection previous values are keyed by the opcode
// that owns them plus the address they act on.
type StateKey struct {
	Opcode string
	Addr   string
}

// OpState is the persistent state behind one StateKey, carried across
// scans for the lifetime of the interpreter.
type OpState struct {
	Prev  bool    // previous enable / observed value
	Prev2 bool    // second edge input (UDC down)
	Acc   float64 // timer accumulator in milliseconds
}

// Context is the execution state shared by every compiled operation: a
// boolean logic stack with a cached top, the data table, the subroutine
// map and the per-opcode state table.
type Context struct {
	Table       *datatable.DataTable
	Subroutines map[string][]Operation

	stack []bool
	top   bool

	state     map[StateKey]*OpState
	callDepth int
	interp    *Interpreter
}

// NewContext creates an execution context over the given data table
func NewContext(table *datatable.DataTable) *Context {
	return &Context{
		Table: table,
		state: make(map[StateKey]*OpState),
	}
}

// ResetStack clears the logic stack and the cached stack top. Every
// compiled network begins with this.
func (ctx *Context) ResetStack() {
	ctx.stack = ctx.stack[:0]
	ctx.top = false
}

// Push pushes a value onto the logic stack and caches it as the top
func (ctx *Context) Push(v bool) {
	ctx.stack = append(ctx.stack, v)
	ctx.top = v
}

// Top returns the cached stack top; false on an empty stack
func (ctx *Context) Top() bool {
	return ctx.top
}

// ReplaceTop overwrites the top of the stack (pushing if empty)
func (ctx *Context) ReplaceTop(v bool) {
	if len(ctx.stack) == 0 {
		ctx.stack = append(ctx.stack, v)
	} else {
		ctx.stack[len(ctx.stack)-1] = v
	}
	ctx.top = v
}

// PopPair pops the top two values for ANDSTR/ORSTR. Missing values
// read as false.
func (ctx *Context) PopPair() (upper, lower bool) {
	n := len(ctx.stack)
	if n >= 1 {
		upper = ctx.stack[n-1]
	}
	if n >= 2 {
		lower = ctx.stack[n-2]
	}
	if n >= 2 {
		ctx.stack = ctx.stack[:n-2]
	} else {
		ctx.stack = ctx.stack[:0]
	}
	if len(ctx.stack) > 0 {
		ctx.top = ctx.stack[len(ctx.stack)-1]
	} else {
		ctx.top = false
	}
	return upper, lower
}

// StackDepth reports the current logic stack depth
func (ctx *Context) StackDepth() int {
	return len(ctx.stack)
}

// Inputs returns the n block inputs ending at the stack top, ordered
// deepest-first (enable first). Missing inputs read as false, so a
// counter fed by a single STR sees enable=<top>, reset=false.
func (ctx *Context) Inputs(n int) []bool {
	vals := make([]bool, 0, n)
	start := len(ctx.stack) - n
	if start < 0 {
		start = 0
	}
	vals = append(vals, ctx.stack[start:]...)
	for len(vals) < n {
		vals = append(vals, false)
	}
	return vals
}

// State returns (allocating on first use) the persistent state slot for
// an opcode/address pair.
func (ctx *Context) State(opcode, addr string) *OpState {
	key := StateKey{Opcode: opcode, Addr: addr}
	st, ok := ctx.state[key]
	if !ok {
		st = &OpState{}
		ctx.state[key] = st
	}
	return st
}

// RisingEdge updates the remembered value for an opcode/address pair
// and reports whether current is a false-to-true transition.
func (ctx *Context) RisingEdge(opcode, addr string, current bool) bool {
	st := ctx.State(opcode, addr)
	rising := current && !st.Prev
	st.Prev = current
	return rising
}

// FallingEdge is the true-to-false analogue of RisingEdge
func (ctx *Context) FallingEdge(opcode, addr string, current bool) bool {
	st := ctx.State(opcode, addr)
	falling := !current && st.Prev
	st.Prev = current
	return falling
}

// ScanTimeMS returns the milliseconds the timer engine advances this
// scan; zero outside a running interpreter.
func (ctx *Context) ScanTimeMS() float64 {
	if ctx.interp == nil {
		return 0
	}
	return ctx.interp.timerDelta
}

// CallSubroutine dispatches to a compiled subroutine. The caller's
// logic stack and stack top are saved and cleared for the callee and
// restored on return. SignalReturn is consumed here; SignalEnd
// propagates to the interpreter.
func (ctx *Context) CallSubroutine(name string) (Signal, error) {
	ops, ok := ctx.Subroutines[name]
	if !ok {
		return SignalNone, fmt.Errorf("call to undefined subroutine %q", name)
	}
	if ctx.callDepth >= MaxCallDepth {
		return SignalNone, fmt.Errorf("subroutine call depth exceeds %d (cyclic CALL?)", MaxCallDepth)
	}

	savedStack := ctx.stack
	savedTop := ctx.top
	ctx.stack = nil
	ctx.top = false
	ctx.callDepth++

	var signal Signal
	var err error
	for _, op := range ops {
		var sig Signal
		sig, err = op(ctx)
		if err != nil {
			break
		}
		if sig == SignalReturn {
			break
		}
		if sig == SignalEnd {
			signal = SignalEnd
			break
		}
	}

	ctx.callDepth--
	ctx.stack = savedStack
	ctx.top = savedTop
	return signal, err
}

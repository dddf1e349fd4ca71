package netix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xyproto/env/v2"
)

// Tunables. The environment can override the compiled-in defaults,
// which is how the embedding evaluator sizes the arena without a
// configuration surface of its own.
var (
	defaultHeapWords = env.Int("NETIX_HEAP_WORDS", 1<<22)
	defaultStackSize = env.Int("NETIX_STACK_SIZE", 1<<16)
)

// Recoverable runtime faults. They are raised by panic inside the
// reduction loop and recovered at the orchestrator boundary; nothing
// below the orchestrator catches them.
var (
	ErrHeapOverflow  = errors.New("netix: term heap exhausted")
	ErrStackOverflow = errors.New("netix: reduction stack exhausted")
	ErrDivByZero     = errors.New("netix: division by zero")
	ErrBigArith      = errors.New("netix: arithmetic on big-integer term")
	ErrBadOperand    = errors.New("netix: unsupported operand for opcode")
)

// Runtime owns the term heap, the reduction stack, and the constructor
// book. The heap is a flat array of terms indexed from 1 (index 0 is
// reserved); multi-field nodes occupy consecutive slots. One Runtime
// serves one goroutine.
type Runtime struct {
	heap  []Term
	stack []uint32
	book  *book

	next uint32 // bump-allocation cursor
	high uint32 // high-water mark, for wiping only what was touched

	itrs uint64 // interactions since construction
}

// NewRuntime builds a runtime with arena sizes taken from the
// environment overrides, falling back to the defaults.
func NewRuntime() *Runtime {
	return NewRuntimeSize(defaultHeapWords, defaultStackSize)
}

// NewRuntimeSize builds a runtime with explicit arena sizes.
func NewRuntimeSize(heapWords, stackSize int) *Runtime {
	if heapWords < 16 {
		heapWords = 16
	}
	if stackSize < 16 {
		stackSize = 16
	}
	return &Runtime{
		heap:  make([]Term, heapWords),
		stack: make([]uint32, 0, stackSize),
		book:  &defaultBook,
		next:  1,
	}
}

// Reset discards the whole arena: every touched heap slot is
// zero-filled and the allocation cursor returns to 1. There is no
// incremental collection; each compiled unit is self-contained and
// thrown away wholesale.
func (rt *Runtime) Reset() {
	for i := uint32(1); i < rt.high; i++ {
		rt.heap[i] = 0
	}
	rt.next = 1
	rt.high = 1
	rt.stack = rt.stack[:0]
}

// Alloc reserves n consecutive heap slots and returns the first index.
// Exhaustion is a recoverable fault, not a crash.
func (rt *Runtime) Alloc(n uint32) uint32 {
	loc := rt.next
	if uint64(loc)+uint64(n) > uint64(len(rt.heap)) {
		panic(ErrHeapOverflow)
	}
	rt.next += n
	if rt.next > rt.high {
		rt.high = rt.next
	}
	return loc
}

// At reads the term at a heap index.
func (rt *Runtime) At(loc uint32) Term { return rt.heap[loc] }

// Set writes the term at a heap index.
func (rt *Runtime) Set(loc uint32, t Term) { rt.heap[loc] = t }

// HeapUsed reports how many heap words the current compilation has
// consumed.
func (rt *Runtime) HeapUsed() uint32 { return rt.next - 1 }

// Interactions reports the cumulative rewrite count.
func (rt *Runtime) Interactions() uint64 { return rt.itrs }

func (rt *Runtime) push(v uint32) {
	if len(rt.stack) == cap(rt.stack) {
		panic(ErrStackOverflow)
	}
	rt.stack = append(rt.stack, v)
}

func (rt *Runtime) pop() uint32 {
	v := rt.stack[len(rt.stack)-1]
	rt.stack = rt.stack[:len(rt.stack)-1]
	return v
}

// DumpTerm renders the graph reachable from a heap slot, for tests and
// debugging. Shared subgraphs print on every visit; a revisited slot
// prints as a back-reference so cycles terminate.
func (rt *Runtime) DumpTerm(loc uint32) string {
	var sb strings.Builder
	rt.dump(&sb, rt.At(loc), map[uint32]bool{})
	return sb.String()
}

func (rt *Runtime) dump(sb *strings.Builder, t Term, seen map[uint32]bool) {
	visit := func(loc uint32, n uint32) bool {
		if seen[loc] {
			fmt.Fprintf(sb, "@%x", loc)
			return false
		}
		if n > 0 {
			seen[loc] = true
		}
		return true
	}
	switch t.Tag() {
	case TagLam:
		if !visit(t.Val(), 1) {
			return
		}
		fmt.Fprintf(sb, "(λ%x ", t.Val())
		rt.dump(sb, rt.At(t.Val()), seen)
		sb.WriteString(")")
	case TagApp:
		if !visit(t.Val(), 2) {
			return
		}
		sb.WriteString("(")
		rt.dump(sb, rt.At(t.Val()), seen)
		sb.WriteString(" ")
		rt.dump(sb, rt.At(t.Val()+1), seen)
		sb.WriteString(")")
	case TagSup:
		if !visit(t.Val(), 2) {
			return
		}
		fmt.Fprintf(sb, "{%d|", t.Ext())
		rt.dump(sb, rt.At(t.Val()), seen)
		sb.WriteString(" ")
		rt.dump(sb, rt.At(t.Val()+1), seen)
		sb.WriteString("}")
	case TagCtr:
		arity := rt.book.info(t.Ext()).Arity
		if arity == 0 {
			sb.WriteString(ctorName(t.Ext()))
			return
		}
		if !visit(t.Val(), arity) {
			return
		}
		fmt.Fprintf(sb, "(%s", ctorName(t.Ext()))
		for i := uint32(0); i < arity; i++ {
			sb.WriteString(" ")
			rt.dump(sb, rt.At(t.Val()+i), seen)
		}
		sb.WriteString(")")
	case TagOp2:
		if !visit(t.Val(), 2) {
			return
		}
		fmt.Fprintf(sb, "(op%d ", t.Ext())
		rt.dump(sb, rt.At(t.Val()), seen)
		sb.WriteString(" ")
		rt.dump(sb, rt.At(t.Val()+1), seen)
		sb.WriteString(")")
	case TagMat:
		if !visit(t.Val(), t.Ext()+1) {
			return
		}
		sb.WriteString("(match ")
		rt.dump(sb, rt.At(t.Val()), seen)
		for i := uint32(1); i <= t.Ext(); i++ {
			sb.WriteString(" ")
			rt.dump(sb, rt.At(t.Val()+i), seen)
		}
		sb.WriteString(")")
	default:
		sb.WriteString(t.String())
	}
}

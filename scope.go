package netix

import "errors"

// errDupChain signals over- or under-consumption of a duplication
// chain. It is a compiler bug, not a user error, but it is still
// recovered at the orchestrator boundary like every other fault.
var errDupChain = errors.New("netix: duplication chain consumed out of balance")

// errUnresolvedVar signals that the emitter met a variable the
// capability analyzer should have rejected.
var errUnresolvedVar = errors.New("netix: emitter met unresolved variable")

// VarBinding records one bound name during emission: its binder cell,
// the use count from the counting pass, and the projection sequence
// that hands the bound value out to each use site. For N > 1 uses the
// projections come from a chain of N-1 duplication cells; the first
// N-1 projections handed out are first projections and the last is
// the final second projection.
type VarBinding struct {
	Name   Sym
	Slot   uint32
	Uses   int
	projs  []Term
	cursor int
}

// take returns the next projection. Consuming more projections than
// the counting pass predicted means the two passes disagree.
func (b *VarBinding) take() Term {
	if b.cursor >= len(b.projs) {
		panic(errDupChain)
	}
	t := b.projs[b.cursor]
	b.cursor++
	return t
}

// done panics unless every predicted use was consumed.
func (b *VarBinding) done() {
	if b.Uses > 0 && b.cursor != len(b.projs) {
		panic(errDupChain)
	}
}

// CompileContext is the per-compilation mutable state: the binding
// stack, the with-scope stack, the inherit-from groups in flight, and
// the fresh-label counter for duplication nodes. A context lives for
// exactly one compile call and is never shared.
type CompileContext struct {
	rt      *Runtime
	syms    *SymbolTable
	strings *StringTable
	accs    *AccessorRegistry

	scope []*VarBinding
	withs []*VarBinding
	label uint32
}

func newCompileContext(rt *Runtime, syms *SymbolTable, strings *StringTable, accs *AccessorRegistry) *CompileContext {
	return &CompileContext{rt: rt, syms: syms, strings: strings, accs: accs}
}

// freshLabel mints a duplication label. Labels distinguish unrelated
// duplications; every dup cell the compiler creates gets its own so
// that chained duplications of one binding never interfere.
func (ctx *CompileContext) freshLabel() uint32 {
	ctx.label++
	return ctx.label
}

// bind allocates a binder cell and its duplication chain for a name
// used `uses` times. The binding is not yet on the scope stack.
func (ctx *CompileContext) bind(name Sym, uses int) *VarBinding {
	b := &VarBinding{Name: name, Uses: uses, Slot: ctx.rt.Alloc(1)}
	if uses <= 1 {
		b.projs = []Term{Var(b.Slot)}
		return b
	}
	prev := Var(b.Slot)
	for i := 0; i < uses-1; i++ {
		cell := ctx.rt.Alloc(1)
		ctx.rt.Set(cell, prev)
		label := ctx.freshLabel()
		b.projs = append(b.projs, Dp0(label, cell))
		prev = Dp1(label, cell)
	}
	b.projs = append(b.projs, prev)
	return b
}

// pushScope and popScope keep the strict LIFO discipline: every push
// during emission of a subexpression is matched by a pop before
// control returns to the parent.
func (ctx *CompileContext) pushScope(b *VarBinding) {
	ctx.scope = append(ctx.scope, b)
}

func (ctx *CompileContext) popScope() {
	b := ctx.scope[len(ctx.scope)-1]
	ctx.scope = ctx.scope[:len(ctx.scope)-1]
	b.done()
}

// lookupScope finds the innermost binding of a name.
func (ctx *CompileContext) lookupScope(name Sym) *VarBinding {
	for i := len(ctx.scope) - 1; i >= 0; i-- {
		if ctx.scope[i].Name == name {
			return ctx.scope[i]
		}
	}
	return nil
}

func (ctx *CompileContext) pushWith(b *VarBinding) {
	ctx.withs = append(ctx.withs, b)
}

func (ctx *CompileContext) popWith() {
	b := ctx.withs[len(ctx.withs)-1]
	ctx.withs = ctx.withs[:len(ctx.withs)-1]
	b.done()
}

package netix

// Backend is the host-facing evaluator: it accepts an expression the
// capability analyzer approves, compiles it onto a fresh arena,
// normalizes, and extracts a host value. Any fault along the way is
// absorbed and reported as "use your own evaluator instead"; the
// backend never half-answers.
type Backend struct {
	rt      *Runtime
	syms    *SymbolTable
	strings *StringTable
	accs    *AccessorRegistry
	prim    builtins
	stats   Stats
}

// Stats counts backend activity since construction. Interactions and
// HeapWords are cumulative across evaluations.
type Stats struct {
	Compilations uint64
	Evaluations  uint64
	Fallbacks    uint64
	Interactions uint64
	HeapWords    uint64
}

// builtins holds the pre-interned symbols the analyzer and emitter
// treat specially: the three constants of the language and the four
// primitive arithmetic operators.
type builtins struct {
	sub, mul, div, less Sym
	tru, fls, nul       Sym
}

func newBuiltins(syms *SymbolTable) builtins {
	return builtins{
		sub:  syms.Intern("__sub"),
		mul:  syms.Intern("__mul"),
		div:  syms.Intern("__div"),
		less: syms.Intern("__lessThan"),
		tru:  syms.Intern("true"),
		fls:  syms.Intern("false"),
		nul:  syms.Intern("null"),
	}
}

func (b builtins) isConstant(n Sym) bool {
	return n == b.tru || n == b.fls || n == b.nul
}

func (b builtins) opcode(n Sym) (uint32, bool) {
	switch n {
	case b.sub:
		return OpSub, true
	case b.mul:
		return OpMul, true
	case b.div:
		return OpDiv, true
	case b.less:
		return OpLtn, true
	}
	return 0, false
}

// New builds a backend sharing the host's symbol table. Arena sizes
// come from the environment overrides.
func New(syms *SymbolTable) *Backend {
	return NewSize(syms, defaultHeapWords, defaultStackSize)
}

// NewSize builds a backend with explicit arena sizes.
func NewSize(syms *SymbolTable, heapWords, stackSize int) *Backend {
	return &Backend{
		rt:      NewRuntimeSize(heapWords, stackSize),
		syms:    syms,
		strings: NewStringTable(),
		accs:    NewAccessorRegistry(),
		prim:    newBuiltins(syms),
	}
}

// Symbols returns the symbol table the backend resolves names through.
func (bk *Backend) Symbols() *SymbolTable { return bk.syms }

// Stats returns a snapshot of the activity counters.
func (bk *Backend) Stats() Stats {
	s := bk.stats
	s.Interactions = bk.rt.Interactions()
	return s
}

// CanEvaluate reports whether the backend would accept the closed
// expression. It allocates nothing on the arena.
//
// Only closed expressions qualify: there is no environment argument,
// so a reference to any name not bound within the expression itself
// (or to a builtin constant) is refused, and the host evaluates it
// against its own environment instead.
func (bk *Backend) CanEvaluate(e *Expr) bool {
	return newAnalyzer(bk.prim).canCompile(e)
}

// TryEvaluate evaluates a closed expression into out. It returns
// false when the expression is outside the supported fragment or
// when compilation or reduction faults; out is untouched in that
// case and the caller falls back to its own evaluator.
func (bk *Backend) TryEvaluate(e *Expr, out *Value) (ok bool) {
	if !bk.CanEvaluate(e) {
		bk.stats.Fallbacks++
		return false
	}

	// Every fault below this point, from arena exhaustion to a
	// division by zero deep in reduction, lands here and becomes a
	// fallback. The host never sees a crash, only a refusal.
	defer func() {
		if recover() != nil {
			bk.stats.Fallbacks++
			ok = false
		}
	}()

	bk.rt.Reset()
	bk.stats.Compilations++

	ctx := newCompileContext(bk.rt, bk.syms, bk.strings, bk.accs)
	root := bk.rt.Alloc(1)
	bk.rt.Set(root, compile(ctx, bk.prim, e))

	bk.stats.Evaluations++
	result := bk.rt.Normal(root)
	bk.stats.HeapWords += uint64(bk.rt.HeapUsed())

	if !canExtract(result) {
		bk.stats.Fallbacks++
		return false
	}
	x := &extractor{rt: bk.rt, syms: bk.syms, strings: bk.strings, accs: bk.accs}
	var scratch Value
	if err := x.extract(result, &scratch); err != nil {
		bk.stats.Fallbacks++
		return false
	}
	*out = scratch
	return true
}

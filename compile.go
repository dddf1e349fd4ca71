package netix

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// errEmitShape signals that the emitter met an expression shape the
// capability analyzer should have rejected. The two are maintained in
// lock step; hitting this is a bug, recovered like any other fault.
var errEmitShape = errors.New("netix: emitter met unexpected expression shape")

// compiler lowers an accepted expression to a term graph. Emission is
// a single recursive pass; use counts for duplication chains are
// computed per binder with a scoped counting walk, so a name is never
// counted against two different binders.
type compiler struct {
	*CompileContext
	prim builtins
}

func compile(ctx *CompileContext, prim builtins, e *Expr) Term {
	c := &compiler{CompileContext: ctx, prim: prim}
	return c.emit(e)
}

func (c *compiler) emit(e *Expr) Term {
	switch e.Kind {
	case ExInt:
		return c.rt.EncodeInt(e.Int)
	case ExFloat:
		return c.rt.EncodeFloat(e.Float)
	case ExString:
		return c.rt.EncodeString(c.strings, e.Str)
	case ExPath:
		return c.rt.EncodePath(c.accs, c.strings, e.Acc, e.Str)
	case ExVar:
		return c.emitVar(e.Name)
	case ExConcatStrings:
		return c.emitConcat(e)
	case ExAttrs:
		if e.Rec {
			// Every binding feeds the final spine exactly once.
			spineUse := func(Sym) int { return 1 }
			return c.emitBindingGroup(e.Attrs, spineUse, func() Term {
				return c.emitPairsFromScope(e.Attrs)
			})
		}
		return c.emitAttrs(e)
	case ExList:
		terms := make([]Term, len(e.Elems))
		for i, el := range e.Elems {
			terms[i] = c.emit(el)
		}
		return c.rt.EncodeList(terms)
	case ExLambda:
		return c.emitLambda(e)
	case ExCall:
		return c.emitCall(e)
	case ExLet:
		bodyUse := func(n Sym) int { return countUses(n, e.A) }
		return c.emitBindingGroup(e.Attrs, bodyUse, func() Term {
			return c.emit(e.A)
		})
	case ExWith:
		return c.emitWith(e)
	case ExIf:
		return c.emitBranch(c.emit(e.A), c.emit(e.C), func() Term {
			return c.emit(e.B)
		})
	case ExAssert:
		return c.emitBranch(c.emit(e.A), Era(), func() Term {
			return c.emit(e.B)
		})
	case ExSelect:
		return c.emitSelect(e)
	case ExHasAttr:
		return c.emitHasAttr(e)
	case ExOpUpdate:
		return c.emitUpdate(e)
	case ExOpConcatLists:
		return c.emitConcatLists(e)
	case ExOpEq:
		return c.emitOp2(OpEql, e.A, e.B)
	case ExOpNEq:
		return c.emitOp2(OpNeq, e.A, e.B)
	case ExOpAnd:
		return c.emitBranch(c.emit(e.A), Bol(false), func() Term {
			return c.emit(e.B)
		})
	case ExOpOr:
		return c.emitBranch(c.emit(e.A), c.emit(e.B), func() Term {
			return Bol(true)
		})
	case ExOpImpl:
		return c.emitBranch(c.emit(e.A), Bol(true), func() Term {
			return c.emit(e.B)
		})
	case ExOpNot:
		return c.emitBranch(c.emit(e.A), Bol(true), func() Term {
			return Bol(false)
		})
	}
	panic(errEmitShape)
}

// emitBranch lowers two-way branching on a word: zero takes the else
// term directly, nonzero applies a constant lambda around the then
// term, which also keeps the then branch unevaluated until selected.
func (c *compiler) emitBranch(cond, elseT Term, thenT func() Term) Term {
	loc := c.rt.Alloc(3)
	c.rt.Set(loc, cond)
	c.rt.Set(loc+1, elseT)
	c.rt.Set(loc+2, c.constLam(thenT()))
	return Mat(2, loc)
}

// constLam builds a lambda that ignores its argument.
func (c *compiler) constLam(body Term) Term {
	loc := c.rt.Alloc(1)
	c.rt.Set(loc, body)
	return Lam(loc)
}

// identityLam builds the lambda that returns its argument. The binder
// cell doubles as the body slot, so the body is a Var pointing at its
// own cell.
func (c *compiler) identityLam() Term {
	loc := c.rt.Alloc(1)
	c.rt.Set(loc, Var(loc))
	return Lam(loc)
}

// mkApp allocates an application node.
func (c *compiler) mkApp(fun, arg Term) Term {
	loc := c.rt.Alloc(2)
	c.rt.Set(loc, fun)
	c.rt.Set(loc+1, arg)
	return App(loc)
}

// letOne emits App(λname. body, value): the one binding shape every
// binder in the language lowers through. The value is already a term,
// emitted outside the binding's scope.
func (c *compiler) letOne(name Sym, uses int, value Term, body func() Term) Term {
	b := c.bind(name, uses)
	c.pushScope(b)
	bodyT := body()
	c.rt.Set(b.Slot, bodyT)
	c.popScope()
	return c.mkApp(Lam(b.Slot), value)
}

// emitVar resolves a name: lexical scope first, then the builtin
// constants, then the enclosing with-sets from innermost outward.
func (c *compiler) emitVar(name Sym) Term {
	if b := c.lookupScope(name); b != nil {
		return b.take()
	}
	switch name {
	case c.prim.tru:
		return Bol(true)
	case c.prim.fls:
		return Bol(false)
	case c.prim.nul:
		return Ctr(ExtNul, 0)
	}
	if len(c.withs) == 0 {
		panic(errUnresolvedVar)
	}
	// Chain the with-sets: each lookup yields a Maybe, and a miss
	// falls through to the next set outward. A miss everywhere is an
	// erased value, which fails extraction.
	fb := Era()
	for _, w := range c.withs {
		look := c.lookupInSet(w.take(), name, false)
		fb = c.unwrapMaybe(look, fb)
	}
	return fb
}

// unwrapMaybe matches a Maybe term: None takes miss, Som unwraps.
func (c *compiler) unwrapMaybe(m, miss Term) Term {
	loc := c.rt.Alloc(3)
	c.rt.Set(loc, m)
	c.rt.Set(loc+1, miss)
	c.rt.Set(loc+2, c.identityLam())
	return Mat(2, loc)
}

// lookupInSet builds the runtime attribute search: unwrap the Ats
// wrapper, then walk the pair spine with a self-applied recursive
// lambda comparing keys. In bool mode the result is a native boolean,
// otherwise a Maybe of the value.
func (c *compiler) lookupInSet(set Term, key Sym, boolMode bool) Term {
	lsp := c.rt.Alloc(1)
	c.rt.Set(lsp, c.emitSpineFind(Var(lsp), key, boolMode))
	loc := c.rt.Alloc(2)
	c.rt.Set(loc, set)
	c.rt.Set(loc+1, Lam(lsp))
	return Mat(1, loc)
}

// emitSpineFind emits (self self spine) where self is
//
//	λs. λsp. match sp with
//	  nil        -> miss-result
//	  cons h t   -> match h with
//	    atr k v  -> match (k == key) with
//	      false  -> s s t
//	      true   -> hit-result
//
// Every duplication gets a fresh label; the recursion duplicates the
// closed search lambda itself, never an open subterm.
func (c *compiler) emitSpineFind(spine Term, key Sym, boolMode bool) Term {
	rt := c.rt

	ls := rt.Alloc(1)
	lsp := rt.Alloc(1)
	rt.Set(ls, Lam(lsp))

	lh := rt.Alloc(1)
	lt := rt.Alloc(1)
	rt.Set(lh, Lam(lt))

	lk := rt.Alloc(1)
	lv := rt.Alloc(1)
	rt.Set(lk, Lam(lv))

	eqLoc := rt.Alloc(2)
	rt.Set(eqLoc, Var(lk))
	rt.Set(eqLoc+1, W32(uint32(key)))
	eq := Op2(OpEql, eqLoc)

	// miss: duplicate the search lambda and recurse on the tail.
	dc := rt.Alloc(1)
	rt.Set(dc, Var(ls))
	label := c.freshLabel()
	miss := c.mkApp(c.mkApp(Dp0(label, dc), Dp1(label, dc)), Var(lt))

	var hit Term
	if boolMode {
		hit = c.constLam(Bol(true))
	} else {
		somLoc := rt.Alloc(1)
		rt.Set(somLoc, Var(lv))
		hit = c.constLam(Ctr(ExtSom, somLoc))
	}

	matEq := rt.Alloc(3)
	rt.Set(matEq, eq)
	rt.Set(matEq+1, miss)
	rt.Set(matEq+2, hit)
	rt.Set(lv, Mat(2, matEq))

	matAtr := rt.Alloc(2)
	rt.Set(matAtr, Var(lh))
	rt.Set(matAtr+1, Lam(lk))
	rt.Set(lt, Mat(1, matAtr))

	nilArm := Ctr(ExtNone, 0)
	if boolMode {
		nilArm = Bol(false)
	}
	matSpine := rt.Alloc(3)
	rt.Set(matSpine, Var(lsp))
	rt.Set(matSpine+1, nilArm)
	rt.Set(matSpine+2, Lam(lh))
	rt.Set(lsp, Mat(2, matSpine))

	self := Lam(ls)
	dc2 := rt.Alloc(1)
	rt.Set(dc2, self)
	label2 := c.freshLabel()
	return c.mkApp(c.mkApp(Dp0(label2, dc2), Dp1(label2, dc2)), spine)
}

// wrapSome wraps a term as a present Maybe.
func (c *compiler) wrapSome(t Term) Term {
	loc := c.rt.Alloc(1)
	c.rt.Set(loc, t)
	return Ctr(ExtSom, loc)
}

// stepLookup threads a Maybe of an attrset through one path segment:
// a miss propagates, a hit looks the segment up in the carried set.
func (c *compiler) stepLookup(m Term, key Sym) Term {
	ls := c.rt.Alloc(1)
	c.rt.Set(ls, c.lookupInSet(Var(ls), key, false))
	loc := c.rt.Alloc(3)
	c.rt.Set(loc, m)
	c.rt.Set(loc+1, Ctr(ExtNone, 0))
	c.rt.Set(loc+2, Lam(ls))
	return Mat(2, loc)
}

func (c *compiler) emitSelect(e *Expr) Term {
	m := c.wrapSome(c.emit(e.Subject))
	for _, seg := range e.Path {
		m = c.stepLookup(m, seg.Sym)
	}
	miss := Era()
	if e.Default != nil {
		miss = c.emit(e.Default)
	}
	return c.unwrapMaybe(m, miss)
}

func (c *compiler) emitHasAttr(e *Expr) Term {
	m := c.wrapSome(c.emit(e.Subject))
	last := len(e.Path) - 1
	for _, seg := range e.Path[:last] {
		m = c.stepLookup(m, seg.Sym)
	}
	// Final segment produces a boolean; a miss on the way is false.
	ls := c.rt.Alloc(1)
	c.rt.Set(ls, c.lookupInSet(Var(ls), e.Path[last].Sym, true))
	loc := c.rt.Alloc(3)
	c.rt.Set(loc, m)
	c.rt.Set(loc+1, Bol(false))
	c.rt.Set(loc+2, Lam(ls))
	return Mat(2, loc)
}

func (c *compiler) emitOp2(op uint32, a, b *Expr) Term {
	loc := c.rt.Alloc(2)
	c.rt.Set(loc, c.emit(a))
	c.rt.Set(loc+1, c.emit(b))
	return Op2(op, loc)
}

func (c *compiler) emitCall(e *Expr) Term {
	if op, ok := c.callOp(e); ok {
		return c.emitOp2(op, e.Args[0], e.Args[1])
	}
	t := c.emit(e.Fun)
	for _, arg := range e.Args {
		t = c.mkApp(t, c.emit(arg))
	}
	return t
}

// callOp mirrors the analyzer's primitive-call recognition.
func (c *compiler) callOp(e *Expr) (uint32, bool) {
	if e.Fun == nil || e.Fun.Kind != ExVar || len(e.Args) != 2 {
		return 0, false
	}
	op, ok := c.prim.opcode(e.Fun.Name)
	if !ok || c.lookupScope(e.Fun.Name) != nil {
		return 0, false
	}
	for _, arg := range e.Args {
		if arg.Kind == ExString || arg.Kind == ExFloat || arg.Kind == ExPath || arg.Kind == ExConcatStrings {
			return 0, false
		}
		if op != OpLtn && arg.Kind == ExInt &&
			(arg.Int > math.MaxInt32 || arg.Int < math.MinInt32) {
			return 0, false
		}
	}
	return op, true
}

func (c *compiler) emitConcat(e *Expr) Term {
	if concatIsString(e) {
		return c.emitStringConcat(e.Parts)
	}
	t := c.emit(e.Parts[0])
	for _, p := range e.Parts[1:] {
		loc := c.rt.Alloc(2)
		c.rt.Set(loc, t)
		c.rt.Set(loc+1, c.emit(p))
		t = Op2(OpAdd, loc)
	}
	return t
}

func (c *compiler) emitStringConcat(parts []*Expr) Term {
	allConst := true
	for _, p := range parts {
		if p.Kind != ExString {
			allConst = false
			break
		}
	}
	if allConst {
		var sb strings.Builder
		for _, p := range parts {
			sb.WriteString(p.Str)
		}
		return c.rt.EncodeString(c.strings, sb.String())
	}
	terms := make([]Term, len(parts))
	for i, p := range parts {
		switch p.Kind {
		case ExString:
			terms[i] = c.rt.EncodeString(c.strings, p.Str)
		case ExInt:
			terms[i] = c.rt.EncodeI2S(c.rt.EncodeInt(p.Int))
		default:
			terms[i] = c.emit(p)
		}
	}
	t := terms[len(terms)-1]
	for i := len(terms) - 2; i >= 0; i-- {
		t = c.rt.EncodeCat(terms[i], t)
	}
	return t
}

// emitAttrs lowers a non-recursive attrset literal. Each distinct
// inherit-from source is bound once; the pair values then select out
// of the shared binding.
func (c *compiler) emitAttrs(e *Expr) Term {
	froms, groupUses := fromGroups(e.Attrs)
	bindings := make(map[*Expr]*VarBinding, len(froms))

	var wrap func(i int) Term
	wrap = func(i int) Term {
		if i == len(froms) {
			pairs := make([]keyedTerm, 0, len(e.Attrs))
			for _, d := range e.Attrs {
				pairs = append(pairs, keyedTerm{d.Name, c.emitDefValue(d, bindings)})
			}
			return c.encodePairs(pairs)
		}
		f := froms[i]
		b := c.bind(0, groupUses[f])
		bindings[f] = b
		inner := wrap(i + 1)
		c.rt.Set(b.Slot, inner)
		b.done()
		return c.mkApp(Lam(b.Slot), c.emit(f))
	}
	return wrap(0)
}

// emitDefValue emits the value side of one attrset definition in the
// scope outside the set itself.
func (c *compiler) emitDefValue(d AttrDef, bindings map[*Expr]*VarBinding) Term {
	switch {
	case d.From != nil:
		look := c.lookupInSet(bindings[d.From].take(), d.Name, false)
		return c.unwrapMaybe(look, Era())
	case d.Inherited:
		return c.emitVar(d.Name)
	default:
		return c.emit(d.Value)
	}
}

// emitBindingGroup lowers a let or recursive attrset: inherit-from
// sources are bound first, then the definitions in dependency order
// as a chain of single bindings, so every value sees the siblings it
// mentions already in scope. bodyCount reports how many times the
// group's body consumes a given name.
func (c *compiler) emitBindingGroup(defs []AttrDef, bodyCount func(Sym) int, body func() Term) Term {
	order, ok := topoOrder(defs)
	if !ok {
		panic(errEmitShape)
	}
	froms, groupUses := fromGroups(defs)
	bindings := make(map[*Expr]*VarBinding, len(froms))

	var chain func(k int) Term
	chain = func(k int) Term {
		if k == len(order) {
			return body()
		}
		d := defs[order[k]]
		later := make([]*Expr, 0, len(order)-k)
		for _, j := range order[k+1:] {
			if s := defs[j]; !s.Inherited && s.From == nil {
				later = append(later, s.Value)
			}
		}
		uses := countUses(d.Name, later...) + bodyCount(d.Name)
		value := c.emitDefValue(d, bindings)
		return c.letOne(d.Name, uses, value, func() Term {
			return chain(k + 1)
		})
	}

	var wrap func(i int) Term
	wrap = func(i int) Term {
		if i == len(froms) {
			return chain(0)
		}
		f := froms[i]
		b := c.bind(0, groupUses[f])
		bindings[f] = b
		inner := wrap(i + 1)
		c.rt.Set(b.Slot, inner)
		b.done()
		return c.mkApp(Lam(b.Slot), c.emit(f))
	}
	return wrap(0)
}

// keyedTerm pairs an attribute name with its compiled value.
type keyedTerm struct {
	key  Sym
	term Term
}

// encodePairs sorts pairs into canonical key order and builds the
// attrset term. Canonical order is by name string, matching the
// host's attribute ordering.
func (c *compiler) encodePairs(pairs []keyedTerm) Term {
	sort.SliceStable(pairs, func(i, j int) bool {
		return c.syms.Name(pairs[i].key) < c.syms.Name(pairs[j].key)
	})
	terms := make([]Term, len(pairs))
	for i, p := range pairs {
		terms[i] = c.rt.EncodeAtr(p.key, p.term)
	}
	return c.rt.EncodeAttrs(terms)
}

// emitPairsFromScope builds the final spine of a recursive attrset
// from the chained bindings, consuming one projection per name.
func (c *compiler) emitPairsFromScope(defs []AttrDef) Term {
	pairs := make([]keyedTerm, 0, len(defs))
	for _, d := range defs {
		b := c.lookupScope(d.Name)
		if b == nil {
			panic(errEmitShape)
		}
		pairs = append(pairs, keyedTerm{d.Name, b.take()})
	}
	return c.encodePairs(pairs)
}

// fromGroups collects the distinct inherit-from source expressions in
// first-appearance order, with the number of names each one serves.
func fromGroups(defs []AttrDef) ([]*Expr, map[*Expr]int) {
	var froms []*Expr
	uses := make(map[*Expr]int)
	for _, d := range defs {
		if d.From == nil {
			continue
		}
		if _, ok := uses[d.From]; !ok {
			froms = append(froms, d.From)
		}
		uses[d.From]++
	}
	return froms, uses
}

func (c *compiler) emitLambda(e *Expr) Term {
	if !e.Pattern {
		b := c.bind(e.Arg, countUses(e.Arg, e.A))
		c.pushScope(b)
		bodyT := c.emit(e.A)
		c.rt.Set(b.Slot, bodyT)
		c.popScope()
		return Lam(b.Slot)
	}
	return c.emitPatternLambda(e)
}

// emitPatternLambda destructures the argument set formal by formal.
// Each formal becomes one binding whose value looks its name up in
// the argument, falling back to the default on a miss; formals are
// ordered so defaults see the siblings they reference.
func (c *compiler) emitPatternLambda(e *Expr) Term {
	order, ok := formalOrder(e.Formals)
	if !ok {
		panic(errEmitShape)
	}

	argUses := len(e.Formals)
	if e.Arg != 0 {
		exprs := make([]*Expr, 0, len(e.Formals)+1)
		for _, f := range e.Formals {
			if f.Default != nil {
				exprs = append(exprs, f.Default)
			}
		}
		exprs = append(exprs, e.A)
		argUses += countUses(e.Arg, exprs...)
	}

	b := c.bind(e.Arg, argUses)
	if e.Arg != 0 {
		c.pushScope(b)
	}

	var chain func(k int) Term
	chain = func(k int) Term {
		if k == len(order) {
			return c.emit(e.A)
		}
		f := e.Formals[order[k]]
		look := c.lookupInSet(b.take(), f.Name, false)
		miss := Era()
		if f.Default != nil {
			miss = c.emit(f.Default)
		}
		value := c.unwrapMaybe(look, miss)

		later := make([]*Expr, 0, len(order)-k)
		for _, j := range order[k+1:] {
			if d := e.Formals[j].Default; d != nil {
				later = append(later, d)
			}
		}
		later = append(later, e.A)
		uses := countUses(f.Name, later...)
		return c.letOne(f.Name, uses, value, func() Term {
			return chain(k + 1)
		})
	}

	bodyT := chain(0)
	c.rt.Set(b.Slot, bodyT)
	if e.Arg != 0 {
		c.popScope()
	} else {
		b.done()
	}
	return Lam(b.Slot)
}

// emitUpdate merges statically known attrset operands at compile
// time: later operands win per key, and surviving value terms are
// reused rather than recompiled.
func (c *compiler) emitUpdate(e *Expr) Term {
	var keys []Sym
	merged := make(map[Sym]Term)
	c.staticAttrPairs(e, &keys, merged)
	pairs := make([]keyedTerm, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, keyedTerm{k, merged[k]})
	}
	return c.encodePairs(pairs)
}

func (c *compiler) staticAttrPairs(e *Expr, keys *[]Sym, merged map[Sym]Term) {
	switch e.Kind {
	case ExOpUpdate:
		c.staticAttrPairs(e.A, keys, merged)
		c.staticAttrPairs(e.B, keys, merged)
	case ExAttrs:
		for _, d := range e.Attrs {
			if d.Dynamic != nil || d.From != nil {
				panic(errEmitShape)
			}
			if _, ok := merged[d.Name]; !ok {
				*keys = append(*keys, d.Name)
			}
			merged[d.Name] = c.emitDefValue(d, nil)
		}
	default:
		panic(errEmitShape)
	}
}

// emitConcatLists flattens statically known list operands into one
// literal with a correct cached length.
func (c *compiler) emitConcatLists(e *Expr) Term {
	var terms []Term
	c.staticListElems(e, &terms)
	return c.rt.EncodeList(terms)
}

func (c *compiler) staticListElems(e *Expr, terms *[]Term) {
	switch e.Kind {
	case ExOpConcatLists:
		c.staticListElems(e.A, terms)
		c.staticListElems(e.B, terms)
	case ExList:
		for _, el := range e.Elems {
			*terms = append(*terms, c.emit(el))
		}
	default:
		panic(errEmitShape)
	}
}

// emitWith binds the with-set once and pushes it on the with-stack
// for the body. Lexical bindings always win over with-sets; only
// names with no lexical binding consume lookups from here.
func (c *compiler) emitWith(e *Expr) Term {
	setT := c.emit(e.A)
	uses := c.countWithUses(e.B)
	b := c.bind(0, uses)
	c.pushWith(b)
	bodyT := c.emit(e.B)
	c.popWith()
	c.rt.Set(b.Slot, bodyT)
	return c.mkApp(Lam(b.Slot), setT)
}

// countWithUses counts the variable occurrences in body that will
// resolve through the with-stack: free of any body-local binder, not
// lexically bound at this point, and not a builtin constant.
func (c *compiler) countWithUses(body *Expr) int {
	n := 0
	walkFree(body, nil, func(name Sym) {
		if c.lookupScope(name) != nil || c.prim.isConstant(name) {
			return
		}
		n++
	})
	return n
}

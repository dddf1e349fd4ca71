package netix

import "math"

// The capability analyzer decides, without touching the heap, whether
// an expression can be compiled and evaluated on the net runtime. It
// mirrors the emitter case by case: anything it accepts the emitter
// can lower, and residual dynamic failures (stuck terms, overflow,
// division by zero) are caught at evaluation time instead.

type analyzer struct {
	prim      builtins
	scope     []Sym
	withDepth int
}

func newAnalyzer(prim builtins) *analyzer {
	return &analyzer{prim: prim}
}

func (a *analyzer) bound(name Sym) bool {
	for i := len(a.scope) - 1; i >= 0; i-- {
		if a.scope[i] == name {
			return true
		}
	}
	return false
}

func (a *analyzer) push(names ...Sym) int {
	mark := len(a.scope)
	a.scope = append(a.scope, names...)
	return mark
}

func (a *analyzer) pop(mark int) {
	a.scope = a.scope[:mark]
}

func (a *analyzer) canCompile(e *Expr) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExInt, ExFloat, ExString, ExPath:
		return true

	case ExVar:
		if a.bound(e.Name) || a.prim.isConstant(e.Name) {
			return true
		}
		// An open variable may still resolve through an enclosing
		// with-set at runtime.
		return a.withDepth > 0

	case ExConcatStrings:
		return a.canCompileConcat(e)

	case ExAttrs:
		return a.canCompileAttrs(e)

	case ExList:
		for _, el := range e.Elems {
			if !a.canCompile(el) {
				return false
			}
		}
		return true

	case ExLambda:
		return a.canCompileLambda(e)

	case ExCall:
		if _, ok := a.primOp(e); ok {
			return a.canCompile(e.Args[0]) && a.canCompile(e.Args[1])
		}
		if !a.canCompile(e.Fun) {
			return false
		}
		for _, arg := range e.Args {
			if !a.canCompile(arg) {
				return false
			}
		}
		return len(e.Args) > 0

	case ExLet:
		if !a.canCompileBindings(e.Attrs) {
			return false
		}
		names := defNames(e.Attrs)
		mark := a.push(names...)
		ok := a.canCompile(e.A)
		a.pop(mark)
		return ok

	case ExWith:
		if !a.canCompile(e.A) {
			return false
		}
		a.withDepth++
		ok := a.canCompile(e.B)
		a.withDepth--
		return ok

	case ExIf:
		return a.canCompile(e.A) && a.canCompile(e.B) && a.canCompile(e.C)

	case ExAssert:
		return a.canCompile(e.A) && a.canCompile(e.B)

	case ExSelect:
		if !staticPath(e.Path) || !a.canCompile(e.Subject) {
			return false
		}
		return e.Default == nil || a.canCompile(e.Default)

	case ExHasAttr:
		return staticPath(e.Path) && a.canCompile(e.Subject)

	case ExOpUpdate:
		return a.canCompileStaticAttrOperand(e)

	case ExOpConcatLists:
		return a.canCompileStaticListOperand(e)

	case ExOpEq, ExOpNEq:
		if !comparableOperand(e.A) || !comparableOperand(e.B) {
			return false
		}
		return a.canCompile(e.A) && a.canCompile(e.B)

	case ExOpAnd, ExOpOr, ExOpImpl:
		return a.canCompile(e.A) && a.canCompile(e.B)

	case ExOpNot:
		return a.canCompile(e.A)
	}
	return false
}

// primOp recognizes the four primitive arithmetic call shapes. A
// lexical binding of the same name shadows the primitive. Arithmetic
// opcodes only operate on native words, so a literal outside the
// 32-bit range is refused up front; comparison reaches across the
// wide encodings and takes any integer literal.
func (a *analyzer) primOp(e *Expr) (uint32, bool) {
	if e.Fun == nil || e.Fun.Kind != ExVar || len(e.Args) != 2 {
		return 0, false
	}
	op, ok := a.prim.opcode(e.Fun.Name)
	if !ok || a.bound(e.Fun.Name) {
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

func (a *analyzer) canCompileConcat(e *Expr) bool {
	if len(e.Parts) == 0 {
		return false
	}
	if concatIsString(e) {
		for _, p := range e.Parts {
			if p.Kind == ExFloat {
				return false
			}
			if !a.canCompile(p) {
				return false
			}
		}
		return true
	}
	// Numeric mode: string and float literals would be type errors.
	for _, p := range e.Parts {
		if p.Kind == ExString || p.Kind == ExFloat {
			return false
		}
		if !a.canCompile(p) {
			return false
		}
	}
	return true
}

// concatIsString reports whether a concat expression is lowered as
// string concatenation. A forced string context or a leading string
// literal selects string mode; otherwise the chain is treated as
// numeric addition.
func concatIsString(e *Expr) bool {
	return e.Force || (len(e.Parts) > 0 && e.Parts[0].Kind == ExString)
}

func (a *analyzer) canCompileAttrs(e *Expr) bool {
	for _, d := range e.Attrs {
		if d.Dynamic != nil {
			return false
		}
	}
	if !e.Rec {
		for _, d := range e.Attrs {
			if !a.canCompileDefValue(d) {
				return false
			}
		}
		return true
	}
	return a.canCompileBindings(e.Attrs)
}

// canCompileBindings covers the shared let / recursive-attrset case:
// sibling names are in scope for plain values, inherit-from sources
// must not touch siblings, and the dependency graph must be acyclic.
func (a *analyzer) canCompileBindings(defs []AttrDef) bool {
	for _, d := range defs {
		if d.Dynamic != nil {
			return false
		}
	}
	names := defNames(defs)
	nameSet := make(map[Sym]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}
	for _, d := range defs {
		if d.From != nil {
			// The source expression is evaluated in the outer scope,
			// so it may not reference a sibling binding.
			touches := false
			walkFree(d.From, nil, func(n Sym) {
				if nameSet[n] {
					touches = true
				}
			})
			if touches || !a.canCompile(d.From) {
				return false
			}
		}
	}
	if _, ok := topoOrder(defs); !ok {
		return false
	}
	mark := a.push(names...)
	ok := true
	for _, d := range defs {
		if !a.canCompileBoundDef(d) {
			ok = false
			break
		}
	}
	a.pop(mark)
	return ok
}

// canCompileBoundDef checks one binding definition with the sibling
// names already on the scope stack.
func (a *analyzer) canCompileBoundDef(d AttrDef) bool {
	if d.Inherited && d.From == nil {
		// Plain inherit reaches past the siblings to the outer scope.
		// Sibling names were pushed, so check against the stack minus
		// the innermost frame by name resolution in the saved prefix.
		return a.outerResolvable(d.Name)
	}
	if d.From != nil {
		return true // source already checked
	}
	return a.canCompile(d.Value)
}

// outerResolvable reports whether a name resolves ignoring the
// innermost binding group. Used for plain inherit inside recursive
// sets, where `inherit a;` means the outer a.
func (a *analyzer) outerResolvable(name Sym) bool {
	if a.prim.isConstant(name) || a.withDepth > 0 {
		return true
	}
	// The current group's names sit at the top of the stack; any
	// deeper occurrence is an outer binding.
	seen := 0
	for i := len(a.scope) - 1; i >= 0; i-- {
		if a.scope[i] == name {
			seen++
			if seen > 1 {
				return true
			}
		}
	}
	// One occurrence is the sibling pushed by this group unless the
	// group does not actually bind it, which cannot happen here.
	return false
}

// canCompileDefValue checks a non-recursive attrset definition, whose
// value sees only the outer scope.
func (a *analyzer) canCompileDefValue(d AttrDef) bool {
	if d.Inherited && d.From == nil {
		return a.bound(d.Name) || a.prim.isConstant(d.Name) || a.withDepth > 0
	}
	if d.From != nil {
		return a.canCompile(d.From)
	}
	return a.canCompile(d.Value)
}

func (a *analyzer) canCompileLambda(e *Expr) bool {
	if !e.Pattern {
		mark := a.push(e.Arg)
		ok := a.canCompile(e.A)
		a.pop(mark)
		return ok
	}
	names := make([]Sym, 0, len(e.Formals)+1)
	if e.Arg != 0 {
		names = append(names, e.Arg)
	}
	for _, f := range e.Formals {
		names = append(names, f.Name)
	}
	if _, ok := formalOrder(e.Formals); !ok {
		return false
	}
	mark := a.push(names...)
	ok := true
	for _, f := range e.Formals {
		if f.Default != nil && !a.canCompile(f.Default) {
			ok = false
			break
		}
	}
	if ok {
		ok = a.canCompile(e.A)
	}
	a.pop(mark)
	return ok
}

// canCompileStaticAttrOperand accepts the attrset shapes whose spine
// is known at compile time, which is what the update operator merges.
func (a *analyzer) canCompileStaticAttrOperand(e *Expr) bool {
	switch e.Kind {
	case ExOpUpdate:
		return a.canCompileStaticAttrOperand(e.A) && a.canCompileStaticAttrOperand(e.B)
	case ExAttrs:
		if e.Rec {
			return false
		}
		for _, d := range e.Attrs {
			if d.Dynamic != nil || d.From != nil {
				return false
			}
			if !a.canCompileDefValue(d) {
				return false
			}
		}
		return true
	}
	return false
}

func (a *analyzer) canCompileStaticListOperand(e *Expr) bool {
	switch e.Kind {
	case ExOpConcatLists:
		return a.canCompileStaticListOperand(e.A) && a.canCompileStaticListOperand(e.B)
	case ExList:
		for _, el := range e.Elems {
			if !a.canCompile(el) {
				return false
			}
		}
		return true
	}
	return false
}

// comparableOperand rejects equality operands whose static shape the
// comparator cannot handle: floats, lists, attrsets, paths, and
// functions have no structural equality on the net.
func comparableOperand(e *Expr) bool {
	switch e.Kind {
	case ExFloat, ExList, ExAttrs, ExPath, ExLambda:
		return false
	}
	return true
}

func staticPath(path []AttrName) bool {
	if len(path) == 0 {
		return false
	}
	for _, p := range path {
		if p.Dynamic != nil {
			return false
		}
	}
	return true
}

func defNames(defs []AttrDef) []Sym {
	names := make([]Sym, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// walkFree calls fn for every free variable occurrence in e, tracking
// lexical shadowing. with-expressions do not bind names lexically, so
// occurrences under a with still reach fn.
func walkFree(e *Expr, bound map[Sym]bool, fn func(Sym)) {
	if e == nil {
		return
	}
	free := func(n Sym) {
		if !bound[n] {
			fn(n)
		}
	}
	switch e.Kind {
	case ExInt, ExFloat, ExString, ExPath:

	case ExVar:
		free(e.Name)

	case ExConcatStrings:
		for _, p := range e.Parts {
			walkFree(p, bound, fn)
		}

	case ExAttrs:
		if e.Rec {
			walkBindings(e.Attrs, nil, bound, fn)
		} else {
			for _, d := range e.Attrs {
				walkDefOuter(d, bound, fn)
			}
		}

	case ExList:
		for _, el := range e.Elems {
			walkFree(el, bound, fn)
		}

	case ExLambda:
		inner := cloneBound(bound)
		if e.Arg != 0 {
			inner[e.Arg] = true
		}
		for _, f := range e.Formals {
			inner[f.Name] = true
		}
		for _, f := range e.Formals {
			walkFree(f.Default, inner, fn)
		}
		walkFree(e.A, inner, fn)

	case ExCall:
		walkFree(e.Fun, bound, fn)
		for _, arg := range e.Args {
			walkFree(arg, bound, fn)
		}

	case ExLet:
		walkBindings(e.Attrs, e.A, bound, fn)

	case ExWith:
		walkFree(e.A, bound, fn)
		walkFree(e.B, bound, fn)

	case ExSelect:
		walkFree(e.Subject, bound, fn)
		walkFree(e.Default, bound, fn)

	case ExHasAttr:
		walkFree(e.Subject, bound, fn)

	case ExIf:
		walkFree(e.A, bound, fn)
		walkFree(e.B, bound, fn)
		walkFree(e.C, bound, fn)

	default:
		walkFree(e.A, bound, fn)
		walkFree(e.B, bound, fn)
		walkFree(e.C, bound, fn)
	}
}

// walkBindings handles a recursive binding group: plain values and
// the body see the sibling names, plain inherits and inherit-from
// sources see the outer scope.
func walkBindings(defs []AttrDef, body *Expr, bound map[Sym]bool, fn func(Sym)) {
	inner := cloneBound(bound)
	for _, d := range defs {
		inner[d.Name] = true
	}
	for _, d := range defs {
		switch {
		case d.From != nil:
			walkFree(d.From, bound, fn)
		case d.Inherited:
			if !bound[d.Name] {
				fn(d.Name)
			}
		default:
			walkFree(d.Value, inner, fn)
		}
	}
	walkFree(body, inner, fn)
}

// walkDefOuter handles a non-recursive attrset definition, whose
// value is scoped entirely outside the set.
func walkDefOuter(d AttrDef, bound map[Sym]bool, fn func(Sym)) {
	switch {
	case d.From != nil:
		walkFree(d.From, bound, fn)
	case d.Inherited:
		if !bound[d.Name] {
			fn(d.Name)
		}
	default:
		walkFree(d.Value, bound, fn)
	}
}

func cloneBound(bound map[Sym]bool) map[Sym]bool {
	inner := make(map[Sym]bool, len(bound)+4)
	for k, v := range bound {
		inner[k] = v
	}
	return inner
}

// countUses counts the free occurrences of name across a set of
// expressions, respecting shadowing. This feeds duplication-chain
// sizing, so it must agree exactly with the emitter's consumption.
func countUses(name Sym, exprs ...*Expr) int {
	n := 0
	for _, e := range exprs {
		walkFree(e, nil, func(v Sym) {
			if v == name {
				n++
			}
		})
	}
	return n
}

// topoOrder returns an emission order for a recursive binding group
// such that every binding is emitted after the siblings it mentions.
// Reports false on a reference cycle.
func topoOrder(defs []AttrDef) ([]int, bool) {
	index := make(map[Sym]int, len(defs))
	for i, d := range defs {
		index[d.Name] = i
	}
	deps := make([][]int, len(defs))
	indeg := make([]int, len(defs))
	for i, d := range defs {
		if d.Inherited || d.From != nil {
			continue
		}
		seen := make(map[int]bool)
		walkFree(d.Value, nil, func(n Sym) {
			j, ok := index[n]
			if !ok || seen[j] {
				return
			}
			seen[j] = true
			if j == i {
				indeg[i] = len(defs) + 1 // self-reference never drains
				return
			}
			deps[j] = append(deps[j], i)
			indeg[i]++
		})
	}
	var queue []int
	for i := range defs {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, len(defs))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, j := range deps[i] {
			indeg[j]--
			if indeg[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if len(order) != len(defs) {
		return nil, false
	}
	return order, true
}

// formalOrder orders pattern formals so that a default is emitted
// after any sibling formal it references.
func formalOrder(formals []Formal) ([]int, bool) {
	defs := make([]AttrDef, len(formals))
	for i, f := range formals {
		defs[i] = AttrDef{Name: f.Name, Value: f.Default, Inherited: f.Default == nil}
	}
	return topoOrder(defs)
}

package netix

// Graph reduction. The rewrite rules are the interaction-net rules of
// an optimal lambda-calculus reducer: beta reduction, lazy duplication
// with labeled superpositions, strict binary operations on native
// words, and a pattern-match primitive over words and constructors.
//
// Substitution uses the marker-bit scheme: a lambda node's single heap
// slot holds its body until the lambda is applied, after which the
// slot holds the argument with the substitution marker set. Variables
// and dup projections read their binder cell and take the stored value
// iff the marker is set. Unreduced garbage is never collected; the
// whole arena is wiped between compilations.

// descentBit marks a stack entry as "descend into this location next"
// rather than "revisit this parent". Heap indices stay below 2^31.
const descentBit uint32 = 1 << 31

// Wnf reduces the term at root to weak normal form, rewriting heap
// cells in place, and returns the final term at root.
func (rt *Runtime) Wnf(root uint32) Term {
	base := len(rt.stack)
	host := root
	descend := true

	for {
		term := rt.heap[host]

		if descend {
			switch term.Tag() {
			case TagVar:
				cell := rt.heap[term.Val()]
				if cell.Sub() {
					rt.heap[host] = cell.ClearSub()
					continue
				}
				descend = false
				continue
			case TagDP0, TagDP1:
				cell := rt.heap[term.Val()]
				if cell.Sub() {
					rt.heap[host] = cell.ClearSub()
					continue
				}
				rt.push(host)
				host = term.Val()
				continue
			case TagApp:
				rt.push(host)
				host = term.Val()
				continue
			case TagMat:
				rt.push(host)
				host = term.Val()
				continue
			case TagOp2:
				rt.push(host)
				rt.push((term.Val() + 1) | descentBit)
				host = term.Val()
				continue
			default:
				descend = false
				continue
			}
		}

		// The term at host is a weak head normal form (or stuck).
		// Try to fire a rule at host; if none applies, unwind.
		fired := false
		switch term.Tag() {
		case TagApp:
			fired = rt.ruleApp(host, term)
		case TagDP0, TagDP1:
			fired = rt.ruleDup(host, term)
		case TagMat:
			fired = rt.ruleMat(host, term)
		case TagOp2:
			fired = rt.ruleOp2(host, term)
		}
		if fired {
			descend = true
			continue
		}

		if len(rt.stack) == base {
			return rt.heap[host]
		}
		item := rt.pop()
		descend = item&descentBit != 0
		host = item &^ descentBit
	}
}

// ruleApp fires when an application's function slot is in WNF.
func (rt *Runtime) ruleApp(host uint32, term Term) bool {
	loc := term.Val()
	fun := rt.heap[loc]
	switch fun.Tag() {
	case TagLam:
		// Beta: read the body out of the lambda's slot, then reuse
		// the slot as the substitution target for the argument.
		rt.itrs++
		body := rt.heap[fun.Val()]
		rt.heap[fun.Val()] = rt.heap[loc+1].WithSub()
		rt.heap[host] = body
		return true
	case TagSup:
		// Application distributes over a superposition; the argument
		// is duplicated under the superposition's label.
		rt.itrs++
		label := fun.Ext()
		dc := rt.Alloc(1)
		rt.heap[dc] = rt.heap[loc+1]
		a0 := rt.Alloc(2)
		rt.heap[a0] = rt.heap[fun.Val()]
		rt.heap[a0+1] = Dp0(label, dc)
		a1 := rt.Alloc(2)
		rt.heap[a1] = rt.heap[fun.Val()+1]
		rt.heap[a1+1] = Dp1(label, dc)
		sp := rt.Alloc(2)
		rt.heap[sp] = App(a0)
		rt.heap[sp+1] = App(a1)
		rt.heap[host] = Sup(label, sp)
		return true
	case TagEra:
		rt.itrs++
		rt.heap[host] = Era()
		return true
	}
	return false
}

// ruleDup fires when a dup cell's content is in WNF. The firing side
// takes its projection and stores the sibling's value, marked, back
// into the cell; whichever projection reads the cell later takes the
// stored value unconditionally.
func (rt *Runtime) ruleDup(host uint32, term Term) bool {
	cellLoc := term.Val()
	cell := rt.heap[cellLoc]
	if cell.Sub() {
		rt.heap[host] = cell.ClearSub()
		return true
	}
	label := term.Ext()
	first := term.Tag() == TagDP0

	switch cell.Tag() {
	case TagW32, TagEra:
		rt.itrs++
		rt.heap[cellLoc] = cell.WithSub()
		rt.heap[host] = cell
		return true

	case TagLam:
		// dup a b = λx.body
		// a <- λx0.b0 ; b <- λx1.b1 ; x <- {x0 x1} ; dup b0 b1 = body
		rt.itrs++
		db := rt.Alloc(1)
		rt.heap[db] = rt.heap[cell.Val()]
		lam0 := rt.Alloc(1)
		rt.heap[lam0] = Dp0(label, db)
		lam1 := rt.Alloc(1)
		rt.heap[lam1] = Dp1(label, db)
		sx := rt.Alloc(2)
		rt.heap[sx] = Var(lam0)
		rt.heap[sx+1] = Var(lam1)
		rt.heap[cell.Val()] = Sup(label, sx).WithSub()
		if first {
			rt.heap[cellLoc] = Lam(lam1).WithSub()
			rt.heap[host] = Lam(lam0)
		} else {
			rt.heap[cellLoc] = Lam(lam0).WithSub()
			rt.heap[host] = Lam(lam1)
		}
		return true

	case TagSup:
		if cell.Ext() == label {
			// Same label: the duplication meets its own fork and
			// the projections take the two sides.
			rt.itrs++
			a := rt.heap[cell.Val()]
			b := rt.heap[cell.Val()+1]
			if first {
				rt.heap[cellLoc] = b.WithSub()
				rt.heap[host] = a
			} else {
				rt.heap[cellLoc] = a.WithSub()
				rt.heap[host] = b
			}
			return true
		}
		// Different label: the nodes commute.
		rt.itrs++
		other := cell.Ext()
		da := rt.Alloc(1)
		rt.heap[da] = rt.heap[cell.Val()]
		db := rt.Alloc(1)
		rt.heap[db] = rt.heap[cell.Val()+1]
		s0 := rt.Alloc(2)
		rt.heap[s0] = Dp0(label, da)
		rt.heap[s0+1] = Dp0(label, db)
		s1 := rt.Alloc(2)
		rt.heap[s1] = Dp1(label, da)
		rt.heap[s1+1] = Dp1(label, db)
		if first {
			rt.heap[cellLoc] = Sup(other, s1).WithSub()
			rt.heap[host] = Sup(other, s0)
		} else {
			rt.heap[cellLoc] = Sup(other, s0).WithSub()
			rt.heap[host] = Sup(other, s1)
		}
		return true

	case TagCtr:
		rt.itrs++
		info := rt.book.info(cell.Ext())
		if info.Arity == 0 {
			rt.heap[cellLoc] = cell.WithSub()
			rt.heap[host] = cell
			return true
		}
		c0 := rt.Alloc(info.Arity)
		c1 := rt.Alloc(info.Arity)
		for i := uint32(0); i < info.Arity; i++ {
			dc := rt.Alloc(1)
			rt.heap[dc] = rt.heap[cell.Val()+i]
			rt.heap[c0+i] = Dp0(label, dc)
			rt.heap[c1+i] = Dp1(label, dc)
		}
		if first {
			rt.heap[cellLoc] = Ctr(cell.Ext(), c1).WithSub()
			rt.heap[host] = Ctr(cell.Ext(), c0)
		} else {
			rt.heap[cellLoc] = Ctr(cell.Ext(), c0).WithSub()
			rt.heap[host] = Ctr(cell.Ext(), c1)
		}
		return true
	}
	return false
}

// ruleMat fires when a match node's scrutinee is in WNF.
//
// A numeric scrutinee behaves like a switch: zero selects the first
// arm directly; nonzero applies the second arm to value-1. A
// constructor scrutinee selects the arm at its book index and applies
// it to the constructor's fields in order.
func (rt *Runtime) ruleMat(host uint32, term Term) bool {
	loc := term.Val()
	arms := term.Ext()
	scrut := rt.heap[loc]

	switch scrut.Tag() {
	case TagW32:
		rt.itrs++
		if scrut.Val() == 0 || arms < 2 {
			rt.heap[host] = rt.heap[loc+1]
			return true
		}
		ap := rt.Alloc(2)
		rt.heap[ap] = rt.heap[loc+2]
		rt.heap[ap+1] = W32(scrut.Val() - 1)
		rt.heap[host] = App(ap)
		return true

	case TagCtr:
		info := rt.book.info(scrut.Ext())
		if info.Index >= arms {
			return false // ill-typed scrutinee: stuck
		}
		rt.itrs++
		res := rt.heap[loc+1+info.Index]
		for i := uint32(0); i < info.Arity; i++ {
			ap := rt.Alloc(2)
			rt.heap[ap] = res
			rt.heap[ap+1] = rt.heap[scrut.Val()+i]
			res = App(ap)
		}
		rt.heap[host] = res
		return true

	case TagSup:
		// Match distributes over a superposition, duplicating arms.
		rt.itrs++
		label := scrut.Ext()
		m0 := rt.Alloc(1 + arms)
		m1 := rt.Alloc(1 + arms)
		rt.heap[m0] = rt.heap[scrut.Val()]
		rt.heap[m1] = rt.heap[scrut.Val()+1]
		for i := uint32(0); i < arms; i++ {
			dc := rt.Alloc(1)
			rt.heap[dc] = rt.heap[loc+1+i]
			rt.heap[m0+1+i] = Dp0(label, dc)
			rt.heap[m1+1+i] = Dp1(label, dc)
		}
		sp := rt.Alloc(2)
		rt.heap[sp] = Mat(arms, m0)
		rt.heap[sp+1] = Mat(arms, m1)
		rt.heap[host] = Sup(label, sp)
		return true

	case TagEra:
		rt.itrs++
		rt.heap[host] = Era()
		return true
	}
	return false
}

// ruleOp2 fires when both operands of a binary operation are in WNF.
// Arithmetic is defined on native words only; comparisons additionally
// understand the big-integer and string constructors.
func (rt *Runtime) ruleOp2(host uint32, term Term) bool {
	loc := term.Val()
	a := rt.heap[loc]
	b := rt.heap[loc+1]

	if a.Tag() == TagSup || b.Tag() == TagSup {
		rt.itrs++
		rt.op2Sup(host, term, a, b)
		return true
	}

	if a.Tag() == TagW32 && b.Tag() == TagW32 {
		rt.itrs++
		rt.heap[host] = op2Kinded(term.Ext(), a, b)
		return true
	}

	// Comparison opcodes reach across encodings.
	switch term.Ext() {
	case OpLtn, OpEql, OpNeq:
		if res, ok := rt.op2Encoded(term.Ext(), a, b); ok {
			rt.itrs++
			rt.heap[host] = res
			return true
		}
		if isValueTerm(a) && isValueTerm(b) {
			panic(ErrBadOperand)
		}
	case OpAdd, OpSub, OpMul, OpDiv:
		if a.Tag() == TagCtr || b.Tag() == TagCtr {
			panic(ErrBigArith)
		}
		if isValueTerm(a) && isValueTerm(b) {
			panic(ErrBadOperand)
		}
	}
	return false
}

// isValueTerm reports whether a term is a finished value rather than a
// stuck redex; opcodes fed a finished value they cannot interpret are
// a recoverable fault, while stuck operands simply stay stuck.
func isValueTerm(t Term) bool {
	switch t.Tag() {
	case TagW32, TagCtr, TagLam, TagEra, TagSup:
		return true
	}
	return false
}

// op2Kinded applies an opcode to two word terms, honoring the boolean
// ext marker: a boolean and a number are distinct kinds, never equal
// and never ordered, and booleans themselves admit only equality.
func op2Kinded(op uint32, a, b Term) Term {
	boolA := a.Ext() == ExtBool
	boolB := b.Ext() == ExtBool
	if !boolA && !boolB {
		return op2Word(op, a.Val(), b.Val())
	}
	if boolA != boolB {
		switch op {
		case OpEql:
			return Bol(false)
		case OpNeq:
			return Bol(true)
		}
		panic(ErrBadOperand)
	}
	switch op {
	case OpEql:
		return Bol(a.Val() == b.Val())
	case OpNeq:
		return Bol(a.Val() != b.Val())
	}
	panic(ErrBadOperand)
}

// op2Word applies an opcode to two native words. Values are 32-bit
// two's-complement patterns; overflow wraps silently.
func op2Word(op, a, b uint32) Term {
	switch op {
	case OpAdd:
		return W32(a + b)
	case OpSub:
		return W32(a - b)
	case OpMul:
		return W32(a * b)
	case OpDiv:
		if b == 0 {
			panic(ErrDivByZero)
		}
		return W32(uint32(int32(a) / int32(b)))
	case OpLtn:
		// Flipping the sign bit turns signed order into unsigned
		// order, which is the only comparison the word domain has.
		return Bol(a^0x80000000 < b^0x80000000)
	case OpEql:
		return Bol(a == b)
	case OpNeq:
		return Bol(a != b)
	}
	panic(ErrBadOperand)
}

// op2Sup distributes a binary operation over a superposed operand.
func (rt *Runtime) op2Sup(host uint32, term Term, a, b Term) {
	if a.Tag() == TagSup {
		label := a.Ext()
		dc := rt.Alloc(1)
		rt.heap[dc] = b
		o0 := rt.Alloc(2)
		rt.heap[o0] = rt.heap[a.Val()]
		rt.heap[o0+1] = Dp0(label, dc)
		o1 := rt.Alloc(2)
		rt.heap[o1] = rt.heap[a.Val()+1]
		rt.heap[o1+1] = Dp1(label, dc)
		sp := rt.Alloc(2)
		rt.heap[sp] = Op2(term.Ext(), o0)
		rt.heap[sp+1] = Op2(term.Ext(), o1)
		rt.heap[host] = Sup(label, sp)
		return
	}
	label := b.Ext()
	dc := rt.Alloc(1)
	rt.heap[dc] = a
	o0 := rt.Alloc(2)
	rt.heap[o0] = Dp0(label, dc)
	rt.heap[o0+1] = rt.heap[b.Val()]
	o1 := rt.Alloc(2)
	rt.heap[o1] = Dp1(label, dc)
	rt.heap[o1+1] = rt.heap[b.Val()+1]
	sp := rt.Alloc(2)
	rt.heap[sp] = Op2(term.Ext(), o0)
	rt.heap[sp+1] = Op2(term.Ext(), o1)
	rt.heap[host] = Sup(label, sp)
}

// Normal reduces the term at root to strong normal form: Wnf at the
// root, then recursively at every reachable child slot. Seen tracking
// follows the reference runtime; the graph is acyclic but children can
// be shared.
func (rt *Runtime) Normal(root uint32) Term {
	seen := make(map[uint32]struct{})
	rt.normalAt(root, seen)
	return rt.heap[root]
}

func (rt *Runtime) normalAt(loc uint32, seen map[uint32]struct{}) {
	if _, ok := seen[loc]; ok {
		return
	}
	seen[loc] = struct{}{}
	term := rt.Wnf(loc)

	switch term.Tag() {
	case TagLam:
		rt.normalAt(term.Val(), seen)
	case TagApp:
		rt.normalAt(term.Val(), seen)
		rt.normalAt(term.Val()+1, seen)
	case TagSup:
		rt.normalAt(term.Val(), seen)
		rt.normalAt(term.Val()+1, seen)
	case TagOp2:
		rt.normalAt(term.Val(), seen)
		rt.normalAt(term.Val()+1, seen)
	case TagCtr:
		for i := uint32(0); i < rt.book.info(term.Ext()).Arity; i++ {
			rt.normalAt(term.Val()+i, seen)
		}
	case TagMat:
		for i := uint32(0); i <= term.Ext(); i++ {
			rt.normalAt(term.Val()+i, seen)
		}
	}
}

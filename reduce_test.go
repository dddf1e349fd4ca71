package netix

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func testRuntime() *Runtime {
	return NewRuntimeSize(1<<14, 1<<10)
}

// mkApp2 builds an application node for tests.
func mkApp2(rt *Runtime, fun, arg Term) Term {
	loc := rt.Alloc(2)
	rt.Set(loc, fun)
	rt.Set(loc+1, arg)
	return App(loc)
}

func TestWnfIdentityApplication(t *testing.T) {
	rt := testRuntime()
	id := rt.Alloc(1)
	rt.Set(id, Var(id)) // λx.x
	root := rt.Alloc(1)
	rt.Set(root, mkApp2(rt, Lam(id), W32(42)))

	be.Equal(t, rt.Wnf(root), W32(42))
	be.Equal(t, rt.Interactions(), uint64(1))
}

func TestWnfDuplicatedArgument(t *testing.T) {
	// (λx. x+x) 21 reduces to 42 through one dup cell.
	rt := testRuntime()
	binder := rt.Alloc(1)
	dc := rt.Alloc(1)
	rt.Set(dc, Var(binder))
	op := rt.Alloc(2)
	rt.Set(op, Dp0(1, dc))
	rt.Set(op+1, Dp1(1, dc))
	rt.Set(binder, Op2(OpAdd, op))

	root := rt.Alloc(1)
	rt.Set(root, mkApp2(rt, Lam(binder), W32(21)))
	be.Equal(t, rt.Wnf(root), W32(42))
}

func TestWnfDupChainThreeUses(t *testing.T) {
	// (λx. x+x+x) 1: a two-cell chain hands out three projections.
	rt := testRuntime()
	binder := rt.Alloc(1)
	d1 := rt.Alloc(1)
	rt.Set(d1, Var(binder))
	d2 := rt.Alloc(1)
	rt.Set(d2, Dp1(1, d1))

	inner := rt.Alloc(2)
	rt.Set(inner, Dp0(1, d1))
	rt.Set(inner+1, Dp0(2, d2))
	outer := rt.Alloc(2)
	rt.Set(outer, Op2(OpAdd, inner))
	rt.Set(outer+1, Dp1(2, d2))
	rt.Set(binder, Op2(OpAdd, outer))

	root := rt.Alloc(1)
	rt.Set(root, mkApp2(rt, Lam(binder), W32(1)))
	be.Equal(t, rt.Wnf(root), W32(3))
}

func TestWnfLazyArgumentUntouched(t *testing.T) {
	// (λx.7) applied to a diverging-looking redex never reduces it.
	rt := testRuntime()
	binder := rt.Alloc(1)
	rt.Set(binder, W32(7))

	// A stuck application as argument.
	stuck := rt.Alloc(2)
	rt.Set(stuck, Era())
	rt.Set(stuck+1, W32(0))

	root := rt.Alloc(1)
	rt.Set(root, mkApp2(rt, Lam(binder), App(stuck)))
	before := rt.Interactions()
	be.Equal(t, rt.Wnf(root), W32(7))
	// Only the beta step fired.
	be.Equal(t, rt.Interactions(), before+1)
}

func TestDupSupSameLabelTakesSides(t *testing.T) {
	rt := testRuntime()
	sp := rt.Alloc(2)
	rt.Set(sp, W32(1))
	rt.Set(sp+1, W32(2))
	dc := rt.Alloc(1)
	rt.Set(dc, Sup(5, sp))

	a := rt.Alloc(1)
	rt.Set(a, Dp0(5, dc))
	b := rt.Alloc(1)
	rt.Set(b, Dp1(5, dc))

	be.Equal(t, rt.Wnf(a), W32(1))
	be.Equal(t, rt.Wnf(b), W32(2))
}

func TestDupSupDifferentLabelCommutes(t *testing.T) {
	rt := testRuntime()
	sp := rt.Alloc(2)
	rt.Set(sp, W32(1))
	rt.Set(sp+1, W32(2))
	dc := rt.Alloc(1)
	rt.Set(dc, Sup(5, sp))

	a := rt.Alloc(1)
	rt.Set(a, Dp0(9, dc))
	got := rt.Wnf(a)
	be.Equal(t, got.Tag(), TagSup)
	be.Equal(t, got.Ext(), uint32(5))
}

func TestMatWordSwitch(t *testing.T) {
	rt := testRuntime()

	zero := rt.Alloc(3)
	rt.Set(zero, W32(0))
	rt.Set(zero+1, W32(10))
	rt.Set(zero+2, Era())
	r0 := rt.Alloc(1)
	rt.Set(r0, Mat(2, zero))
	be.Equal(t, rt.Wnf(r0), W32(10))

	// Nonzero applies the second arm to value-1.
	succ := rt.Alloc(1)
	rt.Set(succ, Var(succ)) // λn.n
	nz := rt.Alloc(3)
	rt.Set(nz, W32(3))
	rt.Set(nz+1, Era())
	rt.Set(nz+2, Lam(succ))
	r1 := rt.Alloc(1)
	rt.Set(r1, Mat(2, nz))
	be.Equal(t, rt.Wnf(r1), W32(2))
}

func TestMatConstructorSelectsByIndex(t *testing.T) {
	rt := testRuntime()

	// match Con(h, t) with [nil-arm, λh.λt.h]
	fields := rt.Alloc(2)
	rt.Set(fields, W32(11))
	rt.Set(fields+1, Ctr(ExtNil, 0))

	lh := rt.Alloc(1)
	lt := rt.Alloc(1)
	rt.Set(lh, Lam(lt))
	rt.Set(lt, Var(lh))

	m := rt.Alloc(3)
	rt.Set(m, Ctr(ExtCon, fields))
	rt.Set(m+1, W32(99))
	rt.Set(m+2, Lam(lh))
	root := rt.Alloc(1)
	rt.Set(root, Mat(2, m))
	be.Equal(t, rt.Wnf(root), W32(11))
}

func TestMatUnknownConstructorStuck(t *testing.T) {
	rt := testRuntime()
	m := rt.Alloc(2)
	rt.Set(m, Ctr(ExtSom, 0)) // index 1, but only 1 arm
	rt.Set(m+1, W32(5))
	root := rt.Alloc(1)
	rt.Set(root, Mat(1, m))
	got := rt.Wnf(root)
	be.Equal(t, got.Tag(), TagMat)
}

// word reinterprets a signed value as a heap word.
func word(n int32) uint32 { return uint32(n) }

func TestOp2WordSemantics(t *testing.T) {
	be.Equal(t, op2Word(OpAdd, 0xFFFFFFFF, 1), W32(0)) // wraps
	be.Equal(t, op2Word(OpSub, 3, 5), W32(word(-2)))
	be.Equal(t, op2Word(OpMul, 6, 7), W32(42))
	be.Equal(t, op2Word(OpDiv, word(-6), 3), W32(word(-2)))
	// Signed comparison: -1 < 1.
	be.Equal(t, op2Word(OpLtn, word(-1), 1), Bol(true))
	be.Equal(t, op2Word(OpLtn, 1, word(-1)), Bol(false))
	be.Equal(t, op2Word(OpEql, 4, 4), Bol(true))
	be.Equal(t, op2Word(OpNeq, 4, 4), Bol(false))
}

func TestOp2KindedBooleanMarker(t *testing.T) {
	be.Equal(t, op2Kinded(OpEql, Bol(true), W32(1)), Bol(false))
	be.Equal(t, op2Kinded(OpNeq, Bol(true), W32(1)), Bol(true))
	be.Equal(t, op2Kinded(OpEql, Bol(true), Bol(true)), Bol(true))
	be.Equal(t, op2Kinded(OpEql, Bol(false), Bol(true)), Bol(false))
	be.Equal(t, op2Kinded(OpEql, W32(1), W32(1)), Bol(true))

	defer func() {
		be.Equal[any](t, recover(), ErrBadOperand)
	}()
	op2Kinded(OpLtn, Bol(true), W32(2))
}

func TestOp2DivByZeroPanics(t *testing.T) {
	defer func() {
		be.Equal[any](t, recover(), ErrDivByZero)
	}()
	op2Word(OpDiv, 1, 0)
}

func TestOp2BigArithmeticPanics(t *testing.T) {
	rt := testRuntime()
	big := rt.EncodeInt(1 << 40)
	op := rt.Alloc(2)
	rt.Set(op, big)
	rt.Set(op+1, W32(1))
	root := rt.Alloc(1)
	rt.Set(root, Op2(OpAdd, op))

	defer func() {
		be.Equal[any](t, recover(), ErrBigArith)
	}()
	rt.Wnf(root)
}

func TestOp2ComparisonAcrossEncodings(t *testing.T) {
	rt := testRuntime()
	cases := []struct {
		a, b int64
		want bool
	}{
		{-5_000_000_000, 1, true},
		{1, 5_000_000_000, true},
		{5_000_000_000, 1, false},
		{-5_000_000_000, -6_000_000_000, false},
		{5_000_000_000, 6_000_000_000, true},
	}
	for _, tc := range cases {
		op := rt.Alloc(2)
		rt.Set(op, rt.EncodeInt(tc.a))
		rt.Set(op+1, rt.EncodeInt(tc.b))
		root := rt.Alloc(1)
		rt.Set(root, Op2(OpLtn, op))
		be.Equal(t, rt.Wnf(root), Bol(tc.want))
	}
}

func TestNormalReducesListElements(t *testing.T) {
	rt := testRuntime()
	op := rt.Alloc(2)
	rt.Set(op, W32(20))
	rt.Set(op+1, W32(22))
	lst := rt.EncodeList([]Term{Op2(OpAdd, op)})
	root := rt.Alloc(1)
	rt.Set(root, lst)

	rt.Normal(root)
	spine := rt.At(lst.Val() + 1)
	be.Equal(t, rt.At(spine.Val()), W32(42))
}

func TestResetWipesArena(t *testing.T) {
	rt := testRuntime()
	loc := rt.Alloc(3)
	rt.Set(loc, W32(1))
	be.True(t, rt.HeapUsed() > 0)

	rt.Reset()
	be.Equal(t, rt.HeapUsed(), uint32(0))
	be.Equal(t, rt.At(loc), Term(0))
}

func TestAllocOverflowPanics(t *testing.T) {
	rt := NewRuntimeSize(16, 16)
	defer func() {
		be.Equal[any](t, recover(), ErrHeapOverflow)
	}()
	rt.Alloc(1 << 20)
}

func TestDumpTerm(t *testing.T) {
	rt := testRuntime()

	id := rt.Alloc(1)
	rt.Set(id, Var(id))
	app := rt.Alloc(2)
	rt.Set(app, Lam(id))
	rt.Set(app+1, W32(5))
	root := rt.Alloc(1)
	rt.Set(root, App(app))

	dump := rt.DumpTerm(root)
	be.True(t, strings.Contains(dump, "λ"))
	be.True(t, strings.Contains(dump, "W32:5"))

	som := rt.Alloc(1)
	rt.Set(som, Bol(true))
	rt.Set(root, Ctr(ExtSom, som))
	be.Equal(t, rt.DumpTerm(root), "(Som BOL:1)")
}

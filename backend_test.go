package netix

import (
	"testing"

	"deedles.dev/xiter"
	"github.com/nalgeon/be"
)

func testBackend(t *testing.T) *Backend {
	t.Helper()
	return NewSize(NewSymbolTable(), 1<<16, 1<<10)
}

func TestTryEvaluateScalar(t *testing.T) {
	bk := testBackend(t)
	var out Value
	be.True(t, bk.TryEvaluate(eInt(42), &out))
	be.Equal(t, out.Kind, VInt)
	be.Equal(t, out.Int, 42)
}

func TestTryEvaluateListElements(t *testing.T) {
	bk := testBackend(t)
	var out Value
	be.True(t, bk.TryEvaluate(eList(eInt(1), eInt(2), eInt(3)), &out))
	be.Equal(t, out.Kind, VList)
	be.Equal(t, len(out.List), 3)
	for i, e := range xiter.Enumerate(out.All()) {
		be.Equal(t, e.Kind, VInt)
		be.Equal(t, e.Int, int64(i+1))
	}
}

func TestTryEvaluateAttrLookup(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()
	a, b := syms.Intern("a"), syms.Intern("b")

	var out Value
	be.True(t, bk.TryEvaluate(eAttrs(eDef(b, eStr("x")), eDef(a, eInt(7))), &out))
	be.Equal(t, out.Kind, VAttrs)

	va, okA := out.Attr(a)
	be.True(t, okA)
	be.Equal(t, va.Int, 7)
	vb, okB := out.Attr(b)
	be.True(t, okB)
	be.Equal(t, vb.Str, "x")
	// Canonical order is by name, regardless of source order.
	be.Equal(t, out.Attrs[0].Name, a)
}

func TestTryEvaluateRejectsOutsideFragment(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()

	var out Value
	ok := bk.TryEvaluate(eVar(syms.Intern("unbound")), &out)
	be.True(t, !ok)

	st := bk.Stats()
	be.Equal(t, st.Fallbacks, 1)
	be.Equal(t, st.Compilations, 0)
}

func TestTryEvaluateFaultLeavesOutUntouched(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()

	out := Value{Kind: VInt, Int: 99}
	boom := eCall(eVar(syms.Intern("__div")), eInt(1), eInt(0))
	be.True(t, !bk.TryEvaluate(boom, &out))
	be.Equal(t, out.Kind, VInt)
	be.Equal(t, out.Int, 99)

	st := bk.Stats()
	be.Equal(t, st.Fallbacks, 1)
	be.Equal(t, st.Compilations, 1)
}

func TestTryEvaluateStuckTermFallsBack(t *testing.T) {
	bk := testBackend(t)
	// An application of a non-function normalizes to a stuck term,
	// which the extractor refuses.
	expr := eCall(eInt(1), eInt(2))
	var out Value
	be.True(t, !bk.TryEvaluate(expr, &out))
	be.Equal(t, bk.Stats().Fallbacks, 1)
}

func TestStatsAccumulate(t *testing.T) {
	bk := testBackend(t)
	var out Value
	be.True(t, bk.TryEvaluate(eAdd(eInt(1), eInt(2)), &out))
	be.Equal(t, out.Int, 3)

	st := bk.Stats()
	be.Equal(t, st.Compilations, 1)
	be.Equal(t, st.Evaluations, 1)
	be.Equal(t, st.Fallbacks, 0)
	be.True(t, st.Interactions > 0)
	be.True(t, st.HeapWords > 0)
}

func TestBackendReusableAcrossEvaluations(t *testing.T) {
	bk := testBackend(t)
	var out Value
	be.True(t, bk.TryEvaluate(eInt(1), &out))
	be.Equal(t, out.Int, 1)
	be.True(t, bk.TryEvaluate(eStr("again"), &out))
	be.Equal(t, out.Kind, VString)
	be.Equal(t, out.Str, "again")
	be.Equal(t, bk.Stats().Evaluations, 2)
}

func TestTryEvaluateSharedWideIntComparison(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()
	x := syms.Intern("x")
	lt := syms.Intern("__lessThan")

	// Both list elements compare the same wide binding, so the
	// constructor is duplicated; its magnitude fields must survive
	// the sharing.
	cmp := func() *Expr { return eCall(eVar(lt), eVar(x), eInt(6_000_000_000)) }
	expr := eLet([]AttrDef{eDef(x, eInt(5_000_000_000))}, eList(cmp(), cmp()))

	var out Value
	be.True(t, bk.TryEvaluate(expr, &out))
	be.Equal(t, out.Kind, VList)
	be.Equal(t, len(out.List), 2)
	for _, e := range out.List {
		be.Equal(t, e.Kind, VBool)
		be.True(t, e.Bool)
	}
}

func TestTryEvaluateSharedStringEquality(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()
	s := syms.Intern("s")

	eq := func() *Expr { return eBin(ExOpEq, eVar(s), eStr("x")) }
	expr := eLet([]AttrDef{eDef(s, eStr("x"))}, eList(eq(), eq()))

	var out Value
	be.True(t, bk.TryEvaluate(expr, &out))
	be.Equal(t, out.Kind, VList)
	be.Equal(t, len(out.List), 2)
	for _, e := range out.List {
		be.Equal(t, e.Kind, VBool)
		be.True(t, e.Bool)
	}
}

func TestTryEvaluateOrArms(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()
	tru := func() *Expr { return eVar(syms.Intern("true")) }
	fls := func() *Expr { return eVar(syms.Intern("false")) }

	var out Value
	be.True(t, bk.TryEvaluate(eBin(ExOpOr, tru(), fls()), &out))
	be.Equal(t, out.Kind, VBool)
	be.True(t, out.Bool)
	be.True(t, bk.TryEvaluate(eBin(ExOpOr, fls(), tru()), &out))
	be.True(t, out.Bool)
	be.True(t, bk.TryEvaluate(eBin(ExOpOr, fls(), fls()), &out))
	be.True(t, !out.Bool)
}

func TestTryEvaluateBoolNumberEquality(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()
	tru := syms.Intern("true")

	// A boolean and a number are different kinds, never equal.
	var out Value
	be.True(t, bk.TryEvaluate(eBin(ExOpEq, eVar(tru), eInt(1)), &out))
	be.Equal(t, out.Kind, VBool)
	be.True(t, !out.Bool)

	be.True(t, bk.TryEvaluate(eBin(ExOpNEq, eInt(1), eVar(tru)), &out))
	be.Equal(t, out.Kind, VBool)
	be.True(t, out.Bool)

	be.True(t, bk.TryEvaluate(eBin(ExOpEq, eVar(tru), eVar(tru)), &out))
	be.Equal(t, out.Kind, VBool)
	be.True(t, out.Bool)
}

func TestTryEvaluateBoolOrderingFallsBack(t *testing.T) {
	bk := testBackend(t)
	syms := bk.Symbols()

	expr := eCall(eVar(syms.Intern("__lessThan")), eVar(syms.Intern("true")), eInt(2))
	var out Value
	be.True(t, !bk.TryEvaluate(expr, &out))

	st := bk.Stats()
	be.Equal(t, st.Compilations, 1)
	be.Equal(t, st.Fallbacks, 1)
}

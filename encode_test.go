package netix

import (
	"math"
	"testing"

	"github.com/nalgeon/be"
)

func TestEncodeIntNativeRange(t *testing.T) {
	rt := testRuntime()
	for _, v := range []int64{0, 1, -1, math.MaxInt32, math.MinInt32} {
		term := rt.EncodeInt(v)
		be.Equal(t, term.Tag(), TagW32)
		got, ok := rt.DecodeInt(term)
		be.True(t, ok)
		be.Equal(t, got, v)
	}
}

func TestEncodeIntWideRange(t *testing.T) {
	rt := testRuntime()
	cases := []struct {
		v   int64
		ext uint32
	}{
		{math.MaxInt32 + 1, ExtPos},
		{math.MinInt32 - 1, ExtNeg},
		{math.MaxInt64, ExtPos},
		{math.MinInt64, ExtNeg},
		{5_000_000_000, ExtPos},
	}
	for _, tc := range cases {
		term := rt.EncodeInt(tc.v)
		be.Equal(t, term.Tag(), TagCtr)
		be.Equal(t, term.Ext(), tc.ext)
		got, ok := rt.DecodeInt(term)
		be.True(t, ok)
		be.Equal(t, got, tc.v)
	}
}

func TestEncodeIntBoolWordIsNotAnInt(t *testing.T) {
	rt := testRuntime()
	_, ok := rt.DecodeInt(Bol(true))
	be.True(t, !ok)
}

func TestEncodeFloatBitExact(t *testing.T) {
	rt := testRuntime()
	for _, f := range []float64{0, 1.5, -2.25, math.Inf(1), math.Inf(-1), math.SmallestNonzeroFloat64} {
		got, ok := rt.DecodeFloat(rt.EncodeFloat(f))
		be.True(t, ok)
		be.Equal(t, got, f)
	}
	// NaN keeps its payload bits.
	nan := math.Float64frombits(0x7FF800DEADBEEF01)
	got, ok := rt.DecodeFloat(rt.EncodeFloat(nan))
	be.True(t, ok)
	be.Equal(t, math.Float64bits(got), uint64(0x7FF800DEADBEEF01))
}

func TestEncodeStringInternAndFlatten(t *testing.T) {
	rt := testRuntime()
	strs := NewStringTable()

	a := rt.EncodeString(strs, "foo")
	b := rt.EncodeString(strs, "bar")
	cat := rt.EncodeCat(a, rt.EncodeCat(b, rt.EncodeI2S(W32(7))))

	got, ok := rt.FlattenString(strs, cat)
	be.True(t, ok)
	be.Equal(t, got, "foobar7")

	// Same content, same id.
	a2 := rt.EncodeString(strs, "foo")
	be.Equal(t, rt.At(a.Val()), rt.At(a2.Val()))
}

func TestEncodeListLengthAndSlots(t *testing.T) {
	rt := testRuntime()
	lst := rt.EncodeList([]Term{W32(1), W32(2), W32(3)})

	n, ok := rt.ListLength(lst)
	be.True(t, ok)
	be.Equal(t, n, uint32(3))

	slots, ok := rt.spineSlots(rt.At(lst.Val() + 1))
	be.True(t, ok)
	be.Equal(t, len(slots), 3)
	for i, slot := range slots {
		be.Equal(t, rt.At(slot), W32(uint32(i+1)))
	}
}

func TestEncodeAttrsSlots(t *testing.T) {
	rt := testRuntime()
	syms := NewSymbolTable()
	ka := syms.Intern("a")
	kb := syms.Intern("b")

	ats := rt.EncodeAttrs([]Term{
		rt.EncodeAtr(ka, W32(1)),
		rt.EncodeAtr(kb, W32(2)),
	})
	keys, slots, ok := rt.attrSlots(ats)
	be.True(t, ok)
	be.Equal(t, keys, []Sym{ka, kb})
	be.Equal(t, rt.At(slots[0]), W32(1))
	be.Equal(t, rt.At(slots[1]), W32(2))
}

func TestEncodePathRoundTrip(t *testing.T) {
	rt := testRuntime()
	strs := NewStringTable()
	accs := NewAccessorRegistry()

	term := rt.EncodePath(accs, strs, Accessor(3), "/etc/hosts")
	acc, path, ok := rt.DecodePath(accs, strs, term)
	be.True(t, ok)
	be.Equal(t, acc, Accessor(3))
	be.Equal(t, path, "/etc/hosts")
}

func TestStringEqualityByInternedID(t *testing.T) {
	rt := testRuntime()
	strs := NewStringTable()
	a := rt.EncodeString(strs, "same")
	b := rt.EncodeString(strs, "same")
	c := rt.EncodeString(strs, "other")

	res, ok := rt.op2Encoded(OpEql, a, b)
	be.True(t, ok)
	be.Equal(t, res, Bol(true))

	res, ok = rt.op2Encoded(OpNeq, a, c)
	be.True(t, ok)
	be.Equal(t, res, Bol(true))
}

package netix

import "math"

// Float encoding. A double's IEEE-754 bit pattern is split into two
// native words inside a 2-field constructor. The net has no float
// arithmetic; the capability analyzer rejects it, so these terms only
// ever flow from a literal straight to the extractor. Round-tripping
// is bit-exact, NaN payloads included.

// EncodeFloat builds the term for a 64-bit float.
func (rt *Runtime) EncodeFloat(f float64) Term {
	bits := math.Float64bits(f)
	loc := rt.Alloc(2)
	rt.heap[loc] = W32(uint32(bits))
	rt.heap[loc+1] = W32(uint32(bits >> 32))
	return Ctr(ExtFlt, loc)
}

// DecodeFloat reassembles a float from its constructor.
func (rt *Runtime) DecodeFloat(t Term) (float64, bool) {
	if t.Tag() != TagCtr || t.Ext() != ExtFlt {
		return 0, false
	}
	lo := rt.heap[t.Val()]
	hi := rt.heap[t.Val()+1]
	if lo.Tag() != TagW32 || hi.Tag() != TagW32 {
		return 0, false
	}
	return math.Float64frombits(uint64(hi.Val())<<32 | uint64(lo.Val())), true
}

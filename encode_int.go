package netix

import "math"

// Integer encoding. Values that fit a signed 32-bit range become
// native words, bit-reinterpreted; anything wider becomes a 2-field
// constructor (Pos or Neg) holding the 64-bit magnitude split into
// two words. The encoder is canonical: a value in native range is
// never wrapped in a constructor, so equality of encodings is
// equality of values.

// EncodeInt builds the term for a signed 64-bit integer.
func (rt *Runtime) EncodeInt(v int64) Term {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return W32(uint32(int32(v)))
	}
	var mag uint64
	ext := ExtPos
	if v < 0 {
		ext = ExtNeg
		// Two's complement negation; correct for MinInt64 as well.
		mag = -uint64(v)
	} else {
		mag = uint64(v)
	}
	loc := rt.Alloc(2)
	rt.heap[loc] = W32(uint32(mag))
	rt.heap[loc+1] = W32(uint32(mag >> 32))
	return Ctr(ext, loc)
}

// DecodeInt reads an integer back out of a fully reduced term.
func (rt *Runtime) DecodeInt(t Term) (int64, bool) {
	switch {
	case t.Tag() == TagW32 && t.Ext() != ExtBool:
		return int64(int32(t.Val())), true
	case t.Tag() == TagCtr && (t.Ext() == ExtPos || t.Ext() == ExtNeg):
		// Duplicated constructors carry projection words in their
		// field slots until someone forces them.
		lo := rt.Wnf(t.Val())
		hi := rt.Wnf(t.Val() + 1)
		if lo.Tag() != TagW32 || hi.Tag() != TagW32 {
			return 0, false
		}
		mag := uint64(hi.Val())<<32 | uint64(lo.Val())
		if t.Ext() == ExtNeg {
			return -int64(mag), true
		}
		return int64(mag), true
	}
	return 0, false
}

// intCategory orders the three integer encodings:
// Neg{} < any native word < Pos{}.
func intCategory(t Term) (cat int, ok bool) {
	switch {
	case t.Tag() == TagCtr && t.Ext() == ExtNeg:
		return 0, true
	case t.Tag() == TagW32 && t.Ext() != ExtBool:
		return 1, true
	case t.Tag() == TagCtr && t.Ext() == ExtPos:
		return 2, true
	}
	return 0, false
}

func (rt *Runtime) magnitude(t Term) uint64 {
	// Force both field slots: a shared wide integer reaches here with
	// projection words in its fields, not the magnitude halves.
	lo := rt.Wnf(t.Val())
	hi := rt.Wnf(t.Val() + 1)
	return uint64(hi.Val())<<32 | uint64(lo.Val())
}

// op2Encoded resolves comparison opcodes whose operands reach beyond
// two native words: every pairing of {Neg, word, Pos}, interned
// strings, booleans, and null. The bool result says whether the
// pairing is defined; undefined pairings are the caller's problem.
func (rt *Runtime) op2Encoded(op uint32, a, b Term) (Term, bool) {
	// Interned strings compare by table id.
	if a.Tag() == TagCtr && a.Ext() == ExtStr && b.Tag() == TagCtr && b.Ext() == ExtStr {
		ida := rt.Wnf(a.Val())
		idb := rt.Wnf(b.Val())
		switch op {
		case OpEql:
			return Bol(ida.Val() == idb.Val()), true
		case OpNeq:
			return Bol(ida.Val() != idb.Val()), true
		}
		return Era(), false
	}

	if a.Tag() == TagCtr && a.Ext() == ExtNul && b.Tag() == TagCtr && b.Ext() == ExtNul {
		switch op {
		case OpEql:
			return Bol(true), true
		case OpNeq:
			return Bol(false), true
		}
		return Era(), false
	}

	ca, okA := intCategory(a)
	cb, okB := intCategory(b)
	if !okA || !okB {
		return Era(), false
	}

	switch op {
	case OpLtn:
		if ca != cb {
			return Bol(ca < cb), true
		}
		switch ca {
		case 0: // both negative magnitudes: larger magnitude is smaller
			return Bol(rt.magnitude(a) > rt.magnitude(b)), true
		case 1:
			return op2Word(op, a.Val(), b.Val()), true
		case 2:
			return Bol(rt.magnitude(a) < rt.magnitude(b)), true
		}
	case OpEql:
		if ca != cb {
			return Bol(false), true
		}
		if ca == 1 {
			return Bol(a.Val() == b.Val()), true
		}
		return Bol(rt.magnitude(a) == rt.magnitude(b)), true
	case OpNeq:
		if ca != cb {
			return Bol(true), true
		}
		if ca == 1 {
			return Bol(a.Val() != b.Val()), true
		}
		return Bol(rt.magnitude(a) != rt.magnitude(b)), true
	}
	return Era(), false
}

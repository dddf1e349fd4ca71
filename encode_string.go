package netix

import "strconv"

// String encoding. Literal content is interned once into the string
// table and referenced by id from a 1-field Str constructor.
// Concatenation with a non-constant operand builds a lazy 2-field Cat
// node, and integer-to-string coercion builds a 1-field I2S wrapper;
// both are resolved only during result extraction by a recursive
// flattening walk.

// EncodeString interns content and builds its Str term.
func (rt *Runtime) EncodeString(strings *StringTable, s string) Term {
	id := strings.Intern(s)
	loc := rt.Alloc(1)
	rt.heap[loc] = W32(id)
	return Ctr(ExtStr, loc)
}

// EncodeCat chains two string-ish terms into a lazy concatenation.
func (rt *Runtime) EncodeCat(a, b Term) Term {
	loc := rt.Alloc(2)
	rt.heap[loc] = a
	rt.heap[loc+1] = b
	return Ctr(ExtCat, loc)
}

// EncodeI2S wraps a numeric term for coercion at extraction time.
func (rt *Runtime) EncodeI2S(n Term) Term {
	loc := rt.Alloc(1)
	rt.heap[loc] = n
	return Ctr(ExtI2S, loc)
}

// FlattenString resolves a reduced string-ish term to its content.
// Bare numeric terms coerce to their decimal form, matching the lax
// coercion the I2S wrapper implies.
func (rt *Runtime) FlattenString(strings *StringTable, t Term) (string, bool) {
	switch {
	case t.Tag() == TagCtr && t.Ext() == ExtStr:
		id := rt.heap[t.Val()]
		if id.Tag() != TagW32 {
			return "", false
		}
		s, ok := strings.Lookup(id.Val())
		return s, ok
	case t.Tag() == TagCtr && t.Ext() == ExtCat:
		a, ok := rt.FlattenString(strings, rt.heap[t.Val()])
		if !ok {
			return "", false
		}
		b, ok := rt.FlattenString(strings, rt.heap[t.Val()+1])
		if !ok {
			return "", false
		}
		return a + b, true
	case t.Tag() == TagCtr && t.Ext() == ExtI2S:
		return rt.FlattenString(strings, rt.heap[t.Val()])
	default:
		if n, ok := rt.DecodeInt(t); ok {
			return strconv.FormatInt(n, 10), true
		}
		return "", false
	}
}

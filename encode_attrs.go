package netix

// Attribute-set encoding. Ats{spine} wraps a spine of Atr{key, value}
// cells kept in ascending canonical key order; the wrapper exists so
// match and extraction code can recognize an attribute set without
// inspecting the spine. Keys are symbol ids stored as native words.

// EncodeAtr builds one attribute pair.
func (rt *Runtime) EncodeAtr(key Sym, value Term) Term {
	loc := rt.Alloc(2)
	rt.heap[loc] = W32(uint32(key))
	rt.heap[loc+1] = value
	return Ctr(ExtAtr, loc)
}

// EncodeAttrs wraps already-sorted attribute pairs into an Ats term.
func (rt *Runtime) EncodeAttrs(pairs []Term) Term {
	spine := rt.EncodeNil()
	for i := len(pairs) - 1; i >= 0; i-- {
		spine = rt.EncodeCon(pairs[i], spine)
	}
	loc := rt.Alloc(1)
	rt.heap[loc] = spine
	return Ctr(ExtAts, loc)
}

// attrSlots walks a reduced Ats spine and returns, per attribute, the
// key symbol and the heap slot of its value.
func (rt *Runtime) attrSlots(t Term) (keys []Sym, slots []uint32, ok bool) {
	if t.Tag() != TagCtr || t.Ext() != ExtAts {
		return nil, nil, false
	}
	spine := rt.Wnf(t.Val())
	cells, ok := rt.spineSlots(spine)
	if !ok {
		return nil, nil, false
	}
	for _, cell := range cells {
		atr := rt.Wnf(cell)
		if atr.Tag() != TagCtr || atr.Ext() != ExtAtr {
			return nil, nil, false
		}
		key := rt.Wnf(atr.Val())
		if key.Tag() != TagW32 {
			return nil, nil, false
		}
		keys = append(keys, Sym(key.Val()))
		slots = append(slots, atr.Val()+1)
	}
	return keys, slots, true
}

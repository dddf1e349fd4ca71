package netix

// List encoding. Lst{length, spine} caches the element count for O(1)
// length queries; the spine is the usual Nil/Con cons chain. Spine
// operations share element terms and only rebuild cons cells.

// EncodeNil builds the empty spine.
func (rt *Runtime) EncodeNil() Term {
	return Ctr(ExtNil, 0)
}

// EncodeCon prepends head onto a spine.
func (rt *Runtime) EncodeCon(head, tail Term) Term {
	loc := rt.Alloc(2)
	rt.heap[loc] = head
	rt.heap[loc+1] = tail
	return Ctr(ExtCon, loc)
}

// EncodeList wraps element terms into a Lst with its cached length.
// The spine is built back to front so elements keep source order.
func (rt *Runtime) EncodeList(elems []Term) Term {
	spine := rt.EncodeNil()
	for i := len(elems) - 1; i >= 0; i-- {
		spine = rt.EncodeCon(elems[i], spine)
	}
	loc := rt.Alloc(2)
	rt.heap[loc] = W32(uint32(len(elems)))
	rt.heap[loc+1] = spine
	return Ctr(ExtLst, loc)
}

// ListLength reads the cached length of a reduced Lst term.
func (rt *Runtime) ListLength(t Term) (uint32, bool) {
	if t.Tag() != TagCtr || t.Ext() != ExtLst {
		return 0, false
	}
	n := rt.heap[t.Val()]
	if n.Tag() != TagW32 {
		return 0, false
	}
	return n.Val(), true
}

// spineSlots walks a reduced spine and returns the heap slot of each
// element, in order. Used by the extractor, which re-normalizes each
// element slot individually.
func (rt *Runtime) spineSlots(t Term) ([]uint32, bool) {
	var slots []uint32
	for {
		switch {
		case t.Tag() == TagCtr && t.Ext() == ExtNil:
			return slots, true
		case t.Tag() == TagCtr && t.Ext() == ExtCon:
			slots = append(slots, t.Val())
			t = rt.Wnf(t.Val() + 1)
		default:
			return nil, false
		}
	}
}

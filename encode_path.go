package netix

// Path encoding. Pth{accessor id, path string id} carries two interned
// ids resolved through the backend's side tables. No filesystem access
// happens during compilation or reduction; the accessor identity is
// only resolved back to the host at extraction time.

// EncodePath interns the accessor and path text and builds the term.
func (rt *Runtime) EncodePath(accs *AccessorRegistry, strings *StringTable, acc Accessor, path string) Term {
	loc := rt.Alloc(2)
	rt.heap[loc] = W32(accs.Intern(acc))
	rt.heap[loc+1] = W32(strings.Intern(path))
	return Ctr(ExtPth, loc)
}

// DecodePath resolves a reduced path term through the registries.
func (rt *Runtime) DecodePath(accs *AccessorRegistry, strings *StringTable, t Term) (Accessor, string, bool) {
	if t.Tag() != TagCtr || t.Ext() != ExtPth {
		return 0, "", false
	}
	accID := rt.heap[t.Val()]
	pathID := rt.heap[t.Val()+1]
	if accID.Tag() != TagW32 || pathID.Tag() != TagW32 {
		return 0, "", false
	}
	acc, ok := accs.Lookup(accID.Val())
	if !ok {
		return 0, "", false
	}
	path, ok := strings.Lookup(pathID.Val())
	if !ok {
		return 0, "", false
	}
	return acc, path, true
}

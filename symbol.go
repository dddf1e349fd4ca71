package netix

import (
	"sync"
	"sync/atomic"

	"deedles.dev/xsync"
)

// Sym is an interned identifier. Symbols are handed out by a
// SymbolTable and double as the attribute keys stored in Atr nodes.
type Sym uint32

// SymbolTable interns identifier names to stable small ids. Ids are
// append-only: once assigned, an id never changes and never aliases a
// different name. The table is safe for concurrent use; everything
// else in this package is single-owner.
type SymbolTable struct {
	ids   xsync.Map[string, Sym]
	names xsync.Map[Sym, string]
	next  atomic.Uint32
	mu    sync.Mutex
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// Intern returns the id for name, assigning a fresh one on first use.
func (st *SymbolTable) Intern(name string) Sym {
	if id, ok := st.ids.Load(name); ok {
		return id
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.ids.Load(name); ok {
		return id
	}
	id := Sym(st.next.Add(1))
	st.ids.Store(name, id)
	st.names.Store(id, name)
	return id
}

// Name returns the string a symbol was interned from.
func (st *SymbolTable) Name(s Sym) string {
	name, _ := st.names.Load(s)
	return name
}

// StringTable interns string content for Str constructor nodes. It
// lives for the backend's whole lifetime, unlike the heap, so string
// ids stay valid across Reset calls.
type StringTable struct {
	ids  xsync.Map[string, uint32]
	strs xsync.Map[uint32, string]
	next atomic.Uint32
	mu   sync.Mutex
}

func NewStringTable() *StringTable {
	return &StringTable{}
}

func (t *StringTable) Intern(s string) uint32 {
	if id, ok := t.ids.Load(s); ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids.Load(s); ok {
		return id
	}
	id := t.next.Add(1)
	t.ids.Store(s, id)
	t.strs.Store(id, s)
	return id
}

// Lookup resolves an id back to its content.
func (t *StringTable) Lookup(id uint32) (string, bool) {
	return t.strs.Load(id)
}

// Accessor is an opaque host identity for a filesystem root. The core
// never touches the filesystem; it only threads accessor identities
// through path terms.
type Accessor uint32

// AccessorRegistry interns accessor identities, mirroring StringTable.
type AccessorRegistry struct {
	ids  xsync.Map[Accessor, uint32]
	accs xsync.Map[uint32, Accessor]
	next atomic.Uint32
	mu   sync.Mutex
}

func NewAccessorRegistry() *AccessorRegistry {
	return &AccessorRegistry{}
}

func (r *AccessorRegistry) Intern(a Accessor) uint32 {
	if id, ok := r.ids.Load(a); ok {
		return id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids.Load(a); ok {
		return id
	}
	id := r.next.Add(1)
	r.ids.Store(a, id)
	r.accs.Store(id, a)
	return id
}

func (r *AccessorRegistry) Lookup(id uint32) (Accessor, bool) {
	return r.accs.Load(id)
}

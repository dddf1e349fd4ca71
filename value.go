package netix

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Value is the host-side result sink. The extractor populates one of
// these; nothing in a Value aliases the AST, the heap, or host thunks.
type Value struct {
	Kind ValueKind

	Int   int64
	Float float64
	Bool  bool
	Str   string

	Acc  Accessor // VPath
	Path string   // VPath

	List  []*Value
	Attrs []AttrValue // ascending canonical key order
}

// AttrValue is one extracted attribute.
type AttrValue struct {
	Name  Sym
	Value *Value
}

// ValueKind enumerates host value kinds the extractor can produce.
type ValueKind int

const (
	VNull ValueKind = iota
	VInt
	VFloat
	VBool
	VString
	VPath
	VList
	VAttrs
)

// All iterates the elements of a list value in order.
func (v *Value) All() iter.Seq[*Value] {
	return func(yield func(*Value) bool) {
		for _, e := range v.List {
			if !yield(e) {
				return
			}
		}
	}
}

// Attr returns the named attribute's value, if present. Attribute
// order is canonical by name string, not by symbol id, so this is a
// scan rather than a binary search.
func (v *Value) Attr(name Sym) (*Value, bool) {
	for _, a := range v.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Show renders a value in the configuration language's own syntax,
// resolving symbols through the given table. Used by tests and the
// Markdown corpus assertions.
func (v *Value) Show(syms *SymbolTable) string {
	var sb strings.Builder
	v.show(syms, &sb)
	return sb.String()
}

func (v *Value) show(syms *SymbolTable, sb *strings.Builder) {
	switch v.Kind {
	case VNull:
		sb.WriteString("null")
	case VInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case VFloat:
		fmt.Fprintf(sb, "%g", v.Float)
	case VBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case VString:
		sb.WriteString(strconv.Quote(v.Str))
	case VPath:
		sb.WriteString(v.Path)
	case VList:
		sb.WriteString("[")
		for e := range v.All() {
			sb.WriteString(" ")
			e.show(syms, sb)
		}
		sb.WriteString(" ]")
	case VAttrs:
		sb.WriteString("{ ")
		for _, a := range v.Attrs {
			sb.WriteString(syms.Name(a.Name))
			sb.WriteString(" = ")
			a.Value.show(syms, sb)
			sb.WriteString("; ")
		}
		sb.WriteString("}")
	}
}

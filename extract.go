package netix

import (
	"errors"
	"fmt"
	"sort"
)

// errExtract covers every way a normalized result can fail to be a
// host value: stuck redexes, erased branches, bare runtime-internal
// constructors, or malformed encodings.
var errExtract = errors.New("netix: result is not a host value")

// extractor converts a normalized term graph into a host Value tree.
// It owns no state beyond the tables it resolves ids through.
type extractor struct {
	rt      *Runtime
	syms    *SymbolTable
	strings *StringTable
	accs    *AccessorRegistry
}

// canExtract reports whether a reduced term is in the extractable
// fragment. Lambdas, superpositions, erased values, and the Maybe and
// bare spine constructors are runtime-internal and never escape.
func canExtract(t Term) bool {
	switch t.Tag() {
	case TagW32:
		return true
	case TagCtr:
		switch t.Ext() {
		case ExtNul, ExtPos, ExtNeg, ExtFlt, ExtStr, ExtCat, ExtI2S, ExtLst, ExtAts, ExtPth:
			return true
		}
	}
	return false
}

// extract fills out from a normalized term. On error out may be
// partially written; the orchestrator extracts into a scratch Value
// and assigns to the caller's sink only on full success.
func (x *extractor) extract(t Term, out *Value) error {
	switch t.Tag() {
	case TagW32:
		if t.Ext() == ExtBool {
			out.Kind = VBool
			out.Bool = t.Val() != 0
		} else {
			out.Kind = VInt
			out.Int = int64(int32(t.Val()))
		}
		return nil

	case TagCtr:
		switch t.Ext() {
		case ExtNul:
			out.Kind = VNull
			return nil
		case ExtPos, ExtNeg:
			n, ok := x.rt.DecodeInt(t)
			if !ok {
				return fmt.Errorf("%w: malformed integer", errExtract)
			}
			out.Kind = VInt
			out.Int = n
			return nil
		case ExtFlt:
			f, ok := x.rt.DecodeFloat(t)
			if !ok {
				return fmt.Errorf("%w: malformed float", errExtract)
			}
			out.Kind = VFloat
			out.Float = f
			return nil
		case ExtStr, ExtCat, ExtI2S:
			s, ok := x.rt.FlattenString(x.strings, t)
			if !ok {
				return fmt.Errorf("%w: malformed string", errExtract)
			}
			out.Kind = VString
			out.Str = s
			return nil
		case ExtPth:
			acc, path, ok := x.rt.DecodePath(x.accs, x.strings, t)
			if !ok {
				return fmt.Errorf("%w: malformed path", errExtract)
			}
			out.Kind = VPath
			out.Acc = acc
			out.Path = path
			return nil
		case ExtLst:
			return x.extractList(t, out)
		case ExtAts:
			return x.extractAttrs(t, out)
		}
	}
	return fmt.Errorf("%w: %v", errExtract, t)
}

func (x *extractor) extractList(t Term, out *Value) error {
	length, ok := x.rt.ListLength(t)
	if !ok {
		return fmt.Errorf("%w: malformed list", errExtract)
	}
	spine := x.rt.Wnf(t.Val() + 1)
	slots, ok := x.rt.spineSlots(spine)
	if !ok {
		return fmt.Errorf("%w: malformed list spine", errExtract)
	}
	if uint32(len(slots)) != length {
		return fmt.Errorf("%w: list length %d, spine %d", errExtract, length, len(slots))
	}
	out.Kind = VList
	out.List = make([]*Value, len(slots))
	for i, slot := range slots {
		elem := x.rt.Normal(slot)
		v := new(Value)
		if err := x.extract(elem, v); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out.List[i] = v
	}
	return nil
}

func (x *extractor) extractAttrs(t Term, out *Value) error {
	keys, slots, ok := x.rt.attrSlots(t)
	if !ok {
		return fmt.Errorf("%w: malformed attrset", errExtract)
	}
	out.Kind = VAttrs
	out.Attrs = make([]AttrValue, len(keys))
	for i, key := range keys {
		val := x.rt.Normal(slots[i])
		v := new(Value)
		if err := x.extract(val, v); err != nil {
			return fmt.Errorf("attribute %s: %w", x.syms.Name(key), err)
		}
		out.Attrs[i] = AttrValue{Name: key, Value: v}
	}
	// The emitter writes spines in canonical order, but a merged or
	// runtime-built set is re-sorted here rather than trusted.
	sort.SliceStable(out.Attrs, func(i, j int) bool {
		return x.syms.Name(out.Attrs[i].Name) < x.syms.Name(out.Attrs[j].Name)
	})
	return nil
}

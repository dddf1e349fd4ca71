package netix

import "fmt"

// Term is a tagged 64-bit graph node reference.
//
// Bit layout:
//
//	bit  63     substitution marker
//	bits 56-62  node-kind tag (7 bits)
//	bits 32-55  extension field (24 bits): constructor id, dup label,
//	            opcode, or match arm count, depending on the tag
//	bits 0-31   value field: immediate payload or heap index
type Term uint64

const (
	subMarker = Term(1) << 63
	tagShift  = 56
	tagMask   = Term(0x7F) << tagShift
	extShift  = 32
	extMask   = Term(0xFFFFFF) << extShift
	valMask   = Term(0xFFFFFFFF)
)

// Node-kind tags.
const (
	TagNil Tag = iota // empty heap cell
	TagVar            // lambda-bound variable, val = binder cell
	TagDP0            // first dup projection, ext = label, val = dup cell
	TagDP1            // second dup projection
	TagEra            // erased value
	TagLam            // lambda, val = 1-slot node [body]
	TagApp            // application, val = 2-slot node [fun, arg]
	TagSup            // superposition, ext = label, val = 2-slot node
	TagCtr            // constructor, ext = ctor id, val = fields (arity from book)
	TagW32            // native 32-bit word, ext = 0 or ExtBool
	TagOp2            // binary operation, ext = opcode, val = 2-slot node
	TagMat            // pattern match, ext = arm count, val = [scrut, arms...]
)

// Tag identifies the node kind of a Term.
type Tag uint8

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "NIL"
	case TagVar:
		return "VAR"
	case TagDP0:
		return "DP0"
	case TagDP1:
		return "DP1"
	case TagEra:
		return "ERA"
	case TagLam:
		return "LAM"
	case TagApp:
		return "APP"
	case TagSup:
		return "SUP"
	case TagCtr:
		return "CTR"
	case TagW32:
		return "W32"
	case TagOp2:
		return "OP2"
	case TagMat:
		return "MAT"
	}
	return fmt.Sprintf("TAG%d", uint8(t))
}

// Opcodes for TagOp2 nodes. Arithmetic operates on 32-bit words only;
// comparisons additionally understand the big-integer constructors.
const (
	OpAdd uint32 = iota
	OpSub
	OpMul
	OpDiv
	OpLtn
	OpEql
	OpNeq
)

// NewTerm assembles a term from its fields.
func NewTerm(tag Tag, ext uint32, val uint32) Term {
	return Term(tag)<<tagShift | Term(ext)<<extShift&extMask | Term(val)
}

// Tag returns the node-kind tag, ignoring the substitution marker.
func (t Term) Tag() Tag { return Tag(t & tagMask >> tagShift) }

// Ext returns the 24-bit extension field.
func (t Term) Ext() uint32 { return uint32(t & extMask >> extShift) }

// Val returns the 32-bit value field.
func (t Term) Val() uint32 { return uint32(t & valMask) }

// Sub reports whether the substitution marker is set.
func (t Term) Sub() bool { return t&subMarker != 0 }

// WithSub returns the term with the substitution marker set.
func (t Term) WithSub() Term { return t | subMarker }

// ClearSub returns the term with the substitution marker cleared.
func (t Term) ClearSub() Term { return t &^ subMarker }

// Term constructors.

func Var(binder uint32) Term      { return NewTerm(TagVar, 0, binder) }
func Dp0(label, cell uint32) Term { return NewTerm(TagDP0, label, cell) }
func Dp1(label, cell uint32) Term { return NewTerm(TagDP1, label, cell) }
func Era() Term                   { return NewTerm(TagEra, 0, 0) }
func Lam(loc uint32) Term         { return NewTerm(TagLam, 0, loc) }
func App(loc uint32) Term         { return NewTerm(TagApp, 0, loc) }
func Sup(label, loc uint32) Term  { return NewTerm(TagSup, label, loc) }
func Ctr(ctor, loc uint32) Term   { return NewTerm(TagCtr, ctor, loc) }
func W32(val uint32) Term         { return NewTerm(TagW32, 0, val) }
func Op2(opcode, loc uint32) Term { return NewTerm(TagOp2, opcode, loc) }
func Mat(arms, loc uint32) Term   { return NewTerm(TagMat, arms, loc) }

// Bol builds a native word carrying the boolean marker in its ext field.
func Bol(b bool) Term {
	v := uint32(0)
	if b {
		v = 1
	}
	return NewTerm(TagW32, ExtBool, v)
}

func (t Term) String() string {
	sub := ""
	if t.Sub() {
		sub = "*"
	}
	switch t.Tag() {
	case TagW32:
		if t.Ext() == ExtBool {
			return fmt.Sprintf("%sBOL:%d", sub, t.Val())
		}
		return fmt.Sprintf("%sW32:%d", sub, int32(t.Val()))
	case TagCtr:
		return fmt.Sprintf("%sCTR:%s:%x", sub, ctorName(t.Ext()), t.Val())
	case TagOp2:
		return fmt.Sprintf("%sOP2:%d:%x", sub, t.Ext(), t.Val())
	default:
		return fmt.Sprintf("%s%s:%x:%x", sub, t.Tag(), t.Ext(), t.Val())
	}
}

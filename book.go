package netix

// Constructor ids live in the ext field of TagCtr terms. The range
// starts at 0x100000 so that no constructor id can collide with a
// value a native small integer comparison might produce.
const (
	ExtNul uint32 = 0x100000 + iota // null
	ExtPos                          // 64-bit positive magnitude {lo, hi}
	ExtNeg                          // 64-bit negative magnitude {lo, hi}
	ExtFlt                          // IEEE-754 double {lo, hi}
	ExtStr                          // interned string {id}
	ExtCat                          // lazy string concatenation {a, b}
	ExtI2S                          // integer-to-string coercion {n}
	ExtNil                          // empty list spine
	ExtCon                          // list spine cell {head, tail}
	ExtLst                          // list wrapper {length, spine}
	ExtAts                          // attribute set wrapper {spine}
	ExtAtr                          // attribute pair {key, value}
	ExtPth                          // path {accessor id, path string id}
	ExtNone                         // missing-attribute marker
	ExtSom                          // present-attribute wrapper {value}

	extCount = ExtSom - ExtNul + 1
)

// ExtBool marks a TagW32 word as a boolean rather than an integer.
// It shares the constructor range so a boolean word can never be
// confused with a plain numeric word by the extractor.
const ExtBool uint32 = 0x1FFFFF

// ctorInfo describes one constructor: its display name, the number of
// heap fields it owns, and its arm index within its ADT family. Match
// nodes use the index to select an arm for a constructor scrutinee.
type ctorInfo struct {
	Name  string
	Arity uint32
	Index uint32
}

// book is the runtime's constructor table. It is immutable and shared;
// the Runtime carries a reference so reduction can resolve arities and
// match indices without global state.
type book [extCount]ctorInfo

var defaultBook = book{
	ExtNul - ExtNul:  {Name: "Nul", Arity: 0, Index: 0},
	ExtPos - ExtNul:  {Name: "Pos", Arity: 2, Index: 0},
	ExtNeg - ExtNul:  {Name: "Neg", Arity: 2, Index: 1},
	ExtFlt - ExtNul:  {Name: "Flt", Arity: 2, Index: 0},
	ExtStr - ExtNul:  {Name: "Str", Arity: 1, Index: 0},
	ExtCat - ExtNul:  {Name: "Cat", Arity: 2, Index: 1},
	ExtI2S - ExtNul:  {Name: "I2S", Arity: 1, Index: 2},
	ExtNil - ExtNul:  {Name: "Nil", Arity: 0, Index: 0},
	ExtCon - ExtNul:  {Name: "Con", Arity: 2, Index: 1},
	ExtLst - ExtNul:  {Name: "Lst", Arity: 2, Index: 0},
	ExtAts - ExtNul:  {Name: "Ats", Arity: 1, Index: 0},
	ExtAtr - ExtNul:  {Name: "Atr", Arity: 2, Index: 0},
	ExtPth - ExtNul:  {Name: "Pth", Arity: 2, Index: 0},
	ExtNone - ExtNul: {Name: "None", Arity: 0, Index: 0},
	ExtSom - ExtNul:  {Name: "Som", Arity: 1, Index: 1},
}

func (b *book) info(ext uint32) ctorInfo {
	if ext < ExtNul || ext >= ExtNul+extCount {
		return ctorInfo{Name: "?", Arity: 0, Index: ^uint32(0)}
	}
	return b[ext-ExtNul]
}

func ctorName(ext uint32) string {
	return defaultBook.info(ext).Name
}

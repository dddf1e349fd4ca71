package netix

// Expr is the AST consumed from the host evaluator, modeled as a
// closed tagged variant: one struct, one Kind enum, exhaustive
// switches in the capability analyzer and the emitter. The parser
// producing these nodes is the host's business.
type Expr struct {
	Kind ExprKind

	Int   int64   // ExInt
	Float float64 // ExFloat
	Str   string  // ExString; path text for ExPath

	Acc Accessor // ExPath

	Name Sym // ExVar

	// ExConcatStrings. Force marks operands that came from string
	// interpolation syntax rather than a bare + chain.
	Force bool
	Parts []*Expr

	// ExAttrs (Rec distinguishes rec sets), ExLet.
	Rec   bool
	Attrs []AttrDef

	Elems []*Expr // ExList

	// ExLambda. Arg is the plain parameter or the @-binding of a
	// pattern lambda; zero means pattern-only.
	Arg      Sym
	Pattern  bool
	Formals  []Formal
	Ellipsis bool

	Fun  *Expr   // ExCall
	Args []*Expr // ExCall

	// ExSelect, ExHasAttr: Subject ? Path, with an optional default
	// for selection.
	Subject *Expr
	Path    []AttrName
	Default *Expr

	// Generic child slots: let/with/if/assert bodies, binary operands.
	A *Expr
	B *Expr
	C *Expr
}

// ExprKind enumerates the AST node kinds.
type ExprKind int

const (
	ExInt ExprKind = iota
	ExFloat
	ExString
	ExPath
	ExVar
	ExConcatStrings
	ExAttrs
	ExList
	ExLambda
	ExCall
	ExLet   // Attrs + A (body)
	ExWith  // A (set) + B (body)
	ExIf    // A, B, C
	ExAssert // A (cond) + B (body)
	ExSelect
	ExHasAttr
	ExOpUpdate      // A // B
	ExOpConcatLists // A ++ B
	ExOpEq
	ExOpNEq
	ExOpAnd
	ExOpOr
	ExOpImpl
	ExOpNot // A only
)

// AttrDef is one binding inside an attribute set or let. Inherited
// bindings take their value from the enclosing scope; inherit-from
// bindings select Name out of the From expression, which is compiled
// once per distinct From.
type AttrDef struct {
	Name      Sym
	Dynamic   *Expr // non-nil for computed names; always rejected
	Value     *Expr
	Inherited bool
	From      *Expr
}

// Formal is one destructured parameter of a pattern lambda.
type Formal struct {
	Name    Sym
	Default *Expr
}

// AttrName is one segment of an attribute path. A non-nil Dynamic
// marks a computed segment, which the analyzer rejects.
type AttrName struct {
	Sym     Sym
	Dynamic *Expr
}

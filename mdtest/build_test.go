package mdtest

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/netix-lang/netix"
)

func buildFrom(t *testing.T, input string) (*netix.Expr, *netix.SymbolTable) {
	t.Helper()
	n, err := Parse(input)
	be.Err(t, err, nil)
	syms := netix.NewSymbolTable()
	e, err := BuildExpr(n, syms)
	be.Err(t, err, nil)
	return e, syms
}

func TestBuildAtoms(t *testing.T) {
	e, _ := buildFrom(t, "42")
	be.Equal(t, e.Kind, netix.ExInt)
	be.Equal(t, e.Int, 42)

	e, _ = buildFrom(t, "2.5")
	be.Equal(t, e.Kind, netix.ExFloat)
	be.Equal(t, e.Float, 2.5)

	e, _ = buildFrom(t, `"text"`)
	be.Equal(t, e.Kind, netix.ExString)
	be.Equal(t, e.Str, "text")

	e, syms := buildFrom(t, "x")
	be.Equal(t, e.Kind, netix.ExVar)
	be.Equal(t, e.Name, syms.Intern("x"))
}

func TestBuildListAndAttrs(t *testing.T) {
	e, _ := buildFrom(t, "[1 2 3]")
	be.Equal(t, e.Kind, netix.ExList)
	be.Equal(t, len(e.Elems), 3)

	e, syms := buildFrom(t, `{a: 1, b: (inherit), c: (inherit-from src)}`)
	be.Equal(t, e.Kind, netix.ExAttrs)
	be.True(t, !e.Rec)
	be.Equal(t, len(e.Attrs), 3)
	be.Equal(t, e.Attrs[0].Name, syms.Intern("a"))
	be.True(t, e.Attrs[1].Inherited)
	be.True(t, e.Attrs[1].From == nil)
	be.True(t, e.Attrs[2].Inherited)
	be.Equal(t, e.Attrs[2].From.Kind, netix.ExVar)
}

func TestBuildRecAndLet(t *testing.T) {
	e, _ := buildFrom(t, "(rec {a: 1})")
	be.Equal(t, e.Kind, netix.ExAttrs)
	be.True(t, e.Rec)

	e, syms := buildFrom(t, "(let {x: 1} x)")
	be.Equal(t, e.Kind, netix.ExLet)
	be.Equal(t, e.Attrs[0].Name, syms.Intern("x"))
	be.Equal(t, e.A.Kind, netix.ExVar)
}

func TestBuildLambdas(t *testing.T) {
	e, syms := buildFrom(t, "(fn x x)")
	be.Equal(t, e.Kind, netix.ExLambda)
	be.True(t, !e.Pattern)
	be.Equal(t, e.Arg, syms.Intern("x"))

	e, syms = buildFrom(t, "(pat all {a: _, b: 2} ... a)")
	be.True(t, e.Pattern)
	be.Equal(t, e.Arg, syms.Intern("all"))
	be.True(t, e.Ellipsis)
	be.Equal(t, len(e.Formals), 2)
	be.True(t, e.Formals[0].Default == nil)
	be.Equal(t, e.Formals[1].Default.Kind, netix.ExInt)

	e, _ = buildFrom(t, "(pat {a: _} a)")
	be.Equal(t, e.Arg, netix.Sym(0))
	be.True(t, !e.Ellipsis)
}

func TestBuildCallAndPrim(t *testing.T) {
	e, _ := buildFrom(t, "(call f 1 2)")
	be.Equal(t, e.Kind, netix.ExCall)
	be.Equal(t, len(e.Args), 2)

	e, syms := buildFrom(t, "(prim __mul 3 4)")
	be.Equal(t, e.Kind, netix.ExCall)
	be.Equal(t, e.Fun.Name, syms.Intern("__mul"))
	be.Equal(t, len(e.Args), 2)
}

func TestBuildSelectForms(t *testing.T) {
	e, syms := buildFrom(t, "(sel {a: {b: 1}} a b)")
	be.Equal(t, e.Kind, netix.ExSelect)
	be.Equal(t, len(e.Path), 2)
	be.Equal(t, e.Path[1].Sym, syms.Intern("b"))
	be.True(t, e.Default == nil)

	e, _ = buildFrom(t, "(sel-or {a: 1} 0 missing)")
	be.Equal(t, e.Kind, netix.ExSelect)
	be.Equal(t, e.Default.Kind, netix.ExInt)
	be.Equal(t, len(e.Path), 1)

	e, _ = buildFrom(t, "(has {a: 1} a)")
	be.Equal(t, e.Kind, netix.ExHasAttr)
}

func TestBuildConcatModes(t *testing.T) {
	e, _ := buildFrom(t, "(+ 1 2 3)")
	be.Equal(t, e.Kind, netix.ExConcatStrings)
	be.True(t, !e.Force)
	be.Equal(t, len(e.Parts), 3)

	e, _ = buildFrom(t, `(interp "n=" 42)`)
	be.True(t, e.Force)
}

func TestBuildOperators(t *testing.T) {
	kinds := map[string]netix.ExprKind{
		"(// {a: 1} {b: 2})": netix.ExOpUpdate,
		"(++ [1] [2])":       netix.ExOpConcatLists,
		"(== 1 2)":           netix.ExOpEq,
		"(!= 1 2)":           netix.ExOpNEq,
		"(&& a b)":           netix.ExOpAnd,
		"(|| a b)":           netix.ExOpOr,
		"(-> a b)":           netix.ExOpImpl,
	}
	for input, kind := range kinds {
		e, _ := buildFrom(t, input)
		be.Equal(t, e.Kind, kind)
	}

	e, _ := buildFrom(t, "(! a)")
	be.Equal(t, e.Kind, netix.ExOpNot)

	e, _ = buildFrom(t, "(with {a: 1} a)")
	be.Equal(t, e.Kind, netix.ExWith)

	e, _ = buildFrom(t, "(if a 1 2)")
	be.Equal(t, e.Kind, netix.ExIf)

	e, _ = buildFrom(t, "(assert a 1)")
	be.Equal(t, e.Kind, netix.ExAssert)
}

func TestBuildPath(t *testing.T) {
	e, _ := buildFrom(t, `(path 3 "/etc/hosts")`)
	be.Equal(t, e.Kind, netix.ExPath)
	be.Equal(t, e.Acc, netix.Accessor(3))
	be.Equal(t, e.Str, "/etc/hosts")
}

func TestBuildErrors(t *testing.T) {
	bad := []string{
		"(nosuchform 1)",
		"(fn 1 x)",      // parameter must be a symbol
		"(if a 1)",      // missing else
		"(sel {a: 1})",  // no segments
		"(pat {a: _})",  // no body
		"(path x \"p\")", // accessor must be a number
		"(call f)",      // no arguments
	}
	syms := netix.NewSymbolTable()
	for _, input := range bad {
		n, err := Parse(input)
		be.Err(t, err, nil)
		_, err = BuildExpr(n, syms)
		be.True(t, err != nil)
	}
}

package mdtest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/netix-lang/netix"
)

// BuildExpr converts a parsed S-expression into the evaluator's AST.
//
// Atoms: numbers (a '.' makes a float), strings, and symbols as
// variable references. Arrays are list literals and maps are attrset
// literals; a map value of (inherit) or (inherit-from e) marks the
// corresponding binding form. Compound forms are head-dispatched
// lists: (let {..} body), (rec {..}), (with set body), (if c t e),
// (assert c b), (fn x body), (pat [x] {formals} [...] body),
// (call f args..), (sel subj segs..), (sel-or subj default segs..),
// (has subj segs..), (path acc text), the operator heads + interp
// // ++ == != && || -> !, and (prim name a b) for the host's
// primitive arithmetic calls.
func BuildExpr(n *Node, syms *netix.SymbolTable) (*netix.Expr, error) {
	b := &builder{syms: syms}
	return b.expr(n)
}

type builder struct {
	syms *netix.SymbolTable
}

func (b *builder) expr(n *Node) (*netix.Expr, error) {
	switch n.Type {
	case NodeNumber:
		if strings.Contains(n.Text, ".") {
			f, err := strconv.ParseFloat(n.Text, 64)
			if err != nil {
				return nil, err
			}
			return &netix.Expr{Kind: netix.ExFloat, Float: f}, nil
		}
		v, err := strconv.ParseInt(n.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExInt, Int: v}, nil

	case NodeString:
		return &netix.Expr{Kind: netix.ExString, Str: n.Text}, nil

	case NodeSymbol:
		return &netix.Expr{Kind: netix.ExVar, Name: b.syms.Intern(n.Text)}, nil

	case NodeArray:
		elems := make([]*netix.Expr, len(n.Items))
		for i, item := range n.Items {
			e, err := b.expr(item)
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return &netix.Expr{Kind: netix.ExList, Elems: elems}, nil

	case NodeMap:
		attrs, err := b.attrDefs(n)
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExAttrs, Attrs: attrs}, nil

	case NodeList:
		return b.form(n)
	}
	return nil, fmt.Errorf("cannot build expression from %s", n)
}

func (b *builder) attrDefs(n *Node) ([]netix.AttrDef, error) {
	defs := make([]netix.AttrDef, len(n.Keys))
	for i, key := range n.Keys {
		def := netix.AttrDef{Name: b.syms.Intern(key)}
		v := n.Items[i]
		switch {
		case v.Type == NodeList && len(v.Items) == 1 && v.Items[0].isSymbol("inherit"):
			def.Inherited = true
		case v.Type == NodeList && len(v.Items) == 2 && v.Items[0].isSymbol("inherit-from"):
			from, err := b.expr(v.Items[1])
			if err != nil {
				return nil, err
			}
			def.Inherited = true
			def.From = from
		default:
			value, err := b.expr(v)
			if err != nil {
				return nil, err
			}
			def.Value = value
		}
		defs[i] = def
	}
	return defs, nil
}

func (n *Node) isSymbol(name string) bool {
	return n.Type == NodeSymbol && n.Text == name
}

func (b *builder) form(n *Node) (*netix.Expr, error) {
	if len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return nil, fmt.Errorf("compound form needs a symbol head: %s", n)
	}
	head := n.Items[0].Text
	args := n.Items[1:]

	switch head {
	case "rec":
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		if args[0].Type != NodeMap {
			return nil, fmt.Errorf("rec needs a map: %s", n)
		}
		attrs, err := b.attrDefs(args[0])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExAttrs, Rec: true, Attrs: attrs}, nil

	case "let":
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		if args[0].Type != NodeMap {
			return nil, fmt.Errorf("let needs a map of bindings: %s", n)
		}
		attrs, err := b.attrDefs(args[0])
		if err != nil {
			return nil, err
		}
		body, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExLet, Attrs: attrs, A: body}, nil

	case "with":
		return b.binary(n, netix.ExWith)

	case "if":
		if err := arity(n, 3); err != nil {
			return nil, err
		}
		c, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		t, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		e, err := b.expr(args[2])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExIf, A: c, B: t, C: e}, nil

	case "assert":
		return b.binary(n, netix.ExAssert)

	case "fn":
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		if args[0].Type != NodeSymbol {
			return nil, fmt.Errorf("fn needs a symbol parameter: %s", n)
		}
		body, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{
			Kind: netix.ExLambda,
			Arg:  b.syms.Intern(args[0].Text),
			A:    body,
		}, nil

	case "pat":
		return b.patternLambda(n, args)

	case "call":
		if len(args) < 2 {
			return nil, fmt.Errorf("call needs a function and arguments: %s", n)
		}
		fun, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		callArgs := make([]*netix.Expr, len(args)-1)
		for i, a := range args[1:] {
			e, err := b.expr(a)
			if err != nil {
				return nil, err
			}
			callArgs[i] = e
		}
		return &netix.Expr{Kind: netix.ExCall, Fun: fun, Args: callArgs}, nil

	case "sel":
		return b.selectForm(n, args, nil)

	case "sel-or":
		if len(args) < 3 {
			return nil, fmt.Errorf("sel-or needs subject, default, and segments: %s", n)
		}
		dflt, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		rest := append([]*Node{args[0]}, args[2:]...)
		return b.selectForm(n, rest, dflt)

	case "has":
		if len(args) < 2 {
			return nil, fmt.Errorf("has needs a subject and segments: %s", n)
		}
		subj, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		path, err := b.pathSegs(args[1:])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExHasAttr, Subject: subj, Path: path}, nil

	case "path":
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		if args[0].Type != NodeNumber || args[1].Type != NodeString {
			return nil, fmt.Errorf("path needs an accessor number and text: %s", n)
		}
		acc, err := strconv.ParseUint(args[0].Text, 10, 32)
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExPath, Acc: netix.Accessor(acc), Str: args[1].Text}, nil

	case "+", "interp":
		if len(args) < 2 {
			return nil, fmt.Errorf("%s needs at least two parts: %s", head, n)
		}
		parts := make([]*netix.Expr, len(args))
		for i, a := range args {
			e, err := b.expr(a)
			if err != nil {
				return nil, err
			}
			parts[i] = e
		}
		return &netix.Expr{Kind: netix.ExConcatStrings, Force: head == "interp", Parts: parts}, nil

	case "//":
		return b.binary(n, netix.ExOpUpdate)
	case "++":
		return b.binary(n, netix.ExOpConcatLists)
	case "==":
		return b.binary(n, netix.ExOpEq)
	case "!=":
		return b.binary(n, netix.ExOpNEq)
	case "&&":
		return b.binary(n, netix.ExOpAnd)
	case "||":
		return b.binary(n, netix.ExOpOr)
	case "->":
		return b.binary(n, netix.ExOpImpl)
	case "!":
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		a, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExOpNot, A: a}, nil

	case "prim":
		if err := arity(n, 3); err != nil {
			return nil, err
		}
		if args[0].Type != NodeSymbol {
			return nil, fmt.Errorf("prim needs an operator symbol: %s", n)
		}
		fun := &netix.Expr{Kind: netix.ExVar, Name: b.syms.Intern(args[0].Text)}
		a, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		c, err := b.expr(args[2])
		if err != nil {
			return nil, err
		}
		return &netix.Expr{Kind: netix.ExCall, Fun: fun, Args: []*netix.Expr{a, c}}, nil
	}
	return nil, fmt.Errorf("unknown form %q", head)
}

func (b *builder) binary(n *Node, kind netix.ExprKind) (*netix.Expr, error) {
	if err := arity(n, 2); err != nil {
		return nil, err
	}
	a, err := b.expr(n.Items[1])
	if err != nil {
		return nil, err
	}
	c, err := b.expr(n.Items[2])
	if err != nil {
		return nil, err
	}
	return &netix.Expr{Kind: kind, A: a, B: c}, nil
}

// selectForm builds (sel subj segs..); a non-nil dflt makes it a
// defaulted selection.
func (b *builder) selectForm(n *Node, args []*Node, dflt *netix.Expr) (*netix.Expr, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("sel needs a subject and segments: %s", n)
	}
	subj, err := b.expr(args[0])
	if err != nil {
		return nil, err
	}
	path, err := b.pathSegs(args[1:])
	if err != nil {
		return nil, err
	}
	return &netix.Expr{Kind: netix.ExSelect, Subject: subj, Path: path, Default: dflt}, nil
}

func (b *builder) pathSegs(segs []*Node) ([]netix.AttrName, error) {
	path := make([]netix.AttrName, len(segs))
	for i, s := range segs {
		if s.Type != NodeSymbol {
			return nil, fmt.Errorf("path segment must be a symbol, got %s", s)
		}
		path[i] = netix.AttrName{Sym: b.syms.Intern(s.Text)}
	}
	return path, nil
}

// patternLambda builds (pat [x] {formals} [...] body): an optional
// leading symbol is the whole-set binding, an ellipsis before the
// body permits extra attributes, and a formal default of _ means no
// default.
func (b *builder) patternLambda(n *Node, args []*Node) (*netix.Expr, error) {
	e := &netix.Expr{Kind: netix.ExLambda, Pattern: true}

	if len(args) > 0 && args[0].Type == NodeSymbol {
		e.Arg = b.syms.Intern(args[0].Text)
		args = args[1:]
	}
	if len(args) == 0 || args[0].Type != NodeMap {
		return nil, fmt.Errorf("pat needs a formals map: %s", n)
	}
	for i, key := range args[0].Keys {
		f := netix.Formal{Name: b.syms.Intern(key)}
		if v := args[0].Items[i]; !v.isSymbol("_") {
			d, err := b.expr(v)
			if err != nil {
				return nil, err
			}
			f.Default = d
		}
		e.Formals = append(e.Formals, f)
	}
	args = args[1:]
	if len(args) > 0 && args[0].Type == NodeEllipsis {
		e.Ellipsis = true
		args = args[1:]
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("pat needs exactly one body: %s", n)
	}
	body, err := b.expr(args[0])
	if err != nil {
		return nil, err
	}
	e.A = body
	return e, nil
}

func arity(n *Node, want int) error {
	if len(n.Items) != want+1 {
		return fmt.Errorf("%s needs %d arguments, got %d", n.Items[0].Text, want, len(n.Items)-1)
	}
	return nil
}

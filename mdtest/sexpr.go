// Package mdtest extracts evaluator test cases from Markdown
// documents. A test case is a heading starting with "Test: ", an
// input fence holding an S-expression description of the expression
// under test, and one or more assertion fences with the expected
// outcome.
package mdtest

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType classifies an S-expression node.
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeNumber
	NodeEllipsis
	NodeList
	NodeMap
	NodeArray
)

// Node is one parsed S-expression datum. Maps keep their keys and
// values in parallel slices, in source order.
type Node struct {
	Type  NodeType
	Text  string   // NodeSymbol, NodeString, NodeNumber
	Items []*Node  // NodeList, NodeArray; map values for NodeMap
	Keys  []string // NodeMap, parallel to Items
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return fmt.Sprintf("%q", escaped)
	case NodeNumber:
		return n.Text
	case NodeEllipsis:
		return "..."
	case NodeList:
		var parts []string
		for _, item := range n.Items {
			parts = append(parts, item.String())
		}
		return "(" + strings.Join(parts, " ") + ")"
	case NodeMap:
		var parts []string
		for i, key := range n.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", key, n.Items[i].String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case NodeArray:
		var parts []string
		for _, item := range n.Items {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
}

// Parse parses a single top-level datum.
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()
	p.nextToken()

	result, err := p.parseDatum()
	if len(p.lexer.errors) > 0 {
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}
	return result, nil
}

type parser struct {
	lexer        *lexer
	currentToken token
	peekToken    token
}

func (p *parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	switch p.currentToken.Type {
	case tokenSymbol:
		n := &Node{Type: NodeSymbol, Text: p.currentToken.Value}
		p.nextToken()
		return n, nil
	case tokenString:
		n := &Node{Type: NodeString, Text: p.currentToken.Value}
		p.nextToken()
		return n, nil
	case tokenNumber:
		n := &Node{Type: NodeNumber, Text: p.currentToken.Value}
		p.nextToken()
		return n, nil
	case tokenEllipsis:
		n := &Node{Type: NodeEllipsis}
		p.nextToken()
		return n, nil
	case tokenLParen:
		return p.parseList()
	case tokenLBrace:
		return p.parseMap()
	case tokenLBracket:
		return p.parseArray()
	default:
		return nil, fmt.Errorf("unexpected token: %s", p.currentToken.Type)
	}
}

func (p *parser) parseList() (*Node, error) {
	var items []*Node
	p.nextToken() // consume '('
	for p.currentToken.Type != tokenRParen && p.currentToken.Type != tokenEOF {
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if p.currentToken.Type != tokenRParen {
		return nil, fmt.Errorf("expected ')' but got %s", p.currentToken.Type)
	}
	p.nextToken()
	return &Node{Type: NodeList, Items: items}, nil
}

func (p *parser) parseMap() (*Node, error) {
	var keys []string
	var items []*Node
	p.nextToken() // consume '{'

	for p.currentToken.Type != tokenRBrace && p.currentToken.Type != tokenEOF {
		if p.currentToken.Type != tokenSymbol {
			return nil, fmt.Errorf("expected symbol for map key but got %s", p.currentToken.Type)
		}
		keys = append(keys, p.currentToken.Value)
		p.nextToken()

		if p.currentToken.Type != tokenColon {
			return nil, fmt.Errorf("expected ':' after map key but got %s", p.currentToken.Type)
		}
		p.nextToken()

		value, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, value)

		if p.currentToken.Type == tokenComma {
			p.nextToken()
		} else if p.currentToken.Type != tokenRBrace {
			return nil, fmt.Errorf("expected ',' or '}' in map but got %s", p.currentToken.Type)
		}
	}
	if p.currentToken.Type != tokenRBrace {
		return nil, fmt.Errorf("expected '}' but got %s", p.currentToken.Type)
	}
	p.nextToken()
	return &Node{Type: NodeMap, Keys: keys, Items: items}, nil
}

func (p *parser) parseArray() (*Node, error) {
	var items []*Node
	p.nextToken() // consume '['
	for p.currentToken.Type != tokenRBracket && p.currentToken.Type != tokenEOF {
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if p.currentToken.Type != tokenRBracket {
		return nil, fmt.Errorf("expected ']' but got %s", p.currentToken.Type)
	}
	p.nextToken()
	return &Node{Type: NodeArray, Items: items}, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenNumber
	tokenEllipsis
	tokenLParen
	tokenRParen
	tokenLBrace
	tokenRBrace
	tokenLBracket
	tokenRBracket
	tokenColon
	tokenComma
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	}
	return fmt.Sprintf("unknown token %d", int(t))
}

type token struct {
	Type     tokenType
	Value    string
	Position int
}

type lexer struct {
	input    string
	position int
	current  rune
	errors   []string
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.position >= len(l.input) {
		l.current = 0
	} else {
		l.current = rune(l.input[l.position])
	}
	l.position++
}

func (l *lexer) peekChar() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return rune(l.input[l.position])
}

func (l *lexer) skipWhitespace() {
	for unicode.IsSpace(l.current) {
		l.readChar()
	}
}

func (l *lexer) skipComment() {
	for l.current != '\n' && l.current != '\r' && l.current != 0 {
		l.readChar()
	}
}

func (l *lexer) readSymbol() string {
	start := l.position - 1
	for isSymbolChar(l.current) {
		l.readChar()
	}
	return l.input[start : l.position-1]
}

func (l *lexer) readString() (string, error) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.current != '"' && l.current != 0 {
		if l.current == '\\' {
			l.readChar()
			switch l.current {
			case '"':
				result.WriteByte('"')
			case '\\':
				result.WriteByte('\\')
			case 'n':
				result.WriteByte('\n')
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.current)
			}
		} else {
			result.WriteRune(l.current)
		}
		l.readChar()
	}
	if l.current != '"' {
		return "", fmt.Errorf("unterminated string")
	}
	l.readChar() // skip closing quote
	return result.String(), nil
}

// readNumber accepts integers and decimal floats, with an optional
// leading sign.
func (l *lexer) readNumber() string {
	start := l.position - 1
	if l.current == '+' || l.current == '-' {
		l.readChar()
	}
	for unicode.IsDigit(l.current) {
		l.readChar()
	}
	if l.current == '.' && unicode.IsDigit(l.peekChar()) {
		l.readChar()
		for unicode.IsDigit(l.current) {
			l.readChar()
		}
	}
	return l.input[start : l.position-1]
}

func (l *lexer) nextToken() token {
	for {
		l.skipWhitespace()
		pos := l.position - 1

		switch l.current {
		case 0:
			return token{Type: tokenEOF, Position: pos}
		case ';':
			l.skipComment()
			continue
		case '(':
			l.readChar()
			return token{Type: tokenLParen, Value: "(", Position: pos}
		case ')':
			l.readChar()
			return token{Type: tokenRParen, Value: ")", Position: pos}
		case '{':
			l.readChar()
			return token{Type: tokenLBrace, Value: "{", Position: pos}
		case '}':
			l.readChar()
			return token{Type: tokenRBrace, Value: "}", Position: pos}
		case '[':
			l.readChar()
			return token{Type: tokenLBracket, Value: "[", Position: pos}
		case ']':
			l.readChar()
			return token{Type: tokenRBracket, Value: "]", Position: pos}
		case ':':
			l.readChar()
			return token{Type: tokenColon, Value: ":", Position: pos}
		case ',':
			l.readChar()
			return token{Type: tokenComma, Value: ",", Position: pos}
		case '"':
			str, err := l.readString()
			if err != nil {
				l.errors = append(l.errors, err.Error())
				return token{Type: tokenEOF, Position: pos}
			}
			return token{Type: tokenString, Value: str, Position: pos}
		case '.':
			if l.peekChar() == '.' {
				l.readChar()
				if l.peekChar() == '.' {
					l.readChar()
					l.readChar()
					return token{Type: tokenEllipsis, Value: "...", Position: pos}
				}
			}
			l.errors = append(l.errors, "unexpected character '.'")
			return token{Type: tokenEOF, Position: pos}
		default:
			// A sign followed by a digit is a number; a bare sign is
			// an operator symbol.
			if unicode.IsDigit(l.current) ||
				((l.current == '+' || l.current == '-') && unicode.IsDigit(l.peekChar())) {
				return token{Type: tokenNumber, Value: l.readNumber(), Position: pos}
			}
			if isSymbolStart(l.current) {
				return token{Type: tokenSymbol, Value: l.readSymbol(), Position: pos}
			}
			l.errors = append(l.errors, fmt.Sprintf("unexpected character '%c'", l.current))
			return token{Type: tokenEOF, Position: pos}
		}
	}
}

func isSymbolStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '+' || r == '-' ||
		r == '!' || r == '=' || r == '<' || r == '>' || r == '&' || r == '|' || r == '/'
}

func isSymbolChar(r rune) bool {
	return isSymbolStart(r) || unicode.IsDigit(r)
}

package mdtest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputFence is the fence language marking the expression under test.
const InputFence = "netix-expr"

// AssertionType names an assertion fence language.
type AssertionType string

const (
	// AssertionValue asserts the rendered result of a successful
	// evaluation.
	AssertionValue AssertionType = "value"
	// AssertionFallback asserts that the backend refuses the
	// expression and defers to the host evaluator.
	AssertionFallback AssertionType = "fallback"
)

// Assertion is one expectation attached to a test case.
type Assertion struct {
	Type    AssertionType
	Content string
}

// TestCase is one extracted case: its heading name, the parsed input
// S-expression, and its assertions.
type TestCase struct {
	Name       string
	Input      *Node
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document into test cases. Every
// "Test: " heading opens a case; fences between headings belong to
// the open case. Unknown fence languages and malformed cases are
// errors, so a typo in a corpus file fails loudly instead of silently
// skipping cases.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)
	doc := md.Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var current *TestCase

	flush := func() error {
		if current == nil {
			return nil
		}
		if current.Input == nil {
			return fmt.Errorf("test %q has no %s fence", current.Name, InputFence)
		}
		if len(current.Assertions) == 0 {
			return fmt.Errorf("test %q has no assertion fences", current.Name)
		}
		cases = append(cases, *current)
		current = nil
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, source)
			if name, ok := strings.CutPrefix(heading, "Test: "); ok {
				if err := flush(); err != nil {
					return ast.WalkStop, err
				}
				current = &TestCase{Name: name}
			}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			if language == "" {
				return ast.WalkContinue, nil
			}
			content := strings.TrimRight(fenceContent(n, source), "\n")
			if current == nil {
				return ast.WalkStop, fmt.Errorf("%s fence outside of a test case", language)
			}
			switch language {
			case InputFence:
				if current.Input != nil {
					return ast.WalkStop, fmt.Errorf("test %q has multiple input fences", current.Name)
				}
				parsed, err := Parse(content)
				if err != nil {
					return ast.WalkStop, fmt.Errorf("test %q: %w", current.Name, err)
				}
				current.Input = parsed
			case string(AssertionValue), string(AssertionFallback):
				current.Assertions = append(current.Assertions, Assertion{
					Type:    AssertionType(language),
					Content: content,
				})
			default:
				return ast.WalkStop, fmt.Errorf("test %q: unknown fence language %q", current.Name, language)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		line := block.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

package mdtest

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const sampleDoc = `# Arithmetic

Prose between cases is ignored.

## Test: addition

` + "```netix-expr\n(+ 1 2)\n```" + `

` + "```value\n3\n```" + `

## Test: division by zero

` + "```netix-expr\n(prim __div 1 0)\n```" + `

` + "```fallback\n```" + `
`

func TestExtractTestCases(t *testing.T) {
	cases, err := ExtractTestCases(sampleDoc)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	be.Equal(t, cases[0].Name, "addition")
	be.Equal(t, cases[0].Input.String(), "(+ 1 2)")
	be.Equal(t, len(cases[0].Assertions), 1)
	be.Equal(t, cases[0].Assertions[0].Type, AssertionValue)
	be.Equal(t, cases[0].Assertions[0].Content, "3")

	be.Equal(t, cases[1].Name, "division by zero")
	be.Equal(t, cases[1].Assertions[0].Type, AssertionFallback)
	be.Equal(t, cases[1].Assertions[0].Content, "")
}

func TestExtractIgnoresPlainHeadings(t *testing.T) {
	doc := "# Title\n\n## Test: one\n\n```netix-expr\n1\n```\n\n```value\n1\n```\n\n## Notes\n\nTrailing prose.\n"
	cases, err := ExtractTestCases(doc)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 1)
}

func TestExtractMissingInputFence(t *testing.T) {
	doc := "## Test: broken\n\n```value\n1\n```\n"
	_, err := ExtractTestCases(doc)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "broken"))
}

func TestExtractMissingAssertions(t *testing.T) {
	doc := "## Test: broken\n\n```netix-expr\n1\n```\n"
	_, err := ExtractTestCases(doc)
	be.True(t, err != nil)
}

func TestExtractUnknownFenceLanguage(t *testing.T) {
	doc := "## Test: broken\n\n```netix-expr\n1\n```\n\n```expect\n1\n```\n"
	_, err := ExtractTestCases(doc)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "expect"))
}

func TestExtractFenceOutsideCase(t *testing.T) {
	doc := "# Title\n\n```value\n1\n```\n"
	_, err := ExtractTestCases(doc)
	be.True(t, err != nil)
}

func TestExtractMultipleInputFences(t *testing.T) {
	doc := "## Test: broken\n\n```netix-expr\n1\n```\n\n```netix-expr\n2\n```\n\n```value\n1\n```\n"
	_, err := ExtractTestCases(doc)
	be.True(t, err != nil)
}

func TestExtractBadInputExpression(t *testing.T) {
	doc := "## Test: broken\n\n```netix-expr\n(unclosed\n```\n\n```value\n1\n```\n"
	_, err := ExtractTestCases(doc)
	be.True(t, err != nil)
}

func TestExtractUnfencedLanguageIgnored(t *testing.T) {
	doc := "## Test: one\n\n```\nplain block\n```\n\n```netix-expr\n1\n```\n\n```value\n1\n```\n"
	cases, err := ExtractTestCases(doc)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 1)
}

package netix_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/netix-lang/netix"
	"github.com/netix-lang/netix/mdtest"
)

// TestMarkdownCorpus runs every case in testdata/*.md: build the
// expression from its S-expression description, evaluate it on a
// shared backend, and check the expected rendering or the expected
// refusal.
func TestMarkdownCorpus(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".md")
		t.Run(name, func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)

			cases, err := mdtest.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			syms := netix.NewSymbolTable()
			backend := netix.NewSize(syms, 1<<18, 1<<12)

			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					expr, err := mdtest.BuildExpr(tc.Input, syms)
					be.Err(t, err, nil)

					var out netix.Value
					ok := backend.TryEvaluate(expr, &out)

					for _, assertion := range tc.Assertions {
						switch assertion.Type {
						case mdtest.AssertionValue:
							be.True(t, ok)
							if ok {
								be.Equal(t, out.Show(syms), assertion.Content)
							}
						case mdtest.AssertionFallback:
							be.True(t, !ok)
						}
					}
				})
			}
		})
	}
}

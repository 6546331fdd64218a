package pydeps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
)

// Parse extracts the set of third-party top-level module names imported by
// source. Standard-library and builtin modules are excluded. The result is
// sorted, so the same source always yields the same slice.
//
// Callers are expected to have validated the source upstream; a parse
// failure here is surfaced as an error, not swallowed.
func Parse(source string) ([]string, error) {
	tree, err := parser.ParseString(source, "exec")
	if err != nil {
		return nil, fmt.Errorf("parse dependencies: %w", err)
	}

	seen := make(map[string]bool)
	ast.Walk(tree, func(node ast.Ast) bool {
		switch n := node.(type) {
		case *ast.Import:
			for _, alias := range n.Names {
				collect(seen, string(alias.Name))
			}
		case *ast.ImportFrom:
			collect(seen, string(n.Module))
		}
		return true
	})

	deps := make([]string, 0, len(seen))
	for dep := range seen {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps, nil
}

// collect records the top-level segment of a dotted module path unless it
// belongs to the standard library.
func collect(seen map[string]bool, module string) {
	if module == "" {
		return
	}
	name := module
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if isStdlibModule(name) {
		return
	}
	seen[name] = true
}

package safety

import (
	"fmt"
	"strings"

	"github.com/go-python/gpython/ast"
)

// validateRestricted applies the compile-time attribute policy of a
// restricted Python build: attribute names and assigned variable names may
// not start with an underscore, since those reach interpreter internals
// (__globals__, __subclasses__, func.__code__ and friends) that the
// structural deny-list cannot enumerate.
//
// The first violation in traversal order is returned.
func validateRestricted(tree ast.Ast) error {
	var violation error
	ast.Walk(tree, func(node ast.Ast) bool {
		if violation != nil {
			return false
		}
		switch n := node.(type) {
		case *ast.Attribute:
			if strings.HasPrefix(string(n.Attr), "_") {
				violation = fmt.Errorf("Line %d: %q is an invalid attribute name because it starts with \"_\".", n.Lineno, n.Attr)
			}
		case *ast.Name:
			if n.Ctx == ast.Store && isRestrictedName(string(n.Id)) {
				violation = fmt.Errorf("Line %d: %q is an invalid variable name because it starts with \"_\"", n.Lineno, n.Id)
			}
		}
		return violation == nil
	})
	return violation
}

// isRestrictedName reports whether an assigned name is underscore-prefixed.
// A bare "_" is allowed; it is the conventional throwaway target.
func isRestrictedName(name string) bool {
	return strings.HasPrefix(name, "_") && name != "_"
}

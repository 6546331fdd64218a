package safety

import (
	"fmt"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
)

// SafeMessage is reported when no deny-list rule matches.
const SafeMessage = "The code is safe to execute."

// dangerousBuiltins are introspection and dynamic-execution builtins rejected
// outright when called by bare name.
var dangerousBuiltins = map[ast.Identifier]bool{
	"globals": true,
	"locals":  true,
	"vars":    true,
	"dir":     true,
	"eval":    true,
	"exec":    true,
	"compile": true,
}

// unsafeModules are rejected on import, matched on the top-level dotted
// segment of the module path.
var unsafeModules = map[string]bool{
	"os":         true,
	"sys":        true,
	"subprocess": true,
	"builtins":   true,
}

// unsafeFunctions are rejected when called by bare name or as the final
// attribute of an attribute chain.
var unsafeFunctions = map[ast.Identifier]bool{
	"exec":       true,
	"eval":       true,
	"compile":    true,
	"open":       true,
	"input":      true,
	"__import__": true,
	"getattr":    true,
	"setattr":    true,
	"delattr":    true,
	"hasattr":    true,
}

// Report is the outcome of a safety check.
type Report struct {
	Safe    bool
	Message string
}

// Analyzer checks submitted Python source against the deny-list.
type Analyzer struct{}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Check parses source and walks its syntax tree, short-circuiting on the
// first violation in traversal order. Code passing the structural checks is
// handed to the restricted validator for a second, stricter pass.
func (a *Analyzer) Check(source string) Report {
	tree, err := parser.ParseString(source, "exec")
	if err != nil {
		return Report{Safe: false, Message: fmt.Sprintf("Syntax error: %v", err)}
	}

	var violation string
	ast.Walk(tree, func(node ast.Ast) bool {
		if violation != "" {
			return false
		}
		switch n := node.(type) {
		case *ast.Call:
			violation = checkCall(n)
		case *ast.Import:
			violation = checkImport(n)
		case *ast.ImportFrom:
			violation = checkImportFrom(n)
		}
		return violation == ""
	})
	if violation != "" {
		return Report{Safe: false, Message: violation}
	}

	if err := validateRestricted(tree); err != nil {
		return Report{Safe: false, Message: fmt.Sprintf("RestrictedPython detected an unsafe pattern: %v", err)}
	}

	return Report{Safe: true, Message: SafeMessage}
}

// checkCall flags dangerous builtins first, then the wider unsafe-function
// set for bare-name and attribute-suffix calls.
func checkCall(call *ast.Call) string {
	switch fn := call.Func.(type) {
	case *ast.Name:
		if dangerousBuiltins[fn.Id] {
			return fmt.Sprintf("Use of dangerous built-in function: %s", fn.Id)
		}
		if unsafeFunctions[fn.Id] {
			return fmt.Sprintf("Unsafe function call: %s", fn.Id)
		}
	case *ast.Attribute:
		if unsafeFunctions[fn.Attr] {
			return fmt.Sprintf("Unsafe function call: %s", fn.Attr)
		}
	}
	return ""
}

func checkImport(imp *ast.Import) string {
	for _, alias := range imp.Names {
		if unsafeModules[topSegment(string(alias.Name))] {
			// Report the module path as written, not just the segment
			return fmt.Sprintf("Unsafe module import: %s", alias.Name)
		}
	}
	return ""
}

func checkImportFrom(imp *ast.ImportFrom) string {
	module := string(imp.Module)
	for _, alias := range imp.Names {
		if module != "" && unsafeModules[topSegment(module)] {
			return fmt.Sprintf("Unsafe module import: %s", module)
		}
		if unsafeModules[topSegment(string(alias.Name))] {
			return fmt.Sprintf("Unsafe module import: %s", alias.Name)
		}
	}
	return ""
}

// topSegment returns the leading segment of a dotted module path
func topSegment(module string) string {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}

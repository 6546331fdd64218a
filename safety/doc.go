// Package safety provides the static safety gate for submitted Python code.
//
// The safety package parses untrusted source into a syntax tree and rejects
// code matching a deny-list of dangerous constructs: dangerous builtins,
// unsafe module imports, and unsafe function calls. Code that passes the
// structural checks is run through a second, stricter validation pass that
// rejects underscore-prefixed attribute and variable names.
//
// The gate is a best-effort deny-list, not a sandbox. It rejects an
// enumerated set of unsafe patterns and nothing more; code that slips past
// it (raw socket use, for example) is still executed.
package safety

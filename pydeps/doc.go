// Package pydeps resolves and manages third-party Python dependencies for a
// single submission.
//
// The resolver statically extracts imported top-level module names from
// source and filters out standard-library and builtin modules. The manager
// enforces the dependency whitelist, consults the container's installed
// package inventory to skip pre-cached packages, installs what is missing,
// and later uninstalls everything that was not pre-cached.
package pydeps

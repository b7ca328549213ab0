// Package registry implements the Function Registry (spec.md §4.F): a
// process-wide, read-only-after-startup mapping from function name to its
// transform, kind, and declared parameter defaults. It depends on nothing
// above it — the lang and graph packages consult it by name only.
package registry

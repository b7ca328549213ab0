// Package graph implements the compiler (spec.md §4.C): it lowers a
// lang.Program into an execution Graph of nodes, edges, and segments,
// resolving named-pipeline references by inlining and validating the
// invariants of spec.md §3. Node/edge/segment ids are assigned by
// github.com/google/uuid, grounded on how kbukum-gokit's bootstrap and
// storage packages mint entity ids elsewhere in the pack.
package graph

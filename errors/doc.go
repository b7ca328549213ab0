// Package errors implements the error taxonomy for the vidpipe language
// front end, compiler, and runtime: LexError, ParseError, CompileError, and
// RuntimeError. Each wraps the shared AppError (machine-readable code,
// message, HTTP-status mapping, structured details) so a host exposing
// vidpipe over its own API can reuse AppError's JSON shape, while carrying
// the kind-specific fields (line/column, expected/found token, node id)
// spec.md requires for each error kind.
package errors

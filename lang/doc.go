// Package lang implements the lexer and recursive-descent parser for the
// vidpipe pipeline language.
//
// Lex turns source text into a token stream; Parse turns that token stream
// into a Program — a tree of Call, Seq, Par, Timed, Group, and Def nodes
// plus the terminal expression to execute. Neither stage knows anything
// about the registered functions a Call might name, or how a Program gets
// turned into a running graph — that is the graph package's job.
package lang

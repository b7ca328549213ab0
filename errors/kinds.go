package errors

import (
	"fmt"
	"net/http"
)

// LexError is raised by the lang package's lexer. It is always fatal.
type LexError struct {
	*AppError
	Line   int
	Column int
	Reason string
}

// NewLexError constructs a LexError at the given source position.
func NewLexError(line, column int, reason string) *LexError {
	return &LexError{
		AppError: New(ErrCodeLex, fmt.Sprintf("line %d, column %d: %s", line, column, reason), http.StatusBadRequest),
		Line:     line,
		Column:   column,
		Reason:   reason,
	}
}

// Unwrap exposes the embedded AppError to errors.As/errors.Is, shadowing the
// promoted AppError.Unwrap (which exposes Cause instead).
func (e *LexError) Unwrap() error { return e.AppError }

// ParseError is raised by the lang package's parser. It is always fatal.
type ParseError struct {
	*AppError
	Line     int
	Column   int
	Expected string
	Found    string
}

// NewParseError constructs a ParseError at the given source position.
func NewParseError(line, column int, expected, found string) *ParseError {
	msg := fmt.Sprintf("line %d, column %d: expected %s, found %s", line, column, expected, found)
	return &ParseError{
		AppError: New(ErrCodeParse, msg, http.StatusBadRequest),
		Line:     line,
		Column:   column,
		Expected: expected,
		Found:    found,
	}
}

// Unwrap exposes the embedded AppError to errors.As/errors.Is.
func (e *ParseError) Unwrap() error { return e.AppError }

// CompileErrorKind distinguishes the compiler-level failure modes of
// spec.md §7.
type CompileErrorKind string

const (
	CompileUnknownName      CompileErrorKind = "UnknownName"
	CompileCycle            CompileErrorKind = "Cycle"
	CompileKindMismatch     CompileErrorKind = "KindMismatch"
	CompileDanglingParallel CompileErrorKind = "DanglingParallel"
	CompileNoSource         CompileErrorKind = "NoSource"
	CompileNoSink           CompileErrorKind = "NoSink"
	CompileInvalidParams    CompileErrorKind = "InvalidParams"
)

var compileErrorCodes = map[CompileErrorKind]ErrorCode{
	CompileUnknownName:      ErrCodeUnknownName,
	CompileCycle:            ErrCodeCycle,
	CompileKindMismatch:     ErrCodeKindMismatch,
	CompileDanglingParallel: ErrCodeDanglingParallel,
	CompileNoSource:         ErrCodeNoSource,
	CompileNoSink:           ErrCodeNoSink,
	CompileInvalidParams:    ErrCodeInvalidParams,
}

// CompileError is raised by the graph package while lowering a Program. It
// is always fatal.
type CompileError struct {
	*AppError
	Kind   CompileErrorKind
	Name   string // the offending pipeline/function/node name, if any
}

// NewCompileError constructs a CompileError of the given kind.
func NewCompileError(kind CompileErrorKind, name, message string) *CompileError {
	code, ok := compileErrorCodes[kind]
	if !ok {
		code = ErrCodeUnknownName
	}
	err := New(code, message, http.StatusUnprocessableEntity)
	if name != "" {
		err = err.WithDetail("name", name)
	}
	return &CompileError{AppError: err, Kind: kind, Name: name}
}

// Unwrap exposes the embedded AppError to errors.As/errors.Is.
func (e *CompileError) Unwrap() error { return e.AppError }

// RuntimeErrorKind distinguishes the runtime-level failure modes of
// spec.md §7.
type RuntimeErrorKind string

const (
	RuntimeSourceStartup  RuntimeErrorKind = "SourceStartup"
	RuntimeTransformFault RuntimeErrorKind = "TransformFault"
	RuntimeCancelled      RuntimeErrorKind = "Cancelled"
)

var runtimeErrorCodes = map[RuntimeErrorKind]ErrorCode{
	RuntimeSourceStartup:  ErrCodeSourceStartup,
	RuntimeTransformFault: ErrCodeTransformFault,
	RuntimeCancelled:      ErrCodeCancelled,
}

// RuntimeError is raised during a run. NodeID/FrameSeq are populated when
// the error originates from a specific node's transform invocation.
type RuntimeError struct {
	*AppError
	Kind     RuntimeErrorKind
	NodeID   string
	FrameSeq uint64
}

// NewRuntimeError constructs a RuntimeError of the given kind.
func NewRuntimeError(kind RuntimeErrorKind, nodeID string, frameSeq uint64, message string) *RuntimeError {
	code, ok := runtimeErrorCodes[kind]
	if !ok {
		code = ErrCodeSourceStartup
	}
	status := http.StatusInternalServerError
	if kind == RuntimeCancelled {
		status = http.StatusOK
	}
	err := New(code, message, status)
	if nodeID != "" {
		err = err.WithDetail("node_id", nodeID)
	}
	if frameSeq != 0 {
		err = err.WithDetail("frame_seq", frameSeq)
	}
	return &RuntimeError{AppError: err, Kind: kind, NodeID: nodeID, FrameSeq: frameSeq}
}

// Unwrap exposes the embedded AppError to errors.As/errors.Is.
func (e *RuntimeError) Unwrap() error { return e.AppError }

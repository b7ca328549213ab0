package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Front-end errors (lexer, parser) — always fatal, abort compilation.
const (
	ErrCodeLex   ErrorCode = "LEX_ERROR"
	ErrCodeParse ErrorCode = "PARSE_ERROR"
)

// Compiler errors — always fatal, abort compilation.
const (
	ErrCodeUnknownName      ErrorCode = "COMPILE_UNKNOWN_NAME"
	ErrCodeCycle            ErrorCode = "COMPILE_CYCLE"
	ErrCodeKindMismatch     ErrorCode = "COMPILE_KIND_MISMATCH"
	ErrCodeDanglingParallel ErrorCode = "COMPILE_DANGLING_PARALLEL"
	ErrCodeNoSource         ErrorCode = "COMPILE_NO_SOURCE"
	ErrCodeNoSink           ErrorCode = "COMPILE_NO_SINK"
	ErrCodeInvalidParams    ErrorCode = "COMPILE_INVALID_PARAMS"
)

// Runtime errors.
const (
	// ErrCodeSourceStartup is fatal: the run never reaches Running.
	ErrCodeSourceStartup ErrorCode = "RUNTIME_SOURCE_STARTUP"
	// ErrCodeTransformFault is recovered until a node's consecutive-failure
	// limit is reached, at which point it becomes fatal to that node only.
	ErrCodeTransformFault ErrorCode = "RUNTIME_TRANSFORM_FAULT"
	// ErrCodeCancelled is a clean termination, not an error to the host
	// unless the host configured otherwise.
	ErrCodeCancelled ErrorCode = "RUNTIME_CANCELLED"
)

// retryableCodes reports whether retrying the same operation unchanged
// could plausibly succeed. Per spec.md §7, compile-time errors are never
// retryable (the program itself is malformed) and RuntimeTransformFault's
// retryability is threshold-dependent, so it is not modeled here — see
// runtime.Worker's own consecutive-failure accounting instead.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeLex:              false,
	ErrCodeParse:            false,
	ErrCodeUnknownName:      false,
	ErrCodeCycle:            false,
	ErrCodeKindMismatch:     false,
	ErrCodeDanglingParallel: false,
	ErrCodeNoSource:         false,
	ErrCodeNoSink:           false,
	ErrCodeInvalidParams:    false,
	ErrCodeSourceStartup:    false,
	ErrCodeCancelled:        false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

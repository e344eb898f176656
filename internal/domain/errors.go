package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// Sentinel errors for the search pipeline.
var (
	ErrToolNotFound          = fmt.Errorf("tool not found")
	ErrConfigLoad            = fmt.Errorf("failed to load configuration")
	ErrEncryption            = fmt.Errorf("encryption operation failed")
	ErrMissingCredential     = fmt.Errorf("missing credential")
	ErrStrategyUnavailable   = fmt.Errorf("search strategy unavailable")
	ErrMalformedOutput       = fmt.Errorf("malformed backend output")
	ErrStrategiesExhausted   = fmt.Errorf("all search strategies failed")
	ErrCircuitOpen           = fmt.Errorf("circuit breaker open")
	ErrRateLimit             = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid           = fmt.Errorf("authentication failed")
	ErrBackendUpstreamStatus = fmt.Errorf("upstream returned non-success status")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "SearchRequest.Validate")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // strategy or component name; used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for logs and diagnostics.
type ErrorCode string

const (
	CodeUnknown             ErrorCode = "UNKNOWN"
	CodeToolNotFound        ErrorCode = "TOOL_NOT_FOUND"
	CodeConfigLoad          ErrorCode = "CONFIG_LOAD"
	CodeEncryption          ErrorCode = "ENCRYPTION"
	CodeMissingCredential   ErrorCode = "MISSING_CREDENTIAL"
	CodeStrategyUnavailable ErrorCode = "STRATEGY_UNAVAILABLE"
	CodeMalformedOutput     ErrorCode = "MALFORMED_OUTPUT"
	CodeStrategiesExhausted ErrorCode = "STRATEGIES_EXHAUSTED"
	CodeCircuitOpen         ErrorCode = "CIRCUIT_OPEN"
	CodeRateLimit           ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid         ErrorCode = "AUTH_INVALID"
	CodeUpstreamStatus      ErrorCode = "UPSTREAM_STATUS"

	// Subsystem-specific codes used by subSystemCodeMap.
	CodeShellTimeout      ErrorCode = "SHELL_TIMEOUT"
	CodeSubprocessTimeout ErrorCode = "SUBPROCESS_TIMEOUT"
	CodeHTTPTimeout       ErrorCode = "HTTP_TIMEOUT"
	CodeShellNotFound     ErrorCode = "SHELL_NOT_FOUND"
	CodeSubprocessMissing ErrorCode = "SUBPROCESS_NOT_FOUND"

	// Category error codes: fallback codes when no subsystem-specific code matches.
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
)

var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:     CodeNotFound,
	ErrTimeout:      CodeTimeout,
	ErrInvalidInput: CodeInvalidInput,

	ErrToolNotFound:          CodeToolNotFound,
	ErrConfigLoad:            CodeConfigLoad,
	ErrEncryption:            CodeEncryption,
	ErrMissingCredential:     CodeMissingCredential,
	ErrStrategyUnavailable:   CodeStrategyUnavailable,
	ErrMalformedOutput:       CodeMalformedOutput,
	ErrStrategiesExhausted:   CodeStrategiesExhausted,
	ErrCircuitOpen:           CodeCircuitOpen,
	ErrRateLimit:             CodeRateLimit,
	ErrAuthInvalid:           CodeAuthInvalid,
	ErrBackendUpstreamStatus: CodeUpstreamStatus,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrTimeout: {
		"shell":      CodeShellTimeout,
		"subprocess": CodeSubprocessTimeout,
		"https":      CodeHTTPTimeout,
	},
	ErrNotFound: {
		"shell":      CodeShellNotFound,
		"subprocess": CodeSubprocessMissing,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// For DomainErrors with a SubSystem, the subSystemCodeMap is consulted first.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	// Exhaustion wins over whatever the last strategy reported.
	if errors.Is(err, ErrStrategiesExhausted) {
		return CodeStrategiesExhausted
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}

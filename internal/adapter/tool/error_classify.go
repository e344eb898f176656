package tool

import (
	"errors"
	"strings"

	"search-online-mcp/internal/domain"
)

// permanentSentinels win over any retryable signal in the same chain.
var permanentSentinels = []error{
	domain.ErrInvalidInput,
	domain.ErrMissingCredential,
	domain.ErrAuthInvalid,
}

// retryablePatterns are substrings in error messages that indicate transient failures.
// Checked case-insensitively.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"service unavailable",
	"try again",
	"brave http 502",
	"brave http 503",
	"brave http 504",
}

// classifyToolError returns true if the error is transient and the tool call
// may succeed on retry. Returns false for nil, permanent, or unknown errors.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}

	for _, sentinel := range permanentSentinels {
		if errors.Is(err, sentinel) {
			return false
		}
	}

	if domain.IsRetryableError(err) {
		return true
	}

	// String-based fallback for errors without sentinel wrapping.
	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	return false
}

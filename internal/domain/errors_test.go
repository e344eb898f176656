package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Tool.Execute", ErrToolNotFound, "tool 'foo'")
	want := "Tool.Execute: tool 'foo': tool not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Orchestrator.Search", ErrStrategiesExhausted, "")
	want := "Orchestrator.Search: all search strategies failed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("HTTPSStrategy.Attempt", ErrMissingCredential, "BRAVE_SEARCH_PYTHON_CLIENT_API_KEY not set")
	if !errors.Is(err, ErrMissingCredential) {
		t.Error("errors.Is should match ErrMissingCredential")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDomainError("ShellStrategy.Attempt", ErrMalformedOutput, "fish"))
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "ShellStrategy.Attempt" {
		t.Errorf("Op = %q, want %q", de.Op, "ShellStrategy.Attempt")
	}
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))

	err := WrapOp("config.Load", ErrConfigLoad)
	require.Error(t, err)
	assert.Equal(t, "config.Load: failed to load configuration", err.Error())
	assert.ErrorIs(t, err, ErrConfigLoad)
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeToolNotFound, ErrorCodeOf(ErrToolNotFound))
	assert.Equal(t, CodeMissingCredential, ErrorCodeOf(ErrMissingCredential))
	assert.Equal(t, CodeInvalidInput, ErrorCodeOf(ErrInvalidInput))
	assert.Equal(t, CodeCircuitOpen, ErrorCodeOf(ErrCircuitOpen))
}

func TestErrorCodeOf_DomainError(t *testing.T) {
	err := NewDomainError("SearchRequest.Validate", ErrInvalidInput, "query")
	assert.Equal(t, CodeInvalidInput, ErrorCodeOf(err))
}

func TestErrorCodeOf_SubSystem(t *testing.T) {
	tests := []struct {
		subsystem string
		sentinel  error
		want      ErrorCode
	}{
		{"shell", ErrTimeout, CodeShellTimeout},
		{"subprocess", ErrTimeout, CodeSubprocessTimeout},
		{"https", ErrTimeout, CodeHTTPTimeout},
		{"shell", ErrNotFound, CodeShellNotFound},
		{"subprocess", ErrNotFound, CodeSubprocessMissing},
		{"https", ErrNotFound, CodeNotFound},
		{"shell", ErrMalformedOutput, CodeMalformedOutput},
	}
	for _, tt := range tests {
		t.Run(tt.subsystem+"/"+string(tt.want), func(t *testing.T) {
			err := NewSubSystemError(tt.subsystem, "Strategy.Attempt", tt.sentinel, "")
			assert.Equal(t, tt.want, ErrorCodeOf(err))
			assert.Equal(t, tt.want, err.Code())
		})
	}
}

func TestErrorCodeOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrRateLimit)
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(wrapped))
}

func TestErrorCodeOf_ExhaustionWins(t *testing.T) {
	last := NewSubSystemError("https", "HTTPSStrategy.Attempt", ErrTimeout, "")
	err := fmt.Errorf("%w: %w", ErrStrategiesExhausted, last)
	assert.Equal(t, CodeStrategiesExhausted, ErrorCodeOf(err))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestErrorCodeOf_UnknownError(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(fmt.Errorf("some random error")))
}

func TestErrorCodeOf_Nil(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestDomainError_CodeUnknownSentinel(t *testing.T) {
	err := NewDomainError("Op", fmt.Errorf("custom"), "detail")
	assert.Equal(t, CodeUnknown, err.Code())
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("x: %w", ErrTimeout)))
	assert.True(t, IsRetryableError(ErrRateLimit))
	assert.True(t, IsRetryableError(ErrCircuitOpen))
	assert.False(t, IsRetryableError(ErrInvalidInput))
	assert.False(t, IsRetryableError(ErrMissingCredential))
}

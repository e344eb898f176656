package tool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-online-mcp/internal/domain"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "limit": {"type": "integer", "minimum": 1, "maximum": 20}
  },
  "required": ["query"]
}`

func TestCompileSchema(t *testing.T) {
	s, err := CompileSchema("t", []byte(testSchema))
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestCompileSchema_Empty(t *testing.T) {
	_, err := CompileSchema("t", nil)
	assert.ErrorContains(t, err, "has no input schema")

	_, err = CompileSchema("t", []byte("null"))
	assert.ErrorContains(t, err, "has no input schema")
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema("t", []byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestValidateAgainst(t *testing.T) {
	s, err := CompileSchema("t", []byte(testSchema))
	require.NoError(t, err)

	tests := []struct {
		name      string
		value     map[string]any
		wantErr   bool
		wantField string
	}{
		{"valid", map[string]any{"query": "go", "limit": 5}, false, ""},
		{"extra properties allowed", map[string]any{"query": "go", "foo": true}, false, ""},
		{"missing query", map[string]any{}, true, "params"},
		{"limit too large", map[string]any{"query": "go", "limit": 21}, true, "limit"},
		{"limit too small", map[string]any{"query": "go", "limit": 0}, true, "limit"},
		{"limit wrong type", map[string]any{"query": "go", "limit": "ten"}, true, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgainst(s, tt.value)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.wantField+": ")
		})
	}
}

func TestValidateAgainst_MissingRequiredNamesField(t *testing.T) {
	s, err := CompileSchema("t", []byte(testSchema))
	require.NoError(t, err)

	err = ValidateAgainst(s, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

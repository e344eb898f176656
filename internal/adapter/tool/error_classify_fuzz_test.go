package tool

import (
	"errors"
	"testing"
)

func FuzzClassifyToolError(f *testing.F) {
	seeds := []string{
		"connection refused",
		"connection reset by peer",
		"no such host",
		"context deadline exceeded",
		"service unavailable",
		"brave http 503",
		"brave http 401",
		"brave json parse: unexpected end of JSON input",
		"fish exit 127",
		"timeout",
		"",
		"completely random error",
		"dial tcp 10.0.0.1:443: connection refused",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, msg string) {
		_ = classifyToolError(errors.New(msg))
	})
}

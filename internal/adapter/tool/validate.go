package tool

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// RequireString returns an error unless args[name] is a non-empty string.
func RequireString(args map[string]any, name string) error {
	v, ok := args[name]
	if !ok || v == nil {
		return fmt.Errorf("'%s' is required", name)
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("'%s' must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("'%s' is required and must be a non-empty string", name)
	}
	return nil
}

// CoerceInt rewrites args[name] to an int when it holds an integral number
// or a numeric string. Integral numbers that do not fit in an int64 are
// rejected. Anything else is left for schema validation to reject.
func CoerceInt(args map[string]any, name string) error {
	v, ok := args[name]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return fmt.Errorf("'%s' is out of range", name)
		}
		args[name] = int(n)
	case string:
		if i, err := cast.ToIntE(strings.TrimSpace(n)); err == nil {
			args[name] = i
		}
	}
	return nil
}

// DropNulls removes keys whose value is JSON null so optional fields sent as
// null are treated as absent.
func DropNulls(args map[string]any) {
	for k, v := range args {
		if v == nil {
			delete(args, k)
		}
	}
}

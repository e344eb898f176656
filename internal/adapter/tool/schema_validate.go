package tool

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"search-online-mcp/internal/domain"
)

// CompileSchema compiles a tool's raw JSON Schema. name identifies the tool
// in errors.
func CompileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("tool %q has no input schema", name)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", name, err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", name, err)
	}
	return compiled, nil
}

// ValidateAgainst checks a decoded JSON value against schema. Failures wrap
// domain.ErrInvalidInput and name the offending field.
func ValidateAgainst(schema *jsonschema.Schema, v any) error {
	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, schemaMessage(err))
}

// schemaMessage reduces a validation error to "<field>: <reason>" using the
// first leaf cause.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		field = "params"
	}
	return field + ": " + leaf.Message
}

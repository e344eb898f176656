package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"search-online-mcp/internal/domain"
)

type mockTool struct {
	name string
}

func (m *mockTool) Name() string              { return m.name }
func (m *mockTool) Description() string       { return "mock" }
func (m *mockTool) Schema() domain.ToolSchema { return domain.ToolSchema{Name: m.name} }
func (m *mockTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return &domain.ToolResult{Content: "ok"}, nil
}

func TestRegistryBasic(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&mockTool{name: "test"}); err != nil {
		t.Fatal(err)
	}

	tool, err := reg.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if tool.Name() != "test" {
		t.Errorf("Name = %q, want %q", tool.Name(), "test")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&mockTool{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&mockTool{name: "dup"}); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestRegistryEmptyName(t *testing.T) {
	if err := NewRegistry().Register(&mockTool{}); err == nil {
		t.Error("expected error for empty tool name")
	}
}

func TestRegistryNotFound(t *testing.T) {
	_, err := NewRegistry().Get("missing")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistryListAndSchemasSorted(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&mockTool{name: n}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"alpha", "mid", "zeta"}
	tools := reg.List()
	schemas := reg.Schemas()
	if len(tools) != len(want) || len(schemas) != len(want) {
		t.Fatalf("got %d tools / %d schemas, want %d", len(tools), len(schemas), len(want))
	}
	for i, n := range want {
		if tools[i].Name() != n {
			t.Errorf("tools[%d] = %q, want %q", i, tools[i].Name(), n)
		}
		if schemas[i].Name != n {
			t.Errorf("schemas[%d] = %q, want %q", i, schemas[i].Name, n)
		}
	}
}

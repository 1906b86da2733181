package tools

import (
	"context"
	"errors"
	"testing"
)

type stubTool struct {
	name   string
	result ToolResult
}

func (s *stubTool) Name() string                        { return s.name }
func (s *stubTool) Description() string                 { return "stub" }
func (s *stubTool) InputSchema() map[string]interface{} { return nil }
func (s *stubTool) Validate(string) error               { return nil }
func (s *stubTool) Invoke(context.Context, string) ToolResult {
	return s.result
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := reg.Register(&stubTool{name: "alpha"})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("duplicate register error = %v, want ErrDuplicateTool", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("nope"); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Get unknown error = %v, want ErrToolNotFound", err)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&stubTool{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

package jsonutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestUnmarshal_IgnoresUnknownMembers(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	err := Unmarshal([]byte(`{"name":"payments","added_later":{"x":1}}`), &v)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Name != "payments" {
		t.Errorf("Name = %q", v.Name)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	var v map[string]any
	if err := Unmarshal([]byte(`{invalid}`), &v); err == nil {
		t.Error("Unmarshal() expected error for invalid JSON")
	}
}

func TestMarshal_DeterministicMaps(t *testing.T) {
	in := map[string]int{"c": 3, "a": 1, "b": 2}
	for range 10 {
		out, err := Marshal(in)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(out) != `{"a":1,"b":2,"c":3}` {
			t.Fatalf("Marshal() = %s, want sorted keys", out)
		}
	}
}

func TestMarshalWrite_Indent(t *testing.T) {
	var buf bytes.Buffer
	if err := MarshalWrite(&buf, map[string]int{"b": 2, "a": 1}, "  "); err != nil {
		t.Fatalf("MarshalWrite() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"a\": 1,\n  \"b\"") {
		t.Errorf("MarshalWrite() = %q, want indented sorted output", buf.String())
	}
}

func TestMarshalWrite_TrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	if err := MarshalWrite(&buf, []int{1, 2}, ""); err != nil {
		t.Fatalf("MarshalWrite() error = %v", err)
	}
	if buf.String() != "[1,2]\n" {
		t.Errorf("MarshalWrite() = %q", buf.String())
	}
}

func TestUnmarshalRead(t *testing.T) {
	var v []string
	if err := UnmarshalRead(strings.NewReader(`["x","y"]`), &v); err != nil {
		t.Fatalf("UnmarshalRead() error = %v", err)
	}
	if len(v) != 2 {
		t.Errorf("len = %d", len(v))
	}
}

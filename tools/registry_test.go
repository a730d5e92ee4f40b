package tools_test

import (
	"testing"

	"github.com/petasbytes/toolchat/tools"
)

func TestRegistry_ToolCount(t *testing.T) {
	defs := tools.Registry()
	wantCount := 6 // add, subtract, multiply, divide, remainder, power
	if len(defs) != wantCount {
		t.Fatalf("unexpected number of tools: got %d want %d", len(defs), wantCount)
	}
}

func TestRegistry_ToolNames(t *testing.T) {
	defs := tools.Registry()
	want := map[string]struct{}{
		"add":       {},
		"subtract":  {},
		"multiply":  {},
		"divide":    {},
		"remainder": {},
		"power":     {},
	}

	// Unexpected names detected
	for _, d := range defs {
		if _, ok := want[d.Name]; !ok {
			t.Fatalf("unexpected tool in registry: %q", d.Name)
		}
	}

	// Missing expected names
	got := map[string]struct{}{}
	for _, d := range defs {
		got[d.Name] = struct{}{}
	}
	for name := range want {
		if _, ok := got[name]; !ok {
			t.Errorf("missing expected tool: %q", name)
		}
	}

	// Fail now if any errors were reported above
	if t.Failed() {
		t.FailNow()
	}
}

func TestRegistry_SchemasRequireBothOperands(t *testing.T) {
	for _, d := range tools.Registry() {
		if d.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type = %v", d.Name, d.InputSchema["type"])
		}
		if _, ok := d.InputSchema["$schema"]; ok {
			t.Errorf("%s: $schema should be stripped", d.Name)
		}
		props, ok := d.InputSchema["properties"].(map[string]any)
		if !ok {
			t.Fatalf("%s: missing properties: %+v", d.Name, d.InputSchema)
		}
		for _, k := range []string{"a", "b"} {
			p, ok := props[k].(map[string]any)
			if !ok || p["type"] != "integer" {
				t.Errorf("%s: property %s = %+v", d.Name, k, props[k])
			}
		}
		req, _ := d.InputSchema["required"].([]any)
		if len(req) != 2 {
			t.Errorf("%s: required = %v", d.Name, d.InputSchema["required"])
		}
	}
}

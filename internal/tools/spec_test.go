package tools

import (
	"testing"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	spec := ToolSpec{
		Name:        "ping",
		Description: "test tool",
		Params: []ParamSpec{
			{Name: "count", Type: TypeInteger, Required: true},
		},
	}
	if err := r.Register(spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := r.Lookup("ping")
	if !ok {
		t.Fatal("registered tool not found")
	}
	if got.Name != "ping" || len(got.Params) != 1 {
		t.Errorf("unexpected spec: %+v", got)
	}
	if !r.Has("ping") || r.Has("pong") {
		t.Errorf("Has gave wrong answers")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ToolSpec{Name: "ping"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(ToolSpec{Name: "ping"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ToolSpec{}); err == nil {
		t.Fatal("expected empty name to fail")
	}
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		r.MustRegister(ToolSpec{Name: name})
	}
	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(list))
	}
	for i, want := range []string{"c", "a", "b"} {
		if list[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].Name)
		}
	}
}

func TestToolSpec_RequiredParams(t *testing.T) {
	spec := ToolSpec{
		Name: "speak",
		Params: []ParamSpec{
			{Name: "text", Type: TypeString, Required: true},
			{Name: "wait", Type: TypeBoolean},
		},
	}
	req := spec.RequiredParams()
	if len(req) != 1 || req[0] != "text" {
		t.Fatalf("expected [text], got %v", req)
	}
}

func TestDefaultRegistry_CoversRobotTools(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{
		"get_motor_status", "check_battery",
		"move_forward", "move_backward", "turn_left", "turn_right",
		"stop", "speak", "listen", "capture_image",
	} {
		if !r.Has(name) {
			t.Errorf("missing tool %s", name)
		}
	}
	if r.Len() != 10 {
		t.Errorf("expected 10 tools, got %d", r.Len())
	}
}

func TestDefaultRegistry_MovementBounds(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{"move_forward", "move_backward", "turn_left", "turn_right"} {
		spec, _ := r.Lookup(name)
		p, ok := spec.Param("speed")
		if !ok {
			t.Errorf("%s: missing speed parameter", name)
			continue
		}
		if p.Type != TypeInteger || !p.Required {
			t.Errorf("%s: speed should be a required integer, got %+v", name, p)
		}
		if !p.HasBounds || p.Minimum != 0 || p.Maximum != 100 {
			t.Errorf("%s: speed bounds wrong: %+v", name, p)
		}
	}
}

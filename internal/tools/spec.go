// Package tools defines the capability registry: the authoritative, ordered
// set of tools the model is permitted to invoke, with their parameter
// schemas and the wire format used to advertise them to the inference
// server.
package tools

import (
	"fmt"
	"sync"

	"meebo/internal/logging"
)

// ParamType enumerates the scalar parameter types a tool may declare.
type ParamType string

const (
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeString  ParamType = "string"
	TypeBoolean ParamType = "boolean"
)

// ParamSpec describes one parameter of a tool.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Minimum/Maximum bound numeric parameters when HasBounds is set.
	HasBounds bool
	Minimum   float64
	Maximum   float64
}

// ToolSpec describes one tool: a unique name, a description, and an ordered
// parameter list. Immutable once registered.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ParamSpec
}

// Param returns the parameter spec with the given name.
func (t ToolSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// RequiredParams returns the names of all required parameters in order.
func (t ToolSpec) RequiredParams() []string {
	var req []string
	for _, p := range t.Params {
		if p.Required {
			req = append(req, p.Name)
		}
	}
	return req
}

// Registry is the capability registry: tool name -> ToolSpec, with
// registration order preserved. Built once at startup and read-only
// thereafter; the mutex only guards the build phase.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]ToolSpec
	order []string
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ToolSpec)}
}

// Register adds a tool spec. Names must be unique and non-empty.
func (r *Registry) Register(spec ToolSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if spec.Name == "" {
		logging.ToolsWarn("Register: rejecting tool with empty name")
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.specs[spec.Name]; exists {
		logging.ToolsWarn("Register: duplicate tool name %q", spec.Name)
		return fmt.Errorf("tool already registered: %s", spec.Name)
	}

	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	logging.ToolsDebug("Register: tool %q registered (%d params)", spec.Name, len(spec.Params))
	return nil
}

// MustRegister registers a spec and panics on error. For the builtin
// capability table, where a failure is a programming bug.
func (r *Registry) MustRegister(spec ToolSpec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Lookup returns the spec for a tool name.
func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// List returns all specs in registration order.
func (r *Registry) List() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name])
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

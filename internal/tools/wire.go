package tools

import (
	"fmt"
	"sort"
)

// Declaration is the wire form of a tool advertised to the inference
// server: {type: "function", function: {...}}.
type Declaration struct {
	Type     string       `json:"type"`
	Function FunctionDecl `json:"function"`
}

// FunctionDecl carries the function name, description, and JSON-schema
// style parameter object.
type FunctionDecl struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ParamsDecl `json:"parameters"`
}

// ParamsDecl is the {type: "object", properties, required} parameter block.
type ParamsDecl struct {
	Type       string                  `json:"type"`
	Properties map[string]PropertyDecl `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

// PropertyDecl describes a single parameter property.
type PropertyDecl struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// Declare converts a ToolSpec to its wire form.
func Declare(spec ToolSpec) Declaration {
	props := make(map[string]PropertyDecl, len(spec.Params))
	var required []string
	for _, p := range spec.Params {
		prop := PropertyDecl{
			Type:        string(p.Type),
			Description: p.Description,
		}
		if p.HasBounds {
			min, max := p.Minimum, p.Maximum
			prop.Minimum = &min
			prop.Maximum = &max
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return Declaration{
		Type: "function",
		Function: FunctionDecl{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: ParamsDecl{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		},
	}
}

// DeclareAll converts every spec in the registry, in registration order.
func DeclareAll(r *Registry) []Declaration {
	specs := r.List()
	decls := make([]Declaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, Declare(spec))
	}
	return decls
}

// FromDeclaration rebuilds a ToolSpec from its wire form. Property order
// inside a JSON object is not preserved, so parameters come back sorted by
// name with required ones flagged from the required list.
func FromDeclaration(d Declaration) (ToolSpec, error) {
	if d.Type != "function" {
		return ToolSpec{}, fmt.Errorf("unsupported declaration type: %q", d.Type)
	}
	if d.Function.Name == "" {
		return ToolSpec{}, fmt.Errorf("declaration missing function name")
	}

	required := make(map[string]bool, len(d.Function.Parameters.Required))
	for _, name := range d.Function.Parameters.Required {
		required[name] = true
	}

	names := make([]string, 0, len(d.Function.Parameters.Properties))
	for name := range d.Function.Parameters.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	spec := ToolSpec{
		Name:        d.Function.Name,
		Description: d.Function.Description,
	}
	for _, name := range names {
		prop := d.Function.Parameters.Properties[name]
		p := ParamSpec{
			Name:        name,
			Type:        ParamType(prop.Type),
			Description: prop.Description,
			Required:    required[name],
		}
		if prop.Minimum != nil && prop.Maximum != nil {
			p.HasBounds = true
			p.Minimum = *prop.Minimum
			p.Maximum = *prop.Maximum
		}
		spec.Params = append(spec.Params, p)
	}
	return spec, nil
}

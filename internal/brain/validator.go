package brain

import (
	"fmt"

	"meebo/internal/logging"
	"meebo/internal/tools"
)

// Validator filters parsed actions against the capability registry. It is
// a pure filter: no side effects beyond a warning log per rejection.
type Validator struct {
	registry *tools.Registry
}

// NewValidator creates a validator over the given registry.
func NewValidator(registry *tools.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks one parsed action. Rejections are returned as errors;
// the caller drops the action and continues, so a single bad action never
// costs the rest of the batch.
//
// Beyond the unknown-tool check, parameters are held to the schema:
// missing required parameters and out-of-bounds numeric values reject the
// action, and values are coerced to the declared types. Parameters the
// schema does not mention pass through untouched; the executor ignores
// keys it does not know.
func (v *Validator) Validate(action ParsedAction) (ValidatedAction, error) {
	spec, ok := v.registry.Lookup(action.Tool)
	if !ok {
		logging.DispatchWarn("Validate: dropping action with unknown tool %q", action.Tool)
		return ValidatedAction{}, fmt.Errorf("%w: %s", ErrUnknownTool, action.Tool)
	}

	params := make(map[string]interface{}, len(action.Params))
	for key, value := range action.Params {
		params[key] = value
	}

	for _, p := range spec.Params {
		raw, present := params[p.Name]
		if !present {
			if p.Required {
				logging.DispatchWarn("Validate: %s missing required parameter %q", action.Tool, p.Name)
				return ValidatedAction{}, fmt.Errorf("%w: %s: missing required parameter %q", ErrInvalidParam, action.Tool, p.Name)
			}
			continue
		}
		coerced, err := coerceParam(p, raw)
		if err != nil {
			logging.DispatchWarn("Validate: %s parameter %q rejected: %v", action.Tool, p.Name, err)
			return ValidatedAction{}, fmt.Errorf("%w: %s: %v", ErrInvalidParam, action.Tool, err)
		}
		params[p.Name] = coerced
	}

	return ValidatedAction{Tool: action.Tool, Params: params}, nil
}

// ValidateAll filters a batch, preserving order. Rejected actions are
// dropped; they are expressed as omissions, not errors.
func (v *Validator) ValidateAll(actions []ParsedAction) []ValidatedAction {
	out := make([]ValidatedAction, 0, len(actions))
	for _, a := range actions {
		validated, err := v.Validate(a)
		if err != nil {
			continue
		}
		out = append(out, validated)
	}
	return out
}

// coerceParam converts a raw scalar to the parameter's declared type and
// enforces numeric bounds. The parser and the native tool-call path hand
// over int64, float64, bool, or string.
func coerceParam(p tools.ParamSpec, raw interface{}) (interface{}, error) {
	switch p.Type {
	case tools.TypeInteger:
		n, ok := asInt(raw)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects integer, got %T", p.Name, raw)
		}
		if p.HasBounds && (float64(n) < p.Minimum || float64(n) > p.Maximum) {
			return nil, fmt.Errorf("parameter %q out of range [%v, %v]: %d", p.Name, p.Minimum, p.Maximum, n)
		}
		return n, nil

	case tools.TypeNumber:
		f, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects number, got %T", p.Name, raw)
		}
		if p.HasBounds && (f < p.Minimum || f > p.Maximum) {
			return nil, fmt.Errorf("parameter %q out of range [%v, %v]: %v", p.Name, p.Minimum, p.Maximum, f)
		}
		return f, nil

	case tools.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects boolean, got %T", p.Name, raw)
		}
		return b, nil

	case tools.TypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		// A bare number or flag where text was expected reads fine as its
		// literal form.
		return fmt.Sprintf("%v", raw), nil

	default:
		return nil, fmt.Errorf("parameter %q has unsupported type %q", p.Name, p.Type)
	}
}

func asInt(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

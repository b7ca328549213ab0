package registry

import (
	"fmt"

	"github.com/vidpipe/vidpipe/validation"
)

// ParameterSchema declares the shape an Entry expects for one named Call
// parameter, so a registration mistake (a missing required name, an
// inverted bound) is caught when the function is registered rather than
// the first time some program happens to call it.
type ParameterSchema struct {
	Name     string  `validate:"required"`
	Type     string  `validate:"required,oneof=int float string bool symbol floatlist"`
	Required bool
	Min      float64 `validate:"omitempty"`
	Max      float64 `validate:"omitempty,gtefield=Min"`
}

// ValidateSchema validates a ParameterSchema's own struct tags via
// validation.Validate before it is attached to an Entry.
func ValidateSchema(s ParameterSchema) error {
	return validation.Validate(s)
}

// BindParams checks a Call's merged Params against schema: every Required
// parameter must be present, and a declared [Min, Max] bound is enforced on
// any numeric value supplied for that name. It reports the first violation
// found, or nil if params satisfies schema. A nil or empty schema always
// succeeds — ParamSchema is opt-in per Entry.
func BindParams(schema []ParameterSchema, params Params) error {
	for _, s := range schema {
		v, present := params[s.Name]
		if !present {
			if s.Required {
				return fmt.Errorf("missing required parameter %q", s.Name)
			}
			continue
		}
		if s.Min == 0 && s.Max == 0 {
			continue
		}
		var n float64
		switch val := v.(type) {
		case int64:
			n = float64(val)
		case float64:
			n = val
		default:
			continue
		}
		if n < s.Min || (s.Max != 0 && n > s.Max) {
			return fmt.Errorf("parameter %q = %v out of range [%v, %v]", s.Name, v, s.Min, s.Max)
		}
	}
	return nil
}

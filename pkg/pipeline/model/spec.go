package model

// Parameter is a named argument of a pipeline. A parameter without a default must be supplied by the caller.
type Parameter struct {
	Name     string `yaml:"name" json:"name"`
	Default  string `yaml:"default,omitempty" json:"default,omitempty"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// RequiredParameter declares a parameter the caller has to supply.
func RequiredParameter(name string) Parameter {
	return Parameter{Name: name, Required: true}
}

// OptionalParameter declares a parameter falling back to defaultValue.
func OptionalParameter(name, defaultValue string) Parameter {
	return Parameter{Name: name, Default: defaultValue}
}

// PipelineSpec names a pipeline and lists its parameters in declaration order.
type PipelineSpec struct {
	Name       string      `yaml:"name" json:"name"`
	Parameters []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Parameter looks a parameter up by name.
func (s PipelineSpec) Parameter(name string) (Parameter, bool) {
	for _, param := range s.Parameters {
		if param.Name == name {
			return param, true
		}
	}

	return Parameter{}, false
}

// Clone returns a deep copy of the spec.
func (s PipelineSpec) Clone() PipelineSpec {
	res := PipelineSpec{Name: s.Name}
	if s.Parameters != nil {
		res.Parameters = append([]Parameter(nil), s.Parameters...)
	}

	return res
}

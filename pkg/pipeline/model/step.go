package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUndeclaredOutput is returned when asking a step for an output it does not declare.
	ErrUndeclaredOutput = errors.New("output is not declared by the step")
	// ErrNonScalarParam is returned when a parameter value is not a string, a boolean or a number.
	ErrNonScalarParam = errors.New("parameter value must be a scalar")
)

// StepType tells what an orchestrator does with a step.
type StepType string

const (
	// RunStepType runs a function to completion, e.g. a training job.
	RunStepType StepType = "run"
	// DeployStepType deploys a function as a long running service, e.g. a model server.
	DeployStepType StepType = "deploy"
)

// FunctionRef names a component implemented outside the pipeline.
type FunctionRef string

func (f FunctionRef) String() string {
	return string(f)
}

// Params is a bag of scalar parameters passed to a function.
type Params map[string]any

// Validate checks that every value is a scalar.
func (p Params) Validate() error {
	for key, value := range p {
		if !isScalar(value) {
			return errors.Wrapf(ErrNonScalarParam, "param %s has type %T", key, value)
		}
	}

	return nil
}

func (p Params) clone() Params {
	if p == nil {
		return nil
	}

	res := make(Params, len(p))
	for key, value := range p {
		res[key] = value
	}

	return res
}

// wholeFloat formats a float holding a whole number so that decoders read it back as a float,
// e.g. 1 becomes 1.0.
func wholeFloat(value any) (string, bool) {
	var (
		f       float64
		bitSize int
	)

	switch v := value.(type) {
	case float32:
		f, bitSize = float64(v), 32
	case float64:
		f, bitSize = v, 64
	default:
		return "", false
	}

	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return "", false
	}

	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s, true
}

// MarshalYAML keeps whole floats distinguishable from integers.
func (p Params) MarshalYAML() (interface{}, error) {
	res := make(map[string]interface{}, len(p))
	for key, value := range p {
		if s, ok := wholeFloat(value); ok {
			res[key] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}

			continue
		}

		res[key] = value
	}

	return res, nil
}

// MarshalJSON writes the keys sorted and keeps whole floats distinguishable from integers.
func (p Params) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	buf := &bytes.Buffer{}
	buf.WriteByte('{')

	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(key)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to encode param name %s", key)
		}

		buf.Write(name)
		buf.WriteByte(':')

		if s, ok := wholeFloat(p[key]); ok {
			buf.WriteString(s)

			continue
		}

		value, err := json.Marshal(p[key])
		if err != nil {
			return nil, errors.Wrapf(err, "unable to encode param %s", key)
		}

		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func isScalar(value any) bool {
	switch value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// ModelDescriptor describes a model handed to a serving function.
type ModelDescriptor struct {
	Key       string      `yaml:"key" json:"key"`
	ModelPath ArtifactRef `yaml:"model_path" json:"model_path"`
	ClassName string      `yaml:"class_name" json:"class_name"`
}

// StepInvocation is one call to an external function within a pipeline.
type StepInvocation struct {
	Name     string                 `yaml:"name" json:"name"`
	Type     StepType               `yaml:"type" json:"type"`
	Function FunctionRef            `yaml:"function" json:"function"`
	Handler  string                 `yaml:"handler,omitempty" json:"handler,omitempty"`
	Inputs   map[string]ArtifactRef `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Params   Params                 `yaml:"params,omitempty" json:"params,omitempty"`
	Outputs  []string               `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Models   []ModelDescriptor      `yaml:"models,omitempty" json:"models,omitempty"`
}

// DeclaresOutput reports whether the step declares the named output.
func (s *StepInvocation) DeclaresOutput(name string) bool {
	for _, output := range s.Outputs {
		if output == name {
			return true
		}
	}

	return false
}

// Output returns the reference other steps use to consume the named output.
func (s *StepInvocation) Output(name string) (ArtifactRef, error) {
	if !s.DeclaresOutput(name) {
		return ArtifactRef{}, errors.Wrapf(ErrUndeclaredOutput, "step %s, output %s", s.Name, name)
	}

	return StepOutput(s.Name, name), nil
}

// InputNames returns the logical input names, sorted.
func (s *StepInvocation) InputNames() []string {
	names := make([]string, 0, len(s.Inputs))
	for name := range s.Inputs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// References lists every artifact the step consumes: its inputs sorted by name, then its model paths.
func (s *StepInvocation) References() []ArtifactRef {
	refs := make([]ArtifactRef, 0, len(s.Inputs)+len(s.Models))
	for _, name := range s.InputNames() {
		refs = append(refs, s.Inputs[name])
	}

	for _, mdl := range s.Models {
		refs = append(refs, mdl.ModelPath)
	}

	return refs
}

// Clone returns a deep copy of the invocation.
func (s *StepInvocation) Clone() *StepInvocation {
	res := *s
	if s.Inputs != nil {
		res.Inputs = make(map[string]ArtifactRef, len(s.Inputs))
		for name, ref := range s.Inputs {
			res.Inputs[name] = ref
		}
	}

	res.Params = s.Params.clone()

	if s.Outputs != nil {
		res.Outputs = append([]string(nil), s.Outputs...)
	}

	if s.Models != nil {
		res.Models = append([]ModelDescriptor(nil), s.Models...)
	}

	return &res
}

package pipeline

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// Definition is a compiled pipeline. It is immutable: accessors return copies.
type Definition struct {
	spec  model.PipelineSpec
	args  Arguments
	steps []*model.StepInvocation
	index map[string]*model.StepInvocation
	deps  map[string][]string
	opts  []model.PipelineOption
}

// Link is an edge of the definition graph: To consumes Outputs of From.
type Link struct {
	From    string
	To      string
	Outputs []string
}

// Spec returns the pipeline specification.
func (d *Definition) Spec() model.PipelineSpec {
	return d.spec.Clone()
}

// Arguments returns the resolved arguments the definition was compiled with.
func (d *Definition) Arguments() Arguments {
	res := make(Arguments, len(d.args))
	for name, value := range d.args {
		res[name] = value
	}

	return res
}

// Steps returns the steps in declaration order, in which producers always come before their consumers.
func (d *Definition) Steps() []*model.StepInvocation {
	res := make([]*model.StepInvocation, len(d.steps))
	for i, step := range d.steps {
		res[i] = step.Clone()
	}

	return res
}

// Step returns the named step.
func (d *Definition) Step(name string) (*model.StepInvocation, bool) {
	step, ok := d.index[name]
	if !ok {
		return nil, false
	}

	return step.Clone(), true
}

// Dependencies returns the sorted names of the steps producing the inputs of the named step.
func (d *Definition) Dependencies(name string) ([]string, error) {
	deps, ok := d.deps[name]
	if !ok {
		return nil, errors.Errorf("unknown step %s", name)
	}

	return append([]string{}, deps...), nil
}

// Links lists the edges of the definition, ordered by consumer then producer.
func (d *Definition) Links() []Link {
	links := []Link{}

	for _, step := range d.steps {
		outputs := make(map[string][]string)
		for _, ref := range step.References() {
			if ref.Kind != model.OutputRefKind || containsString(outputs[ref.Step], ref.Output) {
				continue
			}

			outputs[ref.Step] = append(outputs[ref.Step], ref.Output)
		}

		for _, dep := range d.deps[step.Name] {
			links = append(links, Link{From: dep, To: step.Name, Outputs: outputs[dep]})
		}
	}

	return links
}

type document struct {
	Name       string            `yaml:"name" json:"name"`
	Parameters []model.Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Arguments  Arguments         `yaml:"arguments,omitempty" json:"arguments,omitempty"`
	Steps      []documentStep    `yaml:"steps" json:"steps"`
}

type documentStep struct {
	Name         string                       `yaml:"name" json:"name"`
	Type         model.StepType               `yaml:"type" json:"type"`
	Function     model.FunctionRef            `yaml:"function" json:"function"`
	Handler      string                       `yaml:"handler,omitempty" json:"handler,omitempty"`
	Inputs       map[string]model.ArtifactRef `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Params       model.Params                 `yaml:"params,omitempty" json:"params,omitempty"`
	Outputs      []string                     `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Models       []model.ModelDescriptor      `yaml:"models,omitempty" json:"models,omitempty"`
	Dependencies []string                     `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

func (d *Definition) document() document {
	doc := document{
		Name:       d.spec.Name,
		Parameters: d.spec.Clone().Parameters,
		Arguments:  d.Arguments(),
		Steps:      make([]documentStep, 0, len(d.steps)),
	}

	for _, step := range d.Steps() {
		doc.Steps = append(doc.Steps, documentStep{
			Name:         step.Name,
			Type:         step.Type,
			Function:     step.Function,
			Handler:      step.Handler,
			Inputs:       step.Inputs,
			Params:       step.Params,
			Outputs:      step.Outputs,
			Models:       step.Models,
			Dependencies: d.deps[step.Name],
		})
	}

	return doc
}

// WriteYAML encodes the definition as YAML.
func (d *Definition) WriteYAML(wrt io.Writer) error {
	enc := yaml.NewEncoder(wrt)
	enc.SetIndent(2)

	err := enc.Encode(d.document())
	if err != nil {
		return errors.Wrap(err, "unable to encode definition")
	}

	return errors.Wrap(enc.Close(), "unable to flush definition")
}

// WriteJSON encodes the definition as indented JSON.
func (d *Definition) WriteJSON(wrt io.Writer) error {
	enc := json.NewEncoder(wrt)
	enc.SetIndent("", "  ")

	err := enc.Encode(d.document())
	if err != nil {
		return errors.Wrap(err, "unable to encode definition")
	}

	return nil
}

// LoadDefinition decodes a definition written by WriteYAML or WriteJSON and declares it again,
// so a loaded definition obeys the same rules as a declared one. Producers must come before
// their consumers.
func LoadDefinition(rdr io.Reader, opts ...model.PipelineOption) (*Definition, error) {
	doc := document{}

	err := yaml.NewDecoder(rdr).Decode(&doc)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode definition")
	}

	pipe, err := New(model.PipelineSpec{Name: doc.Name, Parameters: doc.Parameters}, opts...)
	if err != nil {
		return nil, err
	}

	for _, docStep := range doc.Steps {
		step := &model.StepInvocation{
			Name:     docStep.Name,
			Type:     docStep.Type,
			Function: docStep.Function,
			Handler:  docStep.Handler,
			Inputs:   docStep.Inputs,
			Params:   docStep.Params,
			Outputs:  docStep.Outputs,
			Models:   docStep.Models,
		}

		switch step.Type {
		case model.RunStepType:
		case model.DeployStepType:
			err := checkModels(step.Name, step.Models)
			if err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("step %s: unknown step type %q", step.Name, step.Type)
		}

		_, err := addStep(pipe, step)
		if err != nil {
			return nil, err
		}
	}

	def, err := pipe.Compile(doc.Arguments)
	if err != nil {
		return nil, err
	}

	for _, docStep := range doc.Steps {
		if docStep.Dependencies == nil {
			continue
		}

		if !equalStrings(sortedCopy(docStep.Dependencies), def.deps[docStep.Name]) {
			return nil, errors.Wrapf(ErrInconsistentDeps, "step %s: declared %v, computed %v",
				docStep.Name, docStep.Dependencies, def.deps[docStep.Name])
		}
	}

	return def, nil
}

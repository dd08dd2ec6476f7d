package pipeline

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// Arguments are the values bound to the pipeline parameters, keyed by parameter name.
type Arguments map[string]string

// Get returns the value bound to name, or an empty string.
func (a Arguments) Get(name string) string {
	return a[name]
}

// ResolveArguments checks args against the parameters of spec and fills in defaults.
// An empty value counts as missing.
func ResolveArguments(spec model.PipelineSpec, args Arguments) (Arguments, error) {
	unknown := []string{}

	for name := range args {
		if _, ok := spec.Parameter(name); !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return nil, errors.Wrapf(ErrUnknownParameter, "pipeline %s: %v", spec.Name, unknown)
	}

	resolved := make(Arguments, len(spec.Parameters))
	for _, param := range spec.Parameters {
		value := args[param.Name]
		if value == "" {
			if param.Required {
				return nil, errors.Wrapf(ErrMissingParameter, "pipeline %s: %s", spec.Name, param.Name)
			}

			value = param.Default
		}

		resolved[param.Name] = value
	}

	return resolved, nil
}

// BuildFunc declares the steps of a pipeline from resolved arguments.
type BuildFunc func(p *Pipeline, args Arguments) error

// Template is a named, parameterized pipeline declaration. Compiling it with arguments
// produces a Definition an orchestrator can execute.
type Template struct {
	Spec  model.PipelineSpec
	Build BuildFunc
}

// Compile resolves args, then creates the pipeline, declares the steps and compiles the result.
// Options are not initialised when args are rejected.
func (t Template) Compile(args Arguments, opts ...model.PipelineOption) (*Definition, error) {
	if t.Build == nil {
		return nil, errors.Wrapf(ErrBuildMustBeSet, "pipeline %s", t.Spec.Name)
	}

	resolved, err := ResolveArguments(t.Spec, args)
	if err != nil {
		return nil, err
	}

	pipe, err := New(t.Spec, opts...)
	if err != nil {
		return nil, err
	}

	err = t.Build(pipe, resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build pipeline %s", t.Spec.Name)
	}

	return pipe.Compile(resolved)
}

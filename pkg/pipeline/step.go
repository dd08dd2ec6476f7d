package pipeline

import (
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

func checkStep(step *model.StepInvocation) error {
	err := checkName("step", step.Name)
	if err != nil {
		return err
	}

	if step.Function == "" {
		return errors.Wrapf(ErrFunctionMustBeSet, "step %s", step.Name)
	}

	outputs := make(map[string]struct{}, len(step.Outputs))
	for _, output := range step.Outputs {
		err := checkName("output", output)
		if err != nil {
			return errors.Wrapf(err, "step %s", step.Name)
		}

		if _, ok := outputs[output]; ok {
			return errors.Wrapf(ErrDuplicateOutput, "step %s, output %s", step.Name, output)
		}

		outputs[output] = struct{}{}
	}

	for name := range step.Inputs {
		if name == "" {
			return errors.Wrapf(ErrNameMustBeSet, "step %s input", step.Name)
		}
	}

	for key := range step.Params {
		if key == "" {
			return errors.Wrapf(ErrInvalidParam, "step %s: empty param name", step.Name)
		}
	}

	err = step.Params.Validate()
	if err != nil {
		return errors.Wrapf(ErrInvalidParam, "step %s: %s", step.Name, err.Error())
	}

	return nil
}

// resolveParents checks every reference of the step against the steps declared so far and
// returns, for each producing step, the sorted names of the outputs consumed.
func (p *Pipeline) resolveParents(step *model.StepInvocation) (map[string][]string, error) {
	parents := make(map[string][]string)

	for _, ref := range step.References() {
		switch ref.Kind {
		case model.URIRefKind:
			if ref.URI == "" {
				return nil, errors.Wrapf(ErrInvalidReference, "step %s: empty uri", step.Name)
			}
		case model.OutputRefKind:
			idx, ok := p.index[ref.Step]
			if !ok {
				return nil, errors.Wrapf(ErrDanglingReference, "step %s: %s: unknown step %s", step.Name, ref, ref.Step)
			}

			_, err := p.steps[idx].Output(ref.Output)
			if err != nil {
				return nil, errors.Wrapf(ErrDanglingReference, "step %s: %s", step.Name, err.Error())
			}

			if !containsString(parents[ref.Step], ref.Output) {
				parents[ref.Step] = append(parents[ref.Step], ref.Output)
			}
		default:
			return nil, errors.Wrapf(ErrInvalidReference, "step %s: unknown reference kind %q", step.Name, ref.Kind)
		}
	}

	for name := range parents {
		sort.Strings(parents[name])
	}

	return parents, nil
}

func containsString(list []string, s string) bool {
	for _, elem := range list {
		if elem == s {
			return true
		}
	}

	return false
}

func sortedCopy(list []string) []string {
	res := append([]string{}, list...)
	sort.Strings(res)

	return res
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func addStep(p *Pipeline, step *model.StepInvocation) (*model.StepInvocation, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if p.compiled {
		return nil, errors.Wrapf(ErrPipelineCompiled, "step %s", step.Name)
	}

	err := checkStep(step)
	if err != nil {
		return nil, err
	}

	if _, ok := p.index[step.Name]; ok {
		return nil, errors.Wrapf(ErrDuplicateStep, "step %s", step.Name)
	}

	parents, err := p.resolveParents(step)
	if err != nil {
		return nil, err
	}

	err = p.graph.AddVertex(step)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to add step %s", step.Name)
	}

	parentNames := make([]string, 0, len(parents))
	for name := range parents {
		parentNames = append(parentNames, name)
	}

	sort.Strings(parentNames)

	parentSteps := make([]*model.StepInvocation, 0, len(parentNames))
	for _, name := range parentNames {
		err := p.graph.AddEdge(name, step.Name, graph.EdgeAttribute("label", strings.Join(parents[name], ",")))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to link %s to %s", name, step.Name)
		}

		parentSteps = append(parentSteps, p.steps[p.index[name]].Clone())
	}

	p.index[step.Name] = len(p.steps)
	p.steps = append(p.steps, step)

	for _, opt := range p.opts {
		err := opt.PrepareStep(parentSteps, step.Clone())
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare step function")
		}
	}

	return step.Clone(), nil
}

// AddRunStep declares a step running fn to completion. Its outputs can be consumed by later steps
// through the Output method of the returned invocation.
func AddRunStep(p *Pipeline, name string, fn model.FunctionRef, opts ...StepOption) (*model.StepInvocation, error) {
	step := &model.StepInvocation{
		Name:     name,
		Type:     model.RunStepType,
		Function: fn,
	}
	for _, opt := range opts {
		opt(step)
	}

	return addStep(p, step)
}

// AddDeployStep declares a step deploying fn as a serving function for models.
func AddDeployStep(p *Pipeline, name string, fn model.FunctionRef, models []model.ModelDescriptor, opts ...StepOption) (*model.StepInvocation, error) {
	err := checkModels(name, models)
	if err != nil {
		return nil, err
	}

	step := &model.StepInvocation{
		Name:     name,
		Type:     model.DeployStepType,
		Function: fn,
		Models:   append([]model.ModelDescriptor(nil), models...),
	}
	for _, opt := range opts {
		opt(step)
	}

	return addStep(p, step)
}

func checkModels(stepName string, models []model.ModelDescriptor) error {
	if len(models) == 0 {
		return errors.Wrapf(ErrNoModels, "step %s", stepName)
	}

	keys := make(map[string]struct{}, len(models))
	for i, mdl := range models {
		if mdl.Key == "" || mdl.ClassName == "" || mdl.ModelPath.IsZero() {
			return errors.Wrapf(ErrInvalidModel, "step %s, model %d", stepName, i)
		}

		if _, ok := keys[mdl.Key]; ok {
			return errors.Wrapf(ErrDuplicateModel, "step %s, model %s", stepName, mdl.Key)
		}

		keys[mdl.Key] = struct{}{}
	}

	return nil
}

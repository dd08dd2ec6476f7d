package pipeline

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-workflow/internal/store"
	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps being declared.
type Pipeline struct {
	spec     model.PipelineSpec
	opts     []model.PipelineOption
	steps    []*model.StepInvocation
	index    map[string]int
	store    *store.MemoryStore[string, *model.StepInvocation]
	graph    graph.Graph[string, *model.StepInvocation]
	compiled bool
}

func stepHash(s *model.StepInvocation) string {
	return s.Name
}

// New creates a new pipeline from its specification.
func New(spec model.PipelineSpec, opts ...model.PipelineOption) (*Pipeline, error) {
	err := checkSpec(spec)
	if err != nil {
		return nil, err
	}

	stepStore := store.New[string, *model.StepInvocation]()
	pipe := &Pipeline{
		spec:  spec.Clone(),
		opts:  opts,
		index: make(map[string]int),
		store: stepStore,
		graph: graph.NewWithStore(
			stepHash,
			graph.Store[string, *model.StepInvocation](stepStore),
			graph.Directed(),
			graph.Acyclic(),
			graph.PreventCycles(),
		),
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

func checkSpec(spec model.PipelineSpec) error {
	if spec.Name == "" {
		return errors.Wrap(ErrNameMustBeSet, "pipeline")
	}

	seen := make(map[string]struct{}, len(spec.Parameters))
	for _, param := range spec.Parameters {
		err := checkName("parameter", param.Name)
		if err != nil {
			return err
		}

		if _, ok := seen[param.Name]; ok {
			return errors.Wrapf(ErrDuplicateParameter, "parameter %s", param.Name)
		}

		seen[param.Name] = struct{}{}
	}

	return nil
}

// Spec returns a copy of the pipeline specification.
func (p *Pipeline) Spec() model.PipelineSpec {
	return p.spec.Clone()
}

// Step returns a copy of a declared step.
func (p *Pipeline) Step(name string) (*model.StepInvocation, bool) {
	idx, ok := p.index[name]
	if !ok {
		return nil, false
	}

	return p.steps[idx].Clone(), true
}

// Compile freezes the pipeline and resolves args against its parameters.
// No step can be added afterwards.
func (p *Pipeline) Compile(args Arguments) (*Definition, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	resolved, err := ResolveArguments(p.spec, args)
	if err != nil {
		return nil, err
	}

	// a step can only reference steps declared before it, so the declaration order is already
	// a topological order.
	order, err := p.store.ListVertices()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list steps")
	}

	sort.Slice(order, func(i, j int) bool {
		return p.index[order[i]] < p.index[order[j]]
	})

	def := &Definition{
		spec:  p.spec.Clone(),
		args:  resolved,
		steps: make([]*model.StepInvocation, 0, len(order)),
		index: make(map[string]*model.StepInvocation, len(order)),
		deps:  make(map[string][]string, len(order)),
		opts:  p.opts,
	}

	for _, name := range order {
		step := p.steps[p.index[name]].Clone()

		deps, err := p.store.Predecessors(name)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to list dependencies of %s", name)
		}

		def.steps = append(def.steps, step)
		def.index[name] = step
		def.deps[name] = deps
	}

	p.compiled = true

	return def, nil
}

package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// Logger is the logging interface used by the runner. *log.Logger from labstack/gommon implements it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

func discardLogger() Logger {
	logger := log.New("pipeline")
	logger.SetOutput(io.Discard)

	return logger
}

// Runner executes a definition in the current process with the components it was given.
// It is meant for rehearsals and tests: it has no persistence and no retries.
type Runner struct {
	components map[model.FunctionRef]Component
	concurrent int
	logger     Logger
	newRunID   func() string
}

// NewRunner creates a runner. Every function referenced by a definition must be implemented
// by exactly one of the components.
func NewRunner(components []Component, opts ...RunnerOption) (*Runner, error) {
	runner := &Runner{
		components: make(map[model.FunctionRef]Component, len(components)),
		concurrent: 1,
		logger:     discardLogger(),
		newRunID:   uuid.NewString,
	}

	for _, component := range components {
		if component == nil {
			return nil, errors.New("component must be set")
		}

		fn := component.Function()
		if _, ok := runner.components[fn]; ok {
			return nil, errors.Wrapf(ErrDuplicateComponent, "function %s", fn)
		}

		runner.components[fn] = component
	}

	for _, opt := range opts {
		opt(runner)
	}

	if runner.concurrent < 1 {
		runner.concurrent = 1
	}

	return runner, nil
}

// StepResult is the outcome of a step that ran successfully.
type StepResult struct {
	Name    string
	Outputs map[string]string
	Elapsed time.Duration
}

// RunResult is the outcome of a run.
type RunResult struct {
	RunID string
	// Steps are keyed by step name.
	Steps map[string]*StepResult
	// Order lists the steps in completion order.
	Order []string
}

// Output returns the location an output reference resolved to during the run.
func (r *RunResult) Output(ref model.ArtifactRef) (string, bool) {
	if ref.Kind == model.URIRefKind {
		return ref.URI, true
	}

	res, ok := r.Steps[ref.Step]
	if !ok {
		return "", false
	}

	location, ok := res.Outputs[ref.Output]

	return location, ok
}

type runState struct {
	mu     sync.Mutex
	result *RunResult
	done   map[string]chan struct{}
}

func (s *runState) resolve(ref model.ArtifactRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	location, ok := s.result.Output(ref)
	if !ok {
		return "", errors.Wrapf(ErrMissingOutput, "%s", ref)
	}

	return location, nil
}

func (s *runState) record(res *StepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result.Steps[res.Name] = res
	s.result.Order = append(s.result.Order, res.Name)
}

func (r *Runner) checkComponents(def *Definition) error {
	for _, step := range def.steps {
		if _, ok := r.components[step.Function]; !ok {
			return errors.Wrapf(ErrComponentNotFound, "step %s, function %s", step.Name, step.Function)
		}
	}

	return nil
}

// Run executes every step of def once its dependencies succeeded. It stops on the first error.
func (r *Runner) Run(ctx context.Context, def *Definition) (*RunResult, error) {
	if def == nil {
		return nil, ErrDefinitionMustBeSet
	}

	err := r.checkComponents(def)
	if err != nil {
		return nil, err
	}

	state := &runState{
		result: &RunResult{
			RunID: r.newRunID(),
			Steps: make(map[string]*StepResult, len(def.steps)),
		},
		done: make(map[string]chan struct{}, len(def.steps)),
	}
	for _, step := range def.steps {
		state.done[step.Name] = make(chan struct{})
	}

	for _, opt := range def.opts {
		err := opt.BeforeRun(state.result.RunID)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before run function")
		}
	}

	r.logger.Infof("run %s: starting pipeline %s with %d steps", state.result.RunID, def.spec.Name, len(def.steps))

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(r.concurrent)

	// steps are started in topological order so a step holding a slot never waits for one that
	// could not get a slot.
	for _, step := range def.steps {
		step := step
		errGrp.Go(func() error {
			return r.runStep(dCtx, def, state, step)
		})
	}

	err = errGrp.Wait()
	if err != nil {
		r.logger.Errorf("run %s: %s", state.result.RunID, err)

		return nil, err
	}

	for _, opt := range def.opts {
		err := opt.Finish()
		if err != nil {
			return nil, errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	r.logger.Infof("run %s: pipeline %s succeeded", state.result.RunID, def.spec.Name)

	return state.result, nil
}

func (r *Runner) runStep(ctx context.Context, def *Definition, state *runState, step *model.StepInvocation) error {
	for _, dep := range def.deps[step.Name] {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "step %s", step.Name)
		case <-state.done[dep]:
		}
	}

	// a step without dependencies never reaches the select above.
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "step %s", step.Name)
	}

	call, err := r.prepareCall(state, step)
	if err != nil {
		return errors.Wrapf(err, "step %s", step.Name)
	}

	r.logger.Debugf("run %s: step %s calls %s", call.RunID, step.Name, step.Function)

	start := time.Now()
	outputs, err := r.components[step.Function].Invoke(ctx, call)
	elapsed := time.Since(start)

	if err == nil {
		err = checkOutputs(step, outputs)
	}

	for _, opt := range def.opts {
		optErr := opt.OnStepDone(step.Clone(), elapsed, err)
		if optErr != nil && err == nil {
			err = errors.Wrap(optErr, "unable to run step done function")
		}
	}

	if err != nil {
		return errors.Wrapf(err, "step %s", step.Name)
	}

	state.record(&StepResult{Name: step.Name, Outputs: outputs, Elapsed: elapsed})
	r.logger.Infof("run %s: step %s done in %s", call.RunID, step.Name, elapsed)

	// only successful steps release their consumers, a failure cancels ctx instead.
	close(state.done[step.Name])

	return nil
}

func (r *Runner) prepareCall(state *runState, step *model.StepInvocation) (*Call, error) {
	call := &Call{
		RunID:  state.result.RunID,
		Step:   step.Clone(),
		Inputs: make(map[string]string, len(step.Inputs)),
		Models: make([]Model, 0, len(step.Models)),
	}

	for name, ref := range step.Inputs {
		location, err := state.resolve(ref)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", name)
		}

		call.Inputs[name] = location
	}

	for _, mdl := range step.Models {
		location, err := state.resolve(mdl.ModelPath)
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", mdl.Key)
		}

		call.Models = append(call.Models, Model{Key: mdl.Key, ModelPath: location, ClassName: mdl.ClassName})
	}

	return call, nil
}

func checkOutputs(step *model.StepInvocation, outputs map[string]string) error {
	for _, output := range step.Outputs {
		if outputs[output] == "" {
			return errors.Wrapf(ErrMissingOutput, "output %s", output)
		}
	}

	return nil
}

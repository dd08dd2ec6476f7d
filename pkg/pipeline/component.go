package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// Model is a model descriptor whose path has been resolved for a run.
type Model struct {
	Key       string
	ModelPath string
	ClassName string
}

// Call is what a component receives when the runner executes a step.
type Call struct {
	RunID  string
	Step   *model.StepInvocation
	Inputs map[string]string
	Models []Model
}

// Component implements a function referenced by steps.
type Component interface {
	// Function is the reference steps use to call the component.
	Function() model.FunctionRef
	// Invoke runs a step and returns the location of every output the step declares.
	Invoke(ctx context.Context, call *Call) (map[string]string, error)
}

type componentFunc struct {
	fn     model.FunctionRef
	invoke func(ctx context.Context, call *Call) (map[string]string, error)
}

func (c *componentFunc) Function() model.FunctionRef {
	return c.fn
}

func (c *componentFunc) Invoke(ctx context.Context, call *Call) (map[string]string, error) {
	return c.invoke(ctx, call)
}

// ComponentFunc adapts a plain function to the Component interface.
func ComponentFunc(fn model.FunctionRef, invoke func(ctx context.Context, call *Call) (map[string]string, error)) Component {
	return &componentFunc{fn: fn, invoke: invoke}
}

// DryRunComponent records the calls it receives and makes up a location for every declared output,
// <artifact root>/<run id>/<step>/<output>. It lets a definition be rehearsed without the real functions.
type DryRunComponent struct {
	fn           model.FunctionRef
	artifactRoot string

	mu    sync.Mutex
	calls []*Call
}

// NewDryRunComponent creates a dry-run component for fn.
func NewDryRunComponent(fn model.FunctionRef, artifactRoot string) *DryRunComponent {
	return &DryRunComponent{fn: fn, artifactRoot: strings.TrimRight(artifactRoot, "/")}
}

func (c *DryRunComponent) Function() model.FunctionRef {
	return c.fn
}

func (c *DryRunComponent) Invoke(ctx context.Context, call *Call) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()

	outputs := make(map[string]string, len(call.Step.Outputs))
	for _, output := range call.Step.Outputs {
		outputs[output] = strings.Join([]string{c.artifactRoot, call.RunID, call.Step.Name, output}, "/")
	}

	return outputs, nil
}

// Calls returns the calls received so far, in order.
func (c *DryRunComponent) Calls() []*Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*Call{}, c.calls...)
}

var _ Component = (*DryRunComponent)(nil)

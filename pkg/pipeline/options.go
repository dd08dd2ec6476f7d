package pipeline

import "github.com/askiada/go-workflow/pkg/pipeline/model"

// StepOption configures a step invocation before it is added to the pipeline.
type StepOption func(s *model.StepInvocation)

// StepInput binds one logical input of the step to an artifact.
func StepInput(name string, ref model.ArtifactRef) StepOption {
	return func(s *model.StepInvocation) {
		if s.Inputs == nil {
			s.Inputs = make(map[string]model.ArtifactRef)
		}

		s.Inputs[name] = ref
	}
}

// StepInputs binds several logical inputs at once.
func StepInputs(inputs map[string]model.ArtifactRef) StepOption {
	return func(s *model.StepInvocation) {
		for name, ref := range inputs {
			StepInput(name, ref)(s)
		}
	}
}

// StepParams merges params into the step parameters.
func StepParams(params model.Params) StepOption {
	return func(s *model.StepInvocation) {
		if s.Params == nil {
			s.Params = make(model.Params, len(params))
		}

		for key, value := range params {
			s.Params[key] = value
		}
	}
}

// StepHandler selects the entry point of the function.
func StepHandler(handler string) StepOption {
	return func(s *model.StepInvocation) {
		s.Handler = handler
	}
}

// StepOutputs declares the outputs the step produces.
func StepOutputs(outputs ...string) StepOption {
	return func(s *model.StepInvocation) {
		s.Outputs = append(s.Outputs, outputs...)
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(r *Runner)

// RunnerConcurrency sets how many steps may run at the same time. Values below 1 mean 1.
func RunnerConcurrency(concurrent int) RunnerOption {
	return func(r *Runner) {
		r.concurrent = concurrent
	}
}

// RunnerLogger sets the logger used while running.
func RunnerLogger(logger Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// RunnerRunID overrides how run identifiers are generated.
func RunnerRunID(newRunID func() string) RunnerOption {
	return func(r *Runner) {
		r.newRunID = newRunID
	}
}

package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStepOption
	pipelineRunOption

	// Finish runs after the pipeline ran successfully.
	Finish() error
}

// pipelineStepOption defines the interface for step options at the pipeline level.
type pipelineStepOption interface {
	// PrepareStep runs when a step is declared. parents are the steps producing its inputs.
	PrepareStep(parents []*StepInvocation, step *StepInvocation) error
}

// pipelineRunOption defines the interface for options observing a local run.
type pipelineRunOption interface {
	// BeforeRun runs once the run identifier is known and before any step starts.
	BeforeRun(runID string) error
	// OnStepDone runs every time a step finishes, err is the step error if any.
	OnStepDone(step *StepInvocation, elapsed time.Duration, err error) error
}

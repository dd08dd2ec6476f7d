package drawer

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-workflow/pkg/pipeline"
	"github.com/askiada/go-workflow/pkg/pipeline/measure"
	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// boundary vertices cannot clash with step names, which start with a letter or a digit.
const (
	startStepName = "__start__"
	endStepName   = "__end__"
)

func addBoundaries(drw Drawer) error {
	err := drw.AddStep(startStepName, startKind)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}

	err = drw.AddStep(endStepName, endKind)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

// consumedOutputs returns the outputs of parent consumed by step, comma separated.
func consumedOutputs(parent string, step *model.StepInvocation) string {
	outputs := []string{}

	for _, ref := range step.References() {
		if ref.Kind == model.OutputRefKind && ref.Step == parent && !contains(outputs, ref.Output) {
			outputs = append(outputs, ref.Output)
		}
	}

	return strings.Join(outputs, ",")
}

func contains(list []string, s string) bool {
	for _, elem := range list {
		if elem == s {
			return true
		}
	}

	return false
}

func addStep(drw Drawer, parents []string, step *model.StepInvocation) error {
	err := drw.AddStep(step.Name, string(step.Type))
	if err != nil {
		return err
	}

	if len(parents) == 0 {
		return drw.AddLink(startStepName, step.Name, "")
	}

	for _, parent := range parents {
		err := drw.AddLink(parent, step.Name, consumedOutputs(parent, step))
		if err != nil {
			return err
		}
	}

	return nil
}

func linkSinks(drw *DOTDrawer) error {
	sinks, err := drw.Sinks()
	if err != nil {
		return err
	}

	for _, sink := range sinks {
		if sink == endStepName {
			continue
		}

		err := drw.AddLink(sink, endStepName, "")
		if err != nil {
			return err
		}
	}

	return nil
}

// DrawDefinition writes the graph of def. msr is optional.
func DrawDefinition(def *pipeline.Definition, msr measure.Measure, wrt io.Writer) error {
	if def == nil {
		return pipeline.ErrDefinitionMustBeSet
	}

	drw := NewDOTDrawer()

	err := addBoundaries(drw)
	if err != nil {
		return err
	}

	for _, step := range def.Steps() {
		deps, err := def.Dependencies(step.Name)
		if err != nil {
			return err
		}

		err = addStep(drw, deps, step)
		if err != nil {
			return errors.Wrapf(err, "unable to draw step %s", step.Name)
		}
	}

	err = linkSinks(drw)
	if err != nil {
		return errors.Wrap(err, "unable to link end step")
	}

	if msr != nil {
		if total := msr.GetMetric(measure.TotalStepName); total != nil && total.GetTotalDuration() > 0 {
			err := drw.SetTotalTime(endStepName, total.GetTotalDuration())
			if err != nil {
				return errors.Wrap(err, "unable to set total time")
			}
		}

		err := drw.AddMeasure(msr)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	return drw.Draw(wrt)
}

type pipelineDrawer struct {
	*DOTDrawer
	m           measure.Measure
	dotFileName string
	startTime   time.Time
}

func (pd *pipelineDrawer) New() error {
	return addBoundaries(pd)
}

func (pd *pipelineDrawer) PrepareStep(parents []*model.StepInvocation, step *model.StepInvocation) error {
	names := make([]string, len(parents))
	for i, parent := range parents {
		names[i] = parent.Name
	}

	return addStep(pd, names, step)
}

func (pd *pipelineDrawer) BeforeRun(_ string) error {
	pd.startTime = time.Now()

	return nil
}

func (pd *pipelineDrawer) OnStepDone(_ *model.StepInvocation, _ time.Duration, _ error) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	err := linkSinks(pd.DOTDrawer)
	if err != nil {
		return errors.Wrap(err, "unable to link end step")
	}

	if pd.m != nil {
		err := pd.SetTotalTime(endStepName, time.Since(pd.startTime))
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	file, err := os.Create(pd.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", pd.dotFileName)
	}
	defer file.Close()

	err = pd.Draw(file)
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer returns a pipeline option drawing the pipeline into dotFileName once it ran.
// measure is optional; when set, steps are labelled and coloured with their durations.
func PipelineDrawer(drawer *DOTDrawer, measure measure.Measure, dotFileName string) model.PipelineOption {
	return &pipelineDrawer{DOTDrawer: drawer, m: measure, dotFileName: dotFileName}
}

package measure

import (
	"time"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// TotalStepName is the metric holding the duration of a whole run. Step names start with a
// letter or a digit, so no step shares it.
const TotalStepName = "__total__"

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(TotalStepName)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(_ []*model.StepInvocation, step *model.StepInvocation) error {
	pm.AddMetric(step.Name)

	return nil
}

func (pm *pipelineMeasure) BeforeRun(_ string) error {
	pm.startTime = time.Now()

	return nil
}

func (pm *pipelineMeasure) OnStepDone(step *model.StepInvocation, elapsed time.Duration, err error) error {
	mt := pm.AddMetric(step.Name)
	if err != nil {
		mt.AddFailure()

		return nil
	}

	mt.AddDuration(elapsed)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.AddMetric(TotalStepName).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure returns a pipeline option recording step durations into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}

package drawer

import (
	"io"
	"time"

	"github.com/askiada/go-workflow/pkg/pipeline/measure"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStep adds a step to the pipeline drawer. kind is the step type, e.g. run or deploy.
	AddStep(stepName, kind string) error
	// AddLink adds a link between a parent step and a child step, labelled with the artifacts passed along.
	AddLink(parentStepName, childStepName, label string) error
	// Draw writes the pipeline graph.
	Draw(wrt io.Writer) error
	// SetTotalTime sets the total time of a step.
	SetTotalTime(stepName string, totalTime time.Duration) error
	// AddMeasure adds a measure to the pipeline drawer.
	AddMeasure(measure measure.Measure) error
}

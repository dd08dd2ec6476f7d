package measure

import "time"

// Measure collects one metric per step.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric aggregates the executions of a step.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddFailure()
	AVGDuration() time.Duration
	Runs() int64
	Failures() int64
	SetTotalDuration(totalDuration time.Duration)
	GetTotalDuration() time.Duration
}

package measure

import (
	"sync"
	"time"
)

type DefaultMetric struct {
	mu            sync.Mutex
	totalDuration time.Duration
	stepElapsed   time.Duration
	runs          int64
	failures      int64
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.runs++
	mt.stepElapsed += elapsed
}

func (mt *DefaultMetric) AddFailure() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.failures++
}

func (mt *DefaultMetric) SetTotalDuration(totalDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.totalDuration = totalDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.totalDuration
}

func (mt *DefaultMetric) Runs() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.runs
}

func (mt *DefaultMetric) Failures() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.failures
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.runs == 0 {
		return time.Duration(0)
	}

	return Round(time.Duration(float64(mt.stepElapsed) / float64(mt.runs)))
}

// Round drops the precision a human does not care about when reading a duration.
func Round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Minute:
		d = d.Round(time.Second)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}

var _ Metric = (*DefaultMetric)(nil)

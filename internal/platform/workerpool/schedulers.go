// internal/platform/workerpool/schedulers.go
package workerpool

import "sort"

// FIFOScheduler dispatches tasks in submission order. Descriptor lists
// are ordered in the manifest, so this is the default.
type FIFOScheduler struct{}

// NewFIFOScheduler creates the order-preserving scheduler.
func NewFIFOScheduler() *FIFOScheduler {
	return &FIFOScheduler{}
}

// Schedule returns the tasks unchanged.
func (s *FIFOScheduler) Schedule(tasks []Task) []Task {
	scheduled := make([]Task, len(tasks))
	copy(scheduled, tasks)
	return scheduled
}

// Name returns the scheduler name.
func (s *FIFOScheduler) Name() string {
	return "fifo"
}

// WeightedScheduler dispatches heavier tasks first so the largest
// archives start transferring while lighter ones fill the free workers.
type WeightedScheduler struct{}

// NewWeightedScheduler creates a weight-based scheduler.
func NewWeightedScheduler() *WeightedScheduler {
	return &WeightedScheduler{}
}

// Schedule orders by descending weight; ties keep submission order.
func (s *WeightedScheduler) Schedule(tasks []Task) []Task {
	scheduled := make([]Task, len(tasks))
	copy(scheduled, tasks)

	sort.SliceStable(scheduled, func(i, j int) bool {
		return scheduled[i].Weight() > scheduled[j].Weight()
	})

	return scheduled
}

// Name returns the scheduler name.
func (s *WeightedScheduler) Name() string {
	return "weighted"
}

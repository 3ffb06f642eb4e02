package tabprep

import (
	"sync"
)

// Releasable represents any resource backed by Arrow memory.
//
// DataFrames and Series built through this package share Arrow buffers, and a
// joined table holds its own references to the main table's columns, so each
// of them is released on its own:
//
//	joined, err := joiner.FitTransform(ctx, main)
//	if err != nil {
//		return err
//	}
//	defer joined.Release()
type Releasable interface {
	Release()
}

// ResourceTracker collects resources created in a loop, such as one joined
// table per batch, and releases them together.
// It is safe for concurrent use.
type ResourceTracker struct {
	mu        sync.Mutex
	resources []Releasable
}

// Track registers resource for release; nil is ignored.
func (t *ResourceTracker) Track(resource Releasable) {
	if resource == nil {
		return
	}
	t.mu.Lock()
	t.resources = append(t.resources, resource)
	t.mu.Unlock()
}

// Count returns the number of tracked resources.
func (t *ResourceTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.resources)
}

// ReleaseAll releases every tracked resource in reverse tracking order.
func (t *ResourceTracker) ReleaseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.resources) - 1; i >= 0; i-- {
		t.resources[i].Release()
	}
	t.resources = t.resources[:0]
}

// WithTracker runs fn with a fresh tracker and releases everything it tracked.
func WithTracker(fn func(*ResourceTracker) error) error {
	tracker := &ResourceTracker{}
	defer tracker.ReleaseAll()
	return fn(tracker)
}

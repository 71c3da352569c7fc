package engine

import "sync/atomic"

// Assumption is a one-way guard flag. It is created valid, can be
// invalidated exactly once, and never becomes valid again. Many
// references may share one Assumption; invalidation is visible to all
// readers through a plain atomic load.
type Assumption struct {
	name  string
	valid atomic.Bool
}

// NewAssumption creates a valid assumption. The name is only used in
// logs and diagnostics.
func NewAssumption(name string) *Assumption {
	a := &Assumption{name: name}
	a.valid.Store(true)
	return a
}

// Name returns the diagnostic name of the assumption.
func (a *Assumption) Name() string {
	return a.name
}

// IsValid reports whether the assumption still holds.
func (a *Assumption) IsValid() bool {
	return a.valid.Load()
}

// Invalidate permanently invalidates the assumption. It is safe to
// call more than once and from multiple goroutines; only the first
// call transitions the flag.
func (a *Assumption) Invalidate() bool {
	return a.valid.CompareAndSwap(true, false)
}

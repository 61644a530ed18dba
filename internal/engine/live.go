package engine

import "sync/atomic"

// Live publishes the current Dataset to concurrent readers. A reload builds
// a complete Dataset first and then swaps the pointer; the published value
// is never mutated.
type Live struct {
	current atomic.Pointer[Dataset]
}

// NewLive returns a holder publishing d, which may be nil (not loaded yet).
func NewLive(d *Dataset) *Live {
	l := &Live{}
	if d != nil {
		l.current.Store(d)
	}
	return l
}

// Load returns the published dataset or nil while loading.
func (l *Live) Load() *Dataset { return l.current.Load() }

// Swap publishes d and returns the previous dataset.
func (l *Live) Swap(d *Dataset) *Dataset { return l.current.Swap(d) }

// Ready reports whether a dataset has been published.
func (l *Live) Ready() bool { return l.current.Load() != nil }

package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource arena closed")

// Arena is a generational pin table. Values are pinned by their owner
// (an engine or a context) and observed through Handles by parties
// that must not extend the value's lifetime. Releasing a pin bumps
// the slot generation, so every outstanding Handle to the released
// value observes "gone" instead of a recycled stranger.
type Arena struct {
	entries  []entry
	freeList []uint32
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	gen   uint32
	live  bool
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Pin stores a value and returns its handle. The caller owns the pin
// and is responsible for the matching Release.
func (a *Arena) Pin(value any) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Handle{}, ErrClosed
	}

	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		e := &a.entries[idx]
		e.value = value
		e.live = true
		return Handle{index: idx + 1, gen: e.gen}, nil
	}

	a.entries = append(a.entries, entry{value: value, live: true})
	return Handle{index: uint32(len(a.entries))}, nil
}

// Get returns the pinned value, or ok=false if the handle's pin was
// released (or the handle is zero). A released handle never aliases a
// later pin of the same slot.
func (a *Arena) Get(h Handle) (any, bool) {
	if h.index == 0 {
		return nil, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := h.index - 1
	if int(idx) >= len(a.entries) {
		return nil, false
	}
	e := a.entries[idx]
	if !e.live || e.gen != h.gen {
		return nil, false
	}
	return e.value, true
}

// Live reports whether the handle still refers to a pinned value.
func (a *Arena) Live(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Release drops a pin and returns the value that was pinned. The slot
// generation is advanced before reuse.
func (a *Arena) Release(h Handle) (any, bool) {
	if h.index == 0 {
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := h.index - 1
	if int(idx) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[idx]
	if !e.live || e.gen != h.gen {
		return nil, false
	}

	value := e.value
	e.value = nil
	e.live = false
	e.gen++
	a.freeList = append(a.freeList, idx)
	return value, true
}

// Len returns the number of live pins.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := 0
	for _, e := range a.entries {
		if e.live {
			count++
		}
	}
	return count
}

// Close releases every pin and rejects further Pins. Outstanding
// handles all observe "gone" afterwards.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	for i := range a.entries {
		if a.entries[i].live {
			a.entries[i].value = nil
			a.entries[i].live = false
			a.entries[i].gen++
		}
	}
	a.entries = nil
	a.freeList = nil
	return nil
}

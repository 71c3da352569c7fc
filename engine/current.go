package engine

import (
	"sync"

	"github.com/petermattis/goid"
)

// Per-goroutine runtime state: the stack of entered contexts and the
// guest frame stack. Only the owning goroutine mutates its own state,
// so the fields need no locking; the map itself is concurrent.
type gState struct {
	contexts []*Context
	frames   []Frame
}

var goroutines sync.Map // goroutine id -> *gState

func currentState() (*gState, bool) {
	v, ok := goroutines.Load(goid.Get())
	if !ok {
		return nil, false
	}
	return v.(*gState), true
}

func stateForEnter() *gState {
	gid := goid.Get()
	if v, ok := goroutines.Load(gid); ok {
		return v.(*gState)
	}
	s := &gState{}
	goroutines.Store(gid, s)
	return s
}

func (s *gState) maybeDiscard() {
	if len(s.contexts) == 0 && len(s.frames) == 0 {
		goroutines.Delete(goid.Get())
	}
}

// CurrentContext returns the context entered innermost on the calling
// goroutine, if any. This is the process-wide "current context"
// lookup the identity resolver builds on; it is deliberately scoped
// per goroutine so that "no active context" is trivially reachable in
// tests by never entering one.
func CurrentContext() (*Context, bool) {
	s, ok := currentState()
	if !ok || len(s.contexts) == 0 {
		return nil, false
	}
	return s.contexts[len(s.contexts)-1], true
}

package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/lang-runtime/errors"
	"github.com/wippyai/lang-runtime/resource"
)

// SharingMode is the engine-wide context sharing configuration. It is
// fixed at engine creation and decides which reference strategy the
// engine hands out to specialized code.
type SharingMode int

const (
	// ModeGuarded speculates on a single context behind assumptions
	// and falls back to uncached resolution once they fail.
	ModeGuarded SharingMode = iota
	// ModeBound permits exactly one context for the engine's lifetime.
	ModeBound
	// ModeShared expects many contexts and never speculates.
	ModeShared
)

func (m SharingMode) String() string {
	switch m {
	case ModeBound:
		return "bound"
	case ModeShared:
		return "shared"
	default:
		return "guarded"
	}
}

// Engine is the isolation boundary. It owns languages, contexts and
// the pin arena references resolve through. Objects from two engines
// must never mix; resolving a reference of engine A while engine B's
// context is active is a fatal fault.
type Engine struct {
	id     uuid.UUID
	mode   SharingMode
	verify bool
	log    *zap.Logger
	arena  *resource.Arena

	// invalidated when the second context is ever created
	singleContext *Assumption

	mu           sync.RWMutex
	languages    map[string]*Language
	order        []*Language
	contexts     map[uuid.UUID]*Context
	contextsEver int
	closed       bool
}

// Option configures an engine.
type Option func(*Engine)

// WithSharingMode sets the context sharing configuration.
func WithSharingMode(m SharingMode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithVerification enables the diagnostic verifier: every resolution
// through a cached or speculative reference is cross-checked against
// the identity resolver. Trades fast-path performance for early
// detection of invalid sharing.
func WithVerification() Option {
	return func(e *Engine) { e.verify = true }
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:        uuid.New(),
		log:       Logger(),
		arena:     resource.NewArena(),
		languages: make(map[string]*Language),
		contexts:  make(map[uuid.UUID]*Context),
	}
	e.singleContext = NewAssumption("single context")
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("engine", e.id.String()))
	e.log.Debug("engine created",
		zap.Stringer("mode", e.mode),
		zap.Bool("verify", e.verify))
	return e
}

// ID returns the engine identity.
func (e *Engine) ID() string {
	return e.id.String()
}

// Mode returns the sharing configuration.
func (e *Engine) Mode() SharingMode {
	return e.mode
}

// Verified reports whether the diagnostic verifier is enabled.
func (e *Engine) Verified() bool {
	return e.verify
}

// SingleContext returns the assumption guarding "only one context was
// ever created on this engine".
func (e *Engine) SingleContext() *Assumption {
	return e.singleContext
}

// Arena returns the engine's pin arena.
func (e *Engine) Arena() *resource.Arena {
	return e.arena
}

// Register adds a guest language. Languages must be registered before
// the first context is created so every context binds every language.
func (e *Engine) Register(def Definition) (*Language, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.Closed(errors.PhaseRegister, "engine")
	}
	if e.contextsEver > 0 {
		return nil, errors.InvalidInput(errors.PhaseRegister, "languages must be registered before the first context")
	}
	name := def.Name()
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseRegister, "language name must not be empty")
	}
	if _, ok := e.languages[name]; ok {
		return nil, errors.Duplicate(errors.PhaseRegister, name)
	}

	l := newLanguage(e, def)
	e.languages[name] = l
	e.order = append(e.order, l)
	e.log.Debug("language registered",
		zap.String("language", name),
		zap.Stringer("policy", l.policy))
	return l, nil
}

// Language looks up a registered language by name.
func (e *Engine) Language(name string) (*Language, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.languages[name]
	return l, ok
}

// Languages returns the registered languages in registration order.
func (e *Engine) Languages() []*Language {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Language, len(e.order))
	copy(out, e.order)
	return out
}

// NewContext creates an execution session binding every registered
// language. Creating the second context permanently invalidates the
// engine's single-context assumption.
func (e *Engine) NewContext(ctx context.Context) (*Context, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.Closed(errors.PhaseContext, "engine")
	}
	if e.mode == ModeBound && e.contextsEver > 0 {
		e.mu.Unlock()
		return nil, errors.ContextLimit(e.id.String())
	}
	// Reserve the slot before unlocking: concurrent creations must
	// observe the bound-mode limit and the registration freeze during
	// the bind loop, not after it.
	e.contextsEver++
	second := e.contextsEver == 2
	order := make([]*Language, len(e.order))
	copy(order, e.order)
	e.mu.Unlock()

	// The guard must be dead before the second context can be entered
	// anywhere; a reference must never speculate across two live
	// contexts. A failed creation below leaves the assumption invalid,
	// which is always safe.
	if second {
		if e.singleContext.Invalidate() {
			e.log.Debug("assumption invalidated",
				zap.String("assumption", e.singleContext.Name()))
		}
	}

	c := &Context{
		id:       uuid.New(),
		engine:   e,
		bindings: make(map[string]*languageBinding, len(order)),
	}

	for _, l := range order {
		b, err := c.bind(ctx, l)
		if err != nil {
			c.unwind(ctx)
			e.mu.Lock()
			e.contextsEver--
			e.mu.Unlock()
			return nil, err
		}
		c.bindings[l.name] = b
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		c.unwind(ctx)
		return nil, errors.Closed(errors.PhaseContext, "engine")
	}
	e.contexts[c.id] = c
	e.mu.Unlock()

	e.log.Debug("context created", zap.String("context", c.id.String()))
	return c, nil
}

func (e *Engine) removeContext(c *Context) {
	e.mu.Lock()
	delete(e.contexts, c.id)
	e.mu.Unlock()
}

// Close tears down the engine: all remaining contexts, all shared
// language instances, and the arena. Outstanding reference handles
// observe every cached value as gone afterwards.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	contexts := make([]*Context, 0, len(e.contexts))
	for _, c := range e.contexts {
		contexts = append(contexts, c)
	}
	order := e.order
	e.mu.Unlock()

	var firstErr error
	for _, c := range contexts {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, l := range order {
		if err := l.closeShared(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.arena.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	e.log.Debug("engine closed")
	return firstErr
}

package engine

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/lang-runtime/errors"
	"github.com/wippyai/lang-runtime/resource"
)

// Context is one execution session. It owns one per-language
// implementation object for every language registered with its
// engine, and is made current on a goroutine with Enter/Leave.
type Context struct {
	id       uuid.UUID
	engine   *Engine
	bindings map[string]*languageBinding
	closed   atomic.Bool
}

// languageBinding ties a context to one language: the implementation
// instance serving it and the per-context impl object. The binding is
// pinned in the engine arena for the context's lifetime; reference
// slots hold its handle as their non-owning cache.
type languageBinding struct {
	context  *Context
	language *Language
	instance *LanguageInstance
	impl     any
	handle   resource.Handle
}

func (c *Context) bind(ctx context.Context, l *Language) (*languageBinding, error) {
	li, err := l.instance(ctx)
	if err != nil {
		return nil, err
	}
	impl, err := li.impl.NewContext(ctx, c)
	if err != nil {
		return nil, errors.LanguageInit(l.name, err)
	}
	b := &languageBinding{
		context:  c,
		language: l,
		instance: li,
		impl:     impl,
	}
	h, err := c.engine.arena.Pin(b)
	if err != nil {
		return nil, errors.Closed(errors.PhaseContext, "engine")
	}
	b.handle = h
	return b, nil
}

// unwind releases bindings of a partially constructed context.
func (c *Context) unwind(ctx context.Context) {
	for _, b := range c.bindings {
		b.release(ctx)
	}
	c.bindings = nil
}

func (b *languageBinding) release(ctx context.Context) {
	b.context.engine.arena.Release(b.handle)
	if d, ok := b.instance.impl.(ContextDisposer); ok {
		_ = d.DisposeContext(ctx, b.impl)
	}
	if b.language.policy == PolicyExclusive {
		b.context.engine.arena.Release(b.instance.handle)
		_ = b.instance.impl.Close(ctx)
	}
}

// ID returns the context identity.
func (c *Context) ID() string {
	return c.id.String()
}

// Engine returns the owning engine.
func (c *Context) Engine() *Engine {
	return c.engine
}

// Impl returns the per-context implementation object for a language.
func (c *Context) Impl(l *Language) (any, bool) {
	b, ok := c.bindings[l.name]
	if !ok {
		return nil, false
	}
	return b.impl, true
}

// Instance returns the language instance serving this context.
func (c *Context) Instance(l *Language) (*LanguageInstance, bool) {
	b, ok := c.bindings[l.name]
	if !ok {
		return nil, false
	}
	return b.instance, true
}

// Enter makes the context current on the calling goroutine. Enters
// nest: the innermost entered context wins, and each Enter must be
// balanced by a Leave on the same goroutine.
func (c *Context) Enter() error {
	if c.closed.Load() {
		return errors.Closed(errors.PhaseContext, "context")
	}
	s := stateForEnter()
	s.contexts = append(s.contexts, c)
	return nil
}

// Leave removes the innermost Enter of this context's goroutine.
// Leaving a context that is not the innermost entered one is a
// programmer error and panics.
func (c *Context) Leave() {
	s, ok := currentState()
	if !ok || len(s.contexts) == 0 {
		panic(errors.UnbalancedEnter("Leave without matching Enter"))
	}
	top := s.contexts[len(s.contexts)-1]
	if top != c {
		panic(errors.UnbalancedEnter("Leave of a context that is not innermost"))
	}
	s.contexts[len(s.contexts)-1] = nil
	s.contexts = s.contexts[:len(s.contexts)-1]
	s.maybeDiscard()
}

// Run enters the context, executes fn, and leaves again.
func (c *Context) Run(fn func() error) error {
	if err := c.Enter(); err != nil {
		return err
	}
	defer c.Leave()
	return fn()
}

// Close ends the session and releases every per-language pin, so all
// reference caches observe the bound values as gone. Close does not
// wait for goroutines that still have the context entered; callers
// own that ordering.
func (c *Context) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, b := range c.bindings {
		b.release(ctx)
	}
	c.engine.removeContext(c)
	c.engine.log.Debug("context closed", zap.String("context", c.id.String()))
	return nil
}

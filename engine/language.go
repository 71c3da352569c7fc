package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/lang-runtime/errors"
	"github.com/wippyai/lang-runtime/resource"
)

// ContextPolicy governs how language instances relate to contexts.
type ContextPolicy int

const (
	// PolicyExclusive gives every context its own language instance.
	PolicyExclusive ContextPolicy = iota
	// PolicyShared reuses one engine-owned instance for all contexts.
	PolicyShared
)

func (p ContextPolicy) String() string {
	switch p {
	case PolicyExclusive:
		return "EXCLUSIVE"
	case PolicyShared:
		return "SHARED"
	default:
		return "UNKNOWN"
	}
}

// Definition describes a guest language to the engine. Implementations
// are registered once per engine, before the first context is created.
type Definition interface {
	// Name returns the unique language identifier.
	Name() string

	// Policy returns the context policy for instances of this
	// language. The policy is fixed once the first instance exists.
	Policy() ContextPolicy

	// NewImpl loads one implementation instance of the language.
	// Called once per engine for PolicyShared, once per context for
	// PolicyExclusive.
	NewImpl(ctx context.Context, eng *Engine) (LanguageImpl, error)
}

// LanguageImpl is one loaded implementation object of a language.
type LanguageImpl interface {
	// NewContext creates the per-context implementation object for ec.
	// The returned object is compared by identity in verified mode and
	// must therefore be pointer-shaped.
	NewContext(ctx context.Context, ec *Context) (any, error)

	// Close releases the implementation. For PolicyExclusive this is
	// called when the owning context closes, for PolicyShared when the
	// engine closes.
	Close(ctx context.Context) error
}

// ContextDisposer is optionally implemented by language impls that
// must clean up per-context state created by NewContext.
type ContextDisposer interface {
	DisposeContext(ctx context.Context, impl any) error
}

// Language is a registered capability within one engine. Two engines
// never share Language objects.
type Language struct {
	engine *Engine
	def    Definition
	name   string
	policy ContextPolicy

	// invalidated when a second implementation instance is created
	singleInstance *Assumption

	mu            sync.Mutex
	shared        *LanguageInstance
	instanceCount int
}

func newLanguage(eng *Engine, def Definition) *Language {
	name := def.Name()
	return &Language{
		engine:         eng,
		def:            def,
		name:           name,
		policy:         def.Policy(),
		singleInstance: NewAssumption("single instance of " + name),
	}
}

// Name returns the language identifier.
func (l *Language) Name() string {
	return l.name
}

// Engine returns the owning engine.
func (l *Language) Engine() *Engine {
	return l.engine
}

// Policy returns the language's context policy.
func (l *Language) Policy() ContextPolicy {
	return l.policy
}

// SingleInstance returns the assumption guarding "only one
// implementation instance of this language exists".
func (l *Language) SingleInstance() *Assumption {
	return l.singleInstance
}

// instance obtains an implementation instance for a new context,
// creating one according to the context policy.
func (l *Language) instance(ctx context.Context) (*LanguageInstance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.policy == PolicyShared && l.shared != nil {
		return l.shared, nil
	}

	impl, err := l.def.NewImpl(ctx, l.engine)
	if err != nil {
		return nil, errors.LanguageInit(l.name, err)
	}

	li := &LanguageInstance{language: l, impl: impl}
	h, err := l.engine.arena.Pin(li)
	if err != nil {
		_ = impl.Close(ctx)
		return nil, errors.Closed(errors.PhaseContext, "engine")
	}
	li.handle = h

	l.instanceCount++
	if l.instanceCount == 2 {
		if l.singleInstance.Invalidate() {
			l.engine.log.Debug("assumption invalidated",
				zap.String("assumption", l.singleInstance.Name()),
				zap.String("language", l.name))
		}
	}
	if l.policy == PolicyShared {
		l.shared = li
	}
	return li, nil
}

// sharedInstance returns the engine-owned instance, or nil if none
// has been created yet.
func (l *Language) sharedInstance() *LanguageInstance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shared
}

func (l *Language) closeShared(ctx context.Context) error {
	l.mu.Lock()
	li := l.shared
	l.shared = nil
	l.mu.Unlock()

	if li == nil {
		return nil
	}
	l.engine.arena.Release(li.handle)
	return li.impl.Close(ctx)
}

// ContextRef builds the context reference matching the engine's
// sharing mode. This choice happens once, at specialization time; the
// returned reference is valid for the lifetime of the specialized
// code it is embedded in.
func (l *Language) ContextRef() ContextRef {
	switch l.engine.mode {
	case ModeBound:
		return NewSingleContextRef(l)
	case ModeShared:
		return NewMultiContextRef(l)
	default:
		// Speculate on a single context; an EXCLUSIVE language
		// additionally requires its instance to stay unique, since a
		// second instance implies a second per-context impl.
		var second *Assumption
		if l.policy == PolicyExclusive {
			second = l.singleInstance
		}
		return NewAssumeSingleContextRef(l, l.engine.singleContext, second, NewMultiContextRef(l))
	}
}

// LanguageRef builds the language reference matching the engine's
// sharing mode and the language's context policy.
func (l *Language) LanguageRef() LanguageRef {
	switch {
	case l.engine.mode == ModeBound:
		return NewSingleLanguageRef(l, nil)
	case l.policy == PolicyShared:
		// One engine-owned instance regardless of context count.
		return NewSingleLanguageRef(l, l.sharedInstance())
	case l.engine.mode == ModeShared:
		return NewMultiLanguageRef(l)
	default:
		return NewAssumeSingleLanguageRef(l, l.singleInstance, NewMultiLanguageRef(l))
	}
}

// LanguageInstance is one loaded implementation object of a Language,
// owned by the engine (PolicyShared) or by a context
// (PolicyExclusive).
type LanguageInstance struct {
	language *Language
	impl     LanguageImpl
	handle   resource.Handle
}

// Language returns the language this instance implements.
func (li *LanguageInstance) Language() *Language {
	return li.language
}

// Impl returns the implementation object.
func (li *LanguageInstance) Impl() LanguageImpl {
	return li.impl
}

// Policy returns the effective context policy of this instance.
func (li *LanguageInstance) Policy() ContextPolicy {
	return li.language.policy
}

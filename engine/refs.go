package engine

import (
	"sync/atomic"

	"github.com/wippyai/lang-runtime/errors"
	"github.com/wippyai/lang-runtime/resource"
)

// ContextRef resolves the per-context implementation object of one
// language for the currently active context. Call sites obtain a
// reference once, at specialization time, and call Resolve on every
// access; the strategy behind it decides how much may be cached.
//
// Resolve panics with a structured fault when no context is entered
// on the calling goroutine, on cross-engine misuse, and (in verified
// mode) on invalid sharing. None of these are recoverable.
type ContextRef interface {
	Resolve() any

	// speculates reports whether the reference may still take a
	// speculative or cache-direct fast path, which disqualifies it as
	// a fallback target. The strategy set is closed on purpose.
	speculates() bool
}

// LanguageRef resolves the language instance serving the currently
// active context. Same contract as ContextRef.
type LanguageRef interface {
	Resolve() *LanguageInstance

	speculates() bool
}

// NewSingleContextRef builds a reference that memoizes the one
// binding it ever resolves. Only correct while at most one context
// can exist for the language's engine; the engine hands it out in
// ModeBound, and speculative references embed it for their fast path.
func NewSingleContextRef(l *Language) ContextRef {
	return &singleContextRef{language: l}
}

// NewAssumeSingleContextRef builds a reference that takes a memoized
// fast path while the guard assumptions hold and permanently routes
// through fallback once any guard is invalidated. validIf1 may be nil
// meaning "no second condition". The fallback must not itself be able
// to speculate: either a multi reference or a speculative reference
// whose guards are already dead.
func NewAssumeSingleContextRef(l *Language, validIf0, validIf1 *Assumption, fallback ContextRef) ContextRef {
	if validIf0 == nil {
		panic(errors.InvalidInput(errors.PhaseRegister, "speculative reference requires a guard assumption"))
	}
	if fallback == nil {
		panic(errors.InvalidFallback("speculative context reference requires a fallback"))
	}
	if fallback.speculates() {
		panic(errors.InvalidFallback("fallback of a speculative context reference must not itself speculate"))
	}
	return &assumeSingleContextRef{
		language: l,
		single:   &singleContextRef{language: l},
		fallback: fallback,
		validIf0: validIf0,
		validIf1: validIf1,
	}
}

// NewMultiContextRef builds the general-purpose reference: no state,
// every Resolve goes through the identity resolver.
func NewMultiContextRef(l *Language) ContextRef {
	return &multiContextRef{language: l}
}

// NewSingleLanguageRef builds the memoizing language reference. init
// may pre-seed the cache with an already known instance.
func NewSingleLanguageRef(l *Language, init *LanguageInstance) LanguageRef {
	r := &singleLanguageRef{language: l}
	if init != nil {
		// Pre-seeding bypasses the resolver, so the verification slot
		// stays in its unverified state until the first resolved
		// access records a binding.
		r.slot.Store(init.handle.Pack())
	}
	return r
}

// NewAssumeSingleLanguageRef builds the speculative language
// reference with a single guard assumption.
func NewAssumeSingleLanguageRef(l *Language, validIf *Assumption, fallback LanguageRef) LanguageRef {
	if validIf == nil {
		panic(errors.InvalidInput(errors.PhaseRegister, "speculative reference requires a guard assumption"))
	}
	if fallback == nil {
		panic(errors.InvalidFallback("speculative language reference requires a fallback"))
	}
	if fallback.speculates() {
		panic(errors.InvalidFallback("fallback of a speculative language reference must not itself speculate"))
	}
	return &assumeSingleLanguageRef{
		language: l,
		single:   &singleLanguageRef{language: l},
		fallback: fallback,
		validIf:  validIf,
	}
}

// NewMultiLanguageRef builds the stateless language reference.
func NewMultiLanguageRef(l *Language) LanguageRef {
	return &multiLanguageRef{language: l}
}

// singleContextRef memoizes one binding behind a non-owning handle.
// The slot is a single atomic word: the fast path is one load plus a
// liveness check. A released handle (context closed) transparently
// falls through to recomputation.
type singleContextRef struct {
	language *Language
	slot     atomic.Uint64
	vslot    verifySlot
}

func (r *singleContextRef) Resolve() any {
	eng := r.language.engine
	if packed := r.slot.Load(); packed != 0 {
		if v, ok := eng.arena.Get(resource.Unpack(packed)); ok {
			b := v.(*languageBinding)
			if eng.verify {
				eng.verifyContextAccess(r.language, b.impl, &r.vslot)
			}
			return b.impl
		}
	}

	b := resolveBinding(r.language, errors.PhaseResolve)
	// Racing first resolutions are benign: in any regime where this
	// strategy is handed out, every racer computes the same binding.
	r.slot.Store(b.handle.Pack())
	if eng.verify {
		r.vslot.record(b.handle)
		eng.verifyContextAccess(r.language, b.impl, &r.vslot)
	}
	return b.impl
}

// A single reference is itself the speculation target and never
// serves as a fallback.
func (r *singleContextRef) speculates() bool { return true }

// assumeSingleContextRef guards a singleContextRef behind up to two
// assumptions. There is no stored fallen-back state: guard validity
// is the state, and the assumption contract makes the transition
// one-way.
type assumeSingleContextRef struct {
	language *Language
	single   *singleContextRef
	fallback ContextRef
	validIf0 *Assumption
	validIf1 *Assumption
}

func (r *assumeSingleContextRef) Resolve() any {
	if r.validIf0.IsValid() && (r.validIf1 == nil || r.validIf1.IsValid()) {
		v := r.single.Resolve()
		if r.language.engine.verify {
			if truth := r.fallback.Resolve(); truth != v {
				panic(r.language.engine.sharingReport("speculated context diverged from uncached resolution"))
			}
		}
		return v
	}
	return r.fallback.Resolve()
}

func (r *assumeSingleContextRef) speculates() bool {
	return r.validIf0.IsValid() && (r.validIf1 == nil || r.validIf1.IsValid())
}

// multiContextRef always asks the identity resolver. No state, safe
// under any number of live contexts.
type multiContextRef struct {
	language *Language
}

func (r *multiContextRef) Resolve() any {
	return ResolveContextImpl(r.language)
}

func (r *multiContextRef) speculates() bool { return false }

// singleLanguageRef is the language-instance counterpart of
// singleContextRef.
type singleLanguageRef struct {
	language *Language
	slot     atomic.Uint64
	vslot    verifySlot
}

func (r *singleLanguageRef) Resolve() *LanguageInstance {
	eng := r.language.engine
	if packed := r.slot.Load(); packed != 0 {
		if v, ok := eng.arena.Get(resource.Unpack(packed)); ok {
			li := v.(*LanguageInstance)
			if eng.verify {
				eng.verifyLanguageAccess(r.language, li, &r.vslot)
			}
			return li
		}
	}

	b := resolveBinding(r.language, errors.PhaseResolve)
	li := b.instance
	r.slot.Store(li.handle.Pack())
	if eng.verify {
		// The verification slot records the binding, not the
		// instance: a shared instance outlives the context it was
		// first resolved under, and serving it after that context
		// died is exactly the bug the verifier exists to catch.
		r.vslot.record(b.handle)
		eng.verifyLanguageAccess(r.language, li, &r.vslot)
	}
	return li
}

func (r *singleLanguageRef) speculates() bool { return true }

type assumeSingleLanguageRef struct {
	language *Language
	single   *singleLanguageRef
	fallback LanguageRef
	validIf  *Assumption
}

func (r *assumeSingleLanguageRef) Resolve() *LanguageInstance {
	if r.validIf.IsValid() {
		li := r.single.Resolve()
		if r.language.engine.verify {
			if truth := r.fallback.Resolve(); truth != li {
				panic(r.language.engine.sharingReport("speculated language instance diverged from uncached resolution"))
			}
		}
		return li
	}
	return r.fallback.Resolve()
}

func (r *assumeSingleLanguageRef) speculates() bool {
	return r.validIf.IsValid()
}

type multiLanguageRef struct {
	language *Language
}

func (r *multiLanguageRef) Resolve() *LanguageInstance {
	return ResolveLanguageInstance(r.language)
}

func (r *multiLanguageRef) speculates() bool { return false }

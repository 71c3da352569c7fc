package engine

import "github.com/wippyai/lang-runtime/errors"

// The identity resolver: always-correct, uncached lookups answering
// "what is the active context impl / language instance right now" for
// the calling goroutine. Cost is a map lookup; acceptable on the slow
// path, which is exactly where the reference strategies use it.

func requireContext(phase errors.Phase) *Context {
	c, ok := CurrentContext()
	if !ok {
		panic(errors.NoContext(phase))
	}
	return c
}

// resolveBinding finds the calling goroutine's binding for l, failing
// fatally when no context is entered, when the active context belongs
// to a different engine, or when the context is missing the language.
func resolveBinding(l *Language, phase errors.Phase) *languageBinding {
	c := requireContext(phase)
	if c.closed.Load() {
		panic(errors.Closed(phase, "context"))
	}
	if c.engine != l.engine {
		panic(errors.CrossEngine(phase, l.engine.ID(), c.engine.ID()))
	}
	b, ok := c.bindings[l.name]
	if !ok {
		panic(errors.NotRegistered(l.name))
	}
	return b
}

// ResolveContextImpl is the identity resolver for context references.
func ResolveContextImpl(l *Language) any {
	return resolveBinding(l, errors.PhaseResolve).impl
}

// ResolveLanguageInstance is the identity resolver for language
// references.
func ResolveLanguageInstance(l *Language) *LanguageInstance {
	return resolveBinding(l, errors.PhaseResolve).instance
}

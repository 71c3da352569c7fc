// Package engine implements the reference-resolution core of the
// runtime: the machinery that lets specialized guest code obtain "the
// context currently running" and "the language instance currently
// active" without threading either through every call.
//
// # Model
//
// An Engine is the isolation boundary. It owns registered Languages,
// their loaded LanguageInstances, and Contexts (execution sessions).
// A context is made current on a goroutine with Context.Enter and
// Context.Leave; the identity resolver answers lookups from that
// goroutine-scoped slot.
//
// A language's ContextPolicy decides instance ownership:
// PolicyExclusive creates one instance per context, PolicyShared
// reuses one engine-owned instance for every context.
//
// # References
//
// Call sites hold a ContextRef or LanguageRef chosen once by the
// engine according to its SharingMode:
//
//   - ModeBound hands out memoizing single references: one atomic
//     non-owning slot, a fast path of one load plus a liveness check.
//   - ModeGuarded hands out speculative references: the memoizing
//     fast path guarded by Assumptions (single context, and for
//     exclusive languages single instance), permanently redirected to
//     an uncached fallback once a guard is invalidated.
//   - ModeShared hands out uncached multi references that always ask
//     the identity resolver.
//
// Reference slots hold generational arena handles, never the values
// themselves, so a reference embedded in long-lived specialized code
// cannot keep a context or language instance alive. A released handle
// simply recomputes on the next Resolve.
//
// # Verification
//
// An engine created WithVerification cross-checks every cached or
// speculated resolution against the identity resolver and panics with
// an InvalidSharingError carrying a per-frame guest stack report when
// they disagree. This trades the fast path for catching code that was
// specialized under a violated single-instance assumption at the
// moment of the violation.
//
// All faults on the resolution path (no active context, cross-engine
// misuse, invalid sharing) are delivered as panics carrying the
// structured types from the errors package; none of them are
// recoverable conditions.
package engine

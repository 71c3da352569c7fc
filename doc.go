// Package langruntime hosts guest language implementations behind
// engine-scoped contexts with fast reference resolution.
//
// The core problem it solves: code specialized for one language needs
// its per-context state on every call, and the lookup must cost almost
// nothing when only one context exists while staying correct when many
// do. References speculate on single-context use behind one-way
// assumptions and permanently fall back to uncached resolution once
// the speculation dies.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	lang-runtime/        Root package documentation
//	├── runtime/         High-level facade and yaml configuration
//	├── engine/          Engines, contexts, languages, references
//	├── resource/        Generational pin arena for non-owning handles
//	├── errors/          Structured faults and invalid-sharing reports
//	└── languages/       Guest language adapters (memlang, wasmlang)
//
// # Quick Start
//
// Register a language, create a context, and resolve through a fixed
// reference:
//
//	rt := runtime.New()
//	defer rt.Close(ctx)
//
//	lang, err := rt.Register(wasmlang.New("calc", wasmBytes))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ref := lang.ContextRef()
//
//	c, err := rt.NewContext(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = c.Run(func() error {
//	    session := ref.Resolve().(*wasmlang.Session)
//	    _, err := session.Call(ctx, "add", 2, 3)
//	    return err
//	})
//
// # Sharing Modes
//
// The engine's sharing mode fixes the reference strategy at
// specialization time:
//
//   - bound: exactly one context ever; references memoize directly
//   - guarded: speculate on one context behind assumptions (default)
//   - shared: many contexts expected; references stay uncached
//
// # Verification
//
// With verification enabled every cached resolution is cross-checked
// against uncached resolution. A divergence is reported with the guest
// frame stack, flagging boundaries where an EXCLUSIVE language meets a
// shared one. Faults are fatal: they indicate state corruption, not a
// recoverable condition.
package langruntime

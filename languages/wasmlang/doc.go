// Package wasmlang adapts a WebAssembly module into a guest language
// for the runtime.
//
// The language instance (wazero runtime + compiled module) follows
// PolicyShared: it is loaded once per engine and reused by every
// context, while each context owns a private instantiation. That
// makes it the canonical shared-instance case for language
// references: one instance, many per-context sessions.
package wasmlang

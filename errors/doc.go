// Package errors defines the structured fault types used by the
// runtime core.
//
// Every fault on the resolution path is non-recoverable by design:
// the core either returns a correct value or fails loudly before a
// bad answer can leak into specialized code. Those faults are raised
// as panics carrying an *Error (or *InvalidSharingError for the
// debug-mode sharing report), so callers that must observe them in
// tests can recover and inspect Phase and Kind.
//
// Operations that can fail as part of normal embedding (registering
// languages, creating contexts, loading guest code) return these
// types as ordinary error values instead.
package errors

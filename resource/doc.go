// Package resource provides the generational pin arena used by the
// runtime to hand out non-owning references.
//
// Contexts and language instances are pinned by their owner for the
// duration of their natural lifetime. Everyone else holds a Handle: a
// slot index plus a generation counter. When the owner releases the
// pin the generation advances, so a stale Handle can never observe a
// value that has been replaced in the same slot.
//
//	arena := resource.NewArena()
//	h, _ := arena.Pin(value)     // owner side
//	v, ok := arena.Get(h)        // observer side; ok=false once released
//	arena.Release(h)             // owner side, end of lifetime
//
// A Handle packs into a single uint64 (Handle.Pack/Unpack) so it can
// be published through an atomic word without torn reads.
package resource

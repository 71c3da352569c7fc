package resource

// Handle is an opaque, non-owning reference to a pinned value.
// The zero Handle is always dead.
type Handle struct {
	index uint32 // 1-based slot index; 0 reserved
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.index == 0
}

// Pack encodes the handle into a single word so it can sit in an
// atomic slot. A zero handle packs to 0.
func (h Handle) Pack() uint64 {
	return uint64(h.index)<<32 | uint64(h.gen)
}

// Unpack decodes a handle produced by Pack.
func Unpack(v uint64) Handle {
	return Handle{index: uint32(v >> 32), gen: uint32(v)}
}

package engine

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/lang-runtime/errors"
	"github.com/wippyai/lang-runtime/resource"
)

// verifySlot is the secondary non-owning reference a cached reference
// keeps in verified mode. It is never used to answer Resolve; it only
// lets the verifier notice that a value the cache still serves has
// been released behind its back.
//
// The slot is explicitly three-valued: unverified (nothing recorded
// yet, checks pass vacuously), recorded-and-live, and
// recorded-then-released (a fault). The unverified state exists for
// references that resolve before verification wiring runs, such as
// pre-seeded language references on an engine created without
// verification; it must not be conflated with "verified and equal".
type verifySlot struct {
	rec atomic.Uint64 // packed handle; 0 = unverified
}

func (s *verifySlot) record(h resource.Handle) {
	s.rec.Store(h.Pack())
}

func (s *verifySlot) recorded() (resource.Handle, bool) {
	v := s.rec.Load()
	if v == 0 {
		return resource.Handle{}, false
	}
	return resource.Unpack(v), true
}

// verifyContextAccess cross-checks a cached context resolution
// against the identity resolver. Called on every access in verified
// mode; any disagreement means compiled code was specialized under a
// single-instance assumption that has been silently violated.
func (e *Engine) verifyContextAccess(l *Language, got any, slot *verifySlot) {
	if h, ok := slot.recorded(); ok && !e.arena.Live(h) {
		panic(e.sharingReport("cached context was released while still reachable through a reference"))
	}
	truth := resolveBinding(l, errors.PhaseVerify).impl
	if truth != got {
		panic(e.sharingReport("cached context diverged from the identity resolver"))
	}
}

// verifyLanguageAccess is the language-instance counterpart.
func (e *Engine) verifyLanguageAccess(l *Language, got *LanguageInstance, slot *verifySlot) {
	if h, ok := slot.recorded(); ok && !e.arena.Live(h) {
		panic(e.sharingReport("cached language instance was released while still reachable through a reference"))
	}
	truth := resolveBinding(l, errors.PhaseVerify).instance
	if truth != got {
		panic(e.sharingReport("cached language instance diverged from the identity resolver"))
	}
}

// sharingReport builds the invalid-sharing diagnostic: one line per
// guest frame, top to bottom, stopping at the first frame owned by a
// different engine, with a marker between consecutive frames whose
// policy flips to or from EXCLUSIVE. That boundary is the
// characteristic shape of an invalid-sharing bug.
func (e *Engine) sharingReport(detail string) *errors.InvalidSharingError {
	var out []errors.SharingFrame
	var prev ContextPolicy
	prevSet := false
	for _, f := range guestFrames() {
		inst := f.Instance
		if inst == nil {
			continue
		}
		if inst.language.engine != e {
			// different engine, different report
			break
		}
		policy := inst.Policy()
		loc := f.InstrLoc
		if loc.IsZero() {
			loc = f.UnitLoc
		}
		sf := errors.SharingFrame{
			Policy:   policy.String(),
			Language: inst.language.name,
			Unit:     f.Unit,
			File:     loc.File,
			Line:     loc.Line,
		}
		if prevSet && prev != policy && (prev == PolicyExclusive || policy == PolicyExclusive) {
			sf.Boundary = true
		}
		out = append(out, sf)
		prev = policy
		prevSet = true
	}

	e.log.Error("invalid sharing detected",
		zap.String("detail", detail),
		zap.Int("guest_frames", len(out)))
	return &errors.InvalidSharingError{Frames: out, Detail: detail}
}

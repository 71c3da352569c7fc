package engine

import "github.com/wippyai/lang-runtime/errors"

// Location is a best-effort source position inside a guest unit.
// The zero Location means "unknown".
type Location struct {
	File string
	Line int
}

// IsZero reports whether the location is unknown.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

// Frame is one guest call-stack frame. Guest language implementations
// push a frame per activation so diagnostics can attribute runtime
// state to the code that produced it.
type Frame struct {
	// Instance is the language instance executing the frame.
	Instance *LanguageInstance
	// Unit names the executing unit (function, root node, module).
	Unit string
	// UnitLoc is the location of the unit itself.
	UnitLoc Location
	// InstrLoc is the location of the instruction currently executing,
	// if the language tracks one. Diagnostics fall back to UnitLoc.
	InstrLoc Location
}

// PushFrame records a guest activation on the calling goroutine.
func PushFrame(inst *LanguageInstance, unit string, loc Location) {
	s := stateForEnter()
	s.frames = append(s.frames, Frame{Instance: inst, Unit: unit, UnitLoc: loc})
}

// SetLocation updates the instruction location of the innermost
// frame. A no-op when no frame is pushed.
func SetLocation(loc Location) {
	s, ok := currentState()
	if !ok || len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1].InstrLoc = loc
}

// PopFrame removes the innermost guest activation.
func PopFrame() {
	s, ok := currentState()
	if !ok || len(s.frames) == 0 {
		panic(errors.UnbalancedEnter("PopFrame without matching PushFrame"))
	}
	s.frames[len(s.frames)-1] = Frame{}
	s.frames = s.frames[:len(s.frames)-1]
	s.maybeDiscard()
}

// guestFrames returns a copy of the goroutine's frame stack ordered
// top (innermost) to bottom.
func guestFrames() []Frame {
	s, ok := currentState()
	if !ok || len(s.frames) == 0 {
		return nil
	}
	out := make([]Frame, len(s.frames))
	for i, f := range s.frames {
		out[len(s.frames)-1-i] = f
	}
	return out
}

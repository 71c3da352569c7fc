package errors

import (
	"fmt"
	"strings"
)

// SharingFrame is one guest call-stack frame in an invalid-sharing
// report.
type SharingFrame struct {
	Policy   string // EXCLUSIVE or SHARED
	Language string
	Unit     string
	File     string
	Line     int
	Boundary bool // policy flipped to/from EXCLUSIVE between this frame and the previous one
}

// InvalidSharingError is raised when debug-mode verification detects
// that a cached or speculated answer diverged from the identity
// resolver's current answer. It carries one line per guest frame so
// the offending specialization can be located.
type InvalidSharingError struct {
	Frames []SharingFrame
	Detail string
}

func (e *InvalidSharingError) Error() string {
	var b strings.Builder
	b.WriteString("invalid sharing of runtime values detected")
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Frames) == 0 {
		b.WriteString(" (no guest frames recorded)")
		return b.String()
	}
	b.WriteString("\nGuest stack:\n")
	for _, f := range e.Frames {
		if f.Boundary {
			b.WriteString("    <-- likely invalid sharing -->\n")
		}
		unit := f.Unit
		if unit == "" {
			unit = "<unknown>"
		}
		file := f.File
		if file == "" {
			file = "Unknown"
		}
		b.WriteString(fmt.Sprintf("  %-9s <%s> %s(%s:%d)\n", f.Policy, f.Language, unit, file, f.Line))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *InvalidSharingError) Is(target error) bool {
	if _, ok := target.(*InvalidSharingError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == KindInvalidSharing
	}
	return false
}

package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which runtime operation the fault belongs to
type Phase string

const (
	PhaseRegister Phase = "register" // language registration
	PhaseContext  Phase = "context"  // context creation/entry
	PhaseResolve  Phase = "resolve"  // reference resolution
	PhaseVerify   Phase = "verify"   // debug-mode verification
	PhaseClose    Phase = "close"    // teardown
)

// Kind categorizes the fault
type Kind string

const (
	KindNoContext       Kind = "no_active_context"
	KindCrossEngine     Kind = "cross_engine"
	KindInvalidSharing  Kind = "invalid_sharing"
	KindCollected       Kind = "collected"
	KindClosed          Kind = "closed"
	KindDuplicate       Kind = "duplicate"
	KindNotRegistered   Kind = "not_registered"
	KindInvalidFallback Kind = "invalid_fallback"
	KindContextLimit    Kind = "context_limit"
	KindUnbalancedEnter Kind = "unbalanced_enter"
	KindLanguageInit    Kind = "language_init"
	KindInvalidInput    Kind = "invalid_input"
)

// Error is the structured fault type used throughout the runtime.
// Faults raised on the resolution path are non-recoverable and are
// delivered by panic; Error still implements the error interface so
// recovered values integrate with errors.Is and logging.
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Engine   string
	Language string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Engine != "" {
		b.WriteString(" engine=")
		b.WriteString(e.Engine)
	}
	if e.Language != "" {
		b.WriteString(" language=")
		b.WriteString(e.Language)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured fault construction
type Builder struct {
	err Error
}

// New creates a new fault builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Engine sets the engine identity
func (b *Builder) Engine(id string) *Builder {
	b.err.Engine = id
	return b
}

// Language sets the language name
func (b *Builder) Language(name string) *Builder {
	b.err.Language = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed fault
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common fault patterns

// NoContext reports that no context is entered on the calling
// goroutine. There is no execution without an active context, so this
// is always a programmer error.
func NoContext(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoContext,
		Detail: "no context entered on the current goroutine",
	}
}

// CrossEngine reports that a reference bound to one engine was
// resolved while another engine's context was active.
func CrossEngine(phase Phase, boundEngine, activeEngine string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCrossEngine,
		Engine: boundEngine,
		Detail: fmt.Sprintf("reference bound to engine %s resolved under engine %s", boundEngine, activeEngine),
	}
}

// Closed reports an operation on a closed engine or context.
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Duplicate reports a second registration under an existing name.
func Duplicate(phase Phase, language string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindDuplicate,
		Language: language,
		Detail:   "language already registered",
	}
}

// NotRegistered reports a lookup of an unknown language.
func NotRegistered(language string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindNotRegistered,
		Language: language,
		Detail:   "language not registered with this engine",
	}
}

// InvalidFallback reports a speculative reference constructed with a
// fallback that can itself still speculate.
func InvalidFallback(detail string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindInvalidFallback,
		Detail: detail,
	}
}

// ContextLimit reports a second context on a single-context engine.
func ContextLimit(engine string) *Error {
	return &Error{
		Phase:  PhaseContext,
		Kind:   KindContextLimit,
		Engine: engine,
		Detail: "engine is bound to a single context",
	}
}

// UnbalancedEnter reports a Leave that does not match the innermost
// Enter on the calling goroutine.
func UnbalancedEnter(detail string) *Error {
	return &Error{
		Phase:  PhaseContext,
		Kind:   KindUnbalancedEnter,
		Detail: detail,
	}
}

// LanguageInit wraps a failure from a language implementation.
func LanguageInit(language string, cause error) *Error {
	return &Error{
		Phase:    PhaseContext,
		Kind:     KindLanguageInit,
		Language: language,
		Detail:   "language implementation failed",
		Cause:    cause,
	}
}

// InvalidInput reports a malformed argument.
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

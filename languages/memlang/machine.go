package memlang

import "github.com/wippyai/lang-runtime/engine"

// Machine is a piece of "specialized code": it fixes its references
// once, at construction, and resolves the active context's store on
// every operation. Operations record guest frames so runtime
// diagnostics can attribute them.
type Machine struct {
	ctxRef  engine.ContextRef
	langRef engine.LanguageRef
}

// NewMachine specializes against a registered language.
func NewMachine(l *engine.Language) *Machine {
	return &Machine{
		ctxRef:  l.ContextRef(),
		langRef: l.LanguageRef(),
	}
}

// Set stores a value in the active context's store.
func (m *Machine) Set(key, value string) {
	engine.PushFrame(m.langRef.Resolve(), "set", engine.Location{File: "builtin.mem", Line: 1})
	defer engine.PopFrame()
	m.ctxRef.Resolve().(*Store).Set(key, value)
}

// Get reads a value from the active context's store.
func (m *Machine) Get(key string) (string, bool) {
	engine.PushFrame(m.langRef.Resolve(), "get", engine.Location{File: "builtin.mem", Line: 2})
	defer engine.PopFrame()
	return m.ctxRef.Resolve().(*Store).Get(key)
}

// Len returns the number of keys in the active context's store.
func (m *Machine) Len() int {
	return m.ctxRef.Resolve().(*Store).Len()
}

package wasmlang

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/lang-runtime/engine"
)

// Definition loads one compiled WebAssembly module as a guest
// language. The wazero runtime and the compiled module are shared by
// all contexts; each context gets its own instantiation, so guest
// memory is context-private.
type Definition struct {
	name   string
	source []byte
}

// New creates the language definition for a wasm binary.
func New(name string, source []byte) *Definition {
	return &Definition{name: name, source: source}
}

func (d *Definition) Name() string { return d.name }

func (d *Definition) Policy() engine.ContextPolicy { return engine.PolicyShared }

func (d *Definition) NewImpl(ctx context.Context, _ *engine.Engine) (engine.LanguageImpl, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	compiled, err := r.CompileModule(ctx, d.source)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("compile %s: %w", d.name, err)
	}
	return &Impl{runtime: r, compiled: compiled}, nil
}

// Impl is the engine-owned language instance: one wazero runtime plus
// the compiled module.
type Impl struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	seq      atomic.Uint64
}

func (i *Impl) NewContext(ctx context.Context, _ *engine.Context) (any, error) {
	// Module names must be unique within one wazero runtime.
	name := fmt.Sprintf("%s-%d", i.compiled.Name(), i.seq.Add(1))
	mod, err := i.runtime.InstantiateModule(ctx, i.compiled,
		wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("instantiate: %w", err)
	}
	return &Session{module: mod}, nil
}

func (i *Impl) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

// DisposeContext releases a context's instantiation.
func (i *Impl) DisposeContext(ctx context.Context, impl any) error {
	return impl.(*Session).module.Close(ctx)
}

// Session is the per-context implementation object: one instantiated
// module.
type Session struct {
	module api.Module
}

// Module returns the underlying wazero module.
func (s *Session) Module() api.Module {
	return s.module
}

// Call invokes an exported function of this context's instantiation.
func (s *Session) Call(ctx context.Context, fn string, params ...uint64) ([]uint64, error) {
	f := s.module.ExportedFunction(fn)
	if f == nil {
		return nil, fmt.Errorf("function %q not exported", fn)
	}
	return f.Call(ctx, params...)
}

package runtime

import (
	"context"

	"github.com/wippyai/lang-runtime/engine"
)

// Runtime is the embedder-facing facade over one engine.
type Runtime struct {
	engine *engine.Engine
}

// New creates a runtime with a freshly configured engine.
func New(opts ...engine.Option) *Runtime {
	return &Runtime{engine: engine.New(opts...)}
}

// NewFromConfig creates a runtime from a loaded configuration.
func NewFromConfig(cfg *Config) (*Runtime, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(opts...), nil
}

// Engine exposes the underlying engine for advanced embedding.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

// Register adds a guest language. Must be called before the first
// context is created.
func (r *Runtime) Register(def engine.Definition) (*engine.Language, error) {
	return r.engine.Register(def)
}

// NewContext creates an execution session binding every registered
// language.
func (r *Runtime) NewContext(ctx context.Context) (*engine.Context, error) {
	return r.engine.NewContext(ctx)
}

// Close releases the engine and everything it owns. All contexts
// should be left before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

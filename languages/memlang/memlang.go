package memlang

import (
	"context"
	"sync"

	"github.com/wippyai/lang-runtime/engine"
)

// Definition is an in-memory key-value guest language. Each context
// owns a private Store; the language instance is exclusive to its
// context.
type Definition struct {
	name string
}

// New creates the language definition.
func New() *Definition {
	return &Definition{name: "mem"}
}

// Named creates the definition under a custom language name.
func Named(name string) *Definition {
	return &Definition{name: name}
}

func (d *Definition) Name() string { return d.name }

func (d *Definition) Policy() engine.ContextPolicy { return engine.PolicyExclusive }

func (d *Definition) NewImpl(_ context.Context, _ *engine.Engine) (engine.LanguageImpl, error) {
	return &Impl{}, nil
}

// Impl is one loaded instance of the language.
type Impl struct{}

func (i *Impl) NewContext(_ context.Context, _ *engine.Context) (any, error) {
	return &Store{values: make(map[string]string)}, nil
}

func (i *Impl) Close(_ context.Context) error { return nil }

// Store is the per-context implementation object.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// Set stores a value.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get reads a value.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

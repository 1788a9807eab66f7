package effectchain

import (
	"errors"
	"fmt"
)

// Factory builds one Module instance for a slot.
type Factory func(ctx Context) (Module, error)

// Registry maps module types to their factories.
type Registry struct {
	factories map[ModuleType]Factory
}

var errDuplicateModule = errors.New("duplicate module type")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[ModuleType]Factory)}
}

// Register adds a factory for the given module type.
func (r *Registry) Register(t ModuleType, factory Factory) error {
	if t == "" {
		return errors.New("empty module type")
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.factories[t]; exists {
		return fmt.Errorf("%w: %s", errDuplicateModule, t)
	}

	r.factories[t] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t ModuleType, factory Factory) {
	err := r.Register(t, factory)
	if err != nil {
		panic("effectchain registry: " + err.Error())
	}
}

// Lookup returns the factory for the given module type, or nil.
func (r *Registry) Lookup(t ModuleType) Factory {
	return r.factories[t]
}

// Build creates a module of type t.
func (r *Registry) Build(t ModuleType, ctx Context) (Module, error) {
	factory := r.Lookup(t)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, t)
	}

	m, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("effectchain: build %s: %w", t, err)
	}

	return m, nil
}

// DefaultRegistry returns a Registry with the Delay, Reverb and Convolution
// modules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(TypeDelay, newDelayModule)
	r.MustRegister(TypeReverb, newReverbModule)
	r.MustRegister(TypeConvolution, newConvolutionModule)

	return r
}

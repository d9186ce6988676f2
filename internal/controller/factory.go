package controller

import (
	"fmt"
	"sync"
)

// Constructor builds a controller instance from its options. A
// constructor error is an initialization failure: the instance is
// discarded and never registered with the manager.
type Constructor func(opts Options) (Controller, error)

// Factory resolves a textual type name into a controller instance.
//
// It is the injectable plugin-loading collaborator: the manager depends
// only on this type, so tests substitute doubles that simulate
// initialization failure by registering failing constructors.
//
// Thread Safety: all methods are safe for concurrent use.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		constructors: make(map[string]Constructor),
	}
}

// Register associates a type name with a constructor. Registering the
// same name twice replaces the previous constructor.
func (f *Factory) Register(typeName string, ctor Constructor) {
	f.mu.Lock()
	f.constructors[typeName] = ctor
	f.mu.Unlock()
}

// New instantiates a controller of the given type.
//
// Returns ErrUnknownType if no constructor is registered for typeName,
// or ErrInitFailed (wrapping the constructor's error) if instantiation
// fails.
func (f *Factory) New(typeName string, opts Options) (Controller, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[typeName]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}

	ctrl, err := ctor(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInitFailed, typeName, err)
	}
	return ctrl, nil
}

// Types returns the registered type names, in no particular order.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		types = append(types, name)
	}
	return types
}

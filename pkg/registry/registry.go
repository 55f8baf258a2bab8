// Package registry resolves the callbacks a schema refers to by name.
//
// Schemas reference enabling predicates and auto-fill computations either
// inline or through a symbolic name. Names are looked up in a Resolver
// supplied by the host application; a name that cannot be found is a
// configuration error that aborts the whole validation.
package registry

import (
	"sync"

	"github.com/aretw0/rowflow/pkg/domain"
)

// Resolver maps symbolic names to callbacks.
type Resolver interface {
	ResolveEnabling(name string) (domain.EnablingFunc, error)
	ResolveValue(name string) (domain.ValueFunc, error)
}

// Registry manages the available callbacks.
type Registry struct {
	mu       sync.RWMutex
	enabling map[string]domain.EnablingFunc
	values   map[string]domain.ValueFunc
}

// Ensure Registry implements Resolver
var _ Resolver = (*Registry)(nil)

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		enabling: make(map[string]domain.EnablingFunc),
		values:   make(map[string]domain.ValueFunc),
	}
}

// RegisterEnabling adds an enabling predicate.
// If a predicate with the same name exists, it is overwritten.
func (r *Registry) RegisterEnabling(name string, fn domain.EnablingFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabling[name] = fn
}

// RegisterValue adds a value computation.
// If a computation with the same name exists, it is overwritten.
func (r *Registry) RegisterValue(name string, fn domain.ValueFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = fn
}

// ResolveEnabling looks up an enabling predicate by name.
func (r *Registry) ResolveEnabling(name string) (domain.EnablingFunc, error) {
	r.mu.RLock()
	fn, ok := r.enabling[name]
	r.mu.RUnlock()

	if !ok || fn == nil {
		return nil, &domain.UnknownFunctionError{Kind: domain.KindEnabling, Name: name}
	}
	return fn, nil
}

// ResolveValue looks up a value computation by name.
func (r *Registry) ResolveValue(name string) (domain.ValueFunc, error) {
	r.mu.RLock()
	fn, ok := r.values[name]
	r.mu.RUnlock()

	if !ok || fn == nil {
		return nil, &domain.UnknownFunctionError{Kind: domain.KindValue, Name: name}
	}
	return fn, nil
}

// Empty is a Resolver that knows no names.
type Empty struct{}

// ResolveEnabling always fails with an UnknownFunctionError.
func (Empty) ResolveEnabling(name string) (domain.EnablingFunc, error) {
	return nil, &domain.UnknownFunctionError{Kind: domain.KindEnabling, Name: name}
}

// ResolveValue always fails with an UnknownFunctionError.
func (Empty) ResolveValue(name string) (domain.ValueFunc, error) {
	return nil, &domain.UnknownFunctionError{Kind: domain.KindValue, Name: name}
}

func alwaysEnabled(domain.Row) bool { return true }

func noValue(domain.Row) any { return nil }

// Enabling turns a reference into a callable predicate.
// A nil reference is always enabled.
func Enabling(r Resolver, ref *domain.EnablingRef) (domain.EnablingFunc, error) {
	switch {
	case ref == nil:
		return alwaysEnabled, nil
	case ref.Func != nil:
		return ref.Func, nil
	case ref.Name == "":
		return alwaysEnabled, nil
	}
	if r == nil {
		r = Empty{}
	}
	return r.ResolveEnabling(ref.Name)
}

// Value turns a reference into a callable value computation.
// A nil reference never produces a value.
func Value(r Resolver, ref *domain.ValueRef) (domain.ValueFunc, error) {
	switch {
	case ref == nil:
		return noValue, nil
	case ref.Func != nil:
		return ref.Func, nil
	case ref.Name == "":
		return noValue, nil
	}
	if r == nil {
		r = Empty{}
	}
	return r.ResolveValue(ref.Name)
}

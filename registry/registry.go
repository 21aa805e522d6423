// Package registry maps module names to loaded modules.
//
// Registration happens once per module at load time and resolution on
// every run, so the registry is guarded by a read-write mutex: one writer
// while loading, many readers afterwards. Resolving a name that has not
// been registered yet fails immediately instead of waiting for a loader.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/weiihann/wasmbench/harness"
)

var (
	// ErrUnknownModule is the sentinel wrapped by UnknownModuleError.
	ErrUnknownModule = errors.New("unknown module")
	// ErrDuplicateModule is the sentinel wrapped by DuplicateModuleError.
	ErrDuplicateModule = errors.New("duplicate module")
)

// UnknownModuleError is returned by Resolve for an unregistered name.
type UnknownModuleError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("module %q is not registered", e.Name)
}

// Unwrap returns ErrUnknownModule for errors.Is.
func (e *UnknownModuleError) Unwrap() error { return ErrUnknownModule }

// DuplicateModuleError is returned by Register when the name is taken.
type DuplicateModuleError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q is already registered", e.Name)
}

// Unwrap returns ErrDuplicateModule for errors.Is.
func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

// Registry holds the loaded modules of a process.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*harness.Module
}

var _ harness.Registrar = (*Registry)(nil)

// New creates an empty Registry.
func New() *Registry {
	return &Registry{modules: make(map[string]*harness.Module)}
}

// Register adds m under name. An existing registration is left untouched.
func (r *Registry) Register(name string, m *harness.Module) error {
	if name == "" {
		return errors.New("module name is required")
	}
	if m == nil {
		return fmt.Errorf("module %q: nil handle", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[name]; ok {
		return &DuplicateModuleError{Name: name}
	}

	r.modules[name] = m

	return nil
}

// Resolve returns the module registered under name.
func (r *Registry) Resolve(name string) (*harness.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	if !ok {
		return nil, &UnknownModuleError{Name: name}
	}

	return m, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Modules returns the registered modules sorted by name.
func (r *Registry) Modules() []*harness.Module {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]*harness.Module, 0, len(names))
	for _, name := range names {
		if m, ok := r.modules[name]; ok {
			modules = append(modules, m)
		}
	}

	return modules
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.modules)
}

// Close closes every registered module. Call it at process teardown only.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, m := range r.modules {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

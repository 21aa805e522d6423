// Package harness loads parser modules compiled from different languages
// into one process and invokes them through a uniform string-in,
// string-out contract.
package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Convention names how a host string crosses into a module and back.
type Convention string

const (
	// ConventionLinear copies the input into guest linear memory through an
	// exported allocator and reads a packed (ptr<<32 | len) result.
	ConventionLinear Convention = "linear"
	// ConventionWASI runs a WASI command per call with the input on stdin
	// and the result on stdout.
	ConventionWASI Convention = "wasi"
	// ConventionNative calls an in-process Go function directly.
	ConventionNative Convention = "native"
)

// Default export names for the linear convention.
const (
	DefaultAlloc   = "alloc"
	DefaultDealloc = "dealloc"
)

// ParseConvention validates s as a Convention.
func ParseConvention(s string) (Convention, error) {
	switch c := Convention(s); c {
	case ConventionLinear, ConventionWASI, ConventionNative:
		return c, nil
	default:
		return "", fmt.Errorf("unknown calling convention %q (want linear, wasi or native)", s)
	}
}

// NativeFunc is an in-process entry point dispatcher.
type NativeFunc func(entryPoint, input string) (string, error)

// Spec describes a module to load.
type Spec struct {
	Name        string     `mapstructure:"name" json:"name" toml:"name"`
	Path        string     `mapstructure:"path" json:"path" toml:"path"`
	Convention  Convention `mapstructure:"convention" json:"convention" toml:"convention"`
	EntryPoints []string   `mapstructure:"entry_points" json:"entry_points" toml:"entry_points"`
	Alloc       string     `mapstructure:"alloc" json:"alloc,omitempty" toml:"alloc,omitempty"`
	Dealloc     string     `mapstructure:"dealloc" json:"dealloc,omitempty" toml:"dealloc,omitempty"`
}

// Validate checks the fields a loader needs before touching the file.
func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.New("module name is required")
	}
	if _, err := ParseConvention(string(s.Convention)); err != nil {
		return fmt.Errorf("module %s: %w", s.Name, err)
	}
	if s.Convention == ConventionNative {
		return fmt.Errorf("module %s: native modules are registered in code, not loaded", s.Name)
	}
	if s.Path == "" {
		return fmt.Errorf("module %s: path is required", s.Name)
	}
	if s.Convention == ConventionWASI && len(s.EntryPoints) == 0 {
		return fmt.Errorf("module %s: wasi modules must list their entry points", s.Name)
	}

	return nil
}

// Module is a loaded binary execution module. It is immutable after
// construction apart from the guest state owned by its instance.
type Module struct {
	name        string
	convention  Convention
	entryPoints []string

	// linear: one long-lived instance, entered by one caller at a time.
	mu       sync.Mutex
	instance api.Module
	alloc    string
	dealloc  string

	// wasi: a compiled module instantiated per call.
	runtime  wazero.Runtime
	compiled wazero.CompiledModule

	native NativeFunc
}

// NewNativeModule wraps fn as a module exposing entryPoints.
func NewNativeModule(name string, fn NativeFunc, entryPoints ...string) *Module {
	return &Module{
		name:        name,
		convention:  ConventionNative,
		entryPoints: slices.Clone(entryPoints),
		native:      fn,
	}
}

// Name returns the registry name of the module.
func (m *Module) Name() string { return m.name }

// Convention returns the module's calling convention.
func (m *Module) Convention() Convention { return m.convention }

// EntryPoints returns a copy of the callable names.
func (m *Module) EntryPoints() []string { return slices.Clone(m.entryPoints) }

// HasEntryPoint reports whether name is one of the module's entry points.
func (m *Module) HasEntryPoint(name string) bool {
	return slices.Contains(m.entryPoints, name)
}

// Close releases the wazero resources held by the module.
func (m *Module) Close(ctx context.Context) error {
	switch m.convention {
	case ConventionLinear:
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.instance != nil {
			return m.instance.Close(ctx)
		}
	case ConventionWASI:
		if m.compiled != nil {
			return m.compiled.Close(ctx)
		}
	}

	return nil
}

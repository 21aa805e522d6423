package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"golang.org/x/sync/errgroup"

	"github.com/weiihann/wasmbench/lock"
	"github.com/weiihann/wasmbench/lock/flock"
)

// Registrar accepts loaded modules. registry.Registry satisfies it.
type Registrar interface {
	Register(name string, m *Module) error
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// CacheDir enables wazero's on-disk compilation cache when non-empty.
	CacheDir string
	// Parallelism bounds concurrent compilation in LoadAll (0 = NumCPU).
	Parallelism int
	Logger      *slog.Logger
}

// Loader owns the wazero runtime every module of a process shares.
type Loader struct {
	runtime     wazero.Runtime
	cache       wazero.CompilationCache
	cacheLock   *flock.Lock
	parallelism int
	logger      *slog.Logger
}

// NewLoader creates a wazero runtime with WASI preview1 available to
// guests.
func NewLoader(ctx context.Context, opts LoaderOptions) (*Loader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	l := &Loader{
		parallelism: opts.Parallelism,
		logger:      logger,
	}
	if l.parallelism <= 0 {
		l.parallelism = runtime.NumCPU()
	}

	rtCfg := wazero.NewRuntimeConfig()

	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create compilation cache dir: %w", err)
		}

		cache, err := wazero.NewCompilationCacheWithDir(opts.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open compilation cache %s: %w", opts.CacheDir, err)
		}

		l.cache = cache
		l.cacheLock = flock.New(filepath.Join(opts.CacheDir, ".lock"))
		rtCfg = rtCfg.WithCompilationCache(cache)
	}

	l.runtime = wazero.NewRuntimeWithConfig(ctx, rtCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, l.runtime); err != nil {
		_ = l.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}

	return l, nil
}

// Load reads spec.Path and loads it.
func (l *Loader) Load(ctx context.Context, spec Spec) (*Module, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	wasm, err := os.ReadFile(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", spec.Name, err)
	}

	return l.LoadBytes(ctx, spec, wasm)
}

// LoadBytes compiles wasm and prepares it for spec's calling convention.
// Linear modules are instantiated once here; WASI modules stay compiled
// and get a fresh instance per call. spec.Path is not read.
func (l *Loader) LoadBytes(ctx context.Context, spec Spec, wasm []byte) (*Module, error) {
	if spec.Convention == ConventionNative {
		return nil, fmt.Errorf("module %s: native modules are registered in code, not loaded", spec.Name)
	}

	compiled, err := l.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile module %s: %w", spec.Name, err)
	}

	m := &Module{
		name:       spec.Name,
		convention: spec.Convention,
		runtime:    l.runtime,
	}

	switch spec.Convention {
	case ConventionWASI:
		m.compiled = compiled
		m.entryPoints = slices.Clone(spec.EntryPoints)

	case ConventionLinear:
		if err := l.prepareLinear(ctx, m, spec, compiled); err != nil {
			_ = compiled.Close(ctx)
			return nil, err
		}

	default:
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("module %s: unsupported convention %q", spec.Name, spec.Convention)
	}

	l.logger.DebugContext(ctx, "module loaded",
		slog.String("module", m.name),
		slog.String("convention", string(m.convention)),
		slog.Any("entry_points", m.entryPoints),
	)

	return m, nil
}

func (l *Loader) prepareLinear(ctx context.Context, m *Module, spec Spec, compiled wazero.CompiledModule) error {
	m.alloc = spec.Alloc
	if m.alloc == "" {
		m.alloc = DefaultAlloc
	}

	m.dealloc = spec.Dealloc
	if m.dealloc == "" {
		m.dealloc = DefaultDealloc
	}

	exports := compiled.ExportedFunctions()

	if _, ok := exports[m.alloc]; !ok {
		return fmt.Errorf("module %s: allocator %q is not exported", spec.Name, m.alloc)
	}
	if _, ok := exports[m.dealloc]; !ok {
		m.dealloc = ""
	}

	if len(spec.EntryPoints) == 0 {
		m.entryPoints = linearEntryPoints(exports)
		slices.Sort(m.entryPoints)
	} else {
		for _, name := range spec.EntryPoints {
			def, ok := exports[name]
			if !ok {
				return fmt.Errorf("module %s: entry point %q is not exported", spec.Name, name)
			}
			if !isLinearEntry(def) {
				return fmt.Errorf("module %s: entry point %q must have signature (i32, i32) -> i64", spec.Name, name)
			}
		}
		m.entryPoints = slices.Clone(spec.EntryPoints)
	}

	if len(m.entryPoints) == 0 {
		return fmt.Errorf("module %s: no (i32, i32) -> i64 entry points exported", spec.Name)
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize").
		WithStdout(os.Stderr).
		WithStderr(os.Stderr)

	instance, err := l.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return fmt.Errorf("instantiate module %s: %w", spec.Name, err)
	}

	m.instance = instance

	return nil
}

// LoadAll compiles specs concurrently, then registers them in order.
// Modules that end up unregistered because of a failure are closed.
func (l *Loader) LoadAll(ctx context.Context, specs []Spec, reg Registrar) error {
	if len(specs) == 0 {
		return nil
	}

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
	}

	modules := make([]*Module, len(specs))

	compileAll := func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.parallelism)

		for i, spec := range specs {
			g.Go(func() error {
				m, err := l.Load(gctx, spec)
				if err != nil {
					return err
				}
				modules[i] = m

				return nil
			})
		}

		return g.Wait()
	}

	var err error
	if l.cacheLock != nil {
		err = lock.WithLock(ctx, l.cacheLock, compileAll)
	} else {
		err = compileAll()
	}

	if err != nil {
		closeModules(ctx, modules)
		return fmt.Errorf("load modules: %w", err)
	}

	for i, m := range modules {
		if err := reg.Register(m.Name(), m); err != nil {
			closeModules(ctx, modules[i:])
			return fmt.Errorf("register modules: %w", err)
		}
	}

	l.logger.InfoContext(ctx, "modules loaded", slog.Int("count", len(modules)))

	return nil
}

func closeModules(ctx context.Context, modules []*Module) {
	for _, m := range modules {
		if m != nil {
			_ = m.Close(ctx)
		}
	}
}

// Close shuts down the runtime and every module instantiated in it.
func (l *Loader) Close(ctx context.Context) error {
	var errs []error

	if l.runtime != nil {
		if err := l.runtime.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close runtime: %w", err))
		}
	}

	if l.cache != nil {
		if err := l.cache.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close compilation cache: %w", err))
		}
	}

	return errors.Join(errs...)
}

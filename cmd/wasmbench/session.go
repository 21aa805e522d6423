package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weiihann/wasmbench/bench"
	"github.com/weiihann/wasmbench/carparse"
	"github.com/weiihann/wasmbench/config"
	"github.com/weiihann/wasmbench/harness"
	"github.com/weiihann/wasmbench/registry"
)

// session is the set of loaded modules behind one command invocation.
type session struct {
	loader   *harness.Loader
	registry *registry.Registry
	orch     *bench.Orchestrator
}

// openSession loads the configured modules. With no modules configured it
// falls back to the bundled binaries that have been built.
func (a *app) openSession(ctx context.Context) (*session, error) {
	loader, err := harness.NewLoader(ctx, harness.LoaderOptions{
		CacheDir:    a.cfg.CacheDir,
		Parallelism: a.cfg.Parallelism,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, err
	}

	reg := registry.New()

	if a.cfg.Native {
		native := harness.NewNativeModule(config.NativeModuleName, carparse.Dispatch, carparse.EntryParseJSON)
		if err := reg.Register(native.Name(), native); err != nil {
			_ = loader.Close(ctx)
			return nil, err
		}
	}

	specs := a.cfg.Modules
	if len(specs) == 0 {
		specs = harness.DiscoverSpecs(a.cfg.ModulesDir)

		a.logger.DebugContext(ctx, "discovered built modules",
			slog.String("modules_dir", a.cfg.ModulesDir),
			slog.Int("count", len(specs)),
		)
	}

	if err := loader.LoadAll(ctx, specs, reg); err != nil {
		_ = loader.Close(ctx)
		return nil, err
	}

	if reg.Len() == 0 {
		_ = loader.Close(ctx)
		return nil, errors.New("no modules loaded: build them with 'wasmbench build' or list them in the config")
	}

	return &session{
		loader:   loader,
		registry: reg,
		orch:     bench.New(reg, harness.Adapter{}, a.logger),
	}, nil
}

func (s *session) Close(ctx context.Context) error {
	var errs []error

	if err := s.registry.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.loader.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("close session: %w", errors.Join(errs...))
	}

	return nil
}

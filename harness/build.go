package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/weiihann/wasmbench/lock"
	"github.com/weiihann/wasmbench/lock/flock"
)

// KnownModules returns the module sources shipped under the modules
// directory.
func KnownModules() []string {
	return []string{"goparser", "rustparser"}
}

// ResolveBinary returns the expected .wasm path for a module source
// given the modules root directory.
func ResolveBinary(modulesDir, source string) string {
	switch source {
	case "goparser":
		return filepath.Join(modulesDir, "goparser", "goparser.wasm")
	case "rustparser":
		return filepath.Join(
			modulesDir, "rustparser", "target",
			"wasm32-unknown-unknown", "release", "rustparser.wasm",
		)
	default:
		return filepath.Join(modulesDir, source, source+".wasm")
	}
}

// DefaultSpec returns the load spec matching a built module source.
func DefaultSpec(modulesDir, source string) (Spec, error) {
	switch source {
	case "goparser":
		return Spec{
			Name:        "go-parser",
			Path:        ResolveBinary(modulesDir, source),
			Convention:  ConventionLinear,
			EntryPoints: []string{"parseJson"},
		}, nil
	case "rustparser":
		return Spec{
			Name:        "rust-parser",
			Path:        ResolveBinary(modulesDir, source),
			Convention:  ConventionLinear,
			EntryPoints: []string{"parseJson"},
		}, nil
	default:
		return Spec{}, fmt.Errorf("unknown module source %q", source)
	}
}

// Build compiles a module source to WebAssembly. Builds sharing a modules
// directory are serialized through a lock file, also across processes.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	modulesDir string,
	source string,
) (string, error) {
	srcDir := filepath.Join(modulesDir, source)
	binPath := ResolveBinary(modulesDir, source)

	var cmd *exec.Cmd

	switch source {
	case "goparser":
		cmd = exec.CommandContext(
			ctx, "go", "build", "-buildmode=c-shared", "-o", binPath, ".",
		)
		cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
		cmd.Dir = srcDir

	case "rustparser":
		cmd = exec.CommandContext(
			ctx, "cargo", "build", "--release",
			"--target", "wasm32-unknown-unknown",
		)
		cmd.Dir = srcDir

	default:
		return "", fmt.Errorf("unknown module source %q", source)
	}

	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	logger.InfoContext(ctx, "building module",
		slog.String("source", source),
		slog.String("source_dir", srcDir),
	)

	buildLock := flock.New(filepath.Join(modulesDir, ".build.lock"))

	err := lock.WithLock(ctx, buildLock, func() error {
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("build %s: %w", source, err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", source, binPath,
		)
	}

	logger.InfoContext(ctx, "module built",
		slog.String("source", source),
		slog.String("binary", binPath),
	)

	return binPath, nil
}

// DiscoverSpecs returns load specs for every known module source whose
// binary exists under modulesDir.
func DiscoverSpecs(modulesDir string) []Spec {
	var specs []Spec

	for _, source := range KnownModules() {
		if _, err := os.Stat(ResolveBinary(modulesDir, source)); err != nil {
			continue
		}

		spec, err := DefaultSpec(modulesDir, source)
		if err != nil {
			continue
		}

		specs = append(specs, spec)
	}

	return specs
}

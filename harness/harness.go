package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
)

// Call is one prepared invocation. Run performs the guest call and is
// meant to be the only work inside a timed bracket. Close releases what
// Prepare acquired and must be called exactly once, even if Run was not.
type Call interface {
	Run() (string, error)
	Close()
}

// Invoker prepares calls to one entry point of a module with a host string.
type Invoker interface {
	Prepare(ctx context.Context, m *Module, entryPoint, input string) (Call, error)
}

// Adapter is the Invoker for every calling convention in this package. It
// performs exactly one guest call per Run and caches nothing, so two
// identical invocations cost the same.
type Adapter struct{}

var _ Invoker = Adapter{}

// Prepare validates the input and does every step that precedes the guest
// call: taking the module lock, copying the input into guest memory or
// instantiating a command module.
func (Adapter) Prepare(ctx context.Context, m *Module, entryPoint, input string) (Call, error) {
	if !m.HasEntryPoint(entryPoint) {
		return nil, callFailed(m, entryPoint, fmt.Errorf("%w %q", ErrUnknownEntryPoint, entryPoint))
	}

	if !utf8.ValidString(input) {
		return nil, marshalError(m, entryPoint, errors.New("input is not valid UTF-8"))
	}

	switch m.convention {
	case ConventionLinear:
		return m.prepareLinearCall(ctx, entryPoint, input)
	case ConventionWASI:
		return m.prepareWASICall(ctx, entryPoint, input)
	case ConventionNative:
		return &nativeCall{m: m, entryPoint: entryPoint, input: input}, nil
	default:
		return nil, callFailed(m, entryPoint, fmt.Errorf("unsupported convention %q", m.convention))
	}
}

// Invoke prepares, runs and closes a single call and returns the module's
// output unmodified.
func (a Adapter) Invoke(ctx context.Context, m *Module, entryPoint, input string) (string, error) {
	call, err := a.Prepare(ctx, m, entryPoint, input)
	if err != nil {
		return "", err
	}
	defer call.Close()

	return call.Run()
}

type nativeCall struct {
	m          *Module
	entryPoint string
	input      string
}

func (c *nativeCall) Run() (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = callFailed(c.m, c.entryPoint, fmt.Errorf("panic: %v", r))
		}
	}()

	out, err = c.m.native(c.entryPoint, c.input)
	if err != nil {
		return "", callFailed(c.m, c.entryPoint, err)
	}

	return out, nil
}

func (*nativeCall) Close() {}

// wasiCall runs a command module once with argv [name, entryPoint], the
// input on stdin and stdout captured as the result. The instance is
// created by Prepare with no start function, so Run times only _start.
type wasiCall struct {
	ctx        context.Context
	m          *Module
	entryPoint string
	mod        api.Module
	start      api.Function
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func (m *Module) prepareWASICall(ctx context.Context, entryPoint, input string) (Call, error) {
	c := &wasiCall{ctx: ctx, m: m, entryPoint: entryPoint}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithArgs(m.name, entryPoint).
		WithStdin(strings.NewReader(input)).
		WithStdout(&c.stdout).
		WithStderr(&c.stderr)

	mod, err := m.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		if mod != nil {
			_ = mod.Close(ctx)
		}

		return nil, callFailed(m, entryPoint, fmt.Errorf("instantiate: %w", err))
	}

	c.mod = mod

	c.start = mod.ExportedFunction("_start")
	if c.start == nil {
		c.Close()

		return nil, callFailed(m, entryPoint, errors.New("command module exports no _start"))
	}

	return c, nil
}

func (c *wasiCall) Run() (string, error) {
	if _, err := c.start.Call(c.ctx); err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			failure := callFailed(c.m, c.entryPoint, err)
			failure.Stderr = strings.TrimSpace(c.stderr.String())

			if exitErr != nil {
				failure.ExitCode = exitErr.ExitCode()
			}

			return "", failure
		}
	}

	return c.stdout.String(), nil
}

func (c *wasiCall) Close() {
	_ = c.mod.Close(c.ctx)
}

// Package bench runs single timed invocations against registered modules
// and keeps the most recent successful result for presentation layers.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/wasmbench/harness"
	"github.com/weiihann/wasmbench/registry"
	"github.com/weiihann/wasmbench/timing"
)

// DefaultEntryPoint is called when a request leaves EntryPoint empty.
const DefaultEntryPoint = "parseJson"

// Request names the module and entry point to call with Input.
type Request struct {
	Module     string `json:"module"`
	EntryPoint string `json:"entry_point"`
	Input      string `json:"input"`
}

// Result is the outcome of one successful run.
type Result struct {
	RunID      string    `json:"run_id"`
	Module     string    `json:"module"`
	EntryPoint string    `json:"entry_point"`
	Output     string    `json:"output"`
	ElapsedMs  float64   `json:"elapsed_ms"`
	InputBytes int       `json:"input_bytes"`
	StartedAt  time.Time `json:"started_at"`
}

// Status is the orchestrator's run state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// View is what a presentation layer renders.
type View struct {
	Status       Status  `json:"status"`
	RunID        string  `json:"run_id,omitempty"`
	Module       string  `json:"module,omitempty"`
	EntryPoint   string  `json:"entry_point,omitempty"`
	ElapsedMs    float64 `json:"elapsed_ms,omitempty"`
	Output       string  `json:"output,omitempty"`
	ErrorMessage string  `json:"error,omitempty"`
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	Name        string             `json:"name"`
	Convention  harness.Convention `json:"convention"`
	EntryPoints []string           `json:"entry_points"`
}

// RunError is returned by Run when a run fails. Err is one of the
// registry or harness errors and is reachable through errors.Is/As.
type RunError struct {
	RunID      string
	Module     string
	EntryPoint string
	// ElapsedMs is zero when the run failed before the call was made.
	ElapsedMs float64
	Err       error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("run %s.%s: %v", e.Module, e.EntryPoint, e.Err)
}

// Unwrap returns the underlying failure.
func (e *RunError) Unwrap() error { return e.Err }

// Controller is the surface presentation layers drive.
type Controller interface {
	Run(ctx context.Context, req Request) (*Result, error)
	View() View
	Modules() []ModuleInfo
}

// Resolver looks modules up by name. registry.Registry satisfies it.
type Resolver interface {
	Resolve(name string) (*harness.Module, error)
	Modules() []*harness.Module
}

var _ Resolver = (*registry.Registry)(nil)

// Orchestrator composes module resolution, invocation and timing.
type Orchestrator struct {
	resolver Resolver
	invoker  harness.Invoker
	logger   *slog.Logger

	mu      sync.RWMutex
	status  Status
	current *Result
	pending Request
	runID   string
	lastErr string
}

var _ Controller = (*Orchestrator)(nil)

// New creates an idle Orchestrator. A nil invoker selects harness.Adapter.
func New(resolver Resolver, invoker harness.Invoker, logger *slog.Logger) *Orchestrator {
	if invoker == nil {
		invoker = harness.Adapter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Orchestrator{
		resolver: resolver,
		invoker:  invoker,
		logger:   logger,
		status:   StatusIdle,
	}
}

// Run resolves the module, times exactly one invocation and publishes the
// result. A failed run leaves the previous result in place. Once the call
// has started it runs to completion; ctx is not used to abort it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.EntryPoint == "" {
		req.EntryPoint = DefaultEntryPoint
	}

	runID := uuid.NewString()
	startedAt := time.Now()

	o.begin(runID, req)

	logger := o.logger.With(
		slog.String("run_id", runID),
		slog.String("module", req.Module),
		slog.String("entry_point", req.EntryPoint),
	)

	m, err := o.resolver.Resolve(req.Module)
	if err != nil {
		return nil, o.fail(ctx, logger, &RunError{
			RunID:      runID,
			Module:     req.Module,
			EntryPoint: req.EntryPoint,
			Err:        err,
		})
	}

	callCtx := context.WithoutCancel(ctx)

	// Lock waits, input copies and instantiation happen in Prepare and
	// buffer release in Close; only Run is timed.
	call, err := o.invoker.Prepare(callCtx, m, req.EntryPoint, req.Input)
	if err != nil {
		return nil, o.fail(ctx, logger, &RunError{
			RunID:      runID,
			Module:     req.Module,
			EntryPoint: req.EntryPoint,
			Err:        err,
		})
	}

	output, elapsed, err := timing.Measure(call.Run)
	call.Close()

	if err != nil {
		return nil, o.fail(ctx, logger, &RunError{
			RunID:      runID,
			Module:     req.Module,
			EntryPoint: req.EntryPoint,
			ElapsedMs:  elapsed,
			Err:        err,
		})
	}

	res := &Result{
		RunID:      runID,
		Module:     req.Module,
		EntryPoint: req.EntryPoint,
		Output:     output,
		ElapsedMs:  elapsed,
		InputBytes: len(req.Input),
		StartedAt:  startedAt,
	}

	o.complete(runID, res)

	logger.InfoContext(ctx, "run completed",
		slog.Float64("elapsed_ms", elapsed),
		slog.Int("input_bytes", res.InputBytes),
		slog.Int("output_bytes", len(output)),
	)

	out := *res

	return &out, nil
}

func (o *Orchestrator) begin(runID string, req Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.status = StatusRunning
	o.runID = runID
	o.pending = req
	o.lastErr = ""
}

func (o *Orchestrator) complete(runID string, res *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.current = res

	// A newer run has started; leave its status alone.
	if o.runID == runID {
		o.status = StatusCompleted
	}
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, runErr *RunError) error {
	o.mu.Lock()
	if o.runID == runErr.RunID {
		o.status = StatusFailed
		o.lastErr = runErr.Err.Error()
	}
	o.mu.Unlock()

	logger.WarnContext(ctx, "run failed",
		slog.String("kind", Kind(runErr.Err)),
		slog.Float64("elapsed_ms", runErr.ElapsedMs),
		slog.String("error", runErr.Err.Error()),
	)

	return runErr
}

// Current returns a copy of the last successful result, or nil before the
// first one.
func (o *Orchestrator) Current() *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.current == nil {
		return nil
	}

	res := *o.current

	return &res
}

// View returns a consistent snapshot of the orchestrator state.
func (o *Orchestrator) View() View {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v := View{
		Status:       o.status,
		RunID:        o.runID,
		Module:       o.pending.Module,
		EntryPoint:   o.pending.EntryPoint,
		ErrorMessage: o.lastErr,
	}

	if o.current != nil {
		v.Output = o.current.Output

		if o.status == StatusCompleted {
			v.ElapsedMs = o.current.ElapsedMs
		}
	}

	return v
}

// Modules lists the registered modules.
func (o *Orchestrator) Modules() []ModuleInfo {
	modules := o.resolver.Modules()

	infos := make([]ModuleInfo, 0, len(modules))
	for _, m := range modules {
		infos = append(infos, ModuleInfo{
			Name:        m.Name(),
			Convention:  m.Convention(),
			EntryPoints: m.EntryPoints(),
		})
	}

	return infos
}

// Kind classifies a run failure for logs and API responses.
func Kind(err error) string {
	switch {
	case errors.Is(err, registry.ErrUnknownModule):
		return "unknown_module"
	case errors.Is(err, harness.ErrMarshal):
		return "marshal"
	case errors.Is(err, harness.ErrCallFailed):
		return "call_failed"
	case err == nil:
		return ""
	default:
		return "internal"
	}
}

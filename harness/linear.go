package harness

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// ResultErrorFlag marks a packed linear result as a guest-reported failure:
// when bit 31 of the length half is set, the bytes at ptr hold the error
// message instead of the output.
const ResultErrorFlag uint32 = 1 << 31

// linearCall holds the module lock from Prepare until Close and owns the
// guest buffers handed out on its behalf.
type linearCall struct {
	ctx        context.Context
	m          *Module
	entryPoint string
	fn         api.Function
	mem        api.Memory
	inPtr      uint32
	size       uint32
	allocated  bool
	outPtr     uint32
	outLen     uint32
	hasOut     bool
	closed     bool
}

// prepareLinearCall copies input into guest memory. The module lock is
// held from here until Close, so waiting for a concurrent run never lands
// inside Run.
func (m *Module) prepareLinearCall(ctx context.Context, entryPoint, input string) (Call, error) {
	fn := m.instance.ExportedFunction(entryPoint)
	if fn == nil {
		return nil, callFailed(m, entryPoint, fmt.Errorf("%w %q: not exported", ErrUnknownEntryPoint, entryPoint))
	}

	if uint64(len(input)) > math.MaxUint32 {
		return nil, marshalError(m, entryPoint, fmt.Errorf("input of %d bytes exceeds the 32-bit address space", len(input)))
	}

	mem := m.instance.Memory()
	if mem == nil {
		return nil, marshalError(m, entryPoint, errors.New("module exports no memory"))
	}

	m.mu.Lock()

	c := &linearCall{ctx: ctx, m: m, entryPoint: entryPoint, fn: fn, mem: mem, size: uint32(len(input))}

	inPtr, err := m.allocate(ctx, c.size)
	if err != nil {
		c.Close()

		return nil, marshalError(m, entryPoint, err)
	}

	c.inPtr, c.allocated = inPtr, true

	if c.size > 0 && !mem.WriteString(inPtr, input) {
		c.Close()

		return nil, marshalError(m, entryPoint, fmt.Errorf("write %d bytes at %#x: out of memory range", c.size, inPtr))
	}

	return c, nil
}

// Run calls entryPoint(ptr, len) and copies the packed result out.
func (c *linearCall) Run() (string, error) {
	results, err := c.fn.Call(c.ctx, uint64(c.inPtr), uint64(c.size))
	if err != nil {
		return "", callFailed(c.m, c.entryPoint, err)
	}

	if len(results) != 1 {
		return "", callFailed(c.m, c.entryPoint, fmt.Errorf("expected one packed result, got %d", len(results)))
	}

	outPtr, outLen := uint32(results[0]>>32), uint32(results[0])
	failed := outLen&ResultErrorFlag != 0
	outLen &^= ResultErrorFlag

	raw, ok := c.mem.Read(outPtr, outLen)
	if !ok {
		return "", callFailed(c.m, c.entryPoint, fmt.Errorf("result [%#x, +%d) is out of memory range", outPtr, outLen))
	}

	// raw aliases guest memory; string() copies it before Close frees it.
	out := string(raw)

	c.outPtr, c.outLen, c.hasOut = outPtr, outLen, outPtr != c.inPtr

	if failed {
		return "", callFailed(c.m, c.entryPoint, fmt.Errorf("guest reported: %s", out))
	}

	return out, nil
}

// Close hands both buffers back to the guest and unlocks the module,
// whether or not Run succeeded.
func (c *linearCall) Close() {
	if c.closed {
		return
	}

	c.closed = true

	if c.allocated {
		c.m.release(c.ctx, c.inPtr, c.size)
	}

	if c.hasOut {
		c.m.release(c.ctx, c.outPtr, c.outLen)
	}

	c.m.mu.Unlock()
}

func (m *Module) allocate(ctx context.Context, size uint32) (uint32, error) {
	alloc := m.instance.ExportedFunction(m.alloc)
	if alloc == nil {
		return 0, fmt.Errorf("allocator %q is not exported", m.alloc)
	}

	res, err := alloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("allocate %d bytes: %w", size, err)
	}

	if len(res) != 1 {
		return 0, fmt.Errorf("allocator %q returned %d values", m.alloc, len(res))
	}

	return uint32(res[0]), nil
}

// release is best effort: modules without a deallocator leak into their
// own linear memory, which the host never reads again.
func (m *Module) release(ctx context.Context, ptr, size uint32) {
	if m.dealloc == "" {
		return
	}

	dealloc := m.instance.ExportedFunction(m.dealloc)
	if dealloc == nil {
		return
	}

	_, _ = dealloc.Call(ctx, uint64(ptr), uint64(size))
}

// linearEntryPoints lists exports shaped like (i32, i32) -> i64.
func linearEntryPoints(defs map[string]api.FunctionDefinition) []string {
	var names []string

	for name, def := range defs {
		if isLinearEntry(def) {
			names = append(names, name)
		}
	}

	return names
}

func isLinearEntry(def api.FunctionDefinition) bool {
	params, results := def.ParamTypes(), def.ResultTypes()

	return len(params) == 2 &&
		params[0] == api.ValueTypeI32 &&
		params[1] == api.ValueTypeI32 &&
		len(results) == 1 &&
		results[0] == api.ValueTypeI64
}

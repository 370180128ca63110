// Package sandbox executes compiled query artifacts inside a WebAssembly
// runtime. Artifacts are untrusted: every instance gets its own isolated
// memory, no host imports, a hard memory cap, and calls are interruptible
// through context cancellation so a runaway entry point cannot hang the
// process.
package sandbox

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// EntryPoint is the single exported function a query artifact must provide.
const EntryPoint = "run"

// memoryLimitPages caps each instance at 4 MiB of linear memory.
const memoryLimitPages = 64

// Runtime hosts sandboxed artifact instances. One Runtime is shared for
// the process lifetime; instances are cheap and isolated from each other.
type Runtime struct {
	rt wazero.Runtime
}

// New creates the shared WebAssembly runtime. Close-on-context-done is
// enabled so a context deadline interrupts in-flight guest code.
func New(ctx context.Context) *Runtime {
	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(memoryLimitPages)
	return &Runtime{rt: wazero.NewRuntimeWithConfig(ctx, cfg)}
}

// Close releases all runtime resources.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Instance is one isolated instantiation of an artifact, holding its own
// linear memory. Instances are not safe for concurrent calls.
type Instance struct {
	mod api.Module
	run api.Function
}

// Instantiate builds an isolated instance from artifact bytes and resolves
// its entry point. The module is instantiated anonymously (no name, no
// start functions, no host imports); artifacts that expect imports fail
// here, which is the desired containment.
func (r *Runtime) Instantiate(ctx context.Context, wasm []byte) (*Instance, error) {
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()
	mod, err := r.rt.InstantiateWithConfig(ctx, wasm, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate artifact: %w", err)
	}

	run := mod.ExportedFunction(EntryPoint)
	if run == nil {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("artifact does not export %q", EntryPoint)
	}
	results := run.Definition().ResultTypes()
	if len(results) != 1 || results[0] != api.ValueTypeI32 {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("entry point %q must return a single i32", EntryPoint)
	}

	return &Instance{mod: mod, run: run}, nil
}

// ParamTypes reports the entry point's declared parameter types, which
// drive argument marshaling.
func (i *Instance) ParamTypes() []api.ValueType {
	return i.run.Definition().ParamTypes()
}

// Call invokes the entry point with raw stack-encoded arguments and
// interprets the i32 result as an inclusion predicate. The caller bounds
// execution through ctx; when the deadline fires the instance is torn
// down mid-flight and Call returns the runtime's closure error.
func (i *Instance) Call(ctx context.Context, args []uint64) (bool, error) {
	results, err := i.run.Call(ctx, args...)
	if err != nil {
		return false, err
	}
	if len(results) != 1 {
		return false, fmt.Errorf("entry point returned %d values, want 1", len(results))
	}
	return api.DecodeI32(results[0]) != 0, nil
}

// Close tears down the instance and frees its memory.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

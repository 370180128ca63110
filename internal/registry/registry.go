// Package registry manages named compiled query artifacts: it accepts
// source uploads, drives the external compiler, and persists the results.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wasmdb/internal/db/repository"
	"wasmdb/internal/domain"
)

// Registry compiles and stores query artifacts. Registration replaces any
// prior artifact under the same name atomically; a failed compile leaves
// the prior artifact untouched. Compilation may block for the duration of
// the external compile, so callers must not invoke Register from a
// latency-sensitive path.
type Registry struct {
	artifacts *repository.ArtifactRepo // write pool
	lookups   *repository.ArtifactRepo // read pool
	compiler  Compiler
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistry wires the registry from its collaborators.
func NewRegistry(artifacts, lookups *repository.ArtifactRepo, compiler Compiler, logger *slog.Logger) *Registry {
	return &Registry{
		artifacts: artifacts,
		lookups:   lookups,
		compiler:  compiler,
		logger:    logger.With("component", "registry"),
		now:       time.Now,
	}
}

// Register compiles source and stores the resulting artifact under name.
// Compiler rejections surface as *domain.CompileError; nothing is written
// in that case.
func (r *Registry) Register(ctx context.Context, name string, source []byte) error {
	started := r.now()

	wasm, err := r.compiler.Compile(ctx, source)
	if err != nil {
		var compileErr *domain.CompileError
		if !errors.As(err, &compileErr) {
			err = &domain.CompileError{Diagnostic: err.Error()}
		}
		r.logger.Warn("compile failed", "artifact", name, "error", err)
		return err
	}

	artifact := &domain.Artifact{
		Name:      name,
		Wasm:      wasm,
		Source:    string(source),
		UpdatedAt: r.now(),
	}
	if err := r.artifacts.Upsert(ctx, artifact); err != nil {
		return err
	}

	r.logger.Info("artifact registered",
		"artifact", name,
		"wasm_bytes", len(wasm),
		"duration", r.now().Sub(started),
	)
	return nil
}

// Load returns the artifact registered under name, or *domain.NotFoundError.
// The returned artifact is a stable handle: a concurrent re-registration
// does not mutate it.
func (r *Registry) Load(ctx context.Context, name string) (*domain.Artifact, error) {
	return r.lookups.Get(ctx, name)
}

// List returns all registered artifact names.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	return r.lookups.List(ctx)
}

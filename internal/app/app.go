// Package app provides application-level wiring and dependency injection.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"wasmdb/internal/config"
	"wasmdb/internal/db/repository"
	"wasmdb/internal/engine"
	"wasmdb/internal/registry"
	"wasmdb/internal/sandbox"
	"wasmdb/internal/schema"
	"wasmdb/internal/store"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// database handles, config, the parsed schema, and the logger.
type Deps struct {
	Cfg     *config.Config
	Schema  *schema.Schema
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Store    *store.Store
	Registry *registry.Registry
	Engine   *engine.Engine

	runtime *sandbox.Runtime
}

// New wires the row store, artifact registry, and execution engine from the
// provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	rows, err := store.Open(cfg.RowLogPath, deps.Schema,
		store.WithLogger(deps.Logger.With("component", "store")))
	if err != nil {
		return nil, err
	}

	compiler := &registry.SubprocessCompiler{
		Path:         cfg.CompilerPath,
		Args:         cfg.CompilerArgs,
		SourceSuffix: cfg.CompilerSourceSuffix,
	}
	reg := registry.NewRegistry(
		repository.NewArtifactRepo(deps.WriteDB),
		repository.NewArtifactRepo(deps.ReadDB),
		compiler,
		deps.Logger,
	)

	runtime := sandbox.New(ctx)
	eng := engine.NewEngine(runtime, deps.Schema, cfg.QueryTimeout, deps.Logger)

	return &App{
		Store:    rows,
		Registry: reg,
		Engine:   eng,
		runtime:  runtime,
	}, nil
}

// Close releases the row log and the sandbox runtime.
func (a *App) Close(ctx context.Context) error {
	err := a.Store.Close()
	if rtErr := a.runtime.Close(ctx); err == nil {
		err = rtErr
	}
	return err
}

// Package repository implements persistence for compiled query artifacts
// using SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wasmdb/internal/domain"
)

// ArtifactRepo stores compiled artifacts keyed by name. Replacement is an
// upsert inside a single statement, so a concurrent reader sees either the
// old or the new artifact in full, never a partial one.
type ArtifactRepo struct {
	db *sql.DB
}

// NewArtifactRepo creates an ArtifactRepo on the given pool. Pass the write
// pool for repos that upsert, the read pool for lookup-only use.
func NewArtifactRepo(db *sql.DB) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

// Upsert inserts or replaces the artifact under its name (last-write-wins).
func (r *ArtifactRepo) Upsert(ctx context.Context, a *domain.Artifact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO artifacts (name, wasm, source, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			wasm = excluded.wasm,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		a.Name, a.Wasm, a.Source, a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert artifact %q: %w", a.Name, err)
	}
	return nil
}

// Get loads the artifact registered under name.
func (r *ArtifactRepo) Get(ctx context.Context, name string) (*domain.Artifact, error) {
	var (
		a         domain.Artifact
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT name, wasm, source, updated_at FROM artifacts WHERE name = ?`, name,
	).Scan(&a.Name, &a.Wasm, &a.Source, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("no artifact registered under %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %q: %w", name, err)
	}
	if ts, perr := time.Parse(time.RFC3339Nano, updatedAt); perr == nil {
		a.UpdatedAt = ts
	}
	return &a, nil
}

// List returns the names of all registered artifacts in lexical order.
func (r *ArtifactRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM artifacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan artifact name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

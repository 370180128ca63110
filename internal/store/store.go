// Package store implements the append-only, schema-validated row store.
//
// Rows live in memory in insertion order and are backed by an append-only
// log replayed at open. Inserts are validated completely before any
// mutation; a validated row is first made durable, then published
// atomically. Scans snapshot the published prefix and never block the
// writer beyond the instant of the publish.
package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wasmdb/internal/domain"
	"wasmdb/internal/schema"
)

// Clock supplies insert timestamps. Swappable in tests.
type Clock func() time.Time

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used for the auto column.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger attaches a logger for insert/scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is the process-wide row container. Writers are serialized by an
// internal mutex; any number of concurrent scans may run against it.
type Store struct {
	schema *schema.Schema
	clock  Clock
	logger *slog.Logger

	writeMu sync.Mutex // serializes append + log IO
	mu      sync.RWMutex
	rows    []domain.Row

	log *appendLog
}

// Open loads (or creates) the row log at path and replays it into memory.
// Every replayed row must conform to the schema arity; a shape mismatch
// means the schema file changed under an existing log, which is fatal.
func Open(path string, sch *schema.Schema, opts ...Option) (*Store, error) {
	log, rows, err := openLog(path)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != sch.Arity() {
			_ = log.Close()
			return nil, fmt.Errorf("row log record %d has %d values, schema expects %d", i, len(row), sch.Arity())
		}
	}

	s := &Store{
		schema: sch,
		clock:  time.Now,
		logger: slog.Default(),
		rows:   rows,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Info("row store opened", "path", path, "rows", len(rows), "arity", sch.Arity())
	return s, nil
}

// Insert validates the named values against the schema, synthesizes the
// timestamp column when configured, and appends the row. The stored row is
// returned in schema column order regardless of submission order. No
// partial append is possible: validation completes before any mutation.
func (s *Store) Insert(fields []string, values []domain.Value) (domain.Row, error) {
	row, err := s.buildRow(fields, values)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.log.append(row); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rows = append(s.rows, row)
	n := len(s.rows)
	s.mu.Unlock()

	s.logger.Debug("row appended", "rows", n)
	return row, nil
}

// Scan returns a consistent snapshot of all rows stored at the time of the
// call, in insertion order. The snapshot is independent of later inserts;
// calling Scan twice with no intervening insert yields identical sequences.
// Rows are immutable and must not be modified by callers.
func (s *Store) Scan() []domain.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Full-capacity reslice: appends by the writer go to a fresh backing
	// array instead of the snapshot's tail.
	return s.rows[:len(s.rows):len(s.rows)]
}

// Len reports the current number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close releases the underlying log file.
func (s *Store) Close() error {
	return s.log.Close()
}

// buildRow validates fields/values and produces the schema-ordered row.
func (s *Store) buildRow(fields []string, values []domain.Value) (domain.Row, error) {
	if len(fields) != len(values) {
		return nil, &domain.ArityError{Want: len(fields), Got: len(values)}
	}

	auto := 0
	if s.schema.AutoTimestamp() {
		auto = 1
	}
	if want := s.schema.Arity() - auto; len(fields) != want {
		return nil, &domain.ArityError{Want: want, Got: len(fields)}
	}

	row := make(domain.Row, s.schema.Arity())
	filled := make([]bool, s.schema.Arity())

	for i, name := range fields {
		if s.schema.AutoTimestamp() && name == schema.TimestampColumn {
			return nil, &domain.ReservedColumnError{Name: name}
		}
		pos, ok := s.schema.IndexOf(name)
		if !ok {
			return nil, &domain.UnknownFieldError{Name: name}
		}
		if filled[pos] {
			// A duplicate field necessarily leaves another column empty.
			return nil, &domain.ArityError{Want: s.schema.Arity() - auto, Got: len(fields) - 1}
		}
		col := s.schema.ColumnAt(pos)
		if !values[i].Is(col.Type) {
			return nil, &domain.TypeMismatchError{Column: col.Name, Want: col.Type, Got: values[i].Kind()}
		}
		row[pos] = values[i]
		filled[pos] = true
	}

	if s.schema.AutoTimestamp() {
		pos, _ := s.schema.IndexOf(schema.TimestampColumn)
		row[pos] = domain.IntValue(s.clock().Unix())
	}

	return row, nil
}

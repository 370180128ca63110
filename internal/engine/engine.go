// Package engine evaluates compiled query artifacts against stored rows.
//
// An execution instantiates the artifact once, derives an argument plan
// from the entry point's signature, then invokes the entry point for every
// row. Rows for which it returns nonzero are included in the result.
// Execution is all-or-nothing: the first failing row aborts the query and
// no partial result escapes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero/api"

	"wasmdb/internal/domain"
	"wasmdb/internal/sandbox"
	"wasmdb/internal/schema"
)

// DefaultRowTimeout bounds a single entry point invocation.
const DefaultRowTimeout = 2 * time.Second

// Engine executes artifacts against rows of a fixed schema.
type Engine struct {
	runtime    *sandbox.Runtime
	schema     *schema.Schema
	rowTimeout time.Duration
	logger     *slog.Logger
}

// NewEngine wires an engine over the shared sandbox runtime. rowTimeout
// bounds each entry point invocation; zero selects DefaultRowTimeout.
func NewEngine(rt *sandbox.Runtime, sch *schema.Schema, rowTimeout time.Duration, logger *slog.Logger) *Engine {
	if rowTimeout <= 0 {
		rowTimeout = DefaultRowTimeout
	}
	return &Engine{
		runtime:    rt,
		schema:     sch,
		rowTimeout: rowTimeout,
		logger:     logger.With("component", "engine"),
	}
}

// argSource maps one entry point parameter to a schema column.
type argSource struct {
	col int
	vt  api.ValueType
}

// planArgs pairs entry point parameters with the schema's numeric columns
// in declared order. Integer parameters must land on Int columns and float
// parameters on Float columns; String and Boolean columns are never passed.
func planArgs(params []api.ValueType, sch *schema.Schema) ([]argSource, error) {
	var numeric []int
	for i, col := range sch.Columns() {
		if col.Type == domain.TypeInt || col.Type == domain.TypeFloat {
			numeric = append(numeric, i)
		}
	}
	if len(params) > len(numeric) {
		return nil, domain.ErrMarshal(
			"entry point takes %d arguments but the schema has only %d numeric columns",
			len(params), len(numeric))
	}

	plan := make([]argSource, len(params))
	for i, vt := range params {
		col := sch.ColumnAt(numeric[i])
		switch vt {
		case api.ValueTypeI32, api.ValueTypeI64:
			if col.Type != domain.TypeInt {
				return nil, domain.ErrMarshal(
					"entry point argument %d wants an integer but column %q is %s", i, col.Name, col.Type)
			}
		case api.ValueTypeF32, api.ValueTypeF64:
			if col.Type != domain.TypeFloat {
				return nil, domain.ErrMarshal(
					"entry point argument %d wants a float but column %q is %s", i, col.Name, col.Type)
			}
		default:
			return nil, domain.ErrMarshal("entry point argument %d has unsupported type 0x%x", i, vt)
		}
		plan[i] = argSource{col: numeric[i], vt: vt}
	}
	return plan, nil
}

// marshalRow encodes one row's planned columns onto the call stack.
func marshalRow(plan []argSource, row domain.Row) []uint64 {
	args := make([]uint64, len(plan))
	for i, src := range plan {
		v := row[src.col]
		switch src.vt {
		case api.ValueTypeI32:
			args[i] = api.EncodeI32(int32(v.Int()))
		case api.ValueTypeI64:
			args[i] = api.EncodeI64(v.Int())
		case api.ValueTypeF32:
			args[i] = api.EncodeF32(float32(v.Float()))
		case api.ValueTypeF64:
			args[i] = api.EncodeF64(v.Float())
		}
	}
	return args
}

// Execute runs the artifact's entry point over rows and returns the rows it
// selected, preserving store order. Signature mismatches surface as
// *domain.MarshalError; a trap, timeout, or instantiation failure surfaces
// as *domain.ExecutionError and discards any rows already selected.
func (e *Engine) Execute(ctx context.Context, artifact *domain.Artifact, rows []domain.Row) ([]domain.Row, error) {
	started := time.Now()
	logger := e.logger.With("execution_id", uuid.NewString(), "artifact", artifact.Name)

	inst, err := e.runtime.Instantiate(ctx, artifact.Wasm)
	if err != nil {
		return nil, &domain.ExecutionError{RowIndex: -1, Cause: err}
	}
	defer inst.Close(ctx) //nolint:errcheck

	plan, err := planArgs(inst.ParamTypes(), e.schema)
	if err != nil {
		return nil, err
	}

	var selected []domain.Row
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, &domain.ExecutionError{RowIndex: i, Cause: err}
		}

		keep, err := e.callRow(ctx, inst, marshalRow(plan, row))
		if err != nil {
			logger.Warn("execution aborted", "row", i, "error", err)
			return nil, &domain.ExecutionError{RowIndex: i, Cause: err}
		}
		if keep {
			selected = append(selected, row)
		}
	}

	logger.Debug("execution finished",
		"rows_scanned", len(rows),
		"rows_selected", len(selected),
		"duration", time.Since(started),
	)
	return selected, nil
}

// callRow invokes the entry point under the per-row budget.
func (e *Engine) callRow(ctx context.Context, inst *sandbox.Instance, args []uint64) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.rowTimeout)
	defer cancel()

	keep, err := inst.Call(callCtx, args)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return false, fmt.Errorf("entry point exceeded %s budget: %w", e.rowTimeout, context.DeadlineExceeded)
		}
		return false, err
	}
	return keep, nil
}

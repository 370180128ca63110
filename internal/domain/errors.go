package domain

import "fmt"

// SchemaError indicates an invalid schema document. Fatal at startup.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string { return e.Message }

// ErrSchema creates a SchemaError with a formatted message.
func ErrSchema(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Message: fmt.Sprintf(format, args...)}
}

// ArityError indicates a field/value count mismatch on insert.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("number of fields (%d) does not match number of values (%d)", e.Want, e.Got)
}

// UnknownFieldError indicates an insert naming a field absent from the schema.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field %q is not part of the schema", e.Name)
}

// TypeMismatchError indicates a value whose variant does not match the
// declared type of its column.
type TypeMismatchError struct {
	Column string
	Want   DataType
	Got    DataType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("column %q expects %s, got %s", e.Column, e.Want, e.Got)
}

// ReservedColumnError indicates an attempt to supply a value for a column
// the store synthesizes itself (the auto timestamp).
type ReservedColumnError struct {
	Name string
}

func (e *ReservedColumnError) Error() string {
	return fmt.Sprintf("column %q is reserved and populated automatically", e.Name)
}

// CompileError indicates the external compiler rejected uploaded source.
// Any previously registered artifact under the same name is left intact.
type CompileError struct {
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile failed: %s", e.Diagnostic)
}

// NotFoundError indicates a named resource was never registered.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// MarshalError indicates the artifact's entry point signature cannot be
// satisfied from the schema's columns. It signals a contract mismatch, not
// bad row data, so it aborts the whole query.
type MarshalError struct {
	Message string
}

func (e *MarshalError) Error() string { return e.Message }

// ErrMarshal creates a MarshalError with a formatted message.
func ErrMarshal(format string, args ...interface{}) *MarshalError {
	return &MarshalError{Message: fmt.Sprintf(format, args...)}
}

// ExecutionError reports a failed query execution. Queries are
// all-or-nothing: no partial result accompanies this error.
type ExecutionError struct {
	RowIndex int
	Cause    error
}

func (e *ExecutionError) Error() string {
	if e.RowIndex < 0 {
		return fmt.Sprintf("query execution failed: %v", e.Cause)
	}
	return fmt.Sprintf("query execution failed at row %d: %v", e.RowIndex, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

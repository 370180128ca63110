package domain

import "time"

// Row is one schema-conformant ordered sequence of values. Rows are
// immutable once stored; the JSON form is an array of tagged values.
type Row []Value

// Clone returns a copy that shares no backing array with the original.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Artifact is a compiled query function keyed by name. Source is retained
// for reproducibility; Wasm holds the portable executable bytes.
type Artifact struct {
	Name      string
	Wasm      []byte
	Source    string
	UpdatedAt time.Time
}

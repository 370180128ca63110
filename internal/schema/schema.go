// Package schema loads and represents the process-wide column layout.
//
// A schema is read once at startup and is immutable afterwards, so it is
// shared by reference across all components without locking. Changing the
// schema file requires a fresh process.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wasmdb/internal/domain"
)

// TimestampColumn is the name of the synthesized insert-time column.
const TimestampColumn = "timestamp"

// Column is one named, typed position in every row.
type Column struct {
	Name string
	Type domain.DataType
}

// Schema is the ordered column layout governing row shape. Column order
// defines row positional order. When the auto-timestamp option is enabled
// the schema carries a trailing Int column named "timestamp" that the store
// populates itself.
type Schema struct {
	columns       []Column
	autoTimestamp bool
	index         map[string]int
}

type fileColumn struct {
	Name     string `yaml:"name"`
	DataType string `yaml:"data_type"`
}

type fileSchema struct {
	Columns            []fileColumn `yaml:"columns"`
	AddTimestampColumn bool         `yaml:"add_timestamp_column"`
}

// Load reads and parses the schema document at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Schema from a YAML document.
func Parse(data []byte) (*Schema, error) {
	var doc fileSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.ErrSchema("malformed schema document: %v", err)
	}
	if len(doc.Columns) == 0 {
		return nil, domain.ErrSchema("schema must declare at least one column")
	}

	cols := make([]Column, 0, len(doc.Columns)+1)
	for _, fc := range doc.Columns {
		if fc.Name == "" {
			return nil, domain.ErrSchema("column with empty name")
		}
		dt, err := domain.ParseDataType(fc.DataType)
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: fc.Name, Type: dt})
	}
	if doc.AddTimestampColumn {
		cols = append(cols, Column{Name: TimestampColumn, Type: domain.TypeInt})
	}

	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c.Name]; dup {
			return nil, domain.ErrSchema("duplicate column name %q", c.Name)
		}
		index[c.Name] = i
	}

	return &Schema{columns: cols, autoTimestamp: doc.AddTimestampColumn, index: index}, nil
}

// Arity is the number of columns, including any synthesized timestamp.
func (s *Schema) Arity() int { return len(s.columns) }

// ColumnAt returns the column at position i in declared order.
func (s *Schema) ColumnAt(i int) Column { return s.columns[i] }

// Columns returns the columns in declared order. The slice must not be
// mutated.
func (s *Schema) Columns() []Column { return s.columns }

// IndexOf resolves a column name to its position.
func (s *Schema) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// AutoTimestamp reports whether the store synthesizes the timestamp column
// on every insert.
func (s *Schema) AutoTimestamp() bool { return s.autoTimestamp }

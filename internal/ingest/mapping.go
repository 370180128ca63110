// Package ingest feeds external message streams into the row store.
//
// A mapping document declares how fields of an incoming JSON message
// translate to schema columns. The consumer reads messages from a broker,
// translates them, and submits them through the server's insert endpoint so
// every row passes the same validation as direct API writes.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wasmdb/internal/domain"
)

// FieldMapping translates one message field to one schema column.
type FieldMapping struct {
	ExternalField string `yaml:"external_field"`
	DatabaseField string `yaml:"database_field"`
	DataType      string `yaml:"data_type"`
}

// Mapping is the full message-to-row translation table.
type Mapping struct {
	fields []FieldMapping
	types  []domain.DataType
}

type mappingFile struct {
	Mappings []FieldMapping `yaml:"mappings"`
}

// LoadMapping reads and parses the mapping document at path.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from flags
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	m, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return m, nil
}

// ParseMapping builds a Mapping from a YAML document.
func ParseMapping(data []byte) (*Mapping, error) {
	var doc mappingFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed mapping document: %w", err)
	}
	if len(doc.Mappings) == 0 {
		return nil, fmt.Errorf("mapping must declare at least one field")
	}

	types := make([]domain.DataType, len(doc.Mappings))
	seen := make(map[string]bool, len(doc.Mappings))
	for i, fm := range doc.Mappings {
		if fm.ExternalField == "" || fm.DatabaseField == "" {
			return nil, fmt.Errorf("mapping %d: external_field and database_field are required", i)
		}
		if seen[fm.DatabaseField] {
			return nil, fmt.Errorf("duplicate database_field %q", fm.DatabaseField)
		}
		seen[fm.DatabaseField] = true
		dt, err := domain.ParseDataType(fm.DataType)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		types[i] = dt
	}

	return &Mapping{fields: doc.Mappings, types: types}, nil
}

// Translate converts one JSON message into named insert values. A message
// missing a mapped field, or carrying the wrong JSON type for it, is
// rejected whole.
func (m *Mapping) Translate(message []byte) ([]string, []domain.Value, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(message, &doc); err != nil {
		return nil, nil, fmt.Errorf("malformed message: %w", err)
	}

	fields := make([]string, len(m.fields))
	values := make([]domain.Value, len(m.fields))
	for i, fm := range m.fields {
		raw, ok := doc[fm.ExternalField]
		if !ok {
			return nil, nil, fmt.Errorf("message is missing field %q", fm.ExternalField)
		}
		v, err := decodeValue(raw, m.types[i])
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", fm.ExternalField, err)
		}
		fields[i] = fm.DatabaseField
		values[i] = v
	}
	return fields, values, nil
}

func decodeValue(raw json.RawMessage, dt domain.DataType) (domain.Value, error) {
	switch dt {
	case domain.TypeInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return domain.Value{}, fmt.Errorf("expected integer: %w", err)
		}
		return domain.IntValue(n), nil
	case domain.TypeFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return domain.Value{}, fmt.Errorf("expected number: %w", err)
		}
		return domain.FloatValue(f), nil
	case domain.TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.Value{}, fmt.Errorf("expected string: %w", err)
		}
		return domain.StringValue(s), nil
	case domain.TypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return domain.Value{}, fmt.Errorf("expected boolean: %w", err)
		}
		return domain.BoolValue(b), nil
	default:
		return domain.Value{}, fmt.Errorf("unsupported data type %s", dt)
	}
}

package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasmdb/internal/domain"
)

func TestParse_DeclaredOrderAndTypes(t *testing.T) {
	s, err := Parse([]byte(`
columns:
  - name: url
    data_type: String
  - name: points
    data_type: Int
  - name: score
    data_type: Float
  - name: active
    data_type: Boolean
add_timestamp_column: false
`))
	require.NoError(t, err)

	assert.Equal(t, 4, s.Arity())
	assert.False(t, s.AutoTimestamp())
	assert.Equal(t, Column{Name: "url", Type: domain.TypeString}, s.ColumnAt(0))
	assert.Equal(t, Column{Name: "active", Type: domain.TypeBoolean}, s.ColumnAt(3))

	i, ok := s.IndexOf("score")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = s.IndexOf("missing")
	assert.False(t, ok)
}

func TestParse_AutoTimestampAppendsIntColumn(t *testing.T) {
	s, err := Parse([]byte(`
columns:
  - name: url
    data_type: String
add_timestamp_column: true
`))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Arity())
	assert.True(t, s.AutoTimestamp())
	assert.Equal(t, Column{Name: TimestampColumn, Type: domain.TypeInt}, s.ColumnAt(1))
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty columns", "columns: []\n"},
		{"unknown type", "columns:\n  - name: a\n    data_type: Decimal\n"},
		{"duplicate name", "columns:\n  - name: a\n    data_type: Int\n  - name: a\n    data_type: Int\n"},
		{"timestamp collision", "columns:\n  - name: timestamp\n    data_type: Int\nadd_timestamp_column: true\n"},
		{"empty name", "columns:\n  - name: \"\"\n    data_type: Int\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			var schemaErr *domain.SchemaError
			assert.ErrorAs(t, err, &schemaErr)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns:\n  - name: url\n    data_type: String\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Arity())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

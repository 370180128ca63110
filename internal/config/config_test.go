package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("SCHEMA_PATH", "/etc/wasmdb/schema.yaml")
	t.Setenv("ROW_LOG_PATH", "/var/lib/wasmdb/rows.log")
	t.Setenv("META_DB_PATH", "/var/lib/wasmdb/meta.sqlite")
	t.Setenv("COMPILER_PATH", "/usr/local/bin/asc")
	t.Setenv("COMPILER_ARGS", "--optimize, --textFile, /dev/stdout")
	t.Setenv("QUERY_TIMEOUT", "500ms")
	t.Setenv("RATE_LIMIT_RPS", "10")
	t.Setenv("RATE_LIMIT_BURST", "20")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/etc/wasmdb/schema.yaml", cfg.SchemaPath)
	assert.Equal(t, "/var/lib/wasmdb/rows.log", cfg.RowLogPath)
	assert.Equal(t, "/var/lib/wasmdb/meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, "/usr/local/bin/asc", cfg.CompilerPath)
	assert.Equal(t, []string{"--optimize", "--textFile", "/dev/stdout"}, cfg.CompilerArgs)
	assert.Equal(t, 500*time.Millisecond, cfg.QueryTimeout)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("SCHEMA_PATH", "")
	t.Setenv("ROW_LOG_PATH", "")
	t.Setenv("META_DB_PATH", "")
	t.Setenv("COMPILER_PATH", "")
	t.Setenv("QUERY_TIMEOUT", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "schema.yaml", cfg.SchemaPath)
	assert.Equal(t, "data/rows.log", cfg.RowLogPath)
	assert.Equal(t, "data/meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, ".ts", cfg.CompilerSourceSuffix)
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.Warnings, "missing compiler should produce a warning")
}

func TestLoadFromEnv_BadQueryTimeout(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT", "soon")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_ProductionRejectsCORSWildcard(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, (&Config{LogLevel: "debug"}).SlogLevel().String(), "DEBUG")
	assert.Equal(t, (&Config{LogLevel: "warn"}).SlogLevel().String(), "WARN")
	assert.Equal(t, (&Config{LogLevel: "error"}).SlogLevel().String(), "ERROR")
	assert.Equal(t, (&Config{LogLevel: "anything"}).SlogLevel().String(), "INFO")
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_KEY=test_value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_KEY"); val != "test_value" {
		t.Errorf("TEST_KEY = %q, want %q", val, "test_value")
	}
	_ = os.Unsetenv("TEST_KEY")
}

func TestLoadDotEnv_SkipsComments(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("# comment\nTEST_COMMENT_KEY=value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_COMMENT_KEY"); val != "value" {
		t.Errorf("TEST_COMMENT_KEY = %q, want %q", val, "value")
	}
	_ = os.Unsetenv("TEST_COMMENT_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("TEST_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}

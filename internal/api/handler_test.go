package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasmdb/internal/config"
	"wasmdb/internal/db"
	"wasmdb/internal/db/repository"
	"wasmdb/internal/domain"
	"wasmdb/internal/engine"
	"wasmdb/internal/registry"
	"wasmdb/internal/sandbox"
	"wasmdb/internal/schema"
	"wasmdb/internal/store"
	"wasmdb/internal/testutil"
)

type testEnv struct {
	router http.Handler
	now    *time.Time
}

// fixtureCompiler maps well-known source strings to prebuilt artifacts, so
// the tests exercise the full upload-compile-store-execute path without an
// external toolchain.
func fixtureCompiler() registry.Compiler {
	fixtures := map[string][]byte{
		"always":  testutil.WasmAlwaysTrue(),
		"never":   testutil.WasmAlwaysFalse(),
		"after5m": testutil.WasmTimestampAfter5M(),
		"trap":    testutil.WasmTrap(),
	}
	return registry.CompilerFunc(func(_ context.Context, source []byte) ([]byte, error) {
		wasm, ok := fixtures[strings.TrimSpace(string(source))]
		if !ok {
			return nil, &domain.CompileError{Diagnostic: fmt.Sprintf("unknown function body %q", source)}
		}
		return wasm, nil
	})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sch, err := schema.Parse([]byte(`
columns:
  - name: Url
    data_type: String
add_timestamp_column: true
`))
	require.NoError(t, err)

	now := time.Unix(5454353, 0)
	env := &testEnv{now: &now}

	st, err := store.Open(filepath.Join(t.TempDir(), "rows.log"), sch,
		store.WithClock(func() time.Time { return *env.now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	writeDB, readDB := db.OpenTestSQLite(t)
	reg := registry.NewRegistry(
		repository.NewArtifactRepo(writeDB),
		repository.NewArtifactRepo(readDB),
		fixtureCompiler(),
		slog.Default(),
	)

	rt := sandbox.New(context.Background())
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	eng := engine.NewEngine(rt, sch, time.Second, slog.Default())

	h := NewHandler(st, reg, eng, slog.Default())
	env.router = NewRouter(h, &config.Config{
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}, slog.Default())
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(method, path, rd))
	return rec
}

func (e *testEnv) insert(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/v1/index", body)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestInsert_StoresRowInSchemaOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.insert(t, `{"fields":["Url"],"values":[{"String":"https://google.com"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[insertResponse](t, rec)
	require.Len(t, resp.Row, 2)
	assert.Equal(t, domain.StringValue("https://google.com"), resp.Row[0])
	assert.Equal(t, domain.IntValue(5454353), resp.Row[1])
}

func TestInsert_ValidationFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown field", `{"fields":["Nope"],"values":[{"String":"x"}]}`, http.StatusUnprocessableEntity},
		{"type mismatch", `{"fields":["Url"],"values":[{"Int":3}]}`, http.StatusUnprocessableEntity},
		{"reserved timestamp", `{"fields":["Url","timestamp"],"values":[{"String":"x"},{"Int":1}]}`, http.StatusUnprocessableEntity},
		{"field count mismatch", `{"fields":["Url"],"values":[{"String":"x"},{"String":"y"}]}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"fields":`, http.StatusBadRequest},
		{"unknown variant", `{"fields":["Url"],"values":[{"Decimal":"x"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.insert(t, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			errResp := decodeBody[errorResponse](t, rec)
			assert.Equal(t, tt.want, errResp.Code)
			assert.NotEmpty(t, errResp.Message)
		})
	}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
}

func TestRegisterFunction_AndList(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/functions/all_rows", "always")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "all_rows", decodeBody[registerResponse](t, rec).Name)

	rec = env.do(t, http.MethodGet, "/v1/functions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"all_rows"}, decodeBody[listFunctionsResponse](t, rec).Functions)
}

func TestRegisterFunction_CompileFailureIs422(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/functions/broken", "this does not compile")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Message, "unknown function body")
}

func TestRegisterFunction_EmptyBodyIs400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/functions/empty", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_UnknownFunctionIs404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/query/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuery_FiltersByTimestamp(t *testing.T) {
	env := newTestEnv(t)

	*env.now = time.Unix(5454353, 0)
	require.Equal(t, http.StatusCreated,
		env.insert(t, `{"fields":["Url"],"values":[{"String":"https://google.com"}]}`).Code)

	*env.now = time.Unix(12, 0)
	require.Equal(t, http.StatusCreated,
		env.insert(t, `{"fields":["Url"],"values":[{"String":"https://old.example.com"}]}`).Code)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/v1/functions/recent", "after5m").Code)

	rec := env.do(t, http.MethodGet, "/v1/query/recent", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[queryResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, domain.Row{domain.StringValue("https://google.com"), domain.IntValue(5454353)}, resp.Rows[0])
}

func TestQuery_EmptyResultIsEmptyArray(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusCreated,
		env.insert(t, `{"fields":["Url"],"values":[{"String":"a"}]}`).Code)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/v1/functions/none", "never").Code)

	rec := env.do(t, http.MethodGet, "/v1/query/none", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
}

func TestQuery_RuntimeFailureIs500(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusCreated,
		env.insert(t, `{"fields":["Url"],"values":[{"String":"a"}]}`).Code)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/v1/functions/crash", "trap").Code)

	rec := env.do(t, http.MethodGet, "/v1/query/crash", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQuery_ReRegistrationChangesBehavior(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusCreated,
		env.insert(t, `{"fields":["Url"],"values":[{"String":"a"}]}`).Code)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/v1/functions/f", "always").Code)
	require.Equal(t, 1, decodeBody[queryResponse](t, env.do(t, http.MethodGet, "/v1/query/f", "")).Count)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/v1/functions/f", "never").Code)
	assert.Equal(t, 0, decodeBody[queryResponse](t, env.do(t, http.MethodGet, "/v1/query/f", "")).Count)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

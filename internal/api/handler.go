// Package api exposes the HTTP boundary: row ingestion, artifact uploads,
// and query execution.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wasmdb/internal/domain"
	"wasmdb/internal/engine"
	"wasmdb/internal/registry"
	"wasmdb/internal/store"
)

// maxSourceBytes caps an uploaded query source.
const maxSourceBytes = 1 << 20

// maxInsertBytes caps an insert request body.
const maxInsertBytes = 1 << 20

// Handler serves the public endpoints.
type Handler struct {
	store    *store.Store
	registry *registry.Registry
	engine   *engine.Engine
	logger   *slog.Logger
}

// NewHandler wires the handler from the application components.
func NewHandler(st *store.Store, reg *registry.Registry, eng *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		store:    st,
		registry: reg,
		engine:   eng,
		logger:   logger.With("component", "api"),
	}
}

// Register mounts the versioned routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/index", h.insertRow)
	r.Get("/functions", h.listFunctions)
	r.Post("/functions/{name}", h.registerFunction)
	r.Get("/query/{name}", h.runQuery)
}

type insertRequest struct {
	Fields []string       `json:"fields"`
	Values []domain.Value `json:"values"`
}

type insertResponse struct {
	Row domain.Row `json:"row"`
}

func (h *Handler) insertRow(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInsertBytes)

	var req insertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("malformed insert request: %w", err))
		return
	}

	row, err := h.store.Insert(req.Fields, req.Values)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, insertResponse{Row: row})
}

type registerResponse struct {
	Name string `json:"name"`
}

func (h *Handler) registerFunction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	source, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSourceBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read source: %w", err))
		return
	}
	if len(source) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty source"))
		return
	}

	if err := h.registry.Register(r.Context(), name, source); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Name: name})
}

type listFunctionsResponse struct {
	Functions []string `json:"functions"`
}

func (h *Handler) listFunctions(w http.ResponseWriter, r *http.Request) {
	names, err := h.registry.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, listFunctionsResponse{Functions: names})
}

type queryResponse struct {
	Rows  []domain.Row `json:"rows"`
	Count int          `json:"count"`
}

func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	artifact, err := h.registry.Load(r.Context(), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	selected, err := h.engine.Execute(r.Context(), artifact, h.store.Scan())
	if err != nil {
		h.logger.Error("query failed", "artifact", name, "error", err)
		writeDomainError(w, err)
		return
	}
	if selected == nil {
		selected = []domain.Row{}
	}
	writeJSON(w, http.StatusOK, queryResponse{Rows: selected, Count: len(selected)})
}

// Healthz reports liveness and the current row count.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": h.store.Len()})
}

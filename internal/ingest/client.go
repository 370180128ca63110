package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wasmdb/internal/domain"
)

// InsertClient submits rows through the server's insert endpoint.
type InsertClient struct {
	baseURL string
	httpc   *http.Client
}

// NewInsertClient builds a client for the server at baseURL.
func NewInsertClient(baseURL string) *InsertClient {
	return &InsertClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

type insertPayload struct {
	Fields []string       `json:"fields"`
	Values []domain.Value `json:"values"`
}

// Insert implements Inserter over HTTP. A non-2xx response surfaces the
// server's error message.
func (c *InsertClient) Insert(ctx context.Context, fields []string, values []domain.Value) error {
	body, err := json.Marshal(insertPayload{Fields: fields, Values: values})
	if err != nil {
		return fmt.Errorf("encode insert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/index", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("insert rejected (%d): %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("insert rejected: status %d", resp.StatusCode)
}

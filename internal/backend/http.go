package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docscout/internal/logging"
	"docscout/internal/protocol"
)

// HTTPBackend talks to the retrieval store over its JSON HTTP API.
// One endpoint per tool kind: POST {base}/v1/{tool} with the request
// parameters; the response is the standard envelope.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a client for the store at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type wireRequest struct {
	RequestID string            `json:"request_id"`
	Params    map[string]string `json:"params"`
}

// Execute sends the request and decodes the response envelope.
func (b *HTTPBackend) Execute(ctx context.Context, req *protocol.ToolRequest) (*protocol.ToolResult, error) {
	body, err := json.Marshal(wireRequest{RequestID: req.ID, Params: req.Params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s", b.baseURL, req.Kind)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	result, err := protocol.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if result.RequestID != req.ID {
		return nil, fmt.Errorf("%w: got %s, want %s", protocol.ErrResultMismatch, result.RequestID, req.ID)
	}
	if result.Kind == "" {
		result.Kind = req.Kind
	}

	logging.BackendDebug("%s completed in %v (status=%s, hits=%d)", req.Kind, time.Since(start), result.Status, len(result.Hits))
	return result, nil
}

package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultModel is the default cross-encoder model served by the scorer
	// sidecar.
	DefaultModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"
)

// HTTPCrossEncoder calls a scoring sidecar that serves a cross-encoder model
// behind a simple JSON endpoint: POST {base}/rerank with the full batch of
// pairs, one scalar back per pair.
type HTTPCrossEncoder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// HTTPOption is a functional option for configuring HTTPCrossEncoder.
type HTTPOption func(*HTTPCrossEncoder)

// WithModel sets the cross-encoder model name sent to the sidecar.
func WithModel(model string) HTTPOption {
	return func(c *HTTPCrossEncoder) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPCrossEncoder) {
		c.httpClient = client
	}
}

// NewHTTPCrossEncoder creates a client for the scorer sidecar at baseURL.
func NewHTTPCrossEncoder(baseURL string, opts ...HTTPOption) *HTTPCrossEncoder {
	c := &HTTPCrossEncoder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rerankRequest struct {
	Model string      `json:"model"`
	Pairs [][2]string `json:"pairs"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Predict scores all pairs in one batched call.
func (c *HTTPCrossEncoder) Predict(ctx context.Context, pairs []Pair) ([]float64, error) {
	if len(pairs) == 0 {
		return []float64{}, nil
	}

	reqPairs := make([][2]string, len(pairs))
	for i, p := range pairs {
		reqPairs[i] = [2]string{p.Query, p.Text}
	}

	body, err := json.Marshal(rerankRequest{Model: c.model, Pairs: reqPairs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/rerank", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scorer API error (status %d): %s", resp.StatusCode, string(msg))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Scores) != len(pairs) {
		return nil, fmt.Errorf("scorer returned %d scores for %d pairs", len(out.Scores), len(pairs))
	}

	return out.Scores, nil
}

// ModelName returns the cross-encoder model name.
func (c *HTTPCrossEncoder) ModelName() string {
	return c.model
}

// Ensure HTTPCrossEncoder implements CrossEncoder interface.
var _ CrossEncoder = (*HTTPCrossEncoder)(nil)

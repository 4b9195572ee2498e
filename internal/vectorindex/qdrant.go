package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Qdrant is a minimal REST client for a Qdrant instance. It assumes cosine
// distance. Every request carries a per-call timeout so an unresponsive index
// degrades to ErrUnavailable instead of blocking a query.
type Qdrant struct {
	baseURL string
	apiKey  string // empty for local instances
	client  *http.Client
	timeout time.Duration
}

// QdrantConfig configures the REST client.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewQdrant creates a Qdrant client.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// EnsureCollection creates the collection if missing. Qdrant returns 200 for
// an existing collection with the same schema, so this is idempotent.
func (q *Qdrant) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: invalid vector size %d", ErrBadRequest, vectorSize)
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	return q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, nil)
}

// Upsert stores points in batches of 100.
func (q *Qdrant) Upsert(ctx context.Context, collection string, points []Point) error {
	const batchSize = 100

	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}

		batch := make([]map[string]interface{}, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]interface{}{
				"id":      p.ID,
				"vector":  p.Vector,
				"payload": p.Payload,
			})
		}

		body := map[string]interface{}{"points": batch}
		path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
		if err := q.do(ctx, http.MethodPut, path, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// Search returns nearest neighbors above threshold, ordered by descending
// similarity.
func (q *Qdrant) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		body["score_threshold"] = threshold
	}

	var resp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", collection)
	if err := q.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// Info reports collection status and point count.
func (q *Qdrant) Info(ctx context.Context, collection string) (*CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount int64  `json:"points_count"`
			Status      string `json:"status"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s", collection)
	if err := q.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &CollectionInfo{
		PointsCount: resp.Result.PointsCount,
		Status:      resp.Result.Status,
	}, nil
}

// Drop deletes a collection.
func (q *Qdrant) Drop(ctx context.Context, collection string) error {
	return q.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", collection), nil, nil)
}

// do issues one JSON request bounded by the per-call timeout. Transport
// failures and 5xx responses map to ErrUnavailable; 4xx map to ErrBadRequest.
func (q *Qdrant) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal body: %v", ErrBadRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(callCtx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrBadRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: %s", ErrUnavailable, method, path, resp.Status)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: %s: %s", ErrBadRequest, method, path, resp.Status, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return nil
}

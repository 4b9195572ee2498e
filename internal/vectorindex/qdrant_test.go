package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQdrant(t *testing.T, handler http.HandlerFunc) *Qdrant {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewQdrant(QdrantConfig{URL: server.URL, Timeout: 2 * time.Second})
}

func TestQdrant_Search(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(5), req["limit"])
		assert.Equal(t, 0.3, req["score_threshold"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": "p1", "score": 0.91, "payload": map[string]interface{}{"text": "hello"}},
				{"id": "p2", "score": 0.42, "payload": map[string]interface{}{"text": "world"}},
			},
		})
	})

	hits, err := q.Search(context.Background(), "docs", []float32{0.1, 0.2}, 5, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.Equal(t, 0.91, hits[0].Score)
	assert.Equal(t, "hello", hits[0].Payload["text"])
}

func TestQdrant_SearchOmitsZeroThreshold(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, hasThreshold := req["score_threshold"]
		assert.False(t, hasThreshold)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": []interface{}{}})
	})

	_, err := q.Search(context.Background(), "docs", []float32{0.1}, 5, 0)
	require.NoError(t, err)
}

func TestQdrant_Upsert_Batches(t *testing.T) {
	var calls int
	var sizes []int
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Points []interface{} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sizes = append(sizes, len(req.Points))
		w.WriteHeader(http.StatusOK)
	})

	points := make([]Point, 150)
	for i := range points {
		points[i] = Point{ID: "id", Vector: []float32{1}}
	}

	err := q.Upsert(context.Background(), "docs", points)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{100, 50}, sizes)
}

func TestQdrant_ServerErrorIsUnavailable(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := q.Search(context.Background(), "docs", []float32{1}, 5, 0.3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestQdrant_ClientErrorIsBadRequest(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := q.Info(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestQdrant_UnreachableIsUnavailable(t *testing.T) {
	// Port 1 is reserved; nothing listens there.
	q := NewQdrant(QdrantConfig{URL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})

	_, err := q.Search(context.Background(), "docs", []float32{1}, 5, 0.3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestQdrant_Info(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"points_count": 42,
				"status":       "green",
			},
		})
	})

	info, err := q.Info(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.PointsCount)
	assert.Equal(t, "green", info.Status)
}

func TestQdrant_EnsureCollection(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/docs", r.URL.Path)

		var req struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1536, req.Vectors.Size)
		assert.Equal(t, "Cosine", req.Vectors.Distance)
		w.WriteHeader(http.StatusOK)
	})

	err := q.EnsureCollection(context.Background(), "docs", 1536)
	require.NoError(t, err)
}

func TestQdrant_EnsureCollection_BadSize(t *testing.T) {
	q := NewQdrant(QdrantConfig{URL: "http://unused"})
	err := q.EnsureCollection(context.Background(), "docs", 0)
	assert.ErrorIs(t, err, ErrBadRequest)
}

// Package qdrant provides a minimal Qdrant HTTP client implementing the
// domain.VectorStore port for the jobs collection.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/observability"
	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

// upsertBatchSize caps how many points one upsert request carries.
const upsertBatchSize = 100

// scrollPageSize bounds one scroll page; full scans page until their cap.
const scrollPageSize = 256

// Client is a minimal Qdrant HTTP client bound to one collection.
//
// Qdrant reports a cosine similarity score in [-1, 1] for search hits; the
// client converts it to the cosine distance d = 1 - score (range [0, 2])
// expected by the retriever's relevance formula.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

// New constructs a client for the named collection with optional apiKey.
func New(baseURL, apiKey, collection string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// EnsureCollection creates the collection if missing. With reset it deletes
// any existing collection of the same name first; the destructive rebuild is
// idempotent.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int, reset bool) error {
	if reset {
		if err := c.DeleteCollection(ctx); err != nil {
			return fmt.Errorf("op=qdrant.reset: %w", err)
		}
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), nil)
		if err != nil {
			return err
		}
		c.setHeaders(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("op=qdrant.get_collection: %w: %v", domain.ErrUpstream, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	payload := map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
	}
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), payload, nil); err != nil {
		return fmt.Errorf("op=qdrant.create_collection: %w", err)
	}
	return nil
}

// DeleteCollection removes the collection. A missing collection is not an error.
func (c *Client) DeleteCollection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant delete status %d", domain.ErrUpstream, resp.StatusCode)
	}
	return nil
}

// Upsert inserts points in chunks of upsertBatchSize, preserving the 1:1
// id/vector/document/payload correspondence across chunk boundaries. A chunk
// failure aborts all subsequent chunks.
func (c *Client) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		chunk := points[start:end]
		body := make([]map[string]any, 0, len(chunk))
		for _, p := range chunk {
			payload := cleanPayload(p.Payload)
			payload["document"] = p.Document
			body = append(body, map[string]any{
				"id":      p.ID,
				"vector":  p.Vector,
				"payload": payload,
			})
		}
		observability.VectorRequestsTotal.WithLabelValues("upsert").Inc()
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
		if err := c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": body}, nil); err != nil {
			return fmt.Errorf("op=qdrant.upsert points=%d..%d: %w", start, end, err)
		}
	}
	return nil
}

// Search returns the k nearest points for vector, optionally restricted by an
// exact-match payload filter. A missing collection yields an empty result.
func (c *Client) Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]domain.SearchHit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}
	var out struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	observability.VectorRequestsTotal.WithLabelValues("search").Inc()
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	missing, err := c.doJSONMissingOK(ctx, http.MethodPost, url, body, &out)
	if err != nil {
		return nil, fmt.Errorf("op=qdrant.search: %w", err)
	}
	if missing {
		return nil, nil
	}
	hits := make([]domain.SearchHit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, domain.SearchHit{
			ID:       hitID(r.ID),
			Payload:  r.Payload,
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

// Scroll pages through stored payloads matching an exact filter, up to limit
// points. No similarity is computed. A missing collection yields an empty
// result. The scan is O(collection size), bounded by limit.
func (c *Client) Scroll(ctx context.Context, filter map[string]any, limit int) ([]domain.SearchHit, error) {
	hits := make([]domain.SearchHit, 0, min(limit, scrollPageSize))
	var offset any
	for len(hits) < limit {
		page := limit - len(hits)
		if page > scrollPageSize {
			page = scrollPageSize
		}
		body := map[string]any{
			"limit":        page,
			"with_payload": true,
			"with_vector":  false,
		}
		if f := buildFilter(filter); f != nil {
			body["filter"] = f
		}
		if offset != nil {
			body["offset"] = offset
		}
		var out struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		observability.VectorRequestsTotal.WithLabelValues("scroll").Inc()
		url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, c.collection)
		missing, err := c.doJSONMissingOK(ctx, http.MethodPost, url, body, &out)
		if err != nil {
			return nil, fmt.Errorf("op=qdrant.scroll: %w", err)
		}
		if missing || len(out.Result.Points) == 0 {
			break
		}
		for _, p := range out.Result.Points {
			hits = append(hits, domain.SearchHit{ID: hitID(p.ID), Payload: p.Payload})
		}
		if out.Result.NextPageOffset == nil {
			break
		}
		offset = out.Result.NextPageOffset
	}
	return hits, nil
}

// Count returns the exact number of stored points; 0 for a missing collection.
func (c *Client) Count(ctx context.Context) (int, error) {
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	observability.VectorRequestsTotal.WithLabelValues("count").Inc()
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection)
	missing, err := c.doJSONMissingOK(ctx, http.MethodPost, url, map[string]any{"exact": true}, &out)
	if err != nil {
		return 0, fmt.Errorf("op=qdrant.count: %w", err)
	}
	if missing {
		return 0, nil
	}
	return out.Result.Count, nil
}

// cleanPayload coerces payload values to the store's primitive types.
// nil becomes the empty string; anything non-primitive is stringified.
func cleanPayload(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string, bool, int, int32, int64, float32, float64:
			out[k] = t
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out
}

// buildFilter translates an exact-match field map into a Qdrant must-match
// filter. Keys are sorted so request bodies are deterministic.
func buildFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	must := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": filter[k]},
		})
	}
	return map[string]any{"must": must}
}

func hitID(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case json.Number:
		n, _ := t.Int64()
		return n
	default:
		return 0
	}
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

// doJSON issues a JSON request and decodes the response into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	missing, err := c.doJSONMissingOK(ctx, method, url, body, out)
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("%w: qdrant collection %s missing", domain.ErrNotFound, c.collection)
	}
	return nil
}

// doJSONMissingOK is doJSON but reports a 404 (missing collection) as
// missing=true instead of an error, so query paths can return empty results.
func (c *Client) doJSONMissingOK(ctx context.Context, method, url string, body any, out any) (missing bool, err error) {
	b, err := json.Marshal(body)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return false, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%w: qdrant status %d", domain.ErrUpstream, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("%w: decode: %v", domain.ErrUpstream, err)
		}
	}
	return false, nil
}

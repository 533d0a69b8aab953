// Package stub provides a fast, deterministic AI client for local runs and
// tests. It never performs network calls.
package stub

import (
	"crypto/sha256"
	"fmt"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

// Dims is the fixed stub vector size.
const Dims = 8

// Client implements domain.Embedder and domain.Generator deterministically.
type Client struct{}

// New constructs a stub client.
func New() *Client { return &Client{} }

// Embed returns a per-input fingerprint vector so callers can verify order
// preservation: identical texts always produce identical vectors.
func (c *Client) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	for i, t := range texts {
		sum := sha256.Sum256([]byte(t))
		v := make([]float32, Dims)
		for j := range v {
			v[j] = float32(sum[j]) / 255
		}
		res[i] = v
	}
	return res, nil
}

// ChatComplete returns a canned grounded-sounding reply built from the last
// user turn.
func (c *Client) ChatComplete(_ domain.Context, turns []domain.ChatTurn, _ float64, _ int) (string, error) {
	last := ""
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser {
			last = turns[i].Content
			break
		}
	}
	return fmt.Sprintf("Based on the listed postings, here is a summary for: %.80s", last), nil
}

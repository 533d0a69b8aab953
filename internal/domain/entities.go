// Package domain holds the core entities, ports, and error taxonomy of the
// job search service.
package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrTooLarge         = errors.New("payload too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrConfigMissing    = errors.New("configuration missing")
	ErrUpstream         = errors.New("upstream failure")
	ErrInternal         = errors.New("internal error")
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// JobPosting is the persistent entity ingested from the relational source
// table. Ids are assigned by the external scraper and stable across rebuilds.
type JobPosting struct {
	ID           int64
	Title        string
	Company      string
	Location     string
	JobType      string
	Category     string
	Description  string
	Requirements string
	URL          string
	PostedDate   string
}

// RetrievedJob is a query-time view of a JobPosting annotated with the cosine
// distance reported by the vector store and the 0-100 relevance derived from it.
type RetrievedJob struct {
	JobPosting
	RelevanceScore float64
	Distance       float64
}

// ChatTurn is one message of a conversation transcript. Ordering is
// append-only and defines the history fed back into the generator.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// VectorPoint is one entry written to the vector store: stable id, dense
// vector, short document string, and a flat metadata payload.
type VectorPoint struct {
	ID       int64
	Vector   []float32
	Document string
	Payload  map[string]any
}

// SearchHit is one ranked neighbor returned by the vector store.
// Distance is cosine distance in [0, 2]; 0 means identical direction.
type SearchHit struct {
	ID       int64
	Payload  map[string]any
	Distance float64
}

// Ports

// Embedder turns texts into fixed-length vectors, preserving input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a chat completion for an ordered transcript.
type Generator interface {
	ChatComplete(ctx context.Context, turns []ChatTurn, temperature float64, maxTokens int) (string, error)
}

// VectorStore wraps a persistent vector collection.
type VectorStore interface {
	// EnsureCollection creates the collection; reset deletes any existing one first.
	EnsureCollection(ctx context.Context, vectorSize int, reset bool) error
	// Upsert writes points, preserving the 1:1 id/vector/document/payload correspondence.
	Upsert(ctx context.Context, points []VectorPoint) error
	// Search returns the k nearest points. A missing collection yields an empty result.
	Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]SearchHit, error)
	// Scroll pages stored points by exact metadata filter only; no similarity is computed.
	Scroll(ctx context.Context, filter map[string]any, limit int) ([]SearchHit, error)
	Count(ctx context.Context) (int, error)
}

// JobSource reads the relational source table, consumed wholesale per rebuild.
type JobSource interface {
	ListAll(ctx context.Context) ([]JobPosting, error)
}

// TextExtractor extracts plain text from an uploaded document.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, fileName string, data []byte) (string, error)
}

// CVParser extracts plain text from an uploaded CV across byte formats.
type CVParser interface {
	Parse(ctx context.Context, data []byte, fileName string) (string, error)
}

// Context aliases the standard context so adapters and usecases share one
// signature style.
type Context = context.Context

// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/pkg/textx"
)

// DefaultTopK is the number of results returned when the caller does not ask
// for a specific k.
const DefaultTopK = 5

// previewLimit bounds description/requirements previews in the generator
// context block.
const previewLimit = 200

// distinctFields whitelists the metadata fields browsable via DistinctValues.
var distinctFields = map[string]struct{}{
	"location": {},
	"category": {},
	"company":  {},
}

// SearchService composes the embedder and the vector store into the semantic
// retrieval pipeline.
type SearchService struct {
	Embedder domain.Embedder
	Store    domain.VectorStore
	// ScanCap bounds full-collection scans for distinct-value listings.
	ScanCap int
}

// NewSearchService constructs a SearchService.
func NewSearchService(e domain.Embedder, s domain.VectorStore, scanCap int) SearchService {
	if scanCap <= 0 {
		scanCap = 10000
	}
	return SearchService{Embedder: e, Store: s, ScanCap: scanCap}
}

// Search embeds the query, asks the store for the k nearest postings, and
// annotates each hit with its relevance. Result order is the store's own
// nearest-neighbor ranking; no re-ranking is applied. Filters are exact-match
// and passed through unmodified.
func (s SearchService) Search(ctx domain.Context, query string, k int, filters map[string]string) ([]domain.RetrievedJob, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if k <= 0 {
		k = DefaultTopK
	}
	vecs, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("op=search.embed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("op=search.embed: %w: no vector returned", domain.ErrUpstream)
	}
	hits, err := s.Store.Search(ctx, vecs[0], k, filterArgs(filters))
	if err != nil {
		return nil, fmt.Errorf("op=search.query: %w", err)
	}
	return assembleJobs(hits, false), nil
}

// Browse lists postings by exact metadata filters only; no embedding happens
// and every result carries the uniform maximal relevance of 100. An empty
// filter set yields an empty result.
func (s SearchService) Browse(ctx domain.Context, filters map[string]string, limit int) ([]domain.RetrievedJob, error) {
	if len(filters) == 0 {
		return []domain.RetrievedJob{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	hits, err := s.Store.Scroll(ctx, filterArgs(filters), limit)
	if err != nil {
		return nil, fmt.Errorf("op=search.browse: %w", err)
	}
	return assembleJobs(hits, true), nil
}

// GetJob looks up one posting by its stable id.
func (s SearchService) GetJob(ctx domain.Context, id int64) (domain.JobPosting, error) {
	hits, err := s.Store.Scroll(ctx, map[string]any{"job_id": id}, 1)
	if err != nil {
		return domain.JobPosting{}, fmt.Errorf("op=search.get_job: %w", err)
	}
	if len(hits) == 0 {
		return domain.JobPosting{}, fmt.Errorf("op=search.get_job id=%d: %w", id, domain.ErrNotFound)
	}
	return domain.JobFromPayload(hits[0].ID, hits[0].Payload), nil
}

// DistinctValues collects the unique non-empty values of a metadata field by
// paging through stored payloads. The store has no native distinct operator,
// so this is a full scan bounded by ScanCap: O(collection size), not
// O(result size).
func (s SearchService) DistinctValues(ctx domain.Context, field string) ([]string, error) {
	if _, ok := distinctFields[field]; !ok {
		return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidArgument, field)
	}
	hits, err := s.Store.Scroll(ctx, nil, s.ScanCap)
	if err != nil {
		return nil, fmt.Errorf("op=search.distinct field=%s: %w", field, err)
	}
	set := make(map[string]struct{})
	for _, h := range hits {
		if v, ok := h.Payload[field].(string); ok && v != "" {
			set[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// Count reports how many postings the collection holds.
func (s SearchService) Count(ctx domain.Context) (int, error) {
	return s.Store.Count(ctx)
}

// JobContext formats retrieved jobs into the textual context block fed to the
// response generator.
func JobContext(jobs []domain.RetrievedJob) string {
	if len(jobs) == 0 {
		return "No jobs found."
	}
	parts := make([]string, 0, len(jobs))
	for i, j := range jobs {
		var b strings.Builder
		fmt.Fprintf(&b, "Job %d:\n", i+1)
		fmt.Fprintf(&b, "- Title: %s\n", j.Title)
		fmt.Fprintf(&b, "- Company: %s\n", j.Company)
		fmt.Fprintf(&b, "- Location: %s\n", j.Location)
		fmt.Fprintf(&b, "- Type: %s\n", j.JobType)
		fmt.Fprintf(&b, "- Category: %s\n", j.Category)
		fmt.Fprintf(&b, "- Relevance: %.1f%%\n", j.RelevanceScore)
		fmt.Fprintf(&b, "- Description: %s\n", textx.Summary(j.Description, previewLimit))
		fmt.Fprintf(&b, "- Requirements: %s\n", textx.Summary(j.Requirements, previewLimit))
		fmt.Fprintf(&b, "- URL: %s", j.URL)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// assembleJobs turns raw hits into RetrievedJob records with sentinel-backed
// fields. uniform marks filter-only results, which carry relevance 100.
func assembleJobs(hits []domain.SearchHit, uniform bool) []domain.RetrievedJob {
	jobs := make([]domain.RetrievedJob, 0, len(hits))
	for _, h := range hits {
		score := 100.0
		if !uniform {
			score = domain.RelevanceFromDistance(h.Distance)
		}
		jobs = append(jobs, domain.RetrievedJob{
			JobPosting:     domain.JobFromPayload(h.ID, h.Payload),
			RelevanceScore: score,
			Distance:       h.Distance,
		})
	}
	return jobs
}

func filterArgs(filters map[string]string) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	out := make(map[string]any, len(filters))
	for k, v := range filters {
		out[k] = v
	}
	return out
}

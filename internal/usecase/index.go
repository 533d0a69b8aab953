package usecase

import (
	"fmt"
	"time"

	"log/slog"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

// ingestBatchSize is how many jobs are embedded and upserted per batch.
const ingestBatchSize = 100

// IndexService rebuilds the vector collection from the relational source
// table: read all rows, normalize, embed in batches, upsert in chunks.
// There is no incremental path; a rebuild resets the collection.
type IndexService struct {
	Source     domain.JobSource
	Embedder   domain.Embedder
	Store      domain.VectorStore
	VectorSize int
}

// NewIndexService constructs an IndexService.
func NewIndexService(src domain.JobSource, e domain.Embedder, s domain.VectorStore, vectorSize int) IndexService {
	return IndexService{Source: src, Embedder: e, Store: s, VectorSize: vectorSize}
}

// Rebuild performs the full ingestion pipeline and returns the number of
// indexed jobs. A batch failure aborts all subsequent batches; the collection
// is left partially built and a fresh Rebuild recovers it.
func (s IndexService) Rebuild(ctx domain.Context, reset bool) (int, error) {
	start := time.Now()
	jobs, err := s.Source.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=index.load: %w", err)
	}
	if len(jobs) == 0 {
		return 0, fmt.Errorf("%w: source table has no jobs", domain.ErrInvalidArgument)
	}
	if err := s.Store.EnsureCollection(ctx, s.VectorSize, reset); err != nil {
		return 0, fmt.Errorf("op=index.ensure_collection: %w", err)
	}
	total := (len(jobs) + ingestBatchSize - 1) / ingestBatchSize
	for i := 0; i < len(jobs); i += ingestBatchSize {
		end := i + ingestBatchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		batch := jobs[i:end]
		texts := make([]string, len(batch))
		for j, job := range batch {
			texts[j] = domain.EmbeddingText(job)
		}
		vecs, err := s.Embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("op=index.embed batch=%d/%d: %w", i/ingestBatchSize+1, total, err)
		}
		if len(vecs) != len(batch) {
			return 0, fmt.Errorf("op=index.embed batch=%d/%d: %w: %d vectors for %d jobs", i/ingestBatchSize+1, total, domain.ErrUpstream, len(vecs), len(batch))
		}
		points := make([]domain.VectorPoint, len(batch))
		for j, job := range batch {
			points[j] = domain.VectorPoint{
				ID:       job.ID,
				Vector:   vecs[j],
				Document: domain.DocumentText(job),
				Payload:  domain.MetadataSnapshot(job),
			}
		}
		if err := s.Store.Upsert(ctx, points); err != nil {
			return 0, fmt.Errorf("op=index.upsert batch=%d/%d: %w", i/ingestBatchSize+1, total, err)
		}
		slog.Info("indexed batch", slog.Int("batch", i/ingestBatchSize+1), slog.Int("total_batches", total), slog.Int("jobs", len(batch)))
	}
	slog.Info("rebuild complete", slog.Int("jobs", len(jobs)), slog.Duration("took", time.Since(start)))
	return len(jobs), nil
}

// Verify checks that the collection holds exactly want points after a build.
func (s IndexService) Verify(ctx domain.Context, want int) error {
	got, err := s.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("op=index.verify: %w", err)
	}
	if got != want {
		return fmt.Errorf("op=index.verify: %w: collection holds %d points, expected %d", domain.ErrInternal, got, want)
	}
	return nil
}

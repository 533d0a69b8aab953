package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/internal/usecase"
)

type fakeEmbedder struct {
	calls [][]string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	searchHits []domain.SearchHit
	scrollHits []domain.SearchHit
	count      int
	err        error

	searchK      int
	searchFilter map[string]any
	scrollFilter map[string]any
	scrollLimit  int
	upserts      [][]domain.VectorPoint
	ensured      bool
	reset        bool
	vectorSize   int
}

func (f *fakeStore) EnsureCollection(_ context.Context, size int, reset bool) error {
	f.ensured, f.vectorSize, f.reset = true, size, reset
	return f.err
}

func (f *fakeStore) Upsert(_ context.Context, points []domain.VectorPoint) error {
	f.upserts = append(f.upserts, points)
	return f.err
}

func (f *fakeStore) Search(_ context.Context, _ []float32, k int, filter map[string]any) ([]domain.SearchHit, error) {
	f.searchK, f.searchFilter = k, filter
	return f.searchHits, f.err
}

func (f *fakeStore) Scroll(_ context.Context, filter map[string]any, limit int) ([]domain.SearchHit, error) {
	f.scrollFilter, f.scrollLimit = filter, limit
	return f.scrollHits, f.err
}

func (f *fakeStore) Count(_ context.Context) (int, error) { return f.count, f.err }

func hit(id int64, distance float64, title string) domain.SearchHit {
	return domain.SearchHit{ID: id, Distance: distance, Payload: map[string]any{"title": title}}
}

func TestSearchService_Search(t *testing.T) {
	t.Parallel()

	t.Run("maps distances to relevance in store order", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{searchHits: []domain.SearchHit{
			hit(1, 0.2, "close"),
			hit(2, 0.8, "mid"),
			hit(3, 1.5, "far"),
		}}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 0)

		jobs, err := svc.Search(context.Background(), "golang backend", 3, nil)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.InDelta(t, 90, jobs[0].RelevanceScore, 1e-9)
		assert.InDelta(t, 60, jobs[1].RelevanceScore, 1e-9)
		assert.InDelta(t, 25, jobs[2].RelevanceScore, 1e-9)
		assert.Equal(t, "close", jobs[0].Title)
		assert.Equal(t, 3, store.searchK)
	})

	t.Run("empty query rejected before embedding", func(t *testing.T) {
		t.Parallel()
		emb := &fakeEmbedder{}
		svc := usecase.NewSearchService(emb, &fakeStore{}, 0)

		_, err := svc.Search(context.Background(), "   ", 5, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Empty(t, emb.calls)
	})

	t.Run("defaults k when non-positive", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 0)

		_, err := svc.Search(context.Background(), "q", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, usecase.DefaultTopK, store.searchK)
	})

	t.Run("filters forwarded to the store", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 0)

		_, err := svc.Search(context.Background(), "q", 5, map[string]string{"location": "Berlin"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"location": "Berlin"}, store.searchFilter)
	})

	t.Run("embedder failure propagates", func(t *testing.T) {
		t.Parallel()
		svc := usecase.NewSearchService(&fakeEmbedder{err: fmt.Errorf("%w: boom", domain.ErrUpstream)}, &fakeStore{}, 0)

		_, err := svc.Search(context.Background(), "q", 5, nil)
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}

func TestSearchService_Browse(t *testing.T) {
	t.Parallel()

	t.Run("uniform relevance for filter-only listing", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{scrollHits: []domain.SearchHit{hit(1, 0, "a"), hit(2, 0, "b")}}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 0)

		jobs, err := svc.Browse(context.Background(), map[string]string{"category": "Backend"}, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.InDelta(t, 100, jobs[0].RelevanceScore, 1e-9)
		assert.InDelta(t, 100, jobs[1].RelevanceScore, 1e-9)
	})

	t.Run("no filters yields empty result without a store call", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{scrollHits: []domain.SearchHit{hit(1, 0, "a")}}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 0)

		jobs, err := svc.Browse(context.Background(), nil, 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)
		assert.Zero(t, store.scrollLimit)
	})
}

func TestSearchService_GetJob(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{scrollHits: []domain.SearchHit{hit(42, 0, "Go Engineer")}}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 0)

		job, err := svc.GetJob(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "Go Engineer", job.Title)
		assert.Equal(t, map[string]any{"job_id": int64(42)}, store.scrollFilter)
	})

	t.Run("missing id maps to not found", func(t *testing.T) {
		t.Parallel()
		svc := usecase.NewSearchService(&fakeEmbedder{}, &fakeStore{}, 0)

		_, err := svc.GetJob(context.Background(), 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSearchService_DistinctValues(t *testing.T) {
	t.Parallel()

	t.Run("deduplicates and sorts", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{scrollHits: []domain.SearchHit{
			{ID: 1, Payload: map[string]any{"location": "Berlin"}},
			{ID: 2, Payload: map[string]any{"location": "Amsterdam"}},
			{ID: 3, Payload: map[string]any{"location": "Berlin"}},
			{ID: 4, Payload: map[string]any{"location": ""}},
		}}
		svc := usecase.NewSearchService(&fakeEmbedder{}, store, 500)

		values, err := svc.DistinctValues(context.Background(), "location")
		require.NoError(t, err)
		assert.Equal(t, []string{"Amsterdam", "Berlin"}, values)
		assert.Equal(t, 500, store.scrollLimit, "scan is bounded by the cap")
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()
		svc := usecase.NewSearchService(&fakeEmbedder{}, &fakeStore{}, 0)

		_, err := svc.DistinctValues(context.Background(), "salary")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestJobContext(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "No jobs found.", usecase.JobContext(nil))
	})

	t.Run("numbered entries with relevance percent", func(t *testing.T) {
		t.Parallel()
		jobs := []domain.RetrievedJob{
			{JobPosting: domain.JobPosting{Title: "A", Company: "X"}, RelevanceScore: 90},
			{JobPosting: domain.JobPosting{Title: "B", Company: "Y"}, RelevanceScore: 25.5},
		}
		got := usecase.JobContext(jobs)
		assert.Contains(t, got, "Job 1:\n- Title: A")
		assert.Contains(t, got, "Job 2:\n- Title: B")
		assert.Contains(t, got, "- Relevance: 90.0%")
		assert.Contains(t, got, "- Relevance: 25.5%")
	})
}

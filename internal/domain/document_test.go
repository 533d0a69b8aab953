package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

func TestEmbeddingText(t *testing.T) {
	t.Parallel()

	t.Run("all fields in priority order", func(t *testing.T) {
		t.Parallel()
		j := domain.JobPosting{
			Title:        "Go Engineer",
			Company:      "Acme",
			Location:     "Berlin",
			JobType:      "Full-time",
			Category:     "Backend",
			Description:  "Build services",
			Requirements: "Go, SQL",
		}
		got := domain.EmbeddingText(j)
		assert.Equal(t, "Title: Go Engineer | Company: Acme | Location: Berlin | Type: Full-time | Category: Backend | Description: Build services | Requirements: Go, SQL", got)
	})

	t.Run("absent fields omitted entirely", func(t *testing.T) {
		t.Parallel()
		j := domain.JobPosting{Title: "Go Engineer", Location: "Berlin"}
		got := domain.EmbeddingText(j)
		assert.Equal(t, "Title: Go Engineer | Location: Berlin", got)
		assert.NotContains(t, got, "Company")
		assert.NotContains(t, got, "N/A")
	})

	t.Run("long description truncated at rune boundary", func(t *testing.T) {
		t.Parallel()
		j := domain.JobPosting{Description: strings.Repeat("é", 600)}
		got := domain.EmbeddingText(j)
		want := "Description: " + strings.Repeat("é", domain.EmbedTextLimit)
		assert.Equal(t, want, got)
	})

	t.Run("identical inputs yield identical text", func(t *testing.T) {
		t.Parallel()
		j := domain.JobPosting{Title: "X", Description: "Y"}
		assert.Equal(t, domain.EmbeddingText(j), domain.EmbeddingText(j))
	})
}

func TestMetadataSnapshot(t *testing.T) {
	t.Parallel()

	j := domain.JobPosting{
		ID:          42,
		Title:       strings.Repeat("t", 600),
		Company:     strings.Repeat("c", 300),
		Description: strings.Repeat("d", 1500),
		PostedDate:  "2025-06-01",
	}
	snap := domain.MetadataSnapshot(j)

	assert.Equal(t, int64(42), snap["job_id"])
	assert.Len(t, snap["title"], 500)
	assert.Len(t, snap["company"], 200)
	assert.Len(t, snap["description"], 1000)
	assert.Equal(t, "2025-06-01", snap["posted_date"])
	// absent fields stay as empty strings; sentinels belong to read time
	assert.Equal(t, "", snap["url"])
	assert.Equal(t, "", snap["job_type"])
}

func TestJobFromPayload(t *testing.T) {
	t.Parallel()

	t.Run("sentinels for absent fields", func(t *testing.T) {
		t.Parallel()
		job := domain.JobFromPayload(7, map[string]any{})
		assert.Equal(t, int64(7), job.ID)
		assert.Equal(t, domain.SentinelUnknown, job.Title)
		assert.Equal(t, domain.SentinelUnknown, job.Company)
		assert.Equal(t, domain.SentinelUnknown, job.Location)
		assert.Equal(t, domain.SentinelUnknown, job.PostedDate)
		assert.Equal(t, domain.SentinelNA, job.JobType)
		assert.Equal(t, domain.SentinelNA, job.Category)
		assert.Equal(t, domain.SentinelNA, job.Description)
		assert.Equal(t, domain.SentinelNA, job.Requirements)
		assert.Equal(t, "", job.URL)
	})

	t.Run("whitespace-only values treated as absent", func(t *testing.T) {
		t.Parallel()
		job := domain.JobFromPayload(1, map[string]any{"title": "   ", "company": "Acme"})
		assert.Equal(t, domain.SentinelUnknown, job.Title)
		assert.Equal(t, "Acme", job.Company)
	})

	t.Run("payload job_id wins over fallback", func(t *testing.T) {
		t.Parallel()
		// JSON decoding yields float64 ids
		job := domain.JobFromPayload(1, map[string]any{"job_id": float64(99)})
		assert.Equal(t, int64(99), job.ID)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		t.Parallel()
		src := domain.JobPosting{
			ID: 5, Title: "Go Engineer", Company: "Acme", Location: "Berlin",
			JobType: "Full-time", Category: "Backend", Description: "Build",
			Requirements: "Go", URL: "https://jobs/5", PostedDate: "2025-01-01",
		}
		got := domain.JobFromPayload(0, domain.MetadataSnapshot(src))
		require.Equal(t, src, got)
	})
}

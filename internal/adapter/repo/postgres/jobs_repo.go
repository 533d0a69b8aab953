package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

// PgxQuerier is the subset of the pgx pool used by this repository.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// JobsRepo reads job postings from the source table. The table is written by
// an external scraping process; this repository is read-only.
type JobsRepo struct{ Pool PgxQuerier }

// NewJobsRepo constructs a JobsRepo with the given pool.
func NewJobsRepo(p PgxQuerier) *JobsRepo { return &JobsRepo{Pool: p} }

// ListAll loads every job row, ordered by id for deterministic rebuilds.
// Null text columns are read as empty strings.
func (r *JobsRepo) ListAll(ctx domain.Context) ([]domain.JobPosting, error) {
	q := `SELECT id,
	        COALESCE(title,''), COALESCE(company,''), COALESCE(location,''),
	        COALESCE(job_type,''), COALESCE(category,''),
	        COALESCE(description,''), COALESCE(requirements,''),
	        COALESCE(url,''), COALESCE(posted_date,'')
	      FROM jobs ORDER BY id`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=jobs.list_all: %w", err)
	}
	defer rows.Close()
	var out []domain.JobPosting
	for rows.Next() {
		var j domain.JobPosting
		if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.JobType, &j.Category, &j.Description, &j.Requirements, &j.URL, &j.PostedDate); err != nil {
			return nil, fmt.Errorf("op=jobs.list_all scan: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=jobs.list_all rows: %w", err)
	}
	return out, nil
}

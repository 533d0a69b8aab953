// Package yamlsource loads job postings from a YAML seed file. It serves
// local development and tests where no relational database is available.
package yamlsource

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

type seedFile struct {
	Jobs []seedJob `yaml:"jobs"`
}

type seedJob struct {
	ID           int64  `yaml:"id"`
	Title        string `yaml:"title"`
	Company      string `yaml:"company"`
	Location     string `yaml:"location"`
	JobType      string `yaml:"job_type"`
	Category     string `yaml:"category"`
	Description  string `yaml:"description"`
	Requirements string `yaml:"requirements"`
	URL          string `yaml:"url"`
	PostedDate   string `yaml:"posted_date"`
}

// Source implements domain.JobSource over a YAML file.
type Source struct {
	Path string
}

// New constructs a Source reading from path.
func New(path string) *Source { return &Source{Path: path} }

// ListAll parses the seed file. Jobs without an explicit id get sequential
// ids starting at 1 so reruns produce stable vector point ids.
func (s *Source) ListAll(_ domain.Context) ([]domain.JobPosting, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("op=yamlsource.read path=%s: %w", s.Path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("op=yamlsource.parse path=%s: %w: %v", s.Path, domain.ErrInvalidArgument, err)
	}
	jobs := make([]domain.JobPosting, 0, len(f.Jobs))
	for i, j := range f.Jobs {
		id := j.ID
		if id == 0 {
			id = int64(i + 1)
		}
		jobs = append(jobs, domain.JobPosting{
			ID:           id,
			Title:        j.Title,
			Company:      j.Company,
			Location:     j.Location,
			JobType:      j.JobType,
			Category:     j.Category,
			Description:  j.Description,
			Requirements: j.Requirements,
			URL:          j.URL,
			PostedDate:   j.PostedDate,
		})
	}
	return jobs, nil
}

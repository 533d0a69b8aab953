package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/pkg/textx"
)

// cvSummaryLen bounds the CV excerpt used as the retrieval query.
const cvSummaryLen = 1000

// MatchService turns an uploaded CV into matching job postings: parse, trim
// to a summary, run the semantic search with the summary as the query.
type MatchService struct {
	Parser domain.CVParser
	Search SearchService
}

// NewMatchService constructs a MatchService.
func NewMatchService(p domain.CVParser, s SearchService) MatchService {
	return MatchService{Parser: p, Search: s}
}

// MatchCV returns the CV summary used for retrieval and the matching jobs.
// Parser errors (size, format, extraction) propagate with their own sentinels.
func (m MatchService) MatchCV(ctx domain.Context, data []byte, fileName string, k int, filters map[string]string) (string, []domain.RetrievedJob, error) {
	text, err := m.Parser.Parse(ctx, data, fileName)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("%w: no text extracted from CV", domain.ErrInvalidArgument)
	}
	summary := textx.Summary(text, cvSummaryLen)
	jobs, err := m.Search.Search(ctx, summary, k, filters)
	if err != nil {
		return "", nil, err
	}
	return summary, jobs, nil
}

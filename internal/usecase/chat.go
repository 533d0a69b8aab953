package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

// systemPrompt is the fixed grounding instruction for the assistant.
const systemPrompt = `You are a helpful job search assistant. Your role is to help users find relevant IT/CS jobs from the job fair platform.

When answering:
1. Be concise and helpful
2. Highlight the most relevant jobs based on the user's query
3. Mention key details like company, location, and job type
4. Provide direct links to job postings
5. If no jobs match well, suggest broadening the search criteria

Always base your answers on the provided job listings. Don't make up information.`

const summarizePrompt = "You are a job search assistant. Summarize the following jobs concisely."

// Generator sampling parameters.
const (
	answerTemperature    = 0.7
	answerMaxTokens      = 800
	summaryTemperature   = 0.5
	summaryMaxTokens     = 300
	summaryTopJobs       = 5
	defaultContextTokens = 3000
)

// ChatService builds grounded prompts and forwards them to the generator with
// a single blocking request per turn.
type ChatService struct {
	Gen           domain.Generator
	Model         string
	ContextTokens int
	counter       *tokencount.Counter
}

// NewChatService constructs a ChatService. model is used for token counting
// when trimming the context block.
func NewChatService(gen domain.Generator, model string, contextTokens int) ChatService {
	if contextTokens <= 0 {
		contextTokens = defaultContextTokens
	}
	return ChatService{Gen: gen, Model: model, ContextTokens: contextTokens, counter: tokencount.NewCounter()}
}

// Answer composes the transcript: the fixed system instruction, prior turns
// verbatim, then a final user turn embedding the query and the job context
// block. Any generator error propagates unmodified.
func (s ChatService) Answer(ctx domain.Context, query string, jobContext string, history []domain.ChatTurn) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	jobContext = s.counter.Truncate(jobContext, s.Model, s.ContextTokens)
	turns := make([]domain.ChatTurn, 0, len(history)+2)
	turns = append(turns, domain.ChatTurn{Role: domain.RoleSystem, Content: systemPrompt})
	turns = append(turns, history...)
	turns = append(turns, domain.ChatTurn{Role: domain.RoleUser, Content: userTurn(query, jobContext)})
	return s.Gen.ChatComplete(ctx, turns, answerTemperature, answerMaxTokens)
}

// Summarize produces a short overview of the top retrieved jobs. With no jobs
// it answers locally without calling the generator.
func (s ChatService) Summarize(ctx domain.Context, jobs []domain.RetrievedJob) (string, error) {
	if len(jobs) == 0 {
		return "No jobs found matching your criteria.", nil
	}
	if len(jobs) > summaryTopJobs {
		jobs = jobs[:summaryTopJobs]
	}
	lines := make([]string, 0, len(jobs))
	for _, j := range jobs {
		lines = append(lines, fmt.Sprintf("- %s at %s (%s) - %s", j.Title, j.Company, j.Location, j.URL))
	}
	turns := []domain.ChatTurn{
		{Role: domain.RoleSystem, Content: summarizePrompt},
		{Role: domain.RoleUser, Content: "Summarize these job opportunities:\n\n" + strings.Join(lines, "\n")},
	}
	return s.Gen.ChatComplete(ctx, turns, summaryTemperature, summaryMaxTokens)
}

func userTurn(query, jobContext string) string {
	return fmt.Sprintf("User Query: %s\n\nRetrieved Jobs:\n%s\n\nPlease provide a helpful response based on these job listings.", query, jobContext)
}

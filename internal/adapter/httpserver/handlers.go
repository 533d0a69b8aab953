package httpserver

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/internal/usecase"
)

type searchRequest struct {
	Query   string            `json:"query" validate:"required"`
	TopK    int               `json:"top_k" validate:"omitempty,min=1,max=50"`
	Filters map[string]string `json:"filters" validate:"omitempty,dive,keys,oneof=location category company job_type,endkeys,required"`
}

type chatRequest struct {
	Query   string            `json:"query" validate:"required"`
	History []chatTurn        `json:"history" validate:"omitempty,max=50,dive"`
	TopK    int               `json:"top_k" validate:"omitempty,min=1,max=50"`
	Filters map[string]string `json:"filters" validate:"omitempty,dive,keys,oneof=location category company job_type,endkeys,required"`
}

type chatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type browseRequest struct {
	Filters map[string]string `json:"filters" validate:"required,min=1,dive,keys,oneof=location category company job_type,endkeys,required"`
	Limit   int               `json:"limit" validate:"omitempty,min=1,max=100"`
}

type jobView struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	Location       string  `json:"location"`
	JobType        string  `json:"job_type"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Requirements   string  `json:"requirements"`
	URL            string  `json:"url"`
	PostedDate     string  `json:"posted_date"`
	RelevanceScore float64 `json:"relevance_score"`
}

func jobViews(jobs []domain.RetrievedJob) []jobView {
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobView{
			ID:             j.ID,
			Title:          j.Title,
			Company:        j.Company,
			Location:       j.Location,
			JobType:        j.JobType,
			Category:       j.Category,
			Description:    j.Description,
			Requirements:   j.Requirements,
			URL:            j.URL,
			PostedDate:     j.PostedDate,
			RelevanceScore: j.RelevanceScore,
		})
	}
	return out
}

func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidArgument, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// SearchHandler embeds the query, retrieves the nearest postings, and returns
// them with relevance scores.
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	jobs, err := s.search.Search(r.Context(), req.Query, req.TopK, req.Filters)
	if err != nil {
		LoggerFrom(r).Error("search failed", slog.Any("error", err))
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "count": len(jobs), "jobs": jobViews(jobs)})
}

// ChatHandler runs retrieval for the query and asks the generator for a
// grounded answer. The retrieved jobs come back alongside the answer so the
// caller can render both.
func (s *Server) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	jobs, err := s.search.Search(r.Context(), req.Query, req.TopK, req.Filters)
	if err != nil {
		LoggerFrom(r).Error("chat retrieval failed", slog.Any("error", err))
		writeError(w, r, err, nil)
		return
	}
	history := make([]domain.ChatTurn, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, domain.ChatTurn{Role: t.Role, Content: t.Content})
	}
	answer, err := s.chat.Answer(r.Context(), req.Query, usecase.JobContext(jobs), history)
	if err != nil {
		LoggerFrom(r).Error("chat generation failed", slog.Any("error", err))
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "jobs": jobViews(jobs)})
}

// BrowseHandler lists postings by exact metadata filters without embedding.
func (s *Server) BrowseHandler(w http.ResponseWriter, r *http.Request) {
	var req browseRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	jobs, err := s.search.Browse(r.Context(), req.Filters, req.Limit)
	if err != nil {
		LoggerFrom(r).Error("browse failed", slog.Any("error", err))
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(jobs), "jobs": jobViews(jobs)})
}

// JobHandler fetches one posting by its stable id.
func (s *Server) JobHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: id must be an integer", domain.ErrInvalidArgument), nil)
		return
	}
	job, err := s.search.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// MetaHandler lists the distinct values of a browsable metadata field.
func (s *Server) MetaHandler(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	values, err := s.search.DistinctValues(r.Context(), field)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "values": values, "count": len(values)})
}

// CVMatchHandler accepts a multipart CV upload, extracts its text, and runs
// the semantic search with the CV summary as the query.
//
// Form fields: file (required), top_k, and the browsable filter fields.
func (s *Server) CVMatchHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, r, fmt.Errorf("%w: multipart body exceeds %d MB or is malformed", domain.ErrTooLarge, s.cfg.MaxUploadMB), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing form file %q", domain.ErrInvalidArgument, "file"), nil)
		return
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: reading upload: %v", domain.ErrInternal, err), nil)
		return
	}

	topK := 0
	if v := r.FormValue("top_k"); v != "" {
		topK, err = strconv.Atoi(v)
		if err != nil || topK < 1 || topK > 50 {
			writeError(w, r, fmt.Errorf("%w: top_k must be an integer between 1 and 50", domain.ErrInvalidArgument), nil)
			return
		}
	}
	filters := map[string]string{}
	for _, f := range []string{"location", "category", "company", "job_type"} {
		if v := r.FormValue(f); v != "" {
			filters[f] = v
		}
	}

	summary, jobs, err := s.match.MatchCV(r.Context(), data, header.Filename, topK, filters)
	if err != nil {
		LoggerFrom(r).Error("cv match failed", slog.Any("error", err), slog.String("file", header.Filename))
		writeError(w, r, err, nil)
		return
	}
	overview, err := s.chat.Summarize(r.Context(), jobs)
	if err != nil {
		// overview failure does not fail the match
		LoggerFrom(r).Warn("cv match summary failed", slog.Any("error", err))
		overview = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cv_summary": summary,
		"overview":   overview,
		"count":      len(jobs),
		"jobs":       jobViews(jobs),
	})
}

// ExportCSVHandler runs the same retrieval as SearchHandler but streams the
// result as a CSV attachment with percent-formatted relevance.
func (s *Server) ExportCSVHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	jobs, err := s.search.Search(r.Context(), req.Query, req.TopK, req.Filters)
	if err != nil {
		LoggerFrom(r).Error("export failed", slog.Any("error", err))
		writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "title", "company", "location", "job_type", "category", "url", "posted_date", "relevance"})
	for _, j := range jobs {
		_ = cw.Write([]string{
			strconv.FormatInt(j.ID, 10),
			j.Title,
			j.Company,
			j.Location,
			j.JobType,
			j.Category,
			j.URL,
			j.PostedDate,
			fmt.Sprintf("%.1f%%", j.RelevanceScore),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		LoggerFrom(r).Error("csv flush failed", slog.Any("error", err))
	}
}

// supportedUploads is exposed on the API root for client discovery.
func (s *Server) supportedUploads() string {
	if lister, ok := s.match.Parser.(interface{ SupportedExtensions() []string }); ok {
		return strings.Join(lister.SupportedExtensions(), ", ")
	}
	return ""
}

// RootHandler describes the API surface.
func (s *Server) RootHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":           "job-search-rag",
		"endpoints":         []string{"POST /v1/search", "POST /v1/chat", "POST /v1/browse", "POST /v1/cv/match", "POST /v1/export/csv", "GET /v1/jobs/{id}", "GET /v1/meta/{field}"},
		"supported_uploads": s.supportedUploads(),
	})
}

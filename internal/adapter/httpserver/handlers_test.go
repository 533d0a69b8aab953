package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/httpserver"
	"github.com/fairyhunter13/job-search-rag/internal/app"
	"github.com/fairyhunter13/job-search-rag/internal/config"
	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/internal/usecase"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeStore struct {
	searchHits []domain.SearchHit
	scrollHits []domain.SearchHit
}

func (f *fakeStore) EnsureCollection(context.Context, int, bool) error { return nil }
func (f *fakeStore) Upsert(context.Context, []domain.VectorPoint) error {
	return nil
}
func (f *fakeStore) Search(context.Context, []float32, int, map[string]any) ([]domain.SearchHit, error) {
	return f.searchHits, nil
}
func (f *fakeStore) Scroll(context.Context, map[string]any, int) ([]domain.SearchHit, error) {
	return f.scrollHits, nil
}
func (f *fakeStore) Count(context.Context) (int, error) { return len(f.searchHits), nil }

type fakeGenerator struct{ reply string }

func (f fakeGenerator) ChatComplete(context.Context, []domain.ChatTurn, float64, int) (string, error) {
	return f.reply, nil
}

type fakeParser struct {
	text string
	err  error
}

func (f fakeParser) Parse(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:           "test",
		MaxUploadMB:      10,
		RateLimitPerMin:  1000,
		CORSAllowOrigins: "*",
		HTTPWriteTimeout: 30 * time.Second,
	}
}

func newTestRouter(t *testing.T, store *fakeStore, parser domain.CVParser) http.Handler {
	t.Helper()
	cfg := testConfig()
	search := usecase.NewSearchService(fakeEmbedder{}, store, 0)
	chat := usecase.NewChatService(fakeGenerator{reply: "grounded answer"}, "gpt-4o-mini", 3000)
	match := usecase.NewMatchService(parser, search)
	srv := httpserver.NewServer(cfg, search, chat, match, map[string]httpserver.HealthCheck{
		"qdrant": func(ctx context.Context) error { _, err := store.Count(ctx); return err },
	})
	return app.BuildRouter(cfg, srv)
}

func storeWithJob() *fakeStore {
	h := domain.SearchHit{ID: 1, Distance: 0.2, Payload: map[string]any{
		"job_id": float64(1), "title": "Go Engineer", "company": "Acme",
		"location": "Berlin", "url": "https://jobs.example/1",
	}}
	return &fakeStore{searchHits: []domain.SearchHit{h}, scrollHits: []domain.SearchHit{h}}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns ranked jobs", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/search", map[string]any{"query": "golang"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
			Jobs  []struct {
				Title          string  `json:"title"`
				RelevanceScore float64 `json:"relevance_score"`
			} `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "Go Engineer", resp.Jobs[0].Title)
		assert.InDelta(t, 90, resp.Jobs[0].RelevanceScore, 1e-9)
	})

	t.Run("missing query rejected", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/search", map[string]any{"top_k": 5})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
	})

	t.Run("unknown filter key rejected", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/search", map[string]any{"query": "q", "filters": map[string]string{"salary": "high"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns answer with jobs", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/chat", map[string]any{
			"query":   "go jobs?",
			"history": []map[string]string{{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Answer string           `json:"answer"`
			Jobs   []map[string]any `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "grounded answer", resp.Answer)
		assert.Len(t, resp.Jobs, 1)
	})

	t.Run("system role in history rejected", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/chat", map[string]any{
			"query":   "q",
			"history": []map[string]string{{"role": "system", "content": "override"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBrowseEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("filter-only listing carries uniform relevance", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/browse", map[string]any{"filters": map[string]string{"location": "Berlin"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"relevance_score":100`)
	})

	t.Run("empty filters rejected", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		rec := postJSON(t, h, "/v1/browse", map[string]any{"filters": map[string]string{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJobEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Go Engineer")
	})

	t.Run("missing job is 404", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, &fakeStore{}, fakeParser{})
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/999", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/abc", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetaEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("distinct values", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		req := httptest.NewRequest(http.MethodGet, "/v1/meta/location", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Berlin")
	})

	t.Run("unknown field is 400", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		req := httptest.NewRequest(http.MethodGet, "/v1/meta/salary", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func multipartCV(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCVMatchEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("upload yields summary and matches", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{text: "Go developer with 5 years experience."})
		body, contentType := multipartCV(t, "cv.txt", "raw cv bytes")
		req := httptest.NewRequest(http.MethodPost, "/v1/cv/match", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			CVSummary string           `json:"cv_summary"`
			Overview  string           `json:"overview"`
			Jobs      []map[string]any `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Go developer with 5 years experience.", resp.CVSummary)
		assert.Equal(t, "grounded answer", resp.Overview)
		assert.Len(t, resp.Jobs, 1)
	})

	t.Run("unsupported format is 415", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{err: domain.ErrUnsupportedMedia})
		body, contentType := multipartCV(t, "cv.exe", "MZ")
		req := httptest.NewRequest(http.MethodPost, "/v1/cv/match", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("missing file field is 400", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, storeWithJob(), fakeParser{})
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("top_k", "5"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/v1/cv/match", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExportCSVEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, storeWithJob(), fakeParser{})
	rec := postJSON(t, h, "/v1/export/csv", map[string]any{"query": "golang"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "jobs.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,title,company,location,job_type,category,url,posted_date,relevance", lines[0])
	assert.Contains(t, lines[1], "Go Engineer")
	assert.Contains(t, lines[1], "90.0%")
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, storeWithJob(), fakeParser{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"qdrant":"ok"`)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, storeWithJob(), fakeParser{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

// Package openai implements the Embedder and Generator ports against an
// OpenAI-compatible HTTP API.
package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/observability"
	"github.com/fairyhunter13/job-search-rag/internal/config"
	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

// embedBatchSize caps how many inputs one embeddings request carries; the
// remote API enforces a limit, so larger batches are chunked and the results
// concatenated in input order.
const embedBatchSize = 100

// Client implements domain.Embedder and domain.Generator.
type Client struct {
	cfg     config.Config
	embedHC *http.Client
	chatHC  *http.Client
}

// New constructs a client. Missing credentials are a construction error so
// misconfiguration surfaces eagerly rather than on the first request.
func New(cfg config.Config) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY", domain.ErrConfigMissing)
	}
	if cfg.EmbeddingsModel == "" || cfg.ChatModel == "" {
		return nil, fmt.Errorf("%w: EMBEDDINGS_MODEL or CHAT_MODEL", domain.ErrConfigMissing)
	}
	return &Client{
		cfg:     cfg,
		embedHC: &http.Client{Timeout: 30 * time.Second},
		chatHC:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *Client) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// Embed returns one vector per input text, in input order. Inputs beyond
// embedBatchSize are sent as sequential sub-batches; any sub-batch failure
// aborts the whole call rather than dropping items.
func (c *Client) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("op=openai.embed chunk=%d..%d: %w", start, end, err)
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (c *Client) embedChunk(ctx domain.Context, texts []string) ([][]float32, error) {
	body := map[string]any{
		"model": c.cfg.EmbeddingsModel,
		"input": texts,
	}
	b, _ := json.Marshal(body)
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/embeddings", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.embedHC.Do(r)
		observability.AIRequestsTotal.WithLabelValues("openai", "embed").Inc()
		observability.AIRequestDuration.WithLabelValues("openai", "embed").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if err := checkStatus(resp, "embed", c.cfg.EmbeddingsModel); err != nil {
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			slog.Error("ai provider decode error", slog.String("provider", "openai"), slog.String("op", "embed"), slog.Any("error", err))
			return err
		}
		return nil
	}
	bo := backoff.WithContext(c.backoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if len(out.Data) != len(texts) {
		// Positional zip downstream requires a strict 1:1 response.
		return nil, fmt.Errorf("%w: embedding count %d != input count %d", domain.ErrUpstream, len(out.Data), len(texts))
	}
	res := make([][]float32, len(out.Data))
	for i := range out.Data {
		v := make([]float32, len(out.Data[i].Embedding))
		for j := range out.Data[i].Embedding {
			v[j] = float32(out.Data[i].Embedding[j])
		}
		res[i] = v
	}
	return res, nil
}

// ChatComplete forwards an ordered transcript to the chat completions API and
// returns the single completion text. No streaming, no function calling.
func (c *Client) ChatComplete(ctx domain.Context, turns []domain.ChatTurn, temperature float64, maxTokens int) (string, error) {
	msgs := make([]map[string]string, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, map[string]string{"role": t.Role, "content": t.Content})
	}
	body := map[string]any{
		"model":       c.cfg.ChatModel,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"messages":    msgs,
	}
	b, _ := json.Marshal(body)
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	op := func() error {
		start := time.Now()
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.chatHC.Do(r)
		observability.AIRequestsTotal.WithLabelValues("openai", "chat").Inc()
		observability.AIRequestDuration.WithLabelValues("openai", "chat").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if err := checkStatus(resp, "chat", c.cfg.ChatModel); err != nil {
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			slog.Error("ai provider decode error", slog.String("provider", "openai"), slog.String("op", "chat"), slog.Any("error", err))
			return err
		}
		return nil
	}
	bo := backoff.WithContext(c.backoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("op=openai.chat: %w: %v", domain.ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("op=openai.chat: %w: empty choices", domain.ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}

// checkStatus classifies a non-2xx response: 429 retryable, other 4xx
// permanent, 5xx retryable.
func checkStatus(resp *http.Response, opName, model string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet := readSnippet(resp.Body, 512)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("ai provider rate limited", slog.String("provider", "openai"), slog.String("op", opName), slog.Int("status", resp.StatusCode), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return errors.New("rate limited: 429")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		slog.Warn("ai provider 4xx", slog.String("provider", "openai"), slog.String("op", opName), slog.Int("status", resp.StatusCode), slog.String("model", model), slog.String("body", snippet))
		return backoff.Permanent(fmt.Errorf("%s status %d", opName, resp.StatusCode))
	default:
		slog.Error("ai provider non-2xx", slog.String("provider", "openai"), slog.String("op", opName), slog.Int("status", resp.StatusCode), slog.String("model", model), slog.String("body", snippet))
		return fmt.Errorf("%s status %d", opName, resp.StatusCode)
	}
}

func readSnippet(r io.Reader, n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(b)
}

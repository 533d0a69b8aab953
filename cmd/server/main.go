// Command server runs the job search HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/ai/openai"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/ai/stub"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/cvparse"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/httpserver"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/observability"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/textextract/tika"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/job-search-rag/internal/app"
	"github.com/fairyhunter13/job-search-rag/internal/config"
	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.SetupLogger(cfg)
	observability.InitMetrics()

	store := qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)

	var embedder domain.Embedder
	var generator domain.Generator
	if cfg.OpenAIAPIKey == "" && !cfg.IsProd() {
		slog.Warn("no OPENAI_API_KEY set, using deterministic stub AI client")
		st := stub.New()
		embedder, generator = st, st
	} else {
		ai, err := openai.New(cfg)
		if err != nil {
			return err
		}
		embedder, generator = ai, ai
	}

	extractor := tika.New(cfg.TikaURL)
	parser := cvparse.New(extractor, cfg.MaxUploadMB<<20)

	search := usecase.NewSearchService(embedder, store, cfg.DistinctScanCap)
	chat := usecase.NewChatService(generator, cfg.ChatModel, cfg.ChatContextTokens)
	match := usecase.NewMatchService(parser, search)

	checks := map[string]httpserver.HealthCheck{
		"qdrant": func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		},
		"tika": extractor.Health,
	}

	srv := httpserver.NewServer(cfg, search, chat, match, checks)
	router := app.BuildRouter(cfg, srv)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("op=server.shutdown: %w", err)
	}
	slog.Info("shutdown complete")
	return nil
}

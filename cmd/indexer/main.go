// Command indexer rebuilds the vector collection from the job source.
//
// By default it reads the relational jobs table; -seed switches to a YAML
// seed file for local development.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/ai/openai"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/ai/stub"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/observability"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/repo/yamlsource"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/job-search-rag/internal/config"
	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/internal/usecase"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate the collection before indexing")
	verify := flag.Bool("verify", true, "verify the collection point count after indexing")
	seed := flag.String("seed", "", "index from a YAML seed file instead of the database")
	flag.Parse()

	if err := run(*reset, *verify, *seed); err != nil {
		slog.Error("indexer failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(reset, verify bool, seedPath string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.SetupLogger(cfg)
	observability.InitMetrics()

	ctx := context.Background()

	var source domain.JobSource
	if seedPath != "" {
		source = yamlsource.New(seedPath)
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		source = postgres.NewJobsRepo(pool)
	}

	var embedder domain.Embedder
	dims := cfg.EmbeddingDims
	if cfg.OpenAIAPIKey == "" && !cfg.IsProd() {
		slog.Warn("no OPENAI_API_KEY set, using deterministic stub embedder")
		embedder = stub.New()
		dims = stub.Dims
	} else {
		ai, err := openai.New(cfg)
		if err != nil {
			return err
		}
		embedder = ai
	}

	store := qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
	indexer := usecase.NewIndexService(source, embedder, store, dims)

	n, err := indexer.Rebuild(ctx, reset)
	if err != nil {
		return err
	}
	if verify {
		if err := indexer.Verify(ctx, n); err != nil {
			return err
		}
	}
	slog.Info("index ready", slog.Int("jobs", n), slog.String("collection", cfg.QdrantCollection))
	return nil
}

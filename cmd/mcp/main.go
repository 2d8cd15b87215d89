// Command mcp exposes the lorebase retrieval pipeline as an MCP server over
// stdio, so writing assistants can pull story context on demand.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lorebase/lorebase/engine/config"
	"github.com/lorebase/lorebase/engine/retrieval"
	"github.com/lorebase/lorebase/engine/semantic"
	"github.com/lorebase/lorebase/pkg/ollama"
)

func main() {
	// stdout is the MCP transport, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("mcp server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(envOr("LOREBASE_CONFIG", "lorebase.yaml"))
	if err != nil {
		return err
	}

	store, err := semantic.New(envOr("QDRANT_URL", "localhost:6334"), envOr("QDRANT_COLLECTION", "lorebase"))
	if err != nil {
		return err
	}
	defer store.Close()

	client := ollama.New(envOr("OLLAMA_URL", "http://localhost:11434"))
	var reranker retrieval.Reranker
	if cfg.Models.Reranker.Enabled {
		reranker = &rerankAdapter{client: client, model: cfg.Models.Reranker.Model}
	}

	orchestrator := retrieval.New(
		&embedAdapter{client: client, model: cfg.Models.Embedding.Model},
		reranker,
		store,
		searchOptions(cfg),
		logger,
	)

	srv := mcpserver.NewMCPServer("lorebase", "1.0.0")
	registerTools(srv, orchestrator)

	logger.Info("mcp server starting on stdio")
	return mcpserver.ServeStdio(srv)
}

func searchOptions(cfg config.Config) retrieval.Options {
	return retrieval.Options{
		DefaultTopK:    cfg.Search.DefaultTopK,
		MaxTopK:        cfg.Search.MaxTopK,
		RerankEnabled:  cfg.Search.EnableRerank && cfg.Models.Reranker.Enabled,
		MaxCandidates:  cfg.Models.Reranker.MaxCandidates,
		ScoreThreshold: cfg.Models.Reranker.ScoreThreshold,
		SearchTimeout:  30 * time.Second,
		Entity: retrieval.EntityOptions{
			ExpandAliases:    cfg.Search.Entity.ExpandAliases,
			DefaultTopK:      cfg.Search.Entity.DefaultTopK,
			SubQueryTopK:     cfg.Search.Entity.SubQueryTopK,
			CompendiumMarker: cfg.Search.Entity.CompendiumMarker,
			Aliases:          cfg.Search.Entity.Aliases,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type embedAdapter struct {
	client *ollama.Client
	model  string
}

func (a *embedAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.client.Embed(ctx, a.model, text)
}

type rerankAdapter struct {
	client *ollama.Client
	model  string
}

func (a *rerankAdapter) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	return a.client.Rerank(ctx, a.model, query, documents)
}

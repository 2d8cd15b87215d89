// Package main implements the lorebase query API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorebase/lorebase/engine/config"
	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/engine/retrieval"
	"github.com/lorebase/lorebase/engine/semantic"
	"github.com/lorebase/lorebase/pkg/metrics"
	"github.com/lorebase/lorebase/pkg/mid"
	"github.com/lorebase/lorebase/pkg/ollama"
)

// Env holds environment-based configuration; tuning lives in the YAML
// config file.
type Env struct {
	Port       string
	ConfigPath string
	OllamaURL  string
	QdrantURL  string
	Collection string
	CORSOrigin string
}

func loadEnv() Env {
	return Env{
		Port:       envOr("PORT", "8080"),
		ConfigPath: envOr("LOREBASE_CONFIG", "lorebase.yaml"),
		OllamaURL:  envOr("OLLAMA_URL", "http://localhost:11434"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "lorebase"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadEnv(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(env Env, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		return err
	}

	vectorStore, err := semantic.New(env.QdrantURL, env.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	client := ollama.New(env.OllamaURL)
	var reranker retrieval.Reranker
	if cfg.Models.Reranker.Enabled {
		reranker = &rerankAdapter{client: client, model: cfg.Models.Reranker.Model}
	}

	orchestrator := retrieval.New(
		&embedAdapter{client: client, model: cfg.Models.Embedding.Model},
		reranker,
		vectorStore,
		searchOptions(cfg),
		logger,
	)

	reg := metrics.New()
	handler := mid.Chain(newMux(orchestrator, reg, logger),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Measure(reg),
		mid.CORS(env.CORSOrigin),
		mid.OTel("lorebase-api"),
	)

	srv := &http.Server{
		Addr:         ":" + env.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", env.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
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

// searchService is what the handlers need from the orchestrator.
type searchService interface {
	Search(ctx context.Context, query string, topK int, fileType domain.DocType) ([]domain.SearchResult, error)
	SearchEntity(ctx context.Context, name string, topK int) ([]domain.SearchResult, error)
	SearchTopic(ctx context.Context, keyword string, topK int) ([]domain.SearchResult, error)
}

func newMux(svc searchService, reg *metrics.Registry, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/search", handleSearch(svc, logger))
	mux.HandleFunc("POST /api/entity", handleEntity(svc, logger))
	mux.HandleFunc("POST /api/topic", handleTopic(svc, logger))
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SearchRequest is the JSON body for POST /api/search.
type SearchRequest struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k,omitempty"`
	FileType string `json:"file_type,omitempty"`
}

// EntityRequest is the JSON body for POST /api/entity.
type EntityRequest struct {
	Name string `json:"name"`
	TopK int    `json:"top_k,omitempty"`
}

// TopicRequest is the JSON body for POST /api/topic.
type TopicRequest struct {
	Keyword string `json:"keyword"`
	TopK    int    `json:"top_k,omitempty"`
}

// SearchResponse wraps formatted results.
type SearchResponse struct {
	Results []domain.FormattedResult `json:"results"`
	Count   int                      `json:"count"`
}

func handleSearch(svc searchService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		results, err := svc.Search(r.Context(), req.Query, req.TopK, domain.DocType(req.FileType))
		writeResults(w, results, err, logger)
	}
}

func handleEntity(svc searchService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EntityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		results, err := svc.SearchEntity(r.Context(), req.Name, req.TopK)
		writeResults(w, results, err, logger)
	}
}

func handleTopic(svc searchService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TopicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		results, err := svc.SearchTopic(r.Context(), req.Keyword, req.TopK)
		writeResults(w, results, err, logger)
	}
}

func writeResults(w http.ResponseWriter, results []domain.SearchResult, err error, logger *slog.Logger) {
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			http.Error(w, `{"error":"query must not be empty"}`, http.StatusBadRequest)
			return
		}
		logger.Error("search failed", "err", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	formatted := retrieval.Format(results)
	if formatted == nil {
		formatted = []domain.FormattedResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SearchResponse{Results: formatted, Count: len(formatted)})
}

// --- Adapters ---

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

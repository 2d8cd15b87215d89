// Package retrieval orchestrates the two-stage search pipeline. A query is
// embedded, candidate chunks come back from the vector store, and when a
// reranker is available the candidates are rescored and reordered before the
// final cut. Entity search layers alias expansion on top.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/engine/semantic"
)

// Embedder produces a query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores documents against a query, one score per document in
// input order, higher meaning more relevant.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Searcher abstracts vector search over stored chunks.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int, fileType domain.DocType) ([]semantic.Hit, error)
}

// Options configures the search pipeline.
type Options struct {
	DefaultTopK    int
	MaxTopK        int
	RerankEnabled  bool
	MaxCandidates  int
	ScoreThreshold float64
	SearchTimeout  time.Duration
	Entity         EntityOptions
}

// DefaultOptions returns the built-in pipeline bounds.
func DefaultOptions() Options {
	return Options{
		DefaultTopK:    5,
		MaxTopK:        20,
		RerankEnabled:  true,
		MaxCandidates:  10,
		ScoreThreshold: negInf(),
		SearchTimeout:  30 * time.Second,
		Entity:         DefaultEntityOptions(),
	}
}

// queryCacheSize bounds the embedding cache; interactive sessions rarely
// cycle through more distinct queries than this.
const queryCacheSize = 10

// Orchestrator runs retrieve-and-rerank searches.
type Orchestrator struct {
	embedder Embedder
	reranker Reranker
	searcher Searcher
	cache    *embedCache
	opts     Options
	logger   *slog.Logger
}

// New creates an Orchestrator. reranker may be nil to disable rescoring
// regardless of Options.RerankEnabled.
func New(embedder Embedder, reranker Reranker, searcher Searcher, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		embedder: embedder,
		reranker: reranker,
		searcher: searcher,
		cache:    newEmbedCache(queryCacheSize),
		opts:     opts,
		logger:   logger,
	}
}

// Search runs the full pipeline for one query. topK <= 0 selects the
// configured default; fileType, when non-empty, restricts results to that
// document class.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int, fileType domain.DocType) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	topK = o.clampTopK(topK)

	vector, err := o.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	rerank := o.rerankActive()
	initialK := topK
	if rerank {
		initialK = min(o.opts.MaxCandidates, max(topK*2, 10))
	}

	searchCtx, cancel := context.WithTimeout(ctx, o.opts.SearchTimeout)
	defer cancel()

	hits, err := o.searcher.Query(searchCtx, vector, initialK, fileType)
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector search: %w", err)
	}
	results := hitsToResults(hits)

	if !rerank || len(results) == 0 {
		return truncate(results, topK), nil
	}

	// Reranking is all-or-nothing: any reranker failure, including a backend
	// without the endpoint, fails the search. Operators disable reranking in
	// configuration instead of getting silently unreranked results.
	reranked, err := o.rescore(ctx, query, results)
	if err != nil {
		o.logger.Error("rerank failed", "error", err)
		return nil, err
	}
	return truncate(reranked, topK), nil
}

// rescore attaches reranker scores, reorders, and applies the score
// threshold. A score count mismatch is a hard failure so a silent
// misalignment between scores and documents can never reorder results.
func (o *Orchestrator) rescore(ctx context.Context, query string, results []domain.SearchResult) ([]domain.SearchResult, error) {
	documents := make([]string, len(results))
	for i, r := range results {
		documents[i] = r.Content
	}

	scores, err := o.reranker.Rerank(ctx, query, documents)
	if err != nil {
		return nil, fmt.Errorf("retrieval: rerank: %w", err)
	}
	if len(scores) != len(results) {
		return nil, fmt.Errorf("retrieval: %w: %d scores for %d results",
			domain.ErrScoreCountMismatch, len(scores), len(results))
	}

	for i := range results {
		score := scores[i]
		results[i].RerankScore = &score
		results[i].FinalScore = &score
	}

	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].RerankScore > *results[j].RerankScore
	})

	kept := results[:0:0]
	for _, r := range results {
		if *r.RerankScore >= o.opts.ScoreThreshold {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func (o *Orchestrator) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := o.cache.get(query); ok {
		return vec, nil
	}
	vec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	o.cache.put(query, vec)
	return vec, nil
}

func (o *Orchestrator) rerankActive() bool {
	return o.opts.RerankEnabled && o.reranker != nil
}

func (o *Orchestrator) clampTopK(topK int) int {
	if topK <= 0 {
		topK = o.opts.DefaultTopK
	}
	if o.opts.MaxTopK > 0 && topK > o.opts.MaxTopK {
		topK = o.opts.MaxTopK
	}
	return topK
}

func hitsToResults(hits []semantic.Hit) []domain.SearchResult {
	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		d := h.Distance
		results[i] = domain.SearchResult{
			Content:  h.Content,
			Meta:     h.Meta,
			Distance: &d,
		}
	}
	return results
}

func truncate(results []domain.SearchResult, topK int) []domain.SearchResult {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}

// negInf disables threshold filtering; every rerank score passes.
func negInf() float64 { return math.Inf(-1) }

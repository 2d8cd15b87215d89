package domain

import "errors"

// Sentinel errors surfaced by the indexing and retrieval pipelines.
var (
	// ErrEmptyQuery is returned when a search query is blank after trimming.
	ErrEmptyQuery = errors.New("empty query")

	// ErrScoreCountMismatch means the reranker returned a different number of
	// scores than documents. The search fails hard rather than degrading to
	// un-reranked results, so relevance semantics stay consistent per query.
	ErrScoreCountMismatch = errors.New("reranker score count does not match candidate count")

	// ErrRerankUnsupported means the configured model backend has no rerank
	// endpoint.
	ErrRerankUnsupported = errors.New("rerank not supported by model backend")
)

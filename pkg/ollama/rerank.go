package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorebase/lorebase/engine/domain"
)

type rerankReq struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResp struct {
	Scores []float64 `json:"scores"`
}

// Rerank scores each document against the query, higher meaning more
// relevant, one score per document in input order. Servers without the
// rerank endpoint yield domain.ErrRerankUnsupported; reranking must be
// disabled in configuration for such backends.
func (c *Client) Rerank(ctx context.Context, model, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var result rerankResp
	err := c.post(ctx, "/api/rerank", rerankReq{Model: model, Query: query, Documents: documents}, &result)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == 404 || se.code == 405) {
			return nil, fmt.Errorf("%w: model %s", domain.ErrRerankUnsupported, model)
		}
		return nil, err
	}

	if len(result.Scores) != len(documents) {
		return nil, fmt.Errorf("ollama /api/rerank: %w: %d scores for %d documents",
			domain.ErrScoreCountMismatch, len(result.Scores), len(documents))
	}
	return result.Scores, nil
}

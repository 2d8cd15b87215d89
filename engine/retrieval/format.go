package retrieval

import (
	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/pkg/fn"
)

// Format flattens search results for API responses. Each result's relevance
// score comes from the best available source, in order: reranker score,
// final pipeline score, vector similarity (1 - distance), then a neutral
// 1.0. The score type tags which source was used.
func Format(results []domain.SearchResult) []domain.FormattedResult {
	return fn.Map(results, formatOne)
}

func formatOne(r domain.SearchResult) domain.FormattedResult {
	score := 1.0
	scoreType := domain.ScoreDefault
	switch {
	case r.RerankScore != nil:
		score = *r.RerankScore
		scoreType = domain.ScoreRerank
	case r.FinalScore != nil:
		score = *r.FinalScore
		scoreType = domain.ScoreFinal
	case r.Distance != nil:
		score = 1.0 - *r.Distance
		scoreType = domain.ScoreVectorSim
	}

	return domain.FormattedResult{
		FilePath:       r.Meta.FilePath,
		SectionTitle:   r.Meta.SectionTitle,
		FileType:       string(r.Meta.FileType),
		ChunkType:      string(r.Meta.ChunkType),
		Content:        r.Content,
		RelevanceScore: score,
		ScoreType:      scoreType,
		Distance:       r.Distance,
		RerankScore:    r.RerankScore,
		FinalScore:     r.FinalScore,
	}
}

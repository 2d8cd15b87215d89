package retrieval

import (
	"testing"

	"github.com/lorebase/lorebase/engine/domain"
)

func fptr(v float64) *float64 { return &v }

func TestFormatScorePrecedence(t *testing.T) {
	meta := domain.Metadata{
		FilePath:     "settings/w.md",
		SectionTitle: "Mira",
		FileType:     domain.DocSetting,
		ChunkType:    domain.ChunkSection,
	}

	cases := []struct {
		name      string
		result    domain.SearchResult
		wantScore float64
		wantType  string
	}{
		{
			name: "rerank wins over everything",
			result: domain.SearchResult{
				Meta: meta, Distance: fptr(0.3), RerankScore: fptr(0.9), FinalScore: fptr(0.8),
			},
			wantScore: 0.9,
			wantType:  domain.ScoreRerank,
		},
		{
			name: "final wins over distance",
			result: domain.SearchResult{
				Meta: meta, Distance: fptr(0.3), FinalScore: fptr(0.7),
			},
			wantScore: 0.7,
			wantType:  domain.ScoreFinal,
		},
		{
			name:      "distance converts to similarity",
			result:    domain.SearchResult{Meta: meta, Distance: fptr(0.3)},
			wantScore: 0.7,
			wantType:  domain.ScoreVectorSim,
		},
		{
			name:      "nothing available defaults to 1.0",
			result:    domain.SearchResult{Meta: meta},
			wantScore: 1.0,
			wantType:  domain.ScoreDefault,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatOne(tc.result)
			if got.RelevanceScore != tc.wantScore {
				t.Errorf("score = %v, want %v", got.RelevanceScore, tc.wantScore)
			}
			if got.ScoreType != tc.wantType {
				t.Errorf("score type = %q, want %q", got.ScoreType, tc.wantType)
			}
		})
	}
}

func TestFormatCarriesMetadata(t *testing.T) {
	in := []domain.SearchResult{{
		Content: "body",
		Meta: domain.Metadata{
			FilePath:     "Vol1/ch01.md",
			SectionTitle: "Opening",
			FileType:     domain.DocChapter,
			ChunkType:    domain.ChunkParagraph,
		},
		Distance: fptr(0.25),
	}}

	out := Format(in)
	if len(out) != 1 {
		t.Fatalf("got %d", len(out))
	}
	f := out[0]
	if f.FilePath != "Vol1/ch01.md" || f.SectionTitle != "Opening" ||
		f.FileType != "chapter" || f.ChunkType != "paragraph" || f.Content != "body" {
		t.Errorf("formatted = %+v", f)
	}
	if f.Distance == nil || *f.Distance != 0.25 {
		t.Error("distance should be carried for debugging")
	}
	if f.RerankScore != nil || f.FinalScore != nil {
		t.Error("absent scores should stay nil")
	}
}

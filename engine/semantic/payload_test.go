package semantic

import (
	"testing"

	"github.com/lorebase/lorebase/engine/domain"
)

func TestPayloadRoundTrip(t *testing.T) {
	chunk := domain.Chunk{
		ID:      "11111111-2222-3333-4444-555555555555",
		Content: "## Mira\nA collector of rare artifacts.",
		Meta: domain.Metadata{
			FilePath:       "settings/cast.md",
			ChunkType:      domain.ChunkSection,
			SectionTitle:   "Characters > Mira",
			SectionLevel:   3,
			ChunkIndex:     4,
			ParagraphIndex: 0,
			StartLine:      12,
			EndLine:        18,
			FileType:       domain.DocSetting,
		},
	}

	content, meta := payloadChunk(chunkPayload(chunk))
	if content != chunk.Content {
		t.Errorf("content = %q", content)
	}
	if meta != chunk.Meta {
		t.Errorf("meta = %+v, want %+v", meta, chunk.Meta)
	}
}

func TestPayloadChunkMissingKeys(t *testing.T) {
	content, meta := payloadChunk(nil)
	if content != "" {
		t.Errorf("content = %q, want empty", content)
	}
	if meta.FilePath != "" || meta.ChunkIndex != 0 {
		t.Errorf("meta should be zero, got %+v", meta)
	}
}

package semantic

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/lorebase/lorebase/engine/domain"
)

// Payload keys. file_type is the key used for metadata filters.
const (
	keyContent        = "content"
	keyFilePath       = "file_path"
	keyChunkType      = "chunk_type"
	keySectionTitle   = "section_title"
	keySectionLevel   = "section_level"
	keyChunkIndex     = "chunk_index"
	keyParagraphIndex = "paragraph_index"
	keyStartLine      = "start_line"
	keyEndLine        = "end_line"
	keyFileType       = "file_type"
)

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}}
}

// chunkPayload flattens a chunk into a Qdrant payload.
func chunkPayload(c domain.Chunk) map[string]*pb.Value {
	return map[string]*pb.Value{
		keyContent:        strValue(c.Content),
		keyFilePath:       strValue(c.Meta.FilePath),
		keyChunkType:      strValue(string(c.Meta.ChunkType)),
		keySectionTitle:   strValue(c.Meta.SectionTitle),
		keySectionLevel:   intValue(c.Meta.SectionLevel),
		keyChunkIndex:     intValue(c.Meta.ChunkIndex),
		keyParagraphIndex: intValue(c.Meta.ParagraphIndex),
		keyStartLine:      intValue(c.Meta.StartLine),
		keyEndLine:        intValue(c.Meta.EndLine),
		keyFileType:       strValue(string(c.Meta.FileType)),
	}
}

// payloadChunk recovers content and metadata from a stored payload.
func payloadChunk(payload map[string]*pb.Value) (string, domain.Metadata) {
	str := func(key string) string { return payload[key].GetStringValue() }
	num := func(key string) int { return int(payload[key].GetIntegerValue()) }

	meta := domain.Metadata{
		FilePath:       str(keyFilePath),
		ChunkType:      domain.ChunkType(str(keyChunkType)),
		SectionTitle:   str(keySectionTitle),
		SectionLevel:   num(keySectionLevel),
		ChunkIndex:     num(keyChunkIndex),
		ParagraphIndex: num(keyParagraphIndex),
		StartLine:      num(keyStartLine),
		EndLine:        num(keyEndLine),
		FileType:       domain.DocType(str(keyFileType)),
	}
	return str(keyContent), meta
}

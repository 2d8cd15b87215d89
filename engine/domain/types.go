// Package domain defines the core retrieval-unit types shared by the
// segmentation, indexing, and retrieval packages.
package domain

// ChunkType tags how a chunk was produced.
type ChunkType string

const (
	ChunkSection   ChunkType = "section"
	ChunkParagraph ChunkType = "paragraph"
	ChunkDocument  ChunkType = "document"
)

// DocType classifies a source document by its path.
type DocType string

const (
	DocSetting  DocType = "setting"
	DocChapter  DocType = "chapter"
	DocSidePlot DocType = "side-plot"
	DocOther    DocType = "other"
)

// Metadata carries a chunk's provenance. Line numbers are 1-based and
// inclusive on both ends for every segmentation strategy.
type Metadata struct {
	FilePath       string    `json:"file_path"`
	ChunkType      ChunkType `json:"chunk_type"`
	SectionTitle   string    `json:"section_title"`
	SectionLevel   int       `json:"section_level,omitempty"`
	ChunkIndex     int       `json:"chunk_index"`
	ParagraphIndex int       `json:"paragraph_index,omitempty"`
	StartLine      int       `json:"start_line"`
	EndLine        int       `json:"end_line"`
	FileType       DocType   `json:"file_type"`
}

// Chunk is an immutable retrieval unit: a span of document text plus its
// provenance. ID is content-derived (see ChunkID), so re-indexing an
// unchanged chunk upserts the same record.
type Chunk struct {
	ID      string
	Content string
	Meta    Metadata
}

// SearchResult is a single retrieval hit. Distance comes from the vector
// store (lower is closer); RerankScore and FinalScore are attached by the
// rerank stage (higher is better). Nil means the stage never ran.
type SearchResult struct {
	Content     string
	Meta        Metadata
	Distance    *float64
	RerankScore *float64
	FinalScore  *float64
}

// Score-type tags reported by the formatter, naming which score field was
// authoritative for RelevanceScore.
const (
	ScoreRerank    = "rerank"
	ScoreFinal     = "final"
	ScoreVectorSim = "vector_similarity"
	ScoreDefault   = "default"
)

// FormattedResult is the stable external-facing result shape returned by the
// query surface and serialized by the HTTP and MCP layers.
type FormattedResult struct {
	FilePath       string   `json:"file_path"`
	SectionTitle   string   `json:"section_title"`
	FileType       string   `json:"file_type"`
	ChunkType      string   `json:"chunk_type"`
	Content        string   `json:"content"`
	RelevanceScore float64  `json:"relevance_score"`
	ScoreType      string   `json:"score_type"`
	Distance       *float64 `json:"distance,omitempty"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
	FinalScore     *float64 `json:"final_score,omitempty"`
}

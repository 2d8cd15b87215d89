// Package segment turns raw markdown documents into ordered retrieval
// chunks. Two families of strategies exist: section-based splitting for
// world-building documents, where a header and its body form one unit, and
// paragraph-based splitting for narrative chapters, where each paragraph is
// a unit enriched with bounded context from its neighbors.
//
// Headers inside fenced code blocks are not treated specially; a "#" line
// inside a fence will split the document. The corpus this targets is prose,
// so the simpler scan wins.
package segment

import (
	"github.com/lorebase/lorebase/engine/domain"
)

// Strategy selects how a document is split.
type Strategy int

const (
	// BySection emits one chunk per markdown header (levels 2-6), nested
	// headers included, with hierarchical titles.
	BySection Strategy = iota
	// BySectionFlat splits only at level-2 headers; deeper headers stay
	// inline in the enclosing section's content.
	BySectionFlat
	// ByParagraph splits top-level sections into blank-line-delimited
	// paragraphs with neighbor context.
	ByParagraph
)

var strategyNames = map[string]Strategy{
	"by_section":      BySection,
	"by_section_flat": BySectionFlat,
	"by_paragraph":    ByParagraph,
}

// ParseStrategy resolves a configuration string to a Strategy. The second
// return is false for unknown names.
func ParseStrategy(name string) (Strategy, bool) {
	s, ok := strategyNames[name]
	return s, ok
}

// Options bounds chunk sizes and context enrichment.
type Options struct {
	// MinChunkSize drops paragraph chunks shorter than this (trimmed).
	MinChunkSize int
	// MinSectionSize drops section chunks whose trimmed content is not
	// longer than this.
	MinSectionSize int
	// ContextChars bounds neighbor context spliced into paragraph chunks.
	ContextChars int
	AddContext   bool
}

// DefaultOptions returns the built-in chunking bounds.
func DefaultOptions() Options {
	return Options{
		MinChunkSize:   50,
		MinSectionSize: 20,
		ContextChars:   200,
		AddContext:     true,
	}
}

// Segmenter splits documents according to its Options. Segmentation is a
// pure function of the document text and configuration; a Segmenter is safe
// for concurrent use.
type Segmenter struct {
	opts Options
}

// New creates a Segmenter.
func New(opts Options) *Segmenter {
	return &Segmenter{opts: opts}
}

// Segment splits content into ordered chunks. filePath and fileType are
// carried into each chunk's metadata; chunk indexes are unique and strictly
// increasing within the document.
func (s *Segmenter) Segment(content, filePath string, fileType domain.DocType, strategy Strategy) []domain.Chunk {
	switch strategy {
	case BySection:
		return s.bySection(content, filePath, fileType)
	case BySectionFlat:
		return s.bySectionFlat(content, filePath, fileType)
	default:
		return s.byParagraph(content, filePath, fileType)
	}
}

package segment

import (
	"strings"
	"testing"

	"github.com/lorebase/lorebase/engine/domain"
)

const longPara = "This paragraph is deliberately written out long enough to clear the minimum chunk size filter."

func noContextOptions() Options {
	opts := DefaultOptions()
	opts.AddContext = false
	return opts
}

func TestByParagraphLineTracking(t *testing.T) {
	doc := strings.Join([]string{
		"# Chapter One",
		"",
		longPara,
		"",
		"",
		"A second paragraph, also long enough to clear the minimum chunk size filter comfortably.",
	}, "\n")

	chunks := New(noContextOptions()).Segment(doc, "Vol1/ch01.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first, second := chunks[0], chunks[1]
	if first.Meta.StartLine != 3 || first.Meta.EndLine != 3 {
		t.Errorf("first span = %d-%d, want 3-3", first.Meta.StartLine, first.Meta.EndLine)
	}
	if second.Meta.StartLine != 6 || second.Meta.EndLine != 6 {
		t.Errorf("second span = %d-%d, want 6-6", second.Meta.StartLine, second.Meta.EndLine)
	}
	if first.Meta.SectionTitle != "Chapter One" {
		t.Errorf("title = %q, want Chapter One", first.Meta.SectionTitle)
	}
	if first.Meta.ChunkType != domain.ChunkParagraph {
		t.Errorf("chunk type = %q, want paragraph", first.Meta.ChunkType)
	}
}

func TestByParagraphMultilineSpan(t *testing.T) {
	doc := "first line of a paragraph that keeps going\nsecond line of the same paragraph still going strong"
	chunks := New(noContextOptions()).Segment(doc, "Vol1/ch02.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Meta.StartLine != 1 || chunks[0].Meta.EndLine != 2 {
		t.Errorf("span = %d-%d, want 1-2", chunks[0].Meta.StartLine, chunks[0].Meta.EndLine)
	}
	// No header anywhere: synthesized section title.
	if chunks[0].Meta.SectionTitle != "Section 1" {
		t.Errorf("title = %q, want Section 1", chunks[0].Meta.SectionTitle)
	}
}

func TestByParagraphSkipsShortButKeepsCounting(t *testing.T) {
	doc := strings.Join([]string{
		longPara,
		"",
		"short",
		"",
		"The third paragraph is long enough again to clear the minimum chunk size filter with room to spare.",
	}, "\n")

	chunks := New(noContextOptions()).Segment(doc, "Vol1/ch03.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	// ChunkIndex runs over emitted chunks; ParagraphIndex counts every
	// paragraph in the section, skipped ones included.
	if chunks[0].Meta.ChunkIndex != 0 || chunks[1].Meta.ChunkIndex != 1 {
		t.Errorf("chunk indexes = %d, %d", chunks[0].Meta.ChunkIndex, chunks[1].Meta.ChunkIndex)
	}
	if chunks[0].Meta.ParagraphIndex != 0 || chunks[1].Meta.ParagraphIndex != 2 {
		t.Errorf("paragraph indexes = %d, %d, want 0 and 2",
			chunks[0].Meta.ParagraphIndex, chunks[1].Meta.ParagraphIndex)
	}
}

func TestByParagraphRunningIndexAcrossSections(t *testing.T) {
	doc := strings.Join([]string{
		"# One",
		"",
		longPara,
		"",
		"# Two",
		"",
		"Another paragraph in the second section, long enough to clear the minimum size filter as well.",
	}, "\n")

	chunks := New(noContextOptions()).Segment(doc, "Vol1/ch04.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Meta.ChunkIndex != 1 {
		t.Errorf("chunk index should keep running across sections, got %d", chunks[1].Meta.ChunkIndex)
	}
	// Each section restarts its paragraph count; the header line itself is
	// paragraph 0 in both sections.
	if chunks[0].Meta.ParagraphIndex != 1 || chunks[1].Meta.ParagraphIndex != 1 {
		t.Errorf("paragraph indexes = %d, %d, want 1 and 1",
			chunks[0].Meta.ParagraphIndex, chunks[1].Meta.ParagraphIndex)
	}
	if chunks[0].Meta.SectionTitle != "One" || chunks[1].Meta.SectionTitle != "Two" {
		t.Errorf("titles = %q, %q", chunks[0].Meta.SectionTitle, chunks[1].Meta.SectionTitle)
	}
}

func TestByParagraphDeepHeadersAreNotBoundaries(t *testing.T) {
	deep := "#### A deep aside heading that stays inside the chapter instead of opening its own section."
	hashtag := "#hashtag lines are plain prose too and must not be mistaken for a section boundary here."
	doc := strings.Join([]string{
		"# Chapter Five",
		"",
		longPara,
		"",
		deep,
		"",
		hashtag,
	}, "\n")

	chunks := New(noContextOptions()).Segment(doc, "Vol1/ch07.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	// Only level 1-3 headers with a space split sections; everything stays
	// under the chapter heading.
	for i, c := range chunks {
		if c.Meta.SectionTitle != "Chapter Five" {
			t.Errorf("chunk %d title = %q, want Chapter Five", i, c.Meta.SectionTitle)
		}
	}
	if chunks[1].Content != deep {
		t.Errorf("deep header line altered: %q", chunks[1].Content)
	}
	// One section, so paragraph counting never restarts.
	if chunks[0].Meta.ParagraphIndex != 1 || chunks[1].Meta.ParagraphIndex != 2 || chunks[2].Meta.ParagraphIndex != 3 {
		t.Errorf("paragraph indexes = %d, %d, %d, want 1, 2, 3",
			chunks[0].Meta.ParagraphIndex, chunks[1].Meta.ParagraphIndex, chunks[2].Meta.ParagraphIndex)
	}
}

func TestByParagraphContextEnrichment(t *testing.T) {
	a := "Alpha paragraph with plenty of text so that it clears the minimum chunk size filter easily here."
	b := "Beta paragraph with plenty of text so that it clears the minimum chunk size filter easily here too."
	c := "Gamma paragraph with plenty of text so that it clears the minimum chunk size filter easily as well."
	doc := a + "\n\n" + b + "\n\n" + c

	chunks := New(DefaultOptions()).Segment(doc, "Vol1/ch05.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	// First chunk: only trailing context.
	if strings.Contains(chunks[0].Content, prevMarker) {
		t.Error("first chunk should not carry previous context")
	}
	if !strings.Contains(chunks[0].Content, nextMarker) {
		t.Error("first chunk should carry next context")
	}

	// Middle chunk: both sides.
	mid := chunks[1].Content
	if !strings.HasPrefix(mid, prevMarker+"...") {
		t.Errorf("middle chunk should start with previous context: %q", mid)
	}
	if !strings.HasSuffix(mid, "...") || !strings.Contains(mid, nextMarker) {
		t.Errorf("middle chunk should end with next context: %q", mid)
	}
	if !strings.Contains(mid, b) {
		t.Errorf("middle chunk lost its core text: %q", mid)
	}

	// Last chunk: only leading context.
	if strings.Contains(chunks[2].Content, nextMarker) {
		t.Error("last chunk should not carry next context")
	}
	if !strings.Contains(chunks[2].Content, prevMarker) {
		t.Error("last chunk should carry previous context")
	}

	// Enrichment never moves the recorded span.
	if chunks[1].Meta.StartLine != 3 || chunks[1].Meta.EndLine != 3 {
		t.Errorf("middle span = %d-%d, want 3-3", chunks[1].Meta.StartLine, chunks[1].Meta.EndLine)
	}
}

func TestByParagraphShortNeighborStillGivesContext(t *testing.T) {
	short := "tiny"
	long := "A properly sized paragraph that easily clears the minimum chunk size filter for this test case."
	doc := short + "\n\n" + long

	chunks := New(DefaultOptions()).Segment(doc, "Vol1/ch06.md", domain.DocChapter, ByParagraph)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	// The short paragraph is not emitted, but it is still visible as context.
	if !strings.Contains(chunks[0].Content, prevMarker+"...tiny") {
		t.Errorf("skipped neighbor should still appear as context: %q", chunks[0].Content)
	}
}

func TestEnrichBoundsContextByRunes(t *testing.T) {
	prev := strings.Repeat("é", 300)
	got := enrich("main text", []string{prev, "main text"}, 1, 200)
	if !strings.HasPrefix(got, prevMarker+"...") {
		t.Fatalf("missing prev marker: %q", got)
	}
	spliced := strings.TrimPrefix(got, prevMarker+"...")
	spliced = strings.TrimSuffix(spliced, "\n\nmain text")
	if n := len([]rune(spliced)); n != 200 {
		t.Errorf("context length = %d runes, want 200", n)
	}
}

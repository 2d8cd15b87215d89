package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lorebase/lorebase/engine/domain"
)

// paraHeaderPattern matches the section boundaries used by paragraph mode:
// level 1-3 headers at the start of a line. The mandatory whitespace keeps
// "####" from matching as "###" plus a title starting with "#", and leaves
// "#hashtag" lines as plain text.
var paraHeaderPattern = regexp.MustCompile(`^(#{1,3})\s+(.+)`)

// section is a top-level slice of a document in paragraph mode. startLine is
// 1-based.
type section struct {
	lines     []string
	startLine int
}

// paragraph is a blank-line-delimited run of lines within a section.
// startLine/endLine are 1-based inclusive.
type paragraph struct {
	text      string
	startLine int
	endLine   int
}

// splitTopSections cuts the document immediately before each level 1-3
// header. A header on the first line does not open an empty leading section.
func splitTopSections(lines []string) []section {
	var sections []section
	start := 0
	for i := 1; i < len(lines); i++ {
		if paraHeaderPattern.MatchString(lines[i]) {
			sections = append(sections, section{lines: lines[start:i], startLine: start + 1})
			start = i
		}
	}
	sections = append(sections, section{lines: lines[start:], startLine: start + 1})
	return sections
}

// splitParagraphs cuts a section into maximal runs of non-blank lines,
// tracking line positions so every paragraph carries its exact span.
func splitParagraphs(sec section) []paragraph {
	var paras []paragraph
	runStart := -1
	for i, line := range sec.lines {
		blank := strings.TrimSpace(line) == ""
		if blank {
			if runStart >= 0 {
				paras = append(paras, paragraph{
					text:      strings.Join(sec.lines[runStart:i], "\n"),
					startLine: sec.startLine + runStart,
					endLine:   sec.startLine + i - 1,
				})
				runStart = -1
			}
			continue
		}
		if runStart < 0 {
			runStart = i
		}
	}
	if runStart >= 0 {
		paras = append(paras, paragraph{
			text:      strings.Join(sec.lines[runStart:], "\n"),
			startLine: sec.startLine + runStart,
			endLine:   sec.startLine + len(sec.lines) - 1,
		})
	}
	return paras
}

func sectionTitle(sec section, idx int) string {
	for _, line := range sec.lines {
		if m := paraHeaderPattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2])
		}
		break
	}
	return fmt.Sprintf("Section %d", idx+1)
}

// byParagraph splits the document at level 1-3 headers, then each section
// into paragraphs. Paragraphs shorter than MinChunkSize are skipped but
// still serve as context for their neighbors. ChunkIndex is a running
// counter over the whole document; ParagraphIndex counts every paragraph
// (kept or skipped) within its section.
func (s *Segmenter) byParagraph(content, filePath string, fileType domain.DocType) []domain.Chunk {
	lines := strings.Split(content, "\n")

	var chunks []domain.Chunk
	for secIdx, sec := range splitTopSections(lines) {
		paras := splitParagraphs(sec)
		if len(paras) == 0 {
			continue
		}

		title := sectionTitle(sec, secIdx)
		texts := make([]string, len(paras))
		for i, p := range paras {
			texts[i] = p.text
		}

		for paraIdx, p := range paras {
			if len(strings.TrimSpace(p.text)) < s.opts.MinChunkSize {
				continue
			}

			body := strings.TrimSpace(p.text)
			if s.opts.AddContext {
				body = enrich(p.text, texts, paraIdx, s.opts.ContextChars)
			}

			index := len(chunks)
			chunks = append(chunks, domain.Chunk{
				ID:      domain.ChunkID(filePath, index, fmt.Sprintf("%s_para%d", title, paraIdx)),
				Content: body,
				Meta: domain.Metadata{
					FilePath:       filePath,
					ChunkType:      domain.ChunkParagraph,
					SectionTitle:   title,
					ChunkIndex:     index,
					ParagraphIndex: paraIdx,
					StartLine:      p.startLine,
					EndLine:        p.endLine,
					FileType:       fileType,
				},
			})
		}
	}
	return chunks
}

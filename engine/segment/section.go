package segment

import (
	"regexp"
	"strings"

	"github.com/lorebase/lorebase/engine/domain"
)

// headerPattern matches markdown headers from ## to ###### after trimming.
var headerPattern = regexp.MustCompile(`^(#{2,6})\s+(.+)$`)

// header is one scanned header line. line is 0-based.
type header struct {
	line  int
	level int
	title string
}

func scanHeaders(lines []string) []header {
	var headers []header
	for i, line := range lines {
		m := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		headers = append(headers, header{
			line:  i,
			level: len(m[1]),
			title: strings.TrimSpace(m[2]),
		})
	}
	return headers
}

// titlePath builds the hierarchical title for headers[idx] by walking up the
// nesting chain: each ancestor collected must be strictly shallower than the
// last one collected, so sibling headers are skipped.
func titlePath(headers []header, idx int) string {
	parts := []string{headers[idx].title}
	level := headers[idx].level
	for i := idx - 1; i >= 0; i-- {
		if headers[i].level < level {
			parts = append([]string{headers[i].title}, parts...)
			level = headers[i].level
		}
	}
	return strings.Join(parts, " > ")
}

// bySection emits one chunk per header. A section spans from its header line
// to the next header at the same or a shallower level, so a parent section's
// range includes its subsections, each of which is also its own chunk.
func (s *Segmenter) bySection(content, filePath string, fileType domain.DocType) []domain.Chunk {
	lines := strings.Split(content, "\n")
	headers := scanHeaders(lines)

	if len(headers) == 0 {
		return wholeDocumentChunk(content, filePath, fileType, len(lines))
	}

	var chunks []domain.Chunk
	for idx, h := range headers {
		end := len(lines)
		for _, next := range headers[idx+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}

		body := strings.TrimSpace(strings.Join(lines[h.line:end], "\n"))
		if len(body) <= s.opts.MinSectionSize {
			continue
		}

		title := titlePath(headers, idx)
		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:      domain.ChunkID(filePath, index, h.title),
			Content: body,
			Meta: domain.Metadata{
				FilePath:     filePath,
				ChunkType:    domain.ChunkSection,
				SectionTitle: title,
				SectionLevel: h.level,
				ChunkIndex:   index,
				StartLine:    h.line + 1,
				EndLine:      end,
				FileType:     fileType,
			},
		})
	}
	return chunks
}

// bySectionFlat splits only at level-2 headers. Everything up to the next
// level-2 header belongs to the current section, including deeper headers.
// Content before the first level-2 header is not emitted.
func (s *Segmenter) bySectionFlat(content, filePath string, fileType domain.DocType) []domain.Chunk {
	lines := strings.Split(content, "\n")

	var chunks []domain.Chunk
	flush := func(title string, start, end int) {
		body := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if body == "" {
			return
		}
		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:      domain.ChunkID(filePath, index, title),
			Content: body,
			Meta: domain.Metadata{
				FilePath:     filePath,
				ChunkType:    domain.ChunkSection,
				SectionTitle: title,
				SectionLevel: 2,
				ChunkIndex:   index,
				StartLine:    start + 1,
				EndLine:      end,
				FileType:     fileType,
			},
		})
	}

	title := ""
	start := 0
	open := false
	for i, line := range lines {
		if strings.HasPrefix(line, "## ") && !strings.HasPrefix(line, "### ") {
			if open {
				flush(title, start, i)
			}
			title = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			start = i
			open = true
		}
	}
	if open {
		flush(title, start, len(lines))
	}
	return chunks
}

// wholeDocumentChunk covers a headerless document with a single chunk.
func wholeDocumentChunk(content, filePath string, fileType domain.DocType, lineCount int) []domain.Chunk {
	body := strings.TrimSpace(content)
	if body == "" {
		return nil
	}
	return []domain.Chunk{{
		ID:      domain.ChunkID(filePath, 0, "document"),
		Content: body,
		Meta: domain.Metadata{
			FilePath:     filePath,
			ChunkType:    domain.ChunkDocument,
			SectionTitle: "document",
			ChunkIndex:   0,
			StartLine:    1,
			EndLine:      lineCount,
			FileType:     fileType,
		},
	}}
}

package segment

import "strings"

// Context markers wrapped around spliced neighbor text.
const (
	prevMarker = "[prev]"
	nextMarker = "[next]"
)

// enrich prepends the tail of the previous sibling paragraph and appends the
// head of the next one, each bounded to contextChars runes, so a paragraph
// read in isolation keeps local narrative continuity. Only the chunk content
// grows; line ranges in metadata keep describing the core paragraph.
func enrich(main string, siblings []string, idx int, contextChars int) string {
	result := strings.TrimSpace(main)

	if idx > 0 {
		prev := strings.TrimSpace(siblings[idx-1])
		if prev != "" {
			result = prevMarker + "..." + tailRunes(prev, contextChars) + "\n\n" + result
		}
	}
	if idx < len(siblings)-1 {
		next := strings.TrimSpace(siblings[idx+1])
		if next != "" {
			result = result + "\n\n" + nextMarker + headRunes(next, contextChars) + "..."
		}
	}
	return result
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

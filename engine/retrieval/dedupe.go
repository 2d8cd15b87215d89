package retrieval

import (
	"crypto/sha1"

	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/pkg/fn"
)

// Deduplicate drops results with identical content, keeping the first
// occurrence. Identity is a hash of the content alone: the same section
// retrieved by different sub-queries carries different scores but is still
// one result.
func Deduplicate(results []domain.SearchResult) []domain.SearchResult {
	return fn.UniqueBy(results, func(r domain.SearchResult) [sha1.Size]byte {
		return sha1.Sum([]byte(r.Content))
	})
}

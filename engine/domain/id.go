package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ChunkID derives the storage identifier for a chunk from its file path,
// document-local index, and section title. The ID is a SHA-1 UUID, so it is
// stable across runs and doubles as the Qdrant point ID: re-indexing an
// unchanged chunk is an idempotent upsert. Renaming a section or reordering
// chunks produces new IDs and orphans the old points until a forced reindex
// rebuilds the collection.
func ChunkID(filePath string, index int, title string) string {
	seed := fmt.Sprintf("%s_%d_%s", filePath, index, title)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

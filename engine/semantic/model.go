package semantic

import "github.com/lorebase/lorebase/engine/domain"

// Record is one chunk with its embedding, ready to store.
type Record struct {
	Chunk  domain.Chunk
	Vector []float32
}

// Hit is a single similarity search result. Distance is 1 - cosine
// similarity, so lower means closer.
type Hit struct {
	Content  string
	Meta     domain.Metadata
	Distance float64
}

package knowledge

import (
	"time"

	"github.com/medichat/medichat/internal/document"
)

// Result is a single retrieval hit.
type Result struct {
	Chunk      document.Chunk
	Similarity float32 // cosine similarity, 0-1
}

// DocumentInfo summarizes one indexed document for listing.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ChunkCount int64     `json:"chunk_count"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// SearchOption configures retrieval using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int32
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = int32(k)
		}
	}
}

// WithTimeout bounds the embed-and-search round trip. Default is 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

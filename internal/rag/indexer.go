package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medichat/medichat/internal/document"
)

// ChunkStore is the slice of the knowledge store the indexer needs.
type ChunkStore interface {
	AddChunks(ctx context.Context, chunks []document.Chunk) error
}

// IndexReport describes the outcome of indexing one file.
type IndexReport struct {
	Document *document.Document `json:"document"`
	Chunks   int                `json:"chunks"`
}

// Indexer runs the ingestion pipeline: extract text, chunk it, embed
// and store the chunks.
type Indexer struct {
	extractor document.Extractor
	chunker   *document.Chunker
	store     ChunkStore
	logger    *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(extractor document.Extractor, chunker *document.Chunker, store ChunkStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		extractor: extractor,
		chunker:   chunker,
		store:     store,
		logger:    logger,
	}
}

// Index ingests one uploaded file. Errors identify the failing stage so
// a multi-file upload can report per-file outcomes.
func (ix *Indexer) Index(ctx context.Context, data []byte, filename string) (*IndexReport, error) {
	text, pages, err := ix.extractor.Extract(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("extracting %q: %w", filename, err)
	}

	doc := document.NewDocument(filename, text, pages)
	chunks, err := ix.chunker.Split(doc)
	if err != nil {
		return nil, err
	}

	if err := ix.store.AddChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("indexing %q: %w", filename, err)
	}

	ix.logger.Info("indexed document",
		"document_id", doc.ID,
		"name", doc.Name,
		"pages", doc.Pages,
		"chunks", len(chunks))

	return &IndexReport{Document: doc, Chunks: len(chunks)}, nil
}

// Package knowledge stores document chunks with vector search on top of
// PostgreSQL and pgvector. Embeddings are generated through genkit's
// ai.Embedder, so the same Store works with Gemini, Ollama, or OpenAI
// embedding models.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/medichat/medichat/internal/document"
	"github.com/medichat/medichat/internal/sqlc"
)

// embedConcurrency caps parallel embedding calls during indexing so a
// large upload does not exhaust provider rate limits.
const embedConcurrency = 4

// Querier is the database surface Store needs. Defined here, on the
// consumer side, so tests can substitute a mock for the sqlc-generated
// implementation.
type Querier interface {
	UpsertChunk(ctx context.Context, arg sqlc.UpsertChunkParams) error
	SearchChunks(ctx context.Context, arg sqlc.SearchChunksParams) ([]sqlc.SearchChunksRow, error)
	CountChunks(ctx context.Context) (int64, error)
	ListIndexedDocuments(ctx context.Context) ([]sqlc.ListIndexedDocumentsRow, error)
	DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error)
}

// Store indexes document chunks and answers similarity searches.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store.
//
//	store := knowledge.New(sqlc.New(pool), embedder, logger)
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// AddChunks embeds and upserts all chunks of a document. Chunk IDs are
// deterministic, so re-indexing the same document replaces its previous
// rows. Embedding calls run in parallel, bounded by embedConcurrency;
// the first failure cancels the rest.
func (s *Store) AddChunks(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for _, chunk := range chunks {
		g.Go(func() error {
			embedding, err := s.embed(gctx, chunk.Content)
			if err != nil {
				return fmt.Errorf("chunk %d of %q: %w", chunk.Index, chunk.DocumentName, err)
			}
			if err := s.queries.UpsertChunk(gctx, sqlc.UpsertChunkParams{
				ID:           chunk.ID,
				DocumentID:   chunk.DocumentID,
				DocumentName: chunk.DocumentName,
				ChunkIndex:   int32(chunk.Index),
				Content:      chunk.Content,
				CharOffset:   int32(chunk.Offset),
				Embedding:    embedding,
			}); err != nil {
				return fmt.Errorf("storing chunk %d of %q: %w", chunk.Index, chunk.DocumentName, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Debug("indexed document",
		"document_id", chunks[0].DocumentID,
		"document_name", chunks[0].DocumentName,
		"chunks", len(chunks))
	return nil
}

// Search returns the chunks most similar to the query, best first.
// An empty index yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(queryCtx, sqlc.SearchChunksParams{
		QueryEmbedding: embedding,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Chunk: document.Chunk{
				ID:           row.ID,
				DocumentID:   row.DocumentID,
				DocumentName: row.DocumentName,
				Index:        int(row.ChunkIndex),
				Content:      row.Content,
				Offset:       int(row.CharOffset),
			},
			Similarity: float32(row.Similarity),
		})
	}
	return results, nil
}

// Count returns the total number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	// Overflow guard for 32-bit platforms.
	if count > math.MaxInt {
		return 0, fmt.Errorf("chunk count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// ListDocuments lists all indexed documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.queries.ListIndexedDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentInfo, 0, len(rows))
	for _, row := range rows {
		info := DocumentInfo{
			ID:         row.DocumentID,
			Name:       row.DocumentName,
			ChunkCount: row.ChunkCount,
		}
		if row.IndexedAt.Valid {
			info.IndexedAt = row.IndexedAt.Time
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DeleteDocument removes every chunk of a document and reports how many
// rows were deleted.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	deleted, err := s.queries.DeleteChunksByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting document %q: %w", documentID, err)
	}
	s.logger.Debug("deleted document", "document_id", documentID, "chunks", deleted)
	return deleted, nil
}

// embed generates one embedding vector for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned empty embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

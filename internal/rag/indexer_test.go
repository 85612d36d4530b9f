package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medichat/medichat/internal/document"
)

type stubExtractor struct {
	text  string
	pages int
	err   error
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte, filename string) (string, int, error) {
	return s.text, s.pages, s.err
}

type stubChunkStore struct {
	chunks []document.Chunk
	err    error
}

func (s *stubChunkStore) AddChunks(ctx context.Context, chunks []document.Chunk) error {
	if s.err != nil {
		return s.err
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func newTestIndexer(t *testing.T, extractor document.Extractor, store ChunkStore) *Indexer {
	t.Helper()
	chunker, err := document.NewChunker(200, 40)
	require.NoError(t, err)
	return NewIndexer(extractor, chunker, store, nil)
}

func TestIndexPipeline(t *testing.T) {
	text := strings.Repeat("Beta blockers reduce heart rate and blood pressure. ", 20)
	store := &stubChunkStore{}
	ix := newTestIndexer(t, &stubExtractor{text: text, pages: 3}, store)

	report, err := ix.Index(context.Background(), []byte("%PDF-1.7"), "cardio.pdf")
	require.NoError(t, err)

	assert.Equal(t, "cardio.pdf", report.Document.Name)
	assert.Equal(t, 3, report.Document.Pages)
	assert.Greater(t, report.Chunks, 1)
	assert.Len(t, store.chunks, report.Chunks)

	for _, ch := range store.chunks {
		assert.Equal(t, report.Document.ID, ch.DocumentID)
		assert.Equal(t, "cardio.pdf", ch.DocumentName)
	}
}

func TestIndexExtractionFailure(t *testing.T) {
	ix := newTestIndexer(t, &stubExtractor{err: document.ErrExtraction}, &stubChunkStore{})

	_, err := ix.Index(context.Background(), []byte("junk"), "broken.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrExtraction)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestIndexEmptyText(t *testing.T) {
	ix := newTestIndexer(t, &stubExtractor{text: "   "}, &stubChunkStore{})

	_, err := ix.Index(context.Background(), []byte("%PDF-1.7"), "scanned.pdf")
	assert.ErrorIs(t, err, document.ErrNoText)
}

func TestIndexStoreFailure(t *testing.T) {
	store := &stubChunkStore{err: errors.New("db down")}
	ix := newTestIndexer(t, &stubExtractor{text: "Aspirin inhibits platelet aggregation."}, store)

	_, err := ix.Index(context.Background(), []byte("%PDF-1.7"), "aspirin.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medichat/medichat/internal/document"
	"github.com/medichat/medichat/internal/sqlc"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	mu          sync.Mutex
	delay       time.Duration
	embedErr    error
	returnEmpty bool
	embeddings  []float32
	callCount   int
	lastInput   string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.mu.Lock()
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInput = req.Input[0].Content[0].Text
	}
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}
	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: embeddings}}}, nil
}

func (m *mockEmbedder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	mu sync.Mutex

	upsertErr error
	searchErr error
	countErr  error
	listErr   error
	deleteErr error

	searchResults []sqlc.SearchChunksRow
	countResult   int64
	listResults   []sqlc.ListIndexedDocumentsRow
	deleteResult  int64

	upserted []sqlc.UpsertChunkParams
}

func (m *mockQuerier) UpsertChunk(ctx context.Context, arg sqlc.UpsertChunkParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, arg)
	return nil
}

func (m *mockQuerier) SearchChunks(ctx context.Context, arg sqlc.SearchChunksParams) ([]sqlc.SearchChunksRow, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if int32(len(m.searchResults)) > arg.ResultLimit {
		return m.searchResults[:arg.ResultLimit], nil
	}
	return m.searchResults, nil
}

func (m *mockQuerier) CountChunks(ctx context.Context) (int64, error) {
	return m.countResult, m.countErr
}

func (m *mockQuerier) ListIndexedDocuments(ctx context.Context) ([]sqlc.ListIndexedDocumentsRow, error) {
	return m.listResults, m.listErr
}

func (m *mockQuerier) DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	return m.deleteResult, m.deleteErr
}

func testChunks(n int) []document.Chunk {
	doc := document.NewDocument("guide.pdf", "", 1)
	chunks := make([]document.Chunk, n)
	for i := range chunks {
		chunks[i] = document.Chunk{
			ID:           doc.ID + "-" + string(rune('a'+i)),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Index:        i,
			Content:      "chunk content",
			Offset:       i * 10,
		}
	}
	return chunks
}

func TestAddChunksEmbedsAndStoresAll(t *testing.T) {
	embedder := &mockEmbedder{}
	querier := &mockQuerier{}
	store := New(querier, embedder, nil)

	err := store.AddChunks(context.Background(), testChunks(7))
	require.NoError(t, err)

	assert.Equal(t, 7, embedder.calls())
	assert.Len(t, querier.upserted, 7)
}

func TestAddChunksEmptyInput(t *testing.T) {
	embedder := &mockEmbedder{}
	store := New(&mockQuerier{}, embedder, nil)

	require.NoError(t, store.AddChunks(context.Background(), nil))
	assert.Zero(t, embedder.calls(), "no chunks means no embedding calls")
}

func TestAddChunksEmbeddingFailure(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("quota exceeded")}
	store := New(&mockQuerier{}, embedder, nil)

	err := store.AddChunks(context.Background(), testChunks(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAddChunksUpsertFailure(t *testing.T) {
	querier := &mockQuerier{upsertErr: errors.New("connection reset")}
	store := New(querier, &mockEmbedder{}, nil)

	err := store.AddChunks(context.Background(), testChunks(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "what is hypertension")
	require.NoError(t, err)
	assert.Empty(t, results, "empty index is not an error")
}

func TestSearchMapsRowsToResults(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []sqlc.SearchChunksRow{
			{ID: "c1", DocumentID: "d1", DocumentName: "guide.pdf", ChunkIndex: 0, Content: "insulin dosing", Similarity: 0.93},
			{ID: "c2", DocumentID: "d1", DocumentName: "guide.pdf", ChunkIndex: 4, Content: "storage", Similarity: 0.71},
		},
	}
	store := New(querier, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "insulin")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "insulin dosing", results[0].Chunk.Content)
	assert.Equal(t, "guide.pdf", results[0].Chunk.DocumentName)
	assert.InDelta(t, 0.93, results[0].Similarity, 1e-6)
	assert.Equal(t, 4, results[1].Chunk.Index)
}

func TestSearchRespectsTopK(t *testing.T) {
	rows := make([]sqlc.SearchChunksRow, 10)
	for i := range rows {
		rows[i] = sqlc.SearchChunksRow{ID: "c", Content: "x"}
	}
	store := New(&mockQuerier{searchResults: rows}, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "q", WithTopK(3))
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchEmbedderFailure(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("service unavailable")}
	store := New(&mockQuerier{}, embedder, nil)

	_, err := store.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding query")
}

func TestSearchEmptyEmbedding(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, nil)

	_, err := store.Search(context.Background(), "q")
	require.Error(t, err)
}

func TestSearchTimeout(t *testing.T) {
	embedder := &mockEmbedder{delay: 200 * time.Millisecond}
	store := New(&mockQuerier{}, embedder, nil)

	_, err := store.Search(context.Background(), "q", WithTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCount(t *testing.T) {
	store := New(&mockQuerier{countResult: 42}, &mockEmbedder{}, nil)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDeleteDocument(t *testing.T) {
	store := New(&mockQuerier{deleteResult: 12}, &mockEmbedder{}, nil)

	deleted, err := store.DeleteDocument(context.Background(), "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 12, deleted)
}

package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medichat/medichat/internal/rag"
	"github.com/medichat/medichat/internal/sqlc"
)

type mockSessionQuerier struct {
	sessions map[pgtype.UUID]sqlc.Session
	messages []sqlc.SessionMessage

	addMessageErr error
	touchCalls    int
}

func newMockSessionQuerier() *mockSessionQuerier {
	return &mockSessionQuerier{sessions: map[pgtype.UUID]sqlc.Session{}}
}

func (m *mockSessionQuerier) CreateSession(ctx context.Context, arg sqlc.CreateSessionParams) (sqlc.Session, error) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	row := sqlc.Session{ID: id, Title: arg.Title, ModelName: arg.ModelName}
	m.sessions[id] = row
	return row, nil
}

func (m *mockSessionQuerier) GetSession(ctx context.Context, id pgtype.UUID) (sqlc.Session, error) {
	row, ok := m.sessions[id]
	if !ok {
		return sqlc.Session{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *mockSessionQuerier) ListSessions(ctx context.Context, resultLimit int32) ([]sqlc.Session, error) {
	var out []sqlc.Session
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSessionQuerier) DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error) {
	if _, ok := m.sessions[id]; !ok {
		return 0, nil
	}
	delete(m.sessions, id)
	return 1, nil
}

func (m *mockSessionQuerier) SetSessionTitle(ctx context.Context, arg sqlc.SetSessionTitleParams) error {
	row, ok := m.sessions[arg.ID]
	if !ok {
		return nil
	}
	row.Title = arg.Title
	m.sessions[arg.ID] = row
	return nil
}

func (m *mockSessionQuerier) TouchSession(ctx context.Context, arg sqlc.TouchSessionParams) error {
	m.touchCalls++
	return nil
}

func (m *mockSessionQuerier) AddMessage(ctx context.Context, arg sqlc.AddMessageParams) (sqlc.SessionMessage, error) {
	if m.addMessageErr != nil {
		return sqlc.SessionMessage{}, m.addMessageErr
	}
	row := sqlc.SessionMessage{
		ID:             pgtype.UUID{Bytes: uuid.New(), Valid: true},
		SessionID:      arg.SessionID,
		Role:           arg.Role,
		Content:        arg.Content,
		Citations:      arg.Citations,
		SequenceNumber: arg.SequenceNumber,
	}
	m.messages = append(m.messages, row)
	return row, nil
}

func (m *mockSessionQuerier) GetMessages(ctx context.Context, sessionID pgtype.UUID) ([]sqlc.SessionMessage, error) {
	var out []sqlc.SessionMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockSessionQuerier) GetRecentMessages(ctx context.Context, arg sqlc.GetRecentMessagesParams) ([]sqlc.SessionMessage, error) {
	all, _ := m.GetMessages(ctx, arg.SessionID)
	if int32(len(all)) > arg.ResultLimit {
		all = all[int32(len(all))-arg.ResultLimit:]
	}
	return all, nil
}

func (m *mockSessionQuerier) GetMaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error) {
	var max int32
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.SequenceNumber > max {
			max = msg.SequenceNumber
		}
	}
	return max, nil
}

func (m *mockSessionQuerier) DeleteMessagesBySession(ctx context.Context, sessionID pgtype.UUID) (int64, error) {
	var kept []sqlc.SessionMessage
	var deleted int64
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return deleted, nil
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	sess, err := store.Create(context.Background(), "my chat", "gemini-2.5-flash")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	loaded, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "my chat", loaded.Title)
	assert.Equal(t, "gemini-2.5-flash", loaded.ModelName)
}

func TestStoreGetUnknownSession(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	_, err := store.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGetMalformedID(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	_, err := store.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDeleteUnknownSession(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	err := store.Delete(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAppendAssignsSequence(t *testing.T) {
	querier := newMockSessionQuerier()
	store := NewStore(querier, nil)

	sess, err := store.Create(context.Background(), "", "")
	require.NoError(t, err)

	first, err := store.AppendMessage(context.Background(), sess.ID, Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, err)
	second, err := store.AppendMessage(context.Background(), sess.ID, Message{Role: RoleAssistant, Content: "hi"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, 2, querier.touchCalls)
}

func TestStoreCitationsRoundTrip(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	sess, err := store.Create(context.Background(), "", "")
	require.NoError(t, err)

	citations := []rag.Citation{
		{DocumentID: "d1", DocumentName: "guide.pdf", ChunkIndex: 3, Excerpt: "Insulin..."},
	}
	_, err = store.AppendMessage(context.Background(), sess.ID, Message{
		Role: RoleAssistant, Content: "answer", Citations: citations,
	})
	require.NoError(t, err)

	msgs, err := store.Messages(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, citations, msgs[0].Citations)
}

func TestStoreRecentWindow(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	sess, err := store.Create(context.Background(), "", "")
	require.NoError(t, err)

	for i := range 30 {
		_, err := store.AppendMessage(context.Background(), sess.ID, Message{
			Role: RoleUser, Content: string(rune('a' + i%26)),
		})
		require.NoError(t, err)
	}

	recent, err := store.Recent(context.Background(), sess.ID, 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)

	// The window holds the last 20 turns in order.
	assert.Equal(t, 11, recent[0].Sequence)
	assert.Equal(t, 30, recent[19].Sequence)
}

func TestStoreClearMessages(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	sess, err := store.Create(context.Background(), "", "")
	require.NoError(t, err)

	_, err = store.AppendMessage(context.Background(), sess.ID, Message{Role: RoleUser, Content: "x"})
	require.NoError(t, err)

	deleted, err := store.ClearMessages(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	msgs, err := store.Messages(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStoreSummary(t *testing.T) {
	store := NewStore(newMockSessionQuerier(), nil)

	sess, err := store.Create(context.Background(), "lipids", "")
	require.NoError(t, err)

	_, err = store.AppendMessage(context.Background(), sess.ID, Message{Role: RoleUser, Content: "statins?"})
	require.NoError(t, err)
	_, err = store.AppendMessage(context.Background(), sess.ID, Message{
		Role: RoleAssistant, Content: "statins lower...",
		Citations: []rag.Citation{{DocumentName: "lipids.pdf"}},
	})
	require.NoError(t, err)

	sum, err := store.Summary(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.MessageCount)
	assert.Equal(t, []string{"lipids.pdf"}, sum.CitedDocuments)
}

// Stored citations must be valid JSON so other consumers can read them.
func TestCitationsStoredAsJSON(t *testing.T) {
	querier := newMockSessionQuerier()
	store := NewStore(querier, nil)

	sess, err := store.Create(context.Background(), "", "")
	require.NoError(t, err)

	_, err = store.AppendMessage(context.Background(), sess.ID, Message{
		Role: RoleAssistant, Content: "a",
		Citations: []rag.Citation{{DocumentID: "d1", ChunkIndex: 1}},
	})
	require.NoError(t, err)

	require.Len(t, querier.messages, 1)
	var parsed []rag.Citation
	require.NoError(t, json.Unmarshal(querier.messages[0].Citations, &parsed))
	assert.Equal(t, "d1", parsed[0].DocumentID)
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/medichat/medichat/internal/rag"
	"github.com/medichat/medichat/internal/sqlc"
)

// Querier is the database surface Store needs, defined on the consumer
// side so tests can mock it.
type Querier interface {
	CreateSession(ctx context.Context, arg sqlc.CreateSessionParams) (sqlc.Session, error)
	GetSession(ctx context.Context, id pgtype.UUID) (sqlc.Session, error)
	ListSessions(ctx context.Context, resultLimit int32) ([]sqlc.Session, error)
	DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error)
	SetSessionTitle(ctx context.Context, arg sqlc.SetSessionTitleParams) error
	TouchSession(ctx context.Context, arg sqlc.TouchSessionParams) error
	AddMessage(ctx context.Context, arg sqlc.AddMessageParams) (sqlc.SessionMessage, error)
	GetMessages(ctx context.Context, sessionID pgtype.UUID) ([]sqlc.SessionMessage, error)
	GetRecentMessages(ctx context.Context, arg sqlc.GetRecentMessagesParams) ([]sqlc.SessionMessage, error)
	GetMaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error)
	DeleteMessagesBySession(ctx context.Context, sessionID pgtype.UUID) (int64, error)
}

// Store persists sessions and their messages in Postgres.
// Safe for concurrent use.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// NewStore creates a Store.
func NewStore(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, logger: logger}
}

// Create starts a new session.
func (s *Store) Create(ctx context.Context, title, modelName string) (Session, error) {
	row, err := s.queries.CreateSession(ctx, sqlc.CreateSessionParams{
		Title:     pgtype.Text{String: title, Valid: title != ""},
		ModelName: pgtype.Text{String: modelName, Valid: modelName != ""},
	})
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	sess := toSession(row)
	s.logger.Debug("created session", "session_id", sess.ID)
	return sess, nil
}

// Get loads session metadata. Returns ErrNotFound for unknown IDs.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	pgID, err := parseID(id)
	if err != nil {
		return Session{}, err
	}
	row, err := s.queries.GetSession(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		return Session{}, fmt.Errorf("loading session %q: %w", id, err)
	}
	return toSession(row), nil
}

// List returns the most recently active sessions.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.queries.ListSessions(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, toSession(row))
	}
	return sessions, nil
}

// Delete removes a session and, via cascade, its messages. Returns
// ErrNotFound when the session does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	pgID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.queries.DeleteSession(ctx, pgID)
	if err != nil {
		return fmt.Errorf("deleting session %q: %w", id, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	s.logger.Debug("deleted session", "session_id", id)
	return nil
}

// SetTitle updates a session's title.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	pgID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.queries.SetSessionTitle(ctx, sqlc.SetSessionTitleParams{
		ID:    pgID,
		Title: pgtype.Text{String: title, Valid: title != ""},
	}); err != nil {
		return fmt.Errorf("setting title for session %q: %w", id, err)
	}
	return nil
}

// AppendMessage persists one conversation turn, assigning the next
// sequence number.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) (Message, error) {
	pgID, err := parseID(sessionID)
	if err != nil {
		return Message{}, err
	}

	maxSeq, err := s.queries.GetMaxSequenceNumber(ctx, pgID)
	if err != nil {
		return Message{}, fmt.Errorf("reading sequence for session %q: %w", sessionID, err)
	}

	var citations []byte
	if len(msg.Citations) > 0 {
		citations, err = json.Marshal(msg.Citations)
		if err != nil {
			return Message{}, fmt.Errorf("marshaling citations: %w", err)
		}
	}

	row, err := s.queries.AddMessage(ctx, sqlc.AddMessageParams{
		SessionID:      pgID,
		Role:           msg.Role,
		Content:        msg.Content,
		Citations:      citations,
		SequenceNumber: maxSeq + 1,
	})
	if err != nil {
		return Message{}, fmt.Errorf("appending message to session %q: %w", sessionID, err)
	}

	if err := s.queries.TouchSession(ctx, sqlc.TouchSessionParams{ID: pgID, Added: 1}); err != nil {
		// The message is stored; stale metadata is tolerable.
		s.logger.Warn("failed to touch session", "session_id", sessionID, "error", err)
	}

	return toMessage(row, s.logger), nil
}

// Messages loads the full conversation in sequence order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	pgID, err := parseID(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.GetMessages(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("loading messages for session %q: %w", sessionID, err)
	}
	return toMessages(rows, s.logger), nil
}

// Recent loads the last limit messages in sequence order, for rebuilding
// the conversation window.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	pgID, err := parseID(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.GetRecentMessages(ctx, sqlc.GetRecentMessagesParams{
		SessionID:   pgID,
		ResultLimit: int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent messages for session %q: %w", sessionID, err)
	}
	return toMessages(rows, s.logger), nil
}

// ClearMessages deletes a session's messages but keeps the session.
func (s *Store) ClearMessages(ctx context.Context, sessionID string) (int64, error) {
	pgID, err := parseID(sessionID)
	if err != nil {
		return 0, err
	}
	deleted, err := s.queries.DeleteMessagesBySession(ctx, pgID)
	if err != nil {
		return 0, fmt.Errorf("clearing session %q: %w", sessionID, err)
	}
	return deleted, nil
}

// Summary loads a session and computes its summary.
func (s *Store) Summary(ctx context.Context, sessionID string) (Summary, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	messages, err := s.Messages(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(sess, messages), nil
}

func parseID(id string) (pgtype.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid session id %q: %w", id, ErrNotFound)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func toSession(row sqlc.Session) Session {
	sess := Session{
		ID:           uuid.UUID(row.ID.Bytes).String(),
		MessageCount: int(row.MessageCount),
	}
	if row.Title.Valid {
		sess.Title = row.Title.String
	}
	if row.ModelName.Valid {
		sess.ModelName = row.ModelName.String
	}
	if row.CreatedAt.Valid {
		sess.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		sess.UpdatedAt = row.UpdatedAt.Time
	}
	return sess
}

func toMessage(row sqlc.SessionMessage, logger *slog.Logger) Message {
	msg := Message{
		ID:       uuid.UUID(row.ID.Bytes).String(),
		Role:     row.Role,
		Content:  row.Content,
		Sequence: int(row.SequenceNumber),
	}
	if row.CreatedAt.Valid {
		msg.CreatedAt = row.CreatedAt.Time
	}
	if len(row.Citations) > 0 {
		var citations []rag.Citation
		if err := json.Unmarshal(row.Citations, &citations); err != nil {
			logger.Warn("failed to parse stored citations", "message_id", msg.ID, "error", err)
		} else {
			msg.Citations = citations
		}
	}
	return msg
}

func toMessages(rows []sqlc.SessionMessage, logger *slog.Logger) []Message {
	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row, logger))
	}
	return messages
}

// Package session tracks conversations: an in-memory FIFO window used
// for prompt context, and a Postgres store for durable history.
package session

import (
	"errors"
	"time"

	"github.com/medichat/medichat/internal/rag"
)

// Message roles. Only user and assistant turns are persisted; system
// prompts are rebuilt per request.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotFound indicates the session does not exist.
var ErrNotFound = errors.New("session not found")

// DefaultHistoryLimit caps how many messages the conversation window
// retains for prompt context.
const DefaultHistoryLimit = 20

// Message is one conversation turn.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Citations []rag.Citation `json:"citations,omitempty"`
	Sequence  int            `json:"sequence"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is conversation metadata.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	ModelName    string    `json:"model_name,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary condenses a conversation for listing and export.
type Summary struct {
	SessionID         string    `json:"session_id"`
	Title             string    `json:"title,omitempty"`
	MessageCount      int       `json:"message_count"`
	UserMessages      int       `json:"user_messages"`
	AssistantMessages int       `json:"assistant_messages"`
	CitedDocuments    []string  `json:"cited_documents,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}

// Summarize computes a Summary from a session and its full message
// list.
func Summarize(s Session, messages []Message) Summary {
	sum := Summary{
		SessionID:    s.ID,
		Title:        s.Title,
		MessageCount: len(messages),
		StartedAt:    s.CreatedAt,
	}

	seen := map[string]struct{}{}
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			sum.UserMessages++
		case RoleAssistant:
			sum.AssistantMessages++
		}
		for _, c := range m.Citations {
			if _, ok := seen[c.DocumentName]; !ok {
				seen[c.DocumentName] = struct{}{}
				sum.CitedDocuments = append(sum.CitedDocuments, c.DocumentName)
			}
		}
		if m.CreatedAt.After(sum.LastActivityAt) {
			sum.LastActivityAt = m.CreatedAt
		}
	}
	if sum.LastActivityAt.IsZero() {
		sum.LastActivityAt = s.UpdatedAt
	}
	return sum
}

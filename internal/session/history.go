package session

import "sync"

// History is the bounded conversation window used for prompt context.
// It keeps at most limit messages and evicts the oldest first. Safe for
// concurrent use.
type History struct {
	mu       sync.Mutex
	limit    int
	messages []Message
}

// NewHistory creates a window holding at most limit messages. A
// non-positive limit falls back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append adds a message, evicting the oldest when the window is full.
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if len(h.messages) > h.limit {
		// Shift instead of re-slicing so evicted messages are freed.
		copy(h.messages, h.messages[len(h.messages)-h.limit:])
		h.messages = h.messages[:h.limit]
	}
}

// Messages returns the window contents in arrival order.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports the number of retained messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Limit reports the window capacity.
func (h *History) Limit() int {
	return h.limit
}

// Clear drops every retained message.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

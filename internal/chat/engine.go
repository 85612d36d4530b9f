// Package chat orchestrates a conversation turn: route the query,
// retrieve document context when needed, compose the prompt, call the
// model, and persist both sides of the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/medichat/medichat/internal/knowledge"
	"github.com/medichat/medichat/internal/rag"
	"github.com/medichat/medichat/internal/router"
	"github.com/medichat/medichat/internal/session"
)

const (
	// DefaultMaxQueryLength bounds user input after trimming.
	DefaultMaxQueryLength = 2000

	// fallbackResponseMessage is returned when the model produces an
	// empty response.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

	titleGenerationTimeout = 5 * time.Second
	titleMaxLength         = 80
)

// Sentinel errors for engine operations.
var (
	// ErrInvalidQuery indicates empty or oversized user input.
	ErrInvalidQuery = errors.New("invalid query")
)

// StreamCallback receives each chunk of a streaming response. Returning
// an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Retriever is the slice of the knowledge store the engine needs.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	Count(ctx context.Context) (int, error)
}

// SessionStore is the slice of the session store the engine needs.
type SessionStore interface {
	Get(ctx context.Context, id string) (session.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg session.Message) (session.Message, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]session.Message, error)
	SetTitle(ctx context.Context, id, title string) error
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	SessionID string                `json:"session_id"`
	Answer    string                `json:"answer"`
	Citations []rag.Citation        `json:"citations,omitempty"`
	Route     router.Classification `json:"route"`
}

// Config carries the engine's dependencies and tuning.
type Config struct {
	Genkit    *genkit.Genkit
	Knowledge Retriever
	Sessions  SessionStore
	Composer  *rag.Composer
	Logger    *slog.Logger

	// ModelName is provider-qualified, e.g. "googleai/gemini-2.5-flash".
	ModelName   string
	Temperature float32
	MaxTokens   int

	TopK           int
	HistoryLimit   int
	MaxQueryLength int

	RetryConfig RetryConfig
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge retriever is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Composer == nil {
		return errors.New("composer is required")
	}
	return nil
}

// Engine answers user queries. It is stateless across requests and safe
// for concurrent use.
type Engine struct {
	g        *genkit.Genkit
	store    Retriever
	sessions SessionStore
	composer *rag.Composer
	logger   *slog.Logger

	modelName   string
	temperature float32
	maxTokens   int

	topK           int
	historyLimit   int
	maxQueryLength int

	retryConfig RetryConfig
	rateLimiter *rate.Limiter

	// windows holds each session's bounded conversation window, seeded
	// from the store on first use and appended to as turns complete.
	windowMu sync.Mutex
	windows  map[string]*session.History

	// generate is genkit.Generate behind a seam so tests can fake the
	// model without a provider.
	generate func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = session.DefaultHistoryLimit
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = DefaultMaxQueryLength
	}
	// MaxRetries of 0 with intervals set means "no retries"; only a fully
	// zero config falls back to the defaults.
	if cfg.RetryConfig == (RetryConfig{}) {
		cfg.RetryConfig = DefaultRetryConfig()
	}
	if cfg.RateLimiter == nil {
		// 10 req/s sustained, burst of 30.
		cfg.RateLimiter = rate.NewLimiter(10, 30)
	}

	e := &Engine{
		g:              cfg.Genkit,
		store:          cfg.Knowledge,
		sessions:       cfg.Sessions,
		composer:       cfg.Composer,
		logger:         cfg.Logger,
		modelName:      cfg.ModelName,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		topK:           cfg.TopK,
		historyLimit:   cfg.HistoryLimit,
		maxQueryLength: cfg.MaxQueryLength,
		retryConfig:    cfg.RetryConfig,
		rateLimiter:    cfg.RateLimiter,
		windows:        make(map[string]*session.History),
	}
	e.generate = func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, e.g, opts...)
	}

	e.logger.Info("chat engine initialized", "model", e.modelName, "top_k", e.topK)
	return e, nil
}

// Respond answers one query without streaming.
func (e *Engine) Respond(ctx context.Context, sessionID, query string) (*Reply, error) {
	return e.RespondStream(ctx, sessionID, query, nil)
}

// RespondStream answers one query, forwarding chunks to callback as the
// model produces them. Canned replies (greetings, farewells,
// clarifications) are delivered as a single chunk.
func (e *Engine) RespondStream(ctx context.Context, sessionID, query string, callback StreamCallback) (*Reply, error) {
	q, err := e.sanitize(query)
	if err != nil {
		return nil, err
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	docsAvailable := e.documentsAvailable(ctx)
	route := router.Classify(q, docsAvailable)

	e.logger.Debug("routed query",
		"session_id", sessionID,
		"route", route,
		"docs_available", docsAvailable,
		"query_length", len(q))

	var reply *Reply
	switch route {
	case router.Greeting:
		reply = e.canned(route, sessionID, rag.GreetingMessage())
	case router.Farewell:
		reply = e.canned(route, sessionID, rag.FarewellMessage())
	case router.Ambiguous:
		reply = e.canned(route, sessionID, rag.ClarificationMessage())
	case router.DocumentQuery:
		reply, err = e.answerFromDocuments(ctx, sessionID, q, callback)
	default:
		reply, err = e.answerFromGeneralKnowledge(ctx, sessionID, q, callback)
	}
	if err != nil {
		return nil, err
	}

	// Canned replies reach the stream as one chunk.
	if callback != nil && (route == router.Greeting || route == router.Farewell || route == router.Ambiguous) {
		chunk := &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(reply.Answer)}}
		if cbErr := callback(ctx, chunk); cbErr != nil {
			return nil, fmt.Errorf("stream callback: %w", cbErr)
		}
	}

	e.persistTurn(ctx, sessionID, q, reply)
	e.maybeGenerateTitle(ctx, sess, q)

	return reply, nil
}

// sanitize trims and bounds user input.
func (e *Engine) sanitize(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if len(q) > e.maxQueryLength {
		return "", fmt.Errorf("%w: query exceeds %d characters", ErrInvalidQuery, e.maxQueryLength)
	}
	return q, nil
}

// documentsAvailable checks whether anything is indexed. A failed count
// is treated as no documents so the router falls back to general
// knowledge instead of failing the turn.
func (e *Engine) documentsAvailable(ctx context.Context) bool {
	count, err := e.store.Count(ctx)
	if err != nil {
		e.logger.Warn("counting indexed chunks failed", "error", err)
		return false
	}
	return count > 0
}

func (e *Engine) canned(route router.Classification, sessionID, answer string) *Reply {
	return &Reply{SessionID: sessionID, Answer: answer, Route: route}
}

// answerFromDocuments retrieves context and generates a grounded
// answer. Retrieval failures degrade to a canned reply rather than an
// error; generation failures are surfaced wrapped in rag.ErrCompletion.
func (e *Engine) answerFromDocuments(ctx context.Context, sessionID, query string, callback StreamCallback) (*Reply, error) {
	results, err := e.store.Search(ctx, query, knowledge.WithTopK(e.topK))
	if err != nil {
		e.logger.Error("retrieval failed, degrading to canned reply",
			"session_id", sessionID, "error", fmt.Errorf("%w: %w", rag.ErrEmbedding, err))
		return &Reply{
			SessionID: sessionID,
			Answer:    rag.DegradedMessage,
			Route:     router.DocumentQuery,
		}, nil
	}

	if len(results) == 0 {
		return &Reply{
			SessionID: sessionID,
			Answer:    rag.NoAnswerMessage,
			Route:     router.DocumentQuery,
		}, nil
	}

	prompt, used := e.composer.DocumentPrompt(results)
	answer, err := e.generateAnswer(ctx, sessionID, prompt, query, callback)
	if err != nil {
		return nil, err
	}

	return &Reply{
		SessionID: sessionID,
		Answer:    answer,
		Citations: rag.Citations(used),
		Route:     router.DocumentQuery,
	}, nil
}

func (e *Engine) answerFromGeneralKnowledge(ctx context.Context, sessionID, query string, callback StreamCallback) (*Reply, error) {
	answer, err := e.generateAnswer(ctx, sessionID, e.composer.GeneralPrompt(), query, callback)
	if err != nil {
		return nil, err
	}
	return &Reply{
		SessionID: sessionID,
		Answer:    answer,
		Route:     router.GeneralQuery,
	}, nil
}

// window returns the session's conversation window, seeding it from
// the store the first time a session is seen by this process.
func (e *Engine) window(ctx context.Context, sessionID string) *session.History {
	e.windowMu.Lock()
	if e.windows == nil {
		e.windows = make(map[string]*session.History)
	}
	h, seeded := e.windows[sessionID]
	if !seeded {
		h = session.NewHistory(e.historyLimit)
		e.windows[sessionID] = h
	}
	e.windowMu.Unlock()

	if !seeded {
		msgs, err := e.sessions.Recent(ctx, sessionID, e.historyLimit)
		if err != nil {
			e.logger.Warn("loading history failed, starting with an empty window",
				"session_id", sessionID, "error", err)
			return h
		}
		for _, m := range msgs {
			h.Append(m)
		}
	}
	return h
}

// generateAnswer calls the model with the conversation window and the
// composed system prompt.
func (e *Engine) generateAnswer(ctx context.Context, sessionID, systemPrompt, query string, callback StreamCallback) (string, error) {
	history := e.window(ctx, sessionID).Messages()

	messages := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case session.RoleUser:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(query)))

	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithConfig(map[string]any{
			"temperature":     e.temperature,
			"maxOutputTokens": e.maxTokens,
		}),
	}
	if e.modelName != "" {
		opts = append(opts, ai.WithModelName(e.modelName))
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(callback))
	}

	resp, err := e.generateWithRetry(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", rag.ErrCompletion, err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		e.logger.Warn("model returned empty response", "session_id", sessionID)
		answer = fallbackResponseMessage
	}
	return answer, nil
}

// persistTurn records both sides of the exchange in the conversation
// window and the store. Store writes are best-effort: a failure is
// logged, not returned, because the user already has the answer.
func (e *Engine) persistTurn(ctx context.Context, sessionID, query string, reply *Reply) {
	userMsg := session.Message{
		Role:    session.RoleUser,
		Content: query,
	}
	assistantMsg := session.Message{
		Role:      session.RoleAssistant,
		Content:   reply.Answer,
		Citations: reply.Citations,
	}

	h := e.window(ctx, sessionID)
	h.Append(userMsg)
	h.Append(assistantMsg)

	if _, err := e.sessions.AppendMessage(ctx, sessionID, userMsg); err != nil {
		e.logger.Warn("persisting user message failed", "session_id", sessionID, "error", err)
		return
	}
	if _, err := e.sessions.AppendMessage(ctx, sessionID, assistantMsg); err != nil {
		e.logger.Warn("persisting assistant message failed", "session_id", sessionID, "error", err)
	}
}

// maybeGenerateTitle gives an untitled session a title derived from its
// first query. Best-effort with a short timeout.
func (e *Engine) maybeGenerateTitle(ctx context.Context, sess session.Session, query string) {
	if sess.Title != "" || sess.MessageCount > 0 {
		return
	}

	title := e.generateTitle(ctx, query)
	if title == "" {
		// Fall back to a truncation of the query itself.
		title = query
		if len(title) > titleMaxLength {
			title = strings.TrimSpace(title[:titleMaxLength-3]) + "..."
		}
	}
	if err := e.sessions.SetTitle(ctx, sess.ID, title); err != nil {
		e.logger.Warn("setting session title failed", "session_id", sess.ID, "error", err)
	}
}

const titlePrompt = `Generate a concise title (max 80 characters) for a chat session based on this first message.
The title should capture the main topic or intent.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Message: %s

Title:`

func (e *Engine) generateTitle(ctx context.Context, query string) string {
	ctx, cancel := context.WithTimeout(ctx, titleGenerationTimeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithPrompt(titlePrompt, query),
	}
	if e.modelName != "" {
		opts = append(opts, ai.WithModelName(e.modelName))
	}

	resp, err := e.generate(ctx, opts...)
	if err != nil {
		e.logger.Debug("title generation failed", "error", err)
		return ""
	}

	title := strings.TrimSpace(resp.Text())
	if len(title) > titleMaxLength {
		title = strings.TrimSpace(title[:titleMaxLength-3]) + "..."
	}
	return title
}

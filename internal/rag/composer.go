// Package rag composes model prompts from retrieved document chunks.
//
// The composer is pure string assembly: it never calls the model or the
// embedder. Retrieval results arrive ranked best-first; when the
// formatted context would exceed the character budget, the composer
// drops the lowest-ranked chunks until the rest fits.
package rag

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/medichat/medichat/internal/knowledge"
)

// Sentinel errors for the two model-facing failure modes. The chat
// engine wraps provider errors with these so callers can distinguish a
// retrieval failure from a generation failure with errors.Is.
var (
	ErrEmbedding  = errors.New("embedding generation failed")
	ErrCompletion = errors.New("completion generation failed")
)

// DefaultContextBudget caps the characters of retrieved context placed
// into a single prompt.
const DefaultContextBudget = 6000

// excerptLength bounds the preview carried in a citation.
const excerptLength = 160

// Citation points an answer back at the chunk that supported it.
type Citation struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	Excerpt      string `json:"excerpt"`
}

// Composer builds prompts under a context character budget.
type Composer struct {
	budget int
	logger *slog.Logger
}

// NewComposer creates a Composer. A non-positive budget falls back to
// DefaultContextBudget.
func NewComposer(budget int, logger *slog.Logger) *Composer {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{budget: budget, logger: logger}
}

const documentInstructions = `You are a helpful medical knowledge assistant. Use the provided context to answer the user's question accurately and concisely.

INSTRUCTIONS:
- Answer based only on the provided context
- If the context doesn't contain relevant information, say "I don't have enough information to answer that"
- Be concise and clear
- Provide medical information responsibly
- Include relevant citations from source documents`

const generalInstructions = `You are a helpful medical knowledge assistant. Answer the user's question based on your general knowledge.

INSTRUCTIONS:
- Answer naturally and conversationally
- Be accurate and helpful
- For medical questions, provide general information responsibly
- Include disclaimers where appropriate`

// DocumentPrompt renders the system prompt for a document-grounded
// answer and returns the results that actually fit the budget, in rank
// order. Callers should derive citations from the returned slice, not
// from the original one, so citations never point at dropped context.
func (c *Composer) DocumentPrompt(results []knowledge.Result) (string, []knowledge.Result) {
	used := c.fitBudget(results)

	blocks := make([]string, 0, len(used))
	for i, r := range used {
		blocks = append(blocks, fmt.Sprintf("[Document %d - %s]\n%s\n", i+1, r.Chunk.DocumentName, r.Chunk.Content))
	}

	var b strings.Builder
	b.WriteString(documentInstructions)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(strings.Join(blocks, "\n---\n"))
	return b.String(), used
}

// GeneralPrompt renders the system prompt for a general-knowledge
// answer.
func (c *Composer) GeneralPrompt() string {
	return generalInstructions
}

// fitBudget keeps the highest-ranked results whose combined formatted
// size stays within the budget. At least one result is always kept so a
// single oversized chunk cannot silently empty the context.
func (c *Composer) fitBudget(results []knowledge.Result) []knowledge.Result {
	if len(results) == 0 {
		return nil
	}

	total := 0
	kept := 0
	for _, r := range results {
		// Approximate the rendered block: header plus content plus separator.
		blockLen := len(r.Chunk.Content) + len(r.Chunk.DocumentName) + 24
		if kept > 0 && total+blockLen > c.budget {
			break
		}
		total += blockLen
		kept++
	}

	if kept < len(results) {
		c.logger.Debug("context budget trimmed retrieval results",
			"kept", kept, "dropped", len(results)-kept, "budget", c.budget)
	}
	return results[:kept]
}

// Citations derives citation records from the results that were placed
// into the prompt.
func Citations(results []knowledge.Result) []Citation {
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		excerpt := r.Chunk.Content
		if len(excerpt) > excerptLength {
			excerpt = strings.TrimSpace(excerpt[:excerptLength]) + "…"
		}
		citations = append(citations, Citation{
			DocumentID:   r.Chunk.DocumentID,
			DocumentName: r.Chunk.DocumentName,
			ChunkIndex:   r.Chunk.Index,
			Excerpt:      excerpt,
		})
	}
	return citations
}

var greetingMessages = []string{
	"Hello! I'm your medical knowledge assistant. Ask me a question, or upload a document and I'll answer from it.",
	"Hi there! How can I help you today? You can ask general medical questions or questions about your uploaded documents.",
	"Hello! Ask me anything about medical topics, or upload a PDF and I'll answer questions about it.",
}

var farewellMessages = []string{
	"Goodbye! Feel free to come back anytime you have questions.",
	"See you later! Take care!",
	"Bye! I'm here whenever you need help.",
	"Have a great day! Come back if you need more information.",
	"Take care! See you soon!",
}

var clarificationMessages = []string{
	"I'm not sure what you mean. Could you ask me a question about medical topics or your uploaded documents?",
	"Please provide more details. What would you like to know about?",
	"I'd be happy to help! Could you please rephrase your question?",
	"Can you ask me a specific question about medical topics or your documents?",
}

// NoAnswerMessage is returned when a document question retrieves
// nothing relevant.
const NoAnswerMessage = "I don't have enough information in the documents to answer that question."

// DegradedMessage is returned when retrieval itself fails and the
// engine cannot consult the documents.
const DegradedMessage = "I can't consult your documents right now. Please try again in a moment."

// GreetingMessage returns a canned greeting reply.
func GreetingMessage() string {
	return greetingMessages[rand.IntN(len(greetingMessages))]
}

// FarewellMessage returns a canned farewell reply.
func FarewellMessage() string {
	return farewellMessages[rand.IntN(len(farewellMessages))]
}

// ClarificationMessage returns a canned reply asking the user to
// rephrase an unclear query.
func ClarificationMessage() string {
	return clarificationMessages[rand.IntN(len(clarificationMessages))]
}

package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medichat/medichat/internal/document"
	"github.com/medichat/medichat/internal/knowledge"
)

func result(name, content string, index int, similarity float32) knowledge.Result {
	return knowledge.Result{
		Chunk: document.Chunk{
			ID:           name + "-chunk",
			DocumentID:   "doc-" + name,
			DocumentName: name,
			Index:        index,
			Content:      content,
		},
		Similarity: similarity,
	}
}

func TestDocumentPromptIncludesAllWithinBudget(t *testing.T) {
	c := NewComposer(10000, nil)
	results := []knowledge.Result{
		result("guide.pdf", "Insulin should be stored refrigerated.", 0, 0.9),
		result("guide.pdf", "Dosage depends on body weight.", 3, 0.8),
	}

	prompt, used := c.DocumentPrompt(results)

	require.Len(t, used, 2)
	assert.Contains(t, prompt, "Insulin should be stored refrigerated.")
	assert.Contains(t, prompt, "Dosage depends on body weight.")
	assert.Contains(t, prompt, "[Document 1 - guide.pdf]")
	assert.Contains(t, prompt, "[Document 2 - guide.pdf]")
	assert.Contains(t, prompt, "CONTEXT:")
}

func TestDocumentPromptDropsLowestRankedFirst(t *testing.T) {
	c := NewComposer(300, nil)
	results := []knowledge.Result{
		result("a.pdf", strings.Repeat("x", 120), 0, 0.95),
		result("b.pdf", strings.Repeat("y", 120), 1, 0.80),
		result("c.pdf", strings.Repeat("z", 120), 2, 0.60),
	}

	prompt, used := c.DocumentPrompt(results)

	require.Len(t, used, 2, "the budget fits two blocks")
	assert.Equal(t, "a.pdf", used[0].Chunk.DocumentName)
	assert.Equal(t, "b.pdf", used[1].Chunk.DocumentName)
	assert.NotContains(t, prompt, strings.Repeat("z", 120),
		"the lowest-ranked chunk is the one dropped")
}

func TestDocumentPromptKeepsAtLeastOneResult(t *testing.T) {
	c := NewComposer(600, nil)
	results := []knowledge.Result{
		result("big.pdf", strings.Repeat("w", 5000), 0, 0.9),
	}

	_, used := c.DocumentPrompt(results)
	require.Len(t, used, 1, "an oversized top result is still included")
}

func TestDocumentPromptEmptyResults(t *testing.T) {
	c := NewComposer(0, nil)
	prompt, used := c.DocumentPrompt(nil)

	assert.Empty(t, used)
	assert.Contains(t, prompt, "CONTEXT:")
}

func TestCitationsMatchUsedResults(t *testing.T) {
	results := []knowledge.Result{
		result("guide.pdf", "Short chunk.", 2, 0.9),
		result("notes.pdf", strings.Repeat("long ", 100), 7, 0.7),
	}

	citations := Citations(results)
	require.Len(t, citations, 2)

	assert.Equal(t, "doc-guide.pdf", citations[0].DocumentID)
	assert.Equal(t, 2, citations[0].ChunkIndex)
	assert.Equal(t, "Short chunk.", citations[0].Excerpt)

	assert.Equal(t, 7, citations[1].ChunkIndex)
	assert.LessOrEqual(t, len(citations[1].Excerpt), excerptLength+len("…"),
		"long excerpts are truncated")
}

func TestCitationsEmpty(t *testing.T) {
	assert.Empty(t, Citations(nil))
}

func TestCannedMessagesNonEmpty(t *testing.T) {
	for range 20 {
		assert.NotEmpty(t, GreetingMessage())
		assert.NotEmpty(t, FarewellMessage())
		assert.NotEmpty(t, ClarificationMessage())
	}
	assert.Contains(t, farewellMessages, FarewellMessage())
	assert.Contains(t, clarificationMessages, ClarificationMessage())
}

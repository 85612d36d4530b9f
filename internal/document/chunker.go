package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, tuned for embedding models with input
// windows of a few thousand tokens.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits extracted text into overlapping character windows.
// Cuts prefer paragraph breaks, then sentence ends, then word breaks,
// so a chunk rarely ends mid-sentence.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters. Overlap must be smaller
// than size or the scan cannot make progress.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split breaks the document's text into chunks. It returns ErrNoText
// when the text is empty or whitespace-only, and never returns an
// empty chunk.
func (c *Chunker) Split(doc *Document) ([]Chunk, error) {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", doc.Name, ErrNoText)
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			// Window edges must not land inside a multi-byte rune.
			end = snapToRuneStart(text, end)
			if end == start {
				// The window must hold at least one rune.
				_, width := utf8.DecodeRuneInString(text[start:])
				end = start + width
			} else {
				end = start + c.cut(text[start:end])
			}
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			// Offset points at the first non-whitespace byte of the
			// chunk within the original text.
			offset := start + strings.Index(text[start:end], content)
			chunks = append(chunks, Chunk{
				ID:           chunkID(doc.ID, len(chunks)),
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				Index:        len(chunks),
				Content:      content,
				Offset:       offset,
			})
		}

		if end == len(text) {
			break
		}
		next := snapToRuneStart(text, end-c.overlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// snapToRuneStart moves pos back to the nearest rune boundary.
func snapToRuneStart(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// cut picks where to end a full-sized window. A boundary is only taken
// from the second half of the window, otherwise chunks degenerate into
// fragments when the text has dense separators early on.
func (c *Chunker) cut(window string) int {
	half := len(window) / 2

	if i := strings.LastIndex(window, "\n\n"); i >= half {
		return i
	}
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if i := strings.LastIndex(window, sep); i >= half {
			return i + 1 // keep the terminator with its sentence
		}
	}
	if i := strings.LastIndex(window, " "); i >= half {
		return i
	}
	return len(window)
}

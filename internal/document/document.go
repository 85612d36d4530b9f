// Package document turns uploaded files into embeddable text chunks.
//
// The pipeline is extract -> chunk: an Extractor pulls plain text out of
// the uploaded bytes, and a Chunker splits that text into overlapping
// windows sized for the embedding model. Both halves are independent so
// tests can exercise the chunker without a running extraction service.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoText indicates that extraction produced no usable text, for
// example a scanned PDF with no text layer.
var ErrNoText = errors.New("document contains no extractable text")

// Document is an uploaded file after text extraction.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Text       string    `json:"-"`
	Pages      int       `json:"pages,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// NewDocument assigns a fresh ID to an extracted document.
func NewDocument(name, text string, pages int) *Document {
	return &Document{
		ID:         uuid.NewString(),
		Name:       name,
		Text:       text,
		Pages:      pages,
		UploadedAt: time.Now().UTC(),
	}
}

// Chunk is one embeddable window of a document's text.
type Chunk struct {
	ID           string `json:"id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Index        int    `json:"index"`
	Content      string `json:"content"`
	Offset       int    `json:"offset"`
}

// chunkID derives a deterministic ID so re-indexing the same document
// overwrites its previous chunks instead of duplicating them.
func chunkID(documentID string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, index)))
	return hex.EncodeToString(sum[:16])
}

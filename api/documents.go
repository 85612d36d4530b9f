package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/medichat/medichat/internal/document"
	"github.com/medichat/medichat/internal/knowledge"
	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/rag"
)

const (
	// MaxUploadBytes caps a whole multipart upload request.
	MaxUploadBytes = 64 << 20 // 64 MiB

	// maxMemoryBytes is the in-memory threshold for multipart parsing;
	// larger parts spill to temp files.
	maxMemoryBytes = 8 << 20
)

// DocumentStore is the slice of the knowledge store the handler needs.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]knowledge.DocumentInfo, error)
	DeleteDocument(ctx context.Context, documentID string) (int64, error)
	Count(ctx context.Context) (int, error)
}

// Indexer ingests one uploaded file.
type Indexer interface {
	Index(ctx context.Context, data []byte, filename string) (*rag.IndexReport, error)
}

// DocumentHandler serves document upload and index management.
type DocumentHandler struct {
	store   DocumentStore
	indexer Indexer
	logger  log.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(store DocumentStore, indexer Indexer, logger log.Logger) *DocumentHandler {
	return &DocumentHandler{store: store, indexer: indexer, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.upload)
	mux.HandleFunc("GET /api/documents", h.list)
	mux.HandleFunc("GET /api/documents/stats", h.stats)
	mux.HandleFunc("DELETE /api/documents/{id}", h.delete)
}

// UploadResult reports the outcome for one file in a multipart upload.
type UploadResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	Error      string `json:"error,omitempty"`
}

// upload accepts one or more PDFs under the "files" form field. Each
// file is indexed independently: one bad file does not fail the batch,
// it gets its own error in the report.
func (h *DocumentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form upload")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("cleaning multipart temp files", "error", err)
		}
	}()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "no files provided (use the 'files' field)")
		return
	}

	results := make([]UploadResult, 0, len(files))
	indexed := 0
	for _, header := range files {
		result := UploadResult{Filename: header.Filename}

		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			result.Error = "only PDF files are supported"
			results = append(results, result)
			continue
		}

		file, err := header.Open()
		if err != nil {
			result.Error = "failed to read uploaded file"
			results = append(results, result)
			continue
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			result.Error = "failed to read uploaded file"
			results = append(results, result)
			continue
		}

		report, err := h.indexer.Index(r.Context(), data, header.Filename)
		if err != nil {
			h.logger.Warn("indexing uploaded file failed",
				"filename", header.Filename, "error", err)
			result.Error = uploadErrorMessage(err)
			results = append(results, result)
			continue
		}

		result.DocumentID = report.Document.ID
		result.Chunks = report.Chunks
		result.Pages = report.Document.Pages
		results = append(results, result)
		indexed++
	}

	status := http.StatusOK
	if indexed == 0 {
		// Nothing succeeded; surface the failure to batch clients.
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{
		"results": results,
		"indexed": indexed,
		"failed":  len(results) - indexed,
	})
}

// uploadErrorMessage maps pipeline errors to user-facing text without
// leaking internals.
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, document.ErrNoText):
		return "no extractable text (is this a scanned PDF?)"
	case errors.Is(err, document.ErrExtraction):
		return "text extraction failed"
	default:
		return "indexing failed"
	}
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments(r.Context())
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *DocumentHandler) stats(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count chunks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to count chunks")
		return
	}
	docs, err := h.store.ListDocuments(r.Context())
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": len(docs),
		"chunks":    chunks,
	})
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.store.DeleteDocument(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete document", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete document")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    id,
		"chunks_deleted": deleted,
	})
}

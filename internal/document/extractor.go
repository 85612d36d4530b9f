package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrExtraction indicates the extraction service rejected or failed to
// process the uploaded file.
var ErrExtraction = errors.New("text extraction failed")

// Extractor pulls plain text out of an uploaded file's raw bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (text string, pages int, err error)
}

// HTTPExtractor talks to an external extraction service over HTTP.
// The service accepts raw PDF bytes on POST /parse and answers with
// the extracted text and page count as JSON.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor builds an extractor for the given service base URL.
func NewHTTPExtractor(baseURL string) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type extractResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Extract sends the file to the extraction service. The filename is
// forwarded as a header so service logs stay readable.
func (e *HTTPExtractor) Extract(ctx context.Context, data []byte, filename string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("creating extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("reading extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: service returned %d", ErrExtraction, resp.StatusCode)
	}

	var result extractResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", 0, fmt.Errorf("decoding extraction response: %w", err)
	}
	if result.Error != "" {
		return "", 0, fmt.Errorf("%w: %s", ErrExtraction, result.Error)
	}

	return result.Text, result.Pages, nil
}

// Healthy reports whether the extraction service answers its health
// endpoint. Used by the readiness probe.
func (e *HTTPExtractor) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/medichat/medichat/internal/chat"
	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/rag"
)

// ChatHandler exposes the chat flow over HTTP.
//
// Endpoints:
//   - POST /api/chat        - synchronous chat (JSON request/response)
//   - POST /api/chat/stream - streaming chat (Server-Sent Events)
//
// The synchronous endpoint uses genkit.Handler; the SSE endpoint drives
// the same flow through its streaming iterator so both paths share one
// implementation.
type ChatHandler struct {
	chatFlow *chat.Flow
	logger   log.Logger
}

// NewChatHandler creates a chat handler around the given flow.
// The flow should be obtained from chat.NewFlow().
func NewChatHandler(flow *chat.Flow, logger log.Logger) *ChatHandler {
	return &ChatHandler{chatFlow: flow, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.chatFlow == nil {
		if h.logger != nil {
			h.logger.Warn("chat flow is nil, chat endpoints not registered")
		}
		return
	}
	mux.Handle("POST /api/chat", genkit.Handler(h.chatFlow))
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
}

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Response  string         `json:"response"`
	SessionID string         `json:"sessionId"`
	Route     string         `json:"route"`
	Citations []rag.Citation `json:"citations,omitempty"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleStream drives the chat flow and relays its output as
// Server-Sent Events.
//
// Request body: {"query": "...", "sessionId": "..."}
//
// Event types:
//   - chunk: partial text {"text": "..."}
//   - done:  final response with route and citations
//   - error: failure {"code": "...", "message": "..."}
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var input chat.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if input.SessionID == "" {
		h.writeSSEError(w, flusher, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	if input.Query == "" {
		h.writeSSEError(w, flusher, "MISSING_QUERY", "query is required")
		return
	}

	ctx := r.Context()
	h.logger.Info("SSE stream started", "sessionId", input.SessionID)

	var finalOutput chat.Output
	var streamErr error

	for streamValue, err := range h.chatFlow.Stream(ctx, input) {
		// Stop early if the client went away.
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "sessionId", input.SessionID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}
		if streamValue.Done {
			finalOutput = streamValue.Output
			break
		}
		if streamValue.Stream.Text != "" {
			h.writeSSEChunk(w, flusher, streamValue.Stream.Text)
		}
	}

	if streamErr != nil {
		if errors.Is(streamErr, chat.ErrInvalidQuery) {
			h.writeSSEError(w, flusher, "INVALID_QUERY", streamErr.Error())
			return
		}
		h.logger.Error("stream failed", "error", streamErr, "sessionId", input.SessionID)
		h.writeSSEError(w, flusher, "STREAM_ERROR", streamErr.Error())
		return
	}

	h.writeSSEDone(w, flusher, finalOutput)
	h.logger.Info("SSE stream completed",
		"sessionId", finalOutput.SessionID,
		"route", finalOutput.Route,
		"response_len", len(finalOutput.Response))
}

func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, out chat.Output) {
	data, _ := json.Marshal(SSEDoneData{
		Response:  out.Response,
		SessionID: out.SessionID,
		Route:     out.Route,
		Citations: out.Citations,
	})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}

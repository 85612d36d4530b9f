package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/medichat/medichat/internal/rag"
)

// Input is the request payload for the chat flow.
type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

// Output is the response payload from the chat flow.
type Output struct {
	Response  string         `json:"response"`
	SessionID string         `json:"sessionId"`
	Route     string         `json:"route"`
	Citations []rag.Citation `json:"citations,omitempty"`
}

// StreamChunk is one piece of partial text during streaming.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the chat flow in genkit.
const FlowName = "medichat/chat"

// Flow is the chat engine's genkit streaming flow. Exported for use
// with genkit.Handler() in the API layer.
type Flow = core.Flow[Input, Output, StreamChunk]

// Flow singleton: genkit.DefineStreamingFlow panics when the same name
// is registered twice.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the chat flow singleton, defining it on first call.
func NewFlow(g *genkit.Genkit, engine *Engine) *Flow {
	flowOnce.Do(func() {
		flow = engine.DefineFlow(g)
	})
	return flow
}

// ResetFlowForTesting clears the flow singleton. Test-only, not safe
// for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

// DefineFlow registers the streaming flow that wraps the engine. Use
// NewFlow instead of calling this directly; registering the same flow
// name twice panics inside genkit.
func (e *Engine) DefineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			var callback StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					if chunk == nil {
						return nil
					}
					for _, part := range chunk.Content {
						if part.Text == "" {
							continue
						}
						if err := streamCb(ctx, StreamChunk{Text: part.Text}); err != nil {
							return err
						}
					}
					return nil
				}
			}

			reply, err := e.RespondStream(ctx, input.SessionID, input.Query, callback)
			if err != nil {
				return Output{SessionID: input.SessionID}, fmt.Errorf("chat flow: %w", err)
			}

			return Output{
				Response:  reply.Answer,
				SessionID: input.SessionID,
				Route:     string(reply.Route),
				Citations: reply.Citations,
			}, nil
		},
	)
}

package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

// Input defines the request payload for the ask flow.
type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"` // Optional: empty creates a new session
}

// Output defines the response payload from the ask flow.
type Output struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// StreamChunk is the streaming output type for the ask flow.
// Each chunk contains partial text that can be immediately displayed to the user.
type StreamChunk struct {
	Text string `json:"text"` // Partial text chunk
}

// FlowName is the registered name of the ask flow in Genkit.
const FlowName = "sabia/ask"

// Flow is the type alias for the ask flow.
// Exported for use in the api package with genkit.Handler().
type Flow = core.Flow[Input, Output, StreamChunk]

// Package-level singleton for Flow to prevent panic on re-registration.
// sync.Once ensures genkit.DefineStreamingFlow is called only once.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the ask flow singleton, initializing it on first call.
// Subsequent calls return the existing Flow (parameters are ignored).
// This is safe because genkit.DefineStreamingFlow panics on re-registration.
func NewFlow(g *genkit.Genkit, p *Pipeline) *Flow {
	flowOnce.Do(func() {
		flow = p.DefineFlow(g)
	})
	return flow
}

// ResetFlowForTesting resets the Flow singleton for testing.
// WARNING: Only use in tests. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

// DefineFlow defines the Genkit streaming flow wrapping Pipeline.Ask.
// Supports both streaming (via callback) and non-streaming modes.
//
// IMPORTANT: Use NewFlow() instead of calling DefineFlow() directly.
// DefineFlow registers a global Flow; calling it twice causes panic.
//
// The Flow is a lightweight wrapper; Pipeline.Ask contains the core logic.
// It exists for observability (Genkit DevUI tracing), Input/Output schema
// typing, and HTTP exposure via genkit.Handler().
func (p *Pipeline) DefineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			// When streamCb is nil (e.g., called via Run() instead of
			// Stream()), the pipeline runs in non-streaming mode.
			var callback StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, event Event) error {
					if event.TurnComplete || event.Data == "" {
						return nil
					}
					return streamCb(ctx, StreamChunk{Text: event.Data})
				}
			}

			result, err := p.Ask(ctx, Request{
				Query:     input.Query,
				SessionID: input.SessionID,
			}, callback)
			if err != nil {
				// Genkit marks this span as failed, enabling proper
				// observability; handlers classify with errors.Is().
				return Output{SessionID: input.SessionID}, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
			}

			return Output{
				Response:  result.Answer,
				SessionID: result.SessionID.String(),
			}, nil
		})
}

// Package agent wraps the generative model behind a streaming gateway.
//
// The gateway is the only place that talks to Genkit's Generate API. Callers
// hand it a query plus prior conversation turns and consume the answer as a
// lazy sequence of fragments; nothing is sent to the provider until the
// sequence is ranged over.
package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/session"
)

// MimeTextPlain is the mime type of text fragments.
const MimeTextPlain = "text/plain"

// ErrUnavailable indicates the model provider could not serve the request.
// Check with errors.Is().
var ErrUnavailable = errors.New("agent unavailable")

// errConsumerStopped signals the streaming callback that the consumer broke
// out of the range loop; it never escapes Query.
var errConsumerStopped = errors.New("consumer stopped")

// Fragment is one piece of a streamed model answer.
type Fragment struct {
	MimeType string
	Text     string
}

// Gateway produces model answers as lazy fragment sequences.
//
// The returned sequence yields zero or more fragments followed by at most one
// non-nil error; after an error the sequence is exhausted. Breaking out of the
// range loop abandons the remainder.
type Gateway interface {
	Query(ctx context.Context, query string, history []session.Turn) iter.Seq2[Fragment, error]
}

// GenkitGateway is the production Gateway backed by genkit.Generate.
type GenkitGateway struct {
	g         *genkit.Genkit
	modelName string
	genConfig *genai.GenerateContentConfig
	logger    log.Logger
}

// NewGenkitGateway builds a gateway for the configured provider and model.
func NewGenkitGateway(g *genkit.Genkit, cfg *config.Config, logger log.Logger) *GenkitGateway {
	if logger == nil {
		logger = log.NewNop()
	}
	temperature := cfg.Temperature
	return &GenkitGateway{
		g:         g,
		modelName: cfg.FullModelName(),
		genConfig: &genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: int32(cfg.MaxTokens),
		},
		logger: logger,
	}
}

// Query sends the conversation to the model and yields answer fragments as
// the provider streams them. The call to the provider starts on the first
// range iteration, not when Query returns.
func (gw *GenkitGateway) Query(ctx context.Context, query string, history []session.Turn) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		messages := historyToMessages(history)
		messages = append(messages, ai.NewUserMessage(ai.NewTextPart(query)))

		gw.logger.Debug("querying model",
			"model", gw.modelName,
			"history_turns", len(history),
			"query_length", len(query),
		)

		streamed := false
		stopped := false
		resp, err := genkit.Generate(ctx, gw.g,
			ai.WithModelName(gw.modelName),
			ai.WithMessages(messages...),
			ai.WithConfig(gw.genConfig),
			ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				text := chunk.Text()
				if text == "" {
					return nil
				}
				streamed = true
				if !yield(Fragment{MimeType: MimeTextPlain, Text: text}, nil) {
					stopped = true
					return errConsumerStopped
				}
				return nil
			}),
		)
		if stopped {
			return
		}
		if err != nil {
			yield(Fragment{}, classify(ctx, err))
			return
		}

		// Some providers return the full answer without streaming any
		// chunks; surface it as a single fragment so consumers always
		// see the text.
		if !streamed {
			if text := resp.Text(); text != "" {
				yield(Fragment{MimeType: MimeTextPlain, Text: text}, nil)
			}
		}
	}
}

// classify maps a Generate failure to the gateway's error surface.
// Context cancellation passes through untouched so callers can tell a client
// disconnect apart from a provider outage.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("generate: %w", ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("generate: %w", err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// historyToMessages converts stored turns to Genkit messages.
func historyToMessages(history []session.Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		}
	}
	return messages
}

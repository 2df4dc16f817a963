// Package chat orchestrates one conversational exchange end to end.
//
// The Pipeline resolves the target session, serializes concurrent exchanges
// on it, relays the model's streamed answer fragments to the caller, and
// appends the completed exchange to the session history as one unit. The
// caller sees a sequence of events terminated by a single turn-complete
// marker.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sabia-ai/sabia/internal/agent"
	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/session"
)

// Sentinel errors for pipeline operations.
// Check with errors.Is().
var (
	// ErrInvalidSession indicates the session ID is malformed.
	ErrInvalidSession = errors.New("invalid session")

	// ErrEmptyQuery indicates the query was empty or whitespace.
	ErrEmptyQuery = errors.New("empty query")

	// ErrStreamInterrupted indicates the caller's stream callback failed,
	// usually because the client disconnected mid-answer.
	ErrStreamInterrupted = errors.New("stream interrupted")

	// ErrExecutionFailed wraps pipeline failures surfaced through the
	// Genkit flow so HTTP handlers can classify them.
	ErrExecutionFailed = errors.New("execution failed")
)

// fallbackAnswer is sent when the model produces no text at all.
const fallbackAnswer = "I could not produce a response. Please try again."

// Event is one element of the answer stream delivered to clients.
// Fragment events carry MimeType and Data; the final event of every
// successful exchange has TurnComplete set and no payload.
type Event struct {
	MimeType     string         `json:"mime_type,omitempty"`
	Data         string         `json:"data,omitempty"`
	SessionID    string         `json:"session_id"`
	TurnComplete bool           `json:"turn_complete,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// FragmentEvent builds a stream event for one answer fragment.
func FragmentEvent(frag agent.Fragment, sessionID uuid.UUID) Event {
	return Event{
		MimeType:  frag.MimeType,
		Data:      frag.Text,
		SessionID: sessionID.String(),
	}
}

// TerminalEvent builds the turn-complete marker closing a stream.
func TerminalEvent(sessionID uuid.UUID, metadata map[string]any) Event {
	return Event{
		SessionID:    sessionID.String(),
		TurnComplete: true,
		Metadata:     metadata,
	}
}

// StreamCallback receives stream events in order. Returning an error aborts
// the exchange; the partial answer is discarded.
type StreamCallback func(ctx context.Context, event Event) error

// Request is one user query against a session.
type Request struct {
	// Query is the user's utterance. Must be non-empty after trimming.
	Query string

	// SessionID targets an existing session. Empty or unknown IDs resolve
	// to a fresh session; the Result reports the ID actually used.
	SessionID string

	// Metadata is passed through to the terminal event untouched.
	Metadata map[string]any
}

// Result summarizes a completed exchange.
type Result struct {
	SessionID      uuid.UUID
	SessionCreated bool
	Answer         string
	Fragments      int
}

// Config holds Pipeline dependencies.
type Config struct {
	Store   *session.Store
	Gateway agent.Gateway
	Logger  log.Logger
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("chat: Store is required")
	}
	if c.Gateway == nil {
		return errors.New("chat: Gateway is required")
	}
	return nil
}

// Pipeline executes conversational exchanges. Safe for concurrent use;
// exchanges on the same session are serialized by the session store.
type Pipeline struct {
	store   *session.Store
	gateway agent.Gateway
	logger  log.Logger
}

// New creates a Pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		store:   cfg.Store,
		gateway: cfg.Gateway,
		logger:  logger,
	}, nil
}

// Ask runs one exchange: resolve the session, stream the model's answer
// fragments through callback, append the completed exchange to history, and
// close the stream with a terminal event.
//
// A nil callback runs the exchange without streaming; the answer is only in
// the Result. On any error the session history is left untouched.
func (p *Pipeline) Ask(ctx context.Context, req Request, callback StreamCallback) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	sess, created, err := p.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	release, err := p.store.AcquireExchange(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := p.store.History(sess.ID)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("exchange started",
		"session_id", sess.ID,
		"session_created", created,
		"history_turns", len(history),
		"query_length", len(query),
	)

	var answer strings.Builder
	fragments := 0
	for frag, err := range p.gateway.Query(ctx, query, history) {
		if err != nil {
			p.logger.Warn("model stream failed",
				"session_id", sess.ID, "fragments", fragments, "error", err)
			return nil, err
		}
		fragments++
		answer.WriteString(frag.Text)
		if callback != nil {
			if cbErr := callback(ctx, FragmentEvent(frag, sess.ID)); cbErr != nil {
				p.logger.Warn("stream relay aborted",
					"session_id", sess.ID, "fragments", fragments, "error", cbErr)
				return nil, fmt.Errorf("%w: %w", ErrStreamInterrupted, cbErr)
			}
		}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("exchange canceled: %w", ctx.Err())
	}

	answerText := answer.String()
	if strings.TrimSpace(answerText) == "" {
		p.logger.Warn("model returned empty answer", "session_id", sess.ID)
		answerText = fallbackAnswer
		fragments++
		if callback != nil {
			frag := agent.Fragment{MimeType: agent.MimeTextPlain, Text: answerText}
			if cbErr := callback(ctx, FragmentEvent(frag, sess.ID)); cbErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrStreamInterrupted, cbErr)
			}
		}
	}

	// The exchange is committed before the terminal marker goes out, so a
	// client that sees turn_complete reads a history that already includes
	// this answer.
	if err := p.store.AppendExchange(sess.ID, query, answerText); err != nil {
		return nil, fmt.Errorf("appending exchange: %w", err)
	}

	if callback != nil {
		if cbErr := callback(ctx, TerminalEvent(sess.ID, req.Metadata)); cbErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrStreamInterrupted, cbErr)
		}
	}

	p.logger.Info("exchange completed",
		"session_id", sess.ID,
		"fragments", fragments,
		"answer_length", len(answerText),
	)

	return &Result{
		SessionID:      sess.ID,
		SessionCreated: created,
		Answer:         answerText,
		Fragments:      fragments,
	}, nil
}

// resolveSession maps the request's session ID to a live session.
// Empty IDs and IDs of expired or evicted sessions get a fresh session;
// malformed IDs are rejected.
func (p *Pipeline) resolveSession(id string) (*session.Session, bool, error) {
	if id == "" {
		return p.store.Create(), true, nil
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	sess, err := p.store.Get(parsed)
	if errors.Is(err, session.ErrNotFound) {
		sess := p.store.Create()
		p.logger.Debug("unknown session replaced",
			"requested_id", parsed, "session_id", sess.ID)
		return sess, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sess, false, nil
}

package testutil

import (
	"context"
	"iter"
	"sync"

	"github.com/sabia-ai/sabia/internal/agent"
	"github.com/sabia-ai/sabia/internal/session"
)

// GatewayCall records one Query invocation on a scripted gateway.
type GatewayCall struct {
	Query   string
	History []session.Turn
}

// ScriptedGateway is an agent.Gateway that replays a fixed fragment script.
// It records every call so tests can assert on the history handed to the
// model. Thread-safe for concurrent use.
type ScriptedGateway struct {
	mu        sync.Mutex
	fragments []agent.Fragment
	err       error     // yielded after FailAfter fragments (or all, if it covers them)
	failAfter int       // number of fragments yielded before err
	gate      chan struct{} // when set, each fragment waits for a tick
	calls     []GatewayCall
}

// NewScriptedGateway builds a gateway that streams the given texts as
// text/plain fragments and then ends cleanly.
func NewScriptedGateway(texts ...string) *ScriptedGateway {
	fragments := make([]agent.Fragment, len(texts))
	for i, text := range texts {
		fragments[i] = agent.Fragment{MimeType: agent.MimeTextPlain, Text: text}
	}
	return &ScriptedGateway{fragments: fragments, failAfter: -1}
}

// FailWith makes the stream yield err after n fragments.
// n larger than the script length fails after the last fragment.
func (g *ScriptedGateway) FailWith(err error, n int) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	g.failAfter = n
	return g
}

// Gate makes every fragment wait for one Tick before it is yielded.
// Use it to hold a stream open while asserting on concurrent behavior.
func (g *ScriptedGateway) Gate() *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
	return g
}

// Tick releases one gated fragment.
func (g *ScriptedGateway) Tick() {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()
	gate <- struct{}{}
}

// Calls returns a copy of all recorded Query calls.
func (g *ScriptedGateway) Calls() []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]GatewayCall, len(g.calls))
	copy(cp, g.calls)
	return cp
}

// Query implements agent.Gateway.
func (g *ScriptedGateway) Query(ctx context.Context, query string, history []session.Turn) iter.Seq2[agent.Fragment, error] {
	g.mu.Lock()
	historyCopy := make([]session.Turn, len(history))
	copy(historyCopy, history)
	g.calls = append(g.calls, GatewayCall{Query: query, History: historyCopy})
	fragments := g.fragments
	err := g.err
	failAfter := g.failAfter
	gate := g.gate
	g.mu.Unlock()

	return func(yield func(agent.Fragment, error) bool) {
		for i, frag := range fragments {
			if err != nil && failAfter >= 0 && i >= failAfter {
				yield(agent.Fragment{}, err)
				return
			}
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					yield(agent.Fragment{}, ctx.Err())
					return
				}
			}
			if ctx.Err() != nil {
				yield(agent.Fragment{}, ctx.Err())
				return
			}
			if !yield(frag, nil) {
				return
			}
		}
		if err != nil {
			yield(agent.Fragment{}, err)
		}
	}
}

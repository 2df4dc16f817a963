// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the Genkit
// instance, the session store, the agent gateway, the streaming pipeline
// and the Genkit flow built on top of it. Setup assembles the container
// from a validated config; Close releases everything in reverse order.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/sabia-ai/sabia/internal/agent"
	"github.com/sabia-ai/sabia/internal/chat"
	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/session"
)

// otelShutdownTimeout bounds how long Close waits for span export.
const otelShutdownTimeout = 5 * time.Second

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Store    *session.Store
	Gateway  agent.Gateway
	Pipeline *chat.Pipeline
	Flow     *chat.Flow

	// Lifecycle management
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	sweeperDone  chan struct{}
}

// Close gracefully shuts down all resources. It stops the session sweeper,
// then flushes pending trace spans. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}

	if a.sweeperDone != nil {
		<-a.sweeperDone
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracer provider: %w", err)
		}
	}

	return nil
}

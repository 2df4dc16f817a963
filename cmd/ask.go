package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sabia-ai/sabia/internal/app"
	"github.com/sabia-ai/sabia/internal/chat"
	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/log"
)

// runAsk answers a single question and streams the answer to stdout.
// Each run uses a fresh session; use the HTTP API for multi-turn chats.
func runAsk() error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("usage: sabia ask <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	_, err = a.Pipeline.Ask(ctx, chat.Request{Query: question},
		func(_ context.Context, event chat.Event) error {
			if event.TurnComplete || event.Data == "" {
				return nil
			}
			_, werr := fmt.Print(event.Data)
			return werr
		})
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	fmt.Println()
	return nil
}

// Package cmd provides CLI commands for Sabiá.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ask: one-shot question answered on stdout
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the Sabiá CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ask":
		return runAsk()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Sabiá - conversational assistant backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sabia serve [addr]     Start HTTP API server (default: 0.0.0.0:8000)")
	fmt.Println("  sabia ask <question>   Ask a one-shot question, answer on stdout")
	fmt.Println("  sabia --version        Show version information")
	fmt.Println("  sabia --help           Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required for the gemini provider")
	fmt.Println("  SABIA_PROVIDER         AI provider: gemini, ollama, openai")
	fmt.Println("  SABIA_MODEL_NAME       Model name for the chosen provider")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}

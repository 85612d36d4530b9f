// Package cmd provides the medichat CLI commands.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - index: index PDF files from the command line
//   - ask: one-shot question against the indexed documents
//   - sessions: list, show, export, and delete conversations
//   - version: build and configuration information
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medichat",
	Short: "Medichat - chat with your medical documents",
	Long: `Medichat answers questions from PDF documents you upload.

Documents are split into overlapping chunks, embedded, and stored in
PostgreSQL with pgvector. Each question is routed: document questions
are answered from retrieved chunks with citations, small talk gets a
canned reply without touching the model.`,
	SilenceUsage: true,
}

// Execute is the entry point for the medichat CLI.
func Execute() error {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return rootCmd.Execute()
}

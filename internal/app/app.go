// Package app wires the application together: configuration, database
// pool, genkit provider, stores, and the chat engine.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medichat/medichat/internal/chat"
	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/document"
	"github.com/medichat/medichat/internal/knowledge"
	"github.com/medichat/medichat/internal/rag"
	"github.com/medichat/medichat/internal/session"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Sessions  *session.Store
	Extractor *document.HTTPExtractor
	Chunker   *document.Chunker
	Indexer   *rag.Indexer
	Engine    *chat.Engine

	cancel context.CancelFunc
}

// Close releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return nil
}

// Package app wires the application together: Genkit provider
// initialization, the index store, and the ingestion and answering
// services built on top of them.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/answerdock/answerdock/internal/answer"
	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/index"
	"github.com/answerdock/answerdock/internal/ingest"
	"github.com/answerdock/answerdock/internal/session"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Store    *index.Store
	Sessions *session.Store
	Ingest   *ingest.Service
	Engine   *answer.Engine

	cancel context.CancelFunc
}

// Close releases application resources.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Logger != nil {
		a.Logger.Info("application shut down")
	}
	return nil
}

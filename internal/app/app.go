// Package app wires the application together: configuration, database,
// Genkit provider, knowledge store, tool backends, orchestrator, and the
// HTTP server.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/golfguiders/caddie/internal/api"
	"github.com/golfguiders/caddie/internal/config"
	"github.com/golfguiders/caddie/internal/knowledge"
	"github.com/golfguiders/caddie/internal/orchestrator"
	"github.com/golfguiders/caddie/internal/session"
	"github.com/golfguiders/caddie/internal/tools"
)

// App is the assembled application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Knowledge    *knowledge.Store
	Sessions     *session.Store
	Registry     *tools.Registry
	Orchestrator *orchestrator.Orchestrator
	Server       *api.Server

	// cleanups run in reverse order on Close.
	cleanups []func()
}

// Close releases resources acquired during Setup. Safe to call on a
// partially initialized App.
func (a *App) Close() error {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
	return nil
}

func (a *App) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}

// Package store persists leads, their duplicate-check verdicts, and batch
// run history, with Postgres and SQLite drivers.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/alohacamp/leadcheck/internal/config"
	"github.com/alohacamp/leadcheck/internal/model"
)

// ErrLeadNotFound is returned when a decision write affects no rows,
// meaning the lead vanished between fetch and write-back.
var ErrLeadNotFound = eris.New("store: lead not found")

// Store defines the persistence interface for the duplicate checker.
type Store interface {
	// FetchEligibleLeads returns up to limit leads that are ready for
	// duplicate checking: validated email, non-empty email, and no prior
	// verdict. Results are ordered by id; a startID > 0 resumes from
	// that id.
	FetchEligibleLeads(ctx context.Context, limit int, startID int64) ([]model.Lead, error)

	// SaveDecision writes the verdict for one lead, keyed by lead id.
	SaveDecision(ctx context.Context, leadID int64, d model.Decision) error

	// ImportLeads bulk-loads new leads and returns how many rows were
	// written.
	ImportLeads(ctx context.Context, leads []model.Lead) (int64, error)

	// CreateRun opens a run-history row and returns it with id and
	// start time populated.
	CreateRun(ctx context.Context) (*model.RunSummary, error)

	// CompleteRun records the final counters for a run.
	CompleteRun(ctx context.Context, run *model.RunSummary) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	Close() error
}

// New creates a Store for the configured driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

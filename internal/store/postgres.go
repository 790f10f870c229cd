package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/alohacamp/leadcheck/internal/config"
	"github.com/alohacamp/leadcheck/internal/db"
	"github.com/alohacamp/leadcheck/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

const (
	fetchLeadsSQL = `SELECT id, email, phone, first_name, last_name, company, property_name, city, country
FROM leads
WHERE zerobounce_status = 'valid' AND email <> '' AND duplicate_check IS NULL AND id >= $1
ORDER BY id
LIMIT $2`

	saveDecisionSQL = `UPDATE leads SET
	duplicate_check = $1,
	checked_at = $2,
	needs_deal = $3,
	reason = $4,
	contact_id = $5,
	contact_email = $6,
	contact_phone = $7,
	contact_name = $8,
	contact_match_type = $9,
	deal_id = $10,
	deal_name = $11,
	deal_score = $12,
	alohacamp_exists = $13,
	alohacamp_match_id = $14,
	alohacamp_match_name = $15,
	alohacamp_score = $16
WHERE id = $17`

	insertRunSQL   = `INSERT INTO check_runs (id, started_at) VALUES ($1, $2)`
	completeRunSQL = `UPDATE check_runs SET finished_at = $1, attempted = $2, updated = $3, errors = $4 WHERE id = $5`
	listRunsSQL    = `SELECT id, started_at, finished_at, attempted, updated, errors FROM check_runs WHERE finished_at IS NOT NULL ORDER BY started_at DESC LIMIT $1`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot path.
var preparedStatements = map[string]string{
	"fetch_leads":   fetchLeadsSQL,
	"save_decision": saveDecisionSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                   BIGSERIAL PRIMARY KEY,
	email                TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	first_name           TEXT NOT NULL DEFAULT '',
	last_name            TEXT NOT NULL DEFAULT '',
	company              TEXT NOT NULL DEFAULT '',
	property_name        TEXT NOT NULL DEFAULT '',
	city                 TEXT NOT NULL DEFAULT '',
	country              TEXT NOT NULL DEFAULT '',
	zerobounce_status    TEXT NOT NULL DEFAULT '',
	duplicate_check      TEXT,
	checked_at           TIMESTAMPTZ,
	needs_deal           BOOLEAN,
	reason               TEXT,
	contact_id           TEXT,
	contact_email        TEXT,
	contact_phone        TEXT,
	contact_name         TEXT,
	contact_match_type   TEXT,
	deal_id              TEXT,
	deal_name            TEXT,
	deal_score           INTEGER,
	alohacamp_exists     BOOLEAN,
	alohacamp_match_id   TEXT,
	alohacamp_match_name TEXT,
	alohacamp_score      INTEGER
);

CREATE INDEX IF NOT EXISTS idx_leads_eligibility ON leads(zerobounce_status, id) WHERE duplicate_check IS NULL;

CREATE TABLE IF NOT EXISTS check_runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	attempted   INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_check_runs_started_at ON check_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FetchEligibleLeads(ctx context.Context, limit int, startID int64) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, fetchLeadsSQL, startID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Email, &l.Phone, &l.FirstName, &l.LastName,
			&l.Company, &l.PropertyName, &l.City, &l.Country); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate leads")
	}
	return leads, nil
}

var importColumns = []string{
	"email", "phone", "first_name", "last_name", "company",
	"property_name", "city", "country", "zerobounce_status",
}

func (s *PostgresStore) ImportLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []any{
			l.Email, l.Phone, l.FirstName, l.LastName, l.Company,
			l.PropertyName, l.City, l.Country, l.ZerobounceStatus,
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "leads", importColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import leads")
	}
	return n, nil
}

func (s *PostgresStore) SaveDecision(ctx context.Context, leadID int64, d model.Decision) error {
	tag, err := s.pool.Exec(ctx, saveDecisionSQL,
		string(d.Status),
		d.CheckedAt,
		d.NeedsDeal,
		string(d.Reason),
		nullString(d.ContactID),
		nullString(d.ContactEmail),
		nullString(d.ContactPhone),
		nullString(d.ContactName),
		nullString(string(d.ContactMatchType)),
		nullString(d.DealID),
		nullString(d.DealName),
		d.DealScore,
		d.DirectoryExists,
		nullString(d.DirectoryMatchID),
		nullString(d.DirectoryName),
		d.DirectoryScore,
		leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save decision for lead %d", leadID)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.RunSummary, error) {
	run := &model.RunSummary{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	if _, err := s.pool.Exec(ctx, insertRunSQL, run.ID, run.StartedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run *model.RunSummary) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, completeRunSQL,
		run.FinishedAt, run.Attempted, run.Updated, run.Errors, run.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Attempted, &r.Updated, &r.Errors); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return runs, nil
}

// nullString maps empty strings to SQL NULL so absent linkage fields
// stay NULL instead of empty text.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

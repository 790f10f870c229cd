package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/alohacamp/leadcheck/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
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
	checked_at           DATETIME,
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
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	attempted   INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_check_runs_started_at ON check_runs(started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FetchEligibleLeads(ctx context.Context, limit int, startID int64) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, phone, first_name, last_name, company, property_name, city, country
		 FROM leads
		 WHERE zerobounce_status = 'valid' AND email <> '' AND duplicate_check IS NULL AND id >= ?
		 ORDER BY id
		 LIMIT ?`,
		startID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Email, &l.Phone, &l.FirstName, &l.LastName,
			&l.Company, &l.PropertyName, &l.City, &l.Country); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: fetch leads iterate")
}

func (s *SQLiteStore) ImportLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (email, phone, first_name, last_name, company, property_name, city, country, zerobounce_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, l := range leads {
		if _, err := stmt.ExecContext(ctx,
			l.Email, l.Phone, l.FirstName, l.LastName, l.Company,
			l.PropertyName, l.City, l.Country, l.ZerobounceStatus); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import lead %s", l.Email)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, leadID int64, d model.Decision) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET
			duplicate_check = ?, checked_at = ?, needs_deal = ?, reason = ?,
			contact_id = ?, contact_email = ?, contact_phone = ?, contact_name = ?, contact_match_type = ?,
			deal_id = ?, deal_name = ?, deal_score = ?,
			alohacamp_exists = ?, alohacamp_match_id = ?, alohacamp_match_name = ?, alohacamp_score = ?
		 WHERE id = ?`,
		string(d.Status), d.CheckedAt, d.NeedsDeal, string(d.Reason),
		nullString(d.ContactID), nullString(d.ContactEmail), nullString(d.ContactPhone),
		nullString(d.ContactName), nullString(string(d.ContactMatchType)),
		nullString(d.DealID), nullString(d.DealName), d.DealScore,
		d.DirectoryExists, nullString(d.DirectoryMatchID), nullString(d.DirectoryName), d.DirectoryScore,
		leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save decision for lead %d", leadID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.RunSummary, error) {
	run := &model.RunSummary{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO check_runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.RunSummary) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE check_runs SET finished_at = ?, attempted = ?, updated = ?, errors = ? WHERE id = ?`,
		run.FinishedAt, run.Attempted, run.Updated, run.Errors, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", run.ID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, attempted, updated, errors
		 FROM check_runs
		 WHERE finished_at IS NOT NULL
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Attempted, &r.Updated, &r.Errors); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bizmap/internal/model"
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS load_runs (
	id          TEXT PRIMARY KEY,
	location    TEXT NOT NULL,
	identity    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	stats       TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_load_runs_location ON load_runs(location);
CREATE INDEX IF NOT EXISTS idx_load_runs_started_at ON load_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLoadRun(ctx context.Context, location, identity string) (*model.LoadRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs (id, location, identity, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, location, identity, string(model.LoadStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert load run")
	}

	return &model.LoadRun{
		ID:        id,
		Location:  location,
		Identity:  identity,
		Status:    model.LoadStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteLoadRun(ctx context.Context, id string, stats model.LoadStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET status = ?, stats = ?, finished_at = ? WHERE id = ?`,
		string(model.LoadStatusComplete), string(statsJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete load run %s", id)
	}
	return checkRowsAffected(res, "load run", id)
}

func (s *SQLiteStore) FailLoadRun(ctx context.Context, id string, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(model.LoadStatusFailed), cause, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail load run %s", id)
	}
	return checkRowsAffected(res, "load run", id)
}

func (s *SQLiteStore) GetLoadRun(ctx context.Context, id string) (*model.LoadRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, location, identity, status, stats, error, started_at, finished_at FROM load_runs WHERE id = ?`,
		id,
	)
	return scanLoadRun(row)
}

func (s *SQLiteStore) ListLoadRuns(ctx context.Context, filter LoadRunFilter) ([]model.LoadRun, error) {
	query := `SELECT id, location, identity, status, stats, error, started_at, finished_at FROM load_runs WHERE 1=1`
	var args []any

	if filter.Location != "" {
		query += ` AND location = ?`
		args = append(args, filter.Location)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list load runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.LoadRun{}
	for rows.Next() {
		r, err := scanLoadRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list load runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLoadRun(row scannable) (*model.LoadRun, error) {
	var r model.LoadRun
	var statsJSON, errText sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Location, &r.Identity, &r.Status, &statsJSON, &errText, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, eris.New("load run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan load run")
	}

	if statsJSON.Valid {
		if err := json.Unmarshal([]byte(statsJSON.String), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	r.Error = errText.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

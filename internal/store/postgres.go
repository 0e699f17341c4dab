package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bizmap/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS load_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	location    TEXT NOT NULL,
	identity    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	stats       JSONB,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_load_runs_location ON load_runs(location);
CREATE INDEX IF NOT EXISTS idx_load_runs_started_at ON load_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateLoadRun(ctx context.Context, location, identity string) (*model.LoadRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO load_runs (id, location, identity, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, location, identity, string(model.LoadStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert load run")
	}

	return &model.LoadRun{
		ID:        id,
		Location:  location,
		Identity:  identity,
		Status:    model.LoadStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteLoadRun(ctx context.Context, id string, stats model.LoadStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE load_runs SET status = $1, stats = $2, finished_at = $3 WHERE id = $4`,
		string(model.LoadStatusComplete), statsJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete load run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("load run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FailLoadRun(ctx context.Context, id string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE load_runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(model.LoadStatusFailed), cause, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail load run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("load run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) GetLoadRun(ctx context.Context, id string) (*model.LoadRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, location, identity, status, stats, error, started_at, finished_at FROM load_runs WHERE id = $1`,
		id,
	)
	r, err := scanPgLoadRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("load run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get load run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListLoadRuns(ctx context.Context, filter LoadRunFilter) ([]model.LoadRun, error) {
	query := `SELECT id, location, identity, status, stats, error, started_at, finished_at FROM load_runs WHERE true`
	var args []any

	if filter.Location != "" {
		args = append(args, filter.Location)
		query += ` AND location = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	args = append(args, listLimit(filter.Limit))
	query += ` ORDER BY started_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list load runs")
	}
	defer rows.Close()

	runs := []model.LoadRun{}
	for rows.Next() {
		r, err := scanPgLoadRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan load run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list load runs iterate")
}

func scanPgLoadRun(row pgx.Row) (*model.LoadRun, error) {
	var r model.LoadRun
	var status string
	var statsJSON []byte
	var errText *string

	if err := row.Scan(&r.ID, &r.Location, &r.Identity, &status, &statsJSON, &errText, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Status = model.LoadStatus(status)
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}

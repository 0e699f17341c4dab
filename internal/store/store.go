// Package store persists the load-run audit log. Records themselves are
// never stored; each load derives them fresh from the dataset.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizmap/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// LoadRunFilter specifies criteria for listing load runs.
type LoadRunFilter struct {
	Location string           `json:"location,omitempty"`
	Status   model.LoadStatus `json:"status,omitempty"`
	Limit    int              `json:"limit,omitempty"`
}

// Store defines the persistence interface for load runs.
type Store interface {
	CreateLoadRun(ctx context.Context, location, identity string) (*model.LoadRun, error)
	CompleteLoadRun(ctx context.Context, id string, stats model.LoadStats) error
	FailLoadRun(ctx context.Context, id string, cause string) error
	GetLoadRun(ctx context.Context, id string) (*model.LoadRun, error)
	ListLoadRuns(ctx context.Context, filter LoadRunFilter) ([]model.LoadRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies migrations. The
// "none" driver returns a nil Store.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case DriverNone, "":
		return nil, nil
	case DriverSQLite:
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

const defaultListLimit = 20

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

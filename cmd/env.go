package main

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizmap/internal/config"
	"github.com/sells-group/bizmap/internal/dataset"
	"github.com/sells-group/bizmap/internal/query"
	"github.com/sells-group/bizmap/internal/source"
	"github.com/sells-group/bizmap/internal/store"
)

// queryEnv holds everything a command needs to answer queries.
type queryEnv struct {
	Store   store.Store // nil when store.driver is "none"
	Cache   *dataset.Cache
	Service *query.Service
}

// Close releases resources held by the environment.
func (e *queryEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config for mode, opens the audit store, and
// builds the dataset cache and query service. Callers should defer
// env.Close().
func initEnv(ctx context.Context, mode string) (*queryEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.PoolConfig())
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	opts := []dataset.Option{dataset.WithRevalidateAfter(cfg.Dataset.RevalidateAfter())}
	if st != nil {
		opts = append(opts, dataset.WithRecorder(st))
	}
	cache := dataset.New(newReader(cfg), opts...)

	return &queryEnv{
		Store:   st,
		Cache:   cache,
		Service: query.NewService(cache, cfg.Dataset.Location, cfg.Map.ClusterOptions()),
	}, nil
}

// newReader builds the dataset reader with HTTP and FTP fetchers.
func newReader(c *config.Config) *source.Reader {
	httpFetcher := source.NewHTTPFetcher(source.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    c.Fetch.Timeout(),
		MaxRetries: c.Fetch.MaxRetries,
		RateLimit:  rate.Limit(c.Fetch.RateLimit),
	})
	ftpFetcher := source.NewFTPFetcher(source.FTPOptions{Timeout: c.Fetch.Timeout()})

	return source.NewReader(httpFetcher, ftpFetcher, source.Options{
		SheetName:  c.Dataset.SheetName,
		SheetIndex: c.Dataset.SheetIndex,
		TempDir:    c.Fetch.TempDir,
	})
}

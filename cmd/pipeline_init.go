package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/config"
	"github.com/sells-group/census-cli/internal/fetcher"
	"github.com/sells-group/census-cli/internal/metrics"
	"github.com/sells-group/census-cli/internal/pipeline"
	"github.com/sells-group/census-cli/internal/store"
)

// newLoader builds a census loader wired to the HTTP, FTP, and database
// fetchers from config.
func newLoader(c *config.Config) *census.Loader {
	timeout := time.Duration(c.Census.LoadTimeoutSecs) * time.Second
	return &census.Loader{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  c.Fetch.UserAgent,
			Timeout:    timeout,
			MaxRetries: c.Fetch.MaxRetries,
			RatePerSec: c.Fetch.RatePerSec,
		}),
		FTP:      fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
		OpenDB:   store.Opener(c.Store.MaxConns),
		Encoding: c.Census.Encoding,
		Timeout:  timeout,
		TempDir:  c.Census.TempDir,
	}
}

// initHandle validates config for mode, loads the census source, and
// returns a query handle. A load failure yields a handle over an empty table
// unless census.fail_on_load_error is set.
func initHandle(ctx context.Context, c *config.Config, mode, source string) (*pipeline.Handle, error) {
	if source != "" {
		c.Census.Source = source
	}
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	h, err := pipeline.Build(ctx, newLoader(c), c.Census.Source, pipeline.Options{
		Rand:    pipeline.SourceFor(c.Apportion.Seed),
		Observe: metrics.ObserveQuery,
	})
	metrics.ObserveLoad(h.Len(), err)
	if err != nil {
		if c.Census.FailOnLoadError {
			return nil, eris.Wrap(err, "init pipeline")
		}
		zap.L().Warn("census load failed, continuing with an empty table", zap.Error(err))
	}
	return h, nil
}

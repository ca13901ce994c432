// Package store persists cleaned census tables so later runs can load them
// from sqlite:// or postgres:// sources instead of re-parsing the extract.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/census-cli/internal/census"
)

// ErrNoImport is returned when no matching import exists.
var ErrNoImport = errors.New("store: no import found")

// Import describes one stored snapshot of a census table.
type Import struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"`
	Records    int       `json:"records" yaml:"records"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at"`
}

// SaveRequest is a table to store. An empty ID creates a new import; a set
// ID replaces that import's rows.
type SaveRequest struct {
	ID     string
	Source string
	Table  census.Table
}

// Store defines the persistence interface for imported census tables.
type Store interface {
	SaveImport(ctx context.Context, req SaveRequest) (*Import, error)
	LatestImport(ctx context.Context) (*Import, error)
	ListImports(ctx context.Context, limit int) ([]Import, error)
	LoadImport(ctx context.Context, id string) (census.Table, error)

	Migrate(ctx context.Context) error
	Close() error
}

// importID returns the request's ID or a fresh one, and whether the import
// replaces an existing one.
func importID(req SaveRequest) (string, bool, error) {
	if req.ID == "" {
		return uuid.NewString(), false, nil
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return "", false, eris.Wrapf(err, "store: invalid import id %q", req.ID)
	}
	return id.String(), true, nil
}

package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/census"
	"github.com/sells-group/census-cli/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const schema = "census"

var occupationColumns = []string{"import_id", "position", "occupation", "total", "men", "women"}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return eris.Wrap(db.Migrate(ctx, s.pool, migrationFS, "migrations", schema), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveImport stores the table in one transaction. New imports stream rows
// with COPY; replacing an existing import upserts by position and trims
// leftover rows.
func (s *PostgresStore) SaveImport(ctx context.Context, req SaveRequest) (*Import, error) {
	id, replace, err := importID(req)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin import")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO census.imports (id, source, records, imported_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET source = EXCLUDED.source, records = EXCLUDED.records, imported_at = EXCLUDED.imported_at`,
		id, req.Source, len(req.Table), now,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert import")
	}

	rows := make([][]any, len(req.Table))
	for i, r := range req.Table {
		rows[i] = []any{id, i, r.Occupation, r.Total, r.Men, r.Women}
	}

	var n int64
	if replace {
		if _, err := tx.Exec(ctx,
			`DELETE FROM census.occupations WHERE import_id = $1 AND position >= $2`, id, len(req.Table),
		); err != nil {
			return nil, eris.Wrap(err, "postgres: trim import rows")
		}
		n, err = db.BulkUpsertTx(ctx, tx, db.UpsertConfig{
			Table:        schema + ".occupations",
			Columns:      occupationColumns,
			ConflictKeys: []string{"import_id", "position"},
		}, rows)
	} else {
		n, err = db.CopyFrom(ctx, tx, schema+".occupations", occupationColumns, rows)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: write occupations")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit import")
	}

	zap.L().Debug("postgres: import saved",
		zap.String("import_id", id),
		zap.Bool("replace", replace),
		zap.Int64("rows", n),
	)
	return &Import{ID: id, Source: req.Source, Records: len(req.Table), ImportedAt: now}, nil
}

func (s *PostgresStore) LatestImport(ctx context.Context) (*Import, error) {
	var imp Import
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, source, records, imported_at FROM census.imports ORDER BY imported_at DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.Records, &imp.ImportedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest import")
	}
	return &imp, nil
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, source, records, imported_at FROM census.imports ORDER BY imported_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	imports := []Import{}
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.Records, &imp.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		imports = append(imports, imp)
	}
	return imports, eris.Wrap(rows.Err(), "postgres: iterate imports")
}

func (s *PostgresStore) LoadImport(ctx context.Context, id string) (census.Table, error) {
	var records int
	err := s.pool.QueryRow(ctx, `SELECT records FROM census.imports WHERE id = $1`, id).Scan(&records)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNoImport, "postgres: import %s", id)
		}
		return nil, eris.Wrap(err, "postgres: lookup import")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT occupation, total, men, women FROM census.occupations WHERE import_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load import")
	}
	defer rows.Close()

	table := make(census.Table, 0, records)
	for rows.Next() {
		var r census.Record
		if err := rows.Scan(&r.Occupation, &r.Total, &r.Men, &r.Women); err != nil {
			return nil, eris.Wrap(err, "postgres: scan occupation")
		}
		table = append(table, r)
	}
	return table, eris.Wrap(rows.Err(), "postgres: iterate occupations")
}

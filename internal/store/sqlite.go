package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/census-cli/internal/census"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS census_imports (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	records     INTEGER NOT NULL,
	imported_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS census_occupations (
	import_id  TEXT NOT NULL REFERENCES census_imports(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	occupation TEXT NOT NULL,
	total      INTEGER NOT NULL,
	men        INTEGER NOT NULL,
	women      INTEGER NOT NULL,
	PRIMARY KEY (import_id, position)
);

CREATE INDEX IF NOT EXISTS idx_census_imports_imported_at ON census_imports(imported_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveImport(ctx context.Context, req SaveRequest) (*Import, error) {
	id, _, err := importID(req)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// Replacing an import drops its old rows first.
	if _, err := tx.ExecContext(ctx, `DELETE FROM census_occupations WHERE import_id = ?`, id); err != nil {
		return nil, eris.Wrap(err, "sqlite: clear import rows")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO census_imports (id, source, records, imported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET source = excluded.source, records = excluded.records, imported_at = excluded.imported_at`,
		id, req.Source, len(req.Table), now,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO census_occupations (import_id, position, occupation, total, men, women) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare occupation insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range req.Table {
		if _, err := stmt.ExecContext(ctx, id, i, r.Occupation, r.Total, r.Men, r.Women); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert occupation %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit import")
	}
	return &Import{ID: id, Source: req.Source, Records: len(req.Table), ImportedAt: now}, nil
}

func (s *SQLiteStore) LatestImport(ctx context.Context) (*Import, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, records, imported_at FROM census_imports ORDER BY imported_at DESC, rowid DESC LIMIT 1`)

	var imp Import
	if err := row.Scan(&imp.ID, &imp.Source, &imp.Records, &imp.ImportedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: latest import")
	}
	return &imp, nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, records, imported_at FROM census_imports ORDER BY imported_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close() //nolint:errcheck

	imports := []Import{}
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.Records, &imp.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		imports = append(imports, imp)
	}
	return imports, eris.Wrap(rows.Err(), "sqlite: iterate imports")
}

func (s *SQLiteStore) LoadImport(ctx context.Context, id string) (census.Table, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM census_imports WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup import")
	}
	if exists == 0 {
		return nil, eris.Wrapf(ErrNoImport, "sqlite: import %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT occupation, total, men, women FROM census_occupations WHERE import_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load import")
	}
	defer rows.Close() //nolint:errcheck

	table := census.Table{}
	for rows.Next() {
		var r census.Record
		if err := rows.Scan(&r.Occupation, &r.Total, &r.Men, &r.Women); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan occupation")
		}
		table = append(table, r)
	}
	return table, eris.Wrap(rows.Err(), "sqlite: iterate occupations")
}

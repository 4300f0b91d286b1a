package certstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// sqliteNameRow maps a row in the hidden_common_names table.
type sqliteNameRow struct {
	Name string `db:"name"`
}

// SQLiteNameStore persists hidden common names in a SQLite database.
type SQLiteNameStore struct {
	db   *sqlx.DB
	path string
}

// MemoryDatabase is the database path that keeps hidden names in memory for
// the lifetime of the store only.
const MemoryDatabase = ":memory:"

// OpenSQLiteNameStore opens (creating if needed) the database at dbPath,
// creating its parent directory. MemoryDatabase or an empty path opens an
// in-memory database that lives as long as the store.
func OpenSQLiteNameStore(dbPath string) (*SQLiteNameStore, error) {
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)"
	if dbPath != "" && dbPath != MemoryDatabase {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	slog.Debug("opened hidden name database", "path", dbPath)
	return &SQLiteNameStore{db: db, path: dbPath}, nil
}

// initSQLiteSchema creates the hidden_common_names table.
func initSQLiteSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS hidden_common_names (
			name text PRIMARY KEY
		);
	`)
	if err != nil {
		return fmt.Errorf("creating hidden_common_names table: %w", err)
	}
	return nil
}

// LoadNames returns all persisted names in ascending order.
func (s *SQLiteNameStore) LoadNames(ctx context.Context) ([]string, error) {
	var rows []sqliteNameRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT name FROM hidden_common_names ORDER BY name"); err != nil {
		return nil, fmt.Errorf("reading hidden common names: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}

// SaveNames replaces the persisted set with names in one transaction.
func (s *SQLiteNameStore) SaveNames(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM hidden_common_names"); err != nil {
		return fmt.Errorf("clearing hidden common names: %w", err)
	}
	for _, name := range names {
		_, err := tx.NamedExecContext(ctx,
			"INSERT OR IGNORE INTO hidden_common_names (name) VALUES (:name)",
			sqliteNameRow{Name: name})
		if err != nil {
			return fmt.Errorf("saving hidden common name %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing hidden common names: %w", err)
	}
	slog.Debug("hidden common names saved", "path", s.path, "count", len(names))
	return nil
}

// Close closes the underlying database.
func (s *SQLiteNameStore) Close() error {
	return s.db.Close()
}

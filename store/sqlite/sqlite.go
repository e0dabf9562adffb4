// Package sqlite is the node's persistence layer: a single-writer
// SQLite database backing the keyset, ledger, quote and correlator
// stores. Grounded on mint/storage/sqlite/sqlite.go in the teacher:
// embedded golang-migrate migrations, one open connection enforcing
// serializable writes.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrations embed.FS

// DB is the shared handle every per-concern store (KeysetStore,
// LedgerStore, MintQuoteStore, MeltQuoteStore, CorrelatorStore) wraps. A single
// connection keeps every write serialized, matching the teacher's
// db.SetMaxOpenConns(1) choice: sqlite has no real concurrent-writer
// story, so the node accepts one writer and leans on short
// transactions plus DBRetryLimit for write contention instead of a
// connection pool.
type DB struct {
	conn *sql.DB
}

func migrationsDir() (string, error) {
	tempDir, err := os.MkdirTemp("", "paynet-migrations")
	if err != nil {
		return "", err
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		src, err := migrations.Open(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return "", err
		}

		dst, err := os.Create(filepath.Join(tempDir, entry.Name()))
		if err != nil {
			src.Close()
			return "", err
		}

		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return "", err
		}
	}

	return tempDir, nil
}

// Open creates (or opens) the sqlite database at path/paynet.sqlite.db
// and runs any pending migrations.
func Open(path string) (*DB, error) {
	dbPath := filepath.Join(path, "paynet.sqlite.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	tempDir, err := migrationsDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", tempDir), fmt.Sprintf("sqlite3://%s", dbPath))
	if err != nil {
		return nil, err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

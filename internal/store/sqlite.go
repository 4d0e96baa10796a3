package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS tickers (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol VARCHAR(10) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickers_symbol ON tickers(symbol)`,

	`CREATE TABLE IF NOT EXISTS bars (
		id                            INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker_id                     INTEGER NOT NULL REFERENCES tickers(id) ON DELETE CASCADE,
		timespan                      VARCHAR(255) NOT NULL,
		multiplier                    INTEGER NOT NULL,
		ts_ms                         BIGINT NOT NULL,
		number_of_transactions        INTEGER NOT NULL,
		open_price                    NUMERIC(14,4) NOT NULL,
		highest_price                 NUMERIC(14,4) NOT NULL,
		lowest_price                  NUMERIC(14,4) NOT NULL,
		close_price                   NUMERIC(14,4) NOT NULL,
		trading_volume                BIGINT NOT NULL,
		volume_weighted_average_price NUMERIC(14,4) NOT NULL,
		CONSTRAINT unique_bar UNIQUE (ticker_id, timespan, multiplier, ts_ms)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bars_ticker_ts ON bars(ticker_id, ts_ms)`,
}

func sqliteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// OpenSQLite opens (or creates) the SQLite database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s, err := newSQLStore(db, dialect{
		name:              "sqlite",
		migrations:        sqliteMigrations,
		isUniqueViolation: sqliteUniqueViolation,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("sqlite store opened", "path", path)
	return s, nil
}

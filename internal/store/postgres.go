package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgUniqueViolation = "23505"

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS tickers (
		id     BIGSERIAL PRIMARY KEY,
		symbol VARCHAR(10) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickers_symbol ON tickers(symbol)`,

	`CREATE TABLE IF NOT EXISTS bars (
		id                            BIGSERIAL PRIMARY KEY,
		ticker_id                     BIGINT NOT NULL REFERENCES tickers(id) ON DELETE CASCADE,
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

func postgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// OpenPostgres connects through the pgx stdlib driver and runs migrations.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(60 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s, err := newSQLStore(db, dialect{
		name:              "postgres",
		numbered:          true,
		migrations:        postgresMigrations,
		isUniqueViolation: postgresUniqueViolation,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("postgres store connected")
	return s, nil
}

// Open picks the driver named in config.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

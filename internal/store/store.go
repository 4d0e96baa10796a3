package store

import (
	"context"
	"errors"

	"StockCharts/internal/model"
)

var (
	// ErrTickerNotFound is returned when a query names a symbol that was never ingested.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrIntegrity marks a violated uniqueness constraint.
	ErrIntegrity = errors.New("integrity error")
)

// BarQuery selects bars of one ticker/timespan/multiplier in [FromMs, ToMs].
type BarQuery struct {
	Symbol     string
	Timespan   model.Timespan
	Multiplier int
	FromMs     int64
	ToMs       int64
	Limit      int // zero means no limit
}

// Tx is the unit of work used by ingestion. All calls share one database transaction.
type Tx interface {
	// GetOrCreateTicker returns the ticker with symbol, inserting it when absent.
	GetOrCreateTicker(ctx context.Context, symbol string) (model.Ticker, error)
	// ExistingBars returns stored bars of the series with timestamps in [fromMs, toMs], keyed by timestamp.
	ExistingBars(ctx context.Context, tickerID int64, timespan model.Timespan, multiplier int, fromMs, toMs int64) (map[int64]model.Bar, error)
	// InsertBars bulk-inserts bars and returns them with IDs assigned, in the same order.
	InsertBars(ctx context.Context, bars []model.Bar) ([]model.Bar, error)
}

// Store persists tickers and aggregate bars.
type Store interface {
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	FindTicker(ctx context.Context, symbol string) (model.Ticker, error)
	// QueryBars returns matching bars ordered by symbol then timestamp.
	QueryBars(ctx context.Context, q BarQuery) ([]model.Bar, error)
	Ping(ctx context.Context) error
	Close() error
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"StockCharts/internal/model"
)

// insertChunk bounds rows per INSERT so bound parameters stay under SQLite's limit.
const insertChunk = 500

const barColumns = `b.id, b.ticker_id, t.symbol, b.timespan, b.multiplier, b.ts_ms, b.number_of_transactions,
	b.open_price, b.highest_price, b.lowest_price, b.close_price, b.trading_volume, b.volume_weighted_average_price`

// dialect captures what differs between the supported SQL engines.
type dialect struct {
	name              string
	numbered          bool // $1, $2 placeholders instead of ?
	migrations        []string
	isUniqueViolation func(error) bool
}

// rebind rewrites ? placeholders for engines that number them.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			head := stmt
			if len(head) > 40 {
				head = head[:40]
			}
			return fmt.Errorf("exec %q: %w", head, err)
		}
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{q: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", ErrIntegrity, err)
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) FindTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	return findTicker(ctx, s.db, s.dialect, symbol)
}

func (s *SQLStore) QueryBars(ctx context.Context, q BarQuery) ([]model.Bar, error) {
	ticker, err := s.FindTicker(ctx, q.Symbol)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + barColumns + `
		FROM bars b JOIN tickers t ON t.id = b.ticker_id
		WHERE b.ticker_id = ? AND b.timespan = ? AND b.multiplier = ? AND b.ts_ms >= ? AND b.ts_ms <= ?
		ORDER BY t.symbol, b.ts_ms`
	args := []any{ticker.ID, string(q.Timespan), q.Multiplier, q.FromMs, q.ToMs}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	slog.Info("closing store", "driver", s.dialect.name)
	return s.db.Close()
}

type sqlTx struct {
	q       querier
	dialect dialect
}

func (t *sqlTx) GetOrCreateTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	ticker, err := findTicker(ctx, t.q, t.dialect, symbol)
	if err == nil {
		return ticker, nil
	}
	if !errors.Is(err, ErrTickerNotFound) {
		return model.Ticker{}, err
	}

	ticker = model.Ticker{Symbol: symbol}
	row := t.q.QueryRowContext(ctx, t.dialect.rebind(`INSERT INTO tickers (symbol) VALUES (?) RETURNING id`), symbol)
	if err := row.Scan(&ticker.ID); err != nil {
		return model.Ticker{}, fmt.Errorf("insert ticker %s: %w", symbol, err)
	}
	slog.Info("ticker created", "symbol", symbol, "id", ticker.ID)
	return ticker, nil
}

func (t *sqlTx) ExistingBars(ctx context.Context, tickerID int64, timespan model.Timespan, multiplier int, fromMs, toMs int64) (map[int64]model.Bar, error) {
	query := `SELECT ` + barColumns + `
		FROM bars b JOIN tickers t ON t.id = b.ticker_id
		WHERE b.ticker_id = ? AND b.timespan = ? AND b.multiplier = ? AND b.ts_ms >= ? AND b.ts_ms <= ?`
	rows, err := t.q.QueryContext(ctx, t.dialect.rebind(query), tickerID, string(timespan), multiplier, fromMs, toMs)
	if err != nil {
		return nil, fmt.Errorf("select existing bars: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]model.Bar)
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		existing[b.Timestamp] = b
	}
	return existing, rows.Err()
}

func (t *sqlTx) InsertBars(ctx context.Context, bars []model.Bar) ([]model.Bar, error) {
	out := make([]model.Bar, 0, len(bars))
	for start := 0; start < len(bars); start += insertChunk {
		end := start + insertChunk
		if end > len(bars) {
			end = len(bars)
		}
		inserted, err := t.insertChunk(ctx, bars[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, inserted...)
	}
	return out, nil
}

func (t *sqlTx) insertChunk(ctx context.Context, bars []model.Bar) ([]model.Bar, error) {
	var b strings.Builder
	b.WriteString(`INSERT INTO bars (ticker_id, timespan, multiplier, ts_ms, number_of_transactions,
		open_price, highest_price, lowest_price, close_price, trading_volume, volume_weighted_average_price) VALUES `)
	args := make([]any, 0, len(bars)*11)
	for i, bar := range bars {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, bar.TickerID, string(bar.Timespan), bar.Multiplier, bar.Timestamp, bar.Transactions,
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.VWAP)
	}
	b.WriteString(" RETURNING id, ts_ms")

	rows, err := t.q.QueryContext(ctx, t.dialect.rebind(b.String()), args...)
	if err != nil {
		return nil, t.wrapInsertErr(err)
	}
	defer rows.Close()

	ids := make(map[int64]int64, len(bars))
	for rows.Next() {
		var id, ts int64
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, fmt.Errorf("scan inserted bar: %w", err)
		}
		ids[ts] = id
	}
	if err := rows.Err(); err != nil {
		return nil, t.wrapInsertErr(err)
	}

	out := make([]model.Bar, len(bars))
	for i, bar := range bars {
		id, ok := ids[bar.Timestamp]
		if !ok {
			return nil, fmt.Errorf("insert bars: no id returned for timestamp %d", bar.Timestamp)
		}
		bar.ID = id
		out[i] = bar
	}
	return out, nil
}

func (t *sqlTx) wrapInsertErr(err error) error {
	if t.dialect.isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	return fmt.Errorf("insert bars: %w", err)
}

func findTicker(ctx context.Context, q querier, d dialect, symbol string) (model.Ticker, error) {
	ticker := model.Ticker{Symbol: symbol}
	err := q.QueryRowContext(ctx, d.rebind(`SELECT id FROM tickers WHERE symbol = ? ORDER BY id LIMIT 1`), symbol).Scan(&ticker.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Ticker{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return model.Ticker{}, fmt.Errorf("find ticker %s: %w", symbol, err)
	}
	return ticker, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBar(row scanner) (model.Bar, error) {
	var b model.Bar
	var timespan string
	if err := row.Scan(&b.ID, &b.TickerID, &b.Symbol, &timespan, &b.Multiplier, &b.Timestamp, &b.Transactions,
		&b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.VWAP); err != nil {
		return model.Bar{}, fmt.Errorf("scan bar: %w", err)
	}
	b.Timespan = model.Timespan(timespan)
	return b, nil
}

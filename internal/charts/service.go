package charts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"StockCharts/internal/collector"
	"StockCharts/internal/model"
	"StockCharts/internal/store"
)

// Series identifies one aggregate series of a ticker.
type Series struct {
	Symbol     string
	Timespan   model.Timespan
	Multiplier int
}

// Service ingests upstream aggregates into the store and reads ranges back.
type Service struct {
	store store.Store
	loc   *time.Location
	log   *slog.Logger
}

// NewService creates a Service. Calendar dates are interpreted in loc (UTC when nil).
func NewService(st store.Store, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, loc: loc, log: logger}
}

// Location returns the timezone used for day bounds.
func (s *Service) Location() *time.Location { return s.loc }

// Save upserts records as bars of series and returns one bar per record, in input order.
// Bars already stored are returned as-is; the rest are inserted in bulk, all in one transaction.
func (s *Service) Save(ctx context.Context, series Series, records []collector.BarRecord) ([]model.Bar, error) {
	var saved []model.Bar
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		ticker, err := tx.GetOrCreateTicker(ctx, series.Symbol)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		candidates := make([]model.Bar, len(records))
		minTs, maxTs := records[0].Timestamp, records[0].Timestamp
		for i, rec := range records {
			candidates[i] = toBar(ticker, series, rec)
			minTs = min(minTs, rec.Timestamp)
			maxTs = max(maxTs, rec.Timestamp)
		}

		existing, err := tx.ExistingBars(ctx, ticker.ID, series.Timespan, series.Multiplier, minTs, maxTs)
		if err != nil {
			return err
		}

		queued := make([]model.Bar, 0, len(candidates))
		seen := make(map[int64]bool, len(candidates))
		for _, c := range candidates {
			if _, ok := existing[c.Timestamp]; ok || seen[c.Timestamp] {
				continue
			}
			seen[c.Timestamp] = true
			queued = append(queued, c)
		}

		inserted, err := tx.InsertBars(ctx, queued)
		if err != nil {
			return err
		}
		for _, b := range inserted {
			existing[b.Timestamp] = b
		}

		saved = make([]model.Bar, len(candidates))
		for i, c := range candidates {
			saved[i] = existing[c.Timestamp]
		}
		s.log.Info("bars saved",
			"symbol", series.Symbol, "timespan", series.Timespan, "multiplier", series.Multiplier,
			"records", len(records), "inserted", len(inserted))
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrIntegrity) {
			return nil, fmt.Errorf("unexpected DB error: %w", err)
		}
		return nil, err
	}
	if saved == nil {
		saved = []model.Bar{}
	}
	return saved, nil
}

// Query returns stored bars of series between the start of from and the end of to,
// ordered by symbol then timestamp. A limit of zero returns every match.
func (s *Service) Query(ctx context.Context, series Series, from, to time.Time, limit int) ([]model.Bar, error) {
	fromMs, toMs := DayBoundsMs(from, to, s.loc)
	bars, err := s.store.QueryBars(ctx, store.BarQuery{
		Symbol:     series.Symbol,
		Timespan:   series.Timespan,
		Multiplier: series.Multiplier,
		FromMs:     fromMs,
		ToMs:       toMs,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("bars queried", "symbol", series.Symbol, "from_ms", fromMs, "to_ms", toMs, "count", len(bars))
	return bars, nil
}

// DayBoundsMs returns the first millisecond of from's calendar day and the last
// millisecond of to's calendar day in loc.
func DayBoundsMs(from, to time.Time, loc *time.Location) (int64, int64) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return start.UnixMilli(), end.UnixMilli() - 1
}

func toBar(ticker model.Ticker, series Series, rec collector.BarRecord) model.Bar {
	return model.Bar{
		TickerID:     ticker.ID,
		Symbol:       ticker.Symbol,
		Timespan:     series.Timespan,
		Multiplier:   series.Multiplier,
		Timestamp:    rec.Timestamp,
		Transactions: rec.Transactions.Int64(),
		Open:         rec.Open.Round(model.PriceDecimals),
		High:         rec.High.Round(model.PriceDecimals),
		Low:          rec.Low.Round(model.PriceDecimals),
		Close:        rec.Close.Round(model.PriceDecimals),
		Volume:       rec.Volume.Int64(),
		VWAP:         rec.VWAP.Round(model.PriceDecimals),
	}
}

package charts

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCharts/internal/collector"
	"StockCharts/internal/model"
	"StockCharts/internal/slogx"
	"StockCharts/internal/store"
)

var msftMinute = Series{Symbol: "MSFT", Timespan: model.TimespanMinute, Multiplier: 1}

func newTestService(t *testing.T) (*Service, *store.SQLStore) {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, time.UTC, slogx.Discard()), st
}

func record(ts int64, closePrice string) collector.BarRecord {
	c := decimal.RequireFromString(closePrice)
	return collector.BarRecord{
		Timestamp:    ts,
		Transactions: 3,
		Open:         c,
		High:         c,
		Low:          c,
		Close:        c,
		Volume:       500,
		VWAP:         c,
	}
}

func countBars(t *testing.T, st store.Store, series Series) int {
	t.Helper()
	bars, err := st.QueryBars(context.Background(), store.BarQuery{
		Symbol: series.Symbol, Timespan: series.Timespan, Multiplier: series.Multiplier,
		FromMs: 0, ToMs: 1 << 62,
	})
	require.NoError(t, err)
	return len(bars)
}

func TestSave_Idempotent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	rec := collector.BarRecord{
		Timestamp:    1000,
		Open:         decimal.NewFromInt(10),
		High:         decimal.NewFromInt(12),
		Low:          decimal.NewFromInt(9),
		Close:        decimal.NewFromInt(11),
		Volume:       500,
		VWAP:         decimal.RequireFromString("10.5"),
		Transactions: 3,
	}

	first, err := svc.Save(ctx, msftMinute, []collector.BarRecord{rec})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, countBars(t, st, msftMinute))

	second, err := svc.Save(ctx, msftMinute, []collector.BarRecord{rec})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, countBars(t, st, msftMinute))
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "10.5000", second[0].VWAP.StringFixed(model.PriceDecimals))
	assert.Equal(t, int64(3), second[0].Transactions)
}

func TestSave_InputOrderWithMixedExisting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	existing, err := svc.Save(ctx, msftMinute, []collector.BarRecord{record(2000, "2"), record(4000, "4")})
	require.NoError(t, err)

	got, err := svc.Save(ctx, msftMinute, []collector.BarRecord{
		record(5000, "5"), record(2000, "2"), record(1000, "1"), record(4000, "4"), record(3000, "3"),
	})
	require.NoError(t, err)
	require.Len(t, got, 5)

	ts := make([]int64, len(got))
	for i, b := range got {
		ts[i] = b.Timestamp
		assert.NotZero(t, b.ID)
		assert.Equal(t, "MSFT", b.Symbol)
	}
	assert.Equal(t, []int64{5000, 2000, 1000, 4000, 3000}, ts)
	assert.Equal(t, existing[0].ID, got[1].ID)
	assert.Equal(t, existing[1].ID, got[3].ID)
}

func TestSave_DuplicateTimestampsInBatch(t *testing.T) {
	svc, st := newTestService(t)

	got, err := svc.Save(context.Background(), msftMinute, []collector.BarRecord{record(1000, "1"), record(1000, "1")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].ID, got[1].ID)
	assert.Equal(t, 1, countBars(t, st, msftMinute))
}

func TestSave_SeriesAreIndependent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	fiveMinute := Series{Symbol: "MSFT", Timespan: model.TimespanMinute, Multiplier: 5}

	_, err := svc.Save(ctx, msftMinute, []collector.BarRecord{record(1000, "1")})
	require.NoError(t, err)
	_, err = svc.Save(ctx, fiveMinute, []collector.BarRecord{record(1000, "1")})
	require.NoError(t, err)

	assert.Equal(t, 1, countBars(t, st, msftMinute))
	assert.Equal(t, 1, countBars(t, st, fiveMinute))
}

func TestSave_EmptyCreatesTicker(t *testing.T) {
	svc, st := newTestService(t)

	got, err := svc.Save(context.Background(), Series{Symbol: "WMT", Timespan: model.TimespanDay, Multiplier: 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = st.FindTicker(context.Background(), "WMT")
	assert.NoError(t, err)
}

func TestSave_RoundsPrices(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Save(context.Background(), msftMinute, []collector.BarRecord{record(1000, "243.123456")})
	require.NoError(t, err)
	assert.Equal(t, "243.1235", got[0].Close.StringFixed(model.PriceDecimals))
}

// integrityStore fails every insert with a uniqueness violation.
type integrityStore struct{ store.Store }

func (s integrityStore) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error { return fn(integrityTx{tx}) })
}

type integrityTx struct{ store.Tx }

func (integrityTx) InsertBars(context.Context, []model.Bar) ([]model.Bar, error) {
	return nil, errors.Join(store.ErrIntegrity, errors.New("UNIQUE constraint failed"))
}

func TestSave_IntegrityError(t *testing.T) {
	_, st := newTestService(t)
	svc := NewService(integrityStore{st}, time.UTC, slogx.Discard())

	_, err := svc.Save(context.Background(), msftMinute, []collector.BarRecord{record(1000, "1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrIntegrity)
	assert.Contains(t, err.Error(), "unexpected DB error")
}

func TestQuery_SingleDayWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dayStart := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC).UnixMilli()
	dayEnd := dayStart + 24*60*60*1000 - 1

	_, err := svc.Save(ctx, msftMinute, []collector.BarRecord{
		record(dayStart-1, "1"),
		record(dayStart, "2"),
		record(dayStart+60000, "3"),
		record(dayEnd, "4"),
		record(dayEnd+1, "5"),
	})
	require.NoError(t, err)

	day := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := svc.Query(ctx, msftMinute, day, day, 0)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, dayStart, bars[0].Timestamp)
	assert.Equal(t, dayEnd, bars[2].Timestamp)
}

func TestQuery_Limit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2023, 1, 3, 14, 30, 0, 0, time.UTC).UnixMilli()

	records := make([]collector.BarRecord, 10)
	for i := range records {
		records[i] = record(base+int64(i)*60000, "1")
	}
	_, err := svc.Save(ctx, msftMinute, records)
	require.NoError(t, err)

	day := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := svc.Query(ctx, msftMinute, day, day, 4)
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.Equal(t, base, bars[0].Timestamp)
}

func TestQuery_UnknownTicker(t *testing.T) {
	svc, _ := newTestService(t)
	day := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

	_, err := svc.Query(context.Background(), Series{Symbol: "NOPE", Timespan: model.TimespanDay, Multiplier: 1}, day, day, 0)
	assert.ErrorIs(t, err, store.ErrTickerNotFound)
}

func TestDayBoundsMs(t *testing.T) {
	day := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	from, to := DayBoundsMs(day, day, time.UTC)
	assert.Equal(t, int64(1672704000000), from)
	assert.Equal(t, int64(1672790399999), to)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	from, to = DayBoundsMs(day, day, ny)
	assert.Equal(t, int64(1672722000000), from)
	assert.Equal(t, int64(1672808399999), to)
}

func TestIngest(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	req := collector.AggregatesRequest{
		Ticker: "MSFT", Timespan: model.TimespanMinute, Multiplier: 1,
		From: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), To: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), Limit: 120,
	}

	t.Run("ok", func(t *testing.T) {
		f := collector.NewMockFetcher(`{"ticker":"MSFT","results":[{"t":1672756200000,"o":1,"h":2,"l":0.5,"c":1.5,"v":10,"vw":1.2,"n":4}]}`)
		series, bars, err := svc.Ingest(ctx, f, req)
		require.NoError(t, err)
		assert.Equal(t, msftMinute, series)
		assert.Len(t, bars, 1)
		assert.Len(t, f.Requests(), 1)
	})

	t.Run("status error", func(t *testing.T) {
		f := &collector.MockFetcher{StatusCode: http.StatusTooManyRequests}
		_, _, err := svc.Ingest(ctx, f, req)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("transport error", func(t *testing.T) {
		f := &collector.MockFetcher{Err: errors.New("connection refused")}
		_, _, err := svc.Ingest(ctx, f, req)
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("unparsable body", func(t *testing.T) {
		nonsense := req
		nonsense.Ticker = "EBAY"
		f := collector.NewMockFetcher("not json")
		series, bars, err := svc.Ingest(ctx, f, nonsense)
		require.NoError(t, err)
		assert.Equal(t, "EBAY", series.Symbol)
		assert.Empty(t, bars)
	})

	assert.Equal(t, 1, countBars(t, st, msftMinute))
}

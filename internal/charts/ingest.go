package charts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"StockCharts/internal/collector"
	"StockCharts/internal/model"
)

// ErrUpstream marks a failure to reach the aggregates API.
var ErrUpstream = errors.New("upstream request failed")

// StatusError reports a non-200 reply from the aggregates API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Error code from Polygon.io: %d", e.StatusCode)
}

// Ingest fetches req through f and saves the returned bars. The series is keyed by the
// ticker named in the response, falling back to req.Ticker. A body that cannot be
// decoded counts as zero results.
func (s *Service) Ingest(ctx context.Context, f collector.Fetcher, req collector.AggregatesRequest) (Series, []model.Bar, error) {
	series := Series{Symbol: req.Ticker, Timespan: req.Timespan, Multiplier: req.Multiplier}

	resp, err := f.FetchAggregates(ctx, req)
	if err != nil {
		return series, nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return series, nil, &StatusError{StatusCode: resp.StatusCode}
	}

	agg, err := resp.Decode()
	if err != nil {
		s.log.Warn("unparsable aggregates body", "source", f.Name(), "symbol", req.Ticker, "err", err)
	}
	if agg.Ticker != "" {
		series.Symbol = agg.Ticker
	}

	bars, err := s.Save(ctx, series, agg.Results)
	if err != nil {
		return series, nil, err
	}
	return series, bars, nil
}

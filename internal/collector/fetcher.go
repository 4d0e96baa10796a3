package collector

import (
	"context"
	"time"

	"StockCharts/internal/model"
)

// DateLayout is the calendar date format used in aggregate URLs.
const DateLayout = "2006-01-02"

// AggregatesRequest selects a range of aggregate bars for one ticker.
type AggregatesRequest struct {
	Ticker     string
	Timespan   model.Timespan
	Multiplier int
	From       time.Time // inclusive calendar date
	To         time.Time // inclusive calendar date
	Limit      int
}

// Response is the raw upstream reply. Non-200 statuses are not errors.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode parses the body as an aggregates payload.
func (r *Response) Decode() (*AggregatesResponse, error) {
	return DecodeAggregates(r.Body)
}

// Fetcher defines the interface for fetching aggregate bars.
type Fetcher interface {
	FetchAggregates(ctx context.Context, req AggregatesRequest) (*Response, error)
	Name() string
}

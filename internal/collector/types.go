package collector

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// BarRecord is one aggregate from the results array.
type BarRecord struct {
	Timestamp    int64           `json:"t"` // Unix msec
	Transactions FlexibleInt64   `json:"n"`
	Open         decimal.Decimal `json:"o"`
	High         decimal.Decimal `json:"h"`
	Low          decimal.Decimal `json:"l"`
	Close        decimal.Decimal `json:"c"`
	Volume       FlexibleInt64   `json:"v"`
	VWAP         decimal.Decimal `json:"vw"`
}

// AggregatesResponse is the Polygon aggregates payload.
type AggregatesResponse struct {
	Ticker       string      `json:"ticker"`
	QueryCount   int         `json:"queryCount"`
	ResultsCount int         `json:"resultsCount"`
	Adjusted     bool        `json:"adjusted"`
	Results      []BarRecord `json:"results"`
	Status       string      `json:"status"`
	RequestID    string      `json:"request_id"`
	NextURL      string      `json:"next_url,omitempty"`
}

// DecodeAggregates parses body. On failure it returns an empty, non-nil response with the error.
func DecodeAggregates(body []byte) (*AggregatesResponse, error) {
	var resp AggregatesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &AggregatesResponse{}, fmt.Errorf("decode aggregates: %w", err)
	}
	return &resp, nil
}

// FlexibleInt64 parses int or float (scientific notation) to int64
type FlexibleInt64 int64

// UnmarshalJSON parses int, float or a numeric string
func (f *FlexibleInt64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexibleInt64(int64(val))
		return nil
	}

	var intVal int64
	if err := json.Unmarshal(data, &intVal); err == nil {
		*f = FlexibleInt64(intVal)
		return nil
	}

	var floatVal float64
	if err := json.Unmarshal(data, &floatVal); err == nil {
		*f = FlexibleInt64(int64(floatVal))
		return nil
	}

	return fmt.Errorf("cannot parse as int64: %s", string(data))
}

// Int64 returns int64 value
func (f FlexibleInt64) Int64() int64 {
	return int64(f)
}

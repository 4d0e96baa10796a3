package export

import (
	"fmt"
	"io"
	"strings"

	"StockCharts/internal/model"
)

// Row is the flat export form of a bar.
type Row struct {
	Symbol       string  `json:"symbol" parquet:"symbol"`
	Timespan     string  `json:"timespan" parquet:"timespan"`
	Multiplier   int32   `json:"multiplier" parquet:"multiplier"`
	Timestamp    int64   `json:"t" parquet:"t"`
	Open         float64 `json:"o" parquet:"o"`
	High         float64 `json:"h" parquet:"h"`
	Low          float64 `json:"l" parquet:"l"`
	Close        float64 `json:"c" parquet:"c"`
	Volume       int64   `json:"v" parquet:"v"`
	VWAP         float64 `json:"vw" parquet:"vw"`
	Transactions int64   `json:"n" parquet:"n"`
}

// Encoder writes bars in one file format.
type Encoder interface {
	Encode(w io.Writer, bars []model.Bar) error
	Extension() string
	ContentType() string
}

// NewEncoder returns the encoder for format (csv, json, parquet).
func NewEncoder(format string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv", "":
		return CSVEncoder{}, nil
	case "json":
		return JSONEncoder{}, nil
	case "parquet":
		return ParquetEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use csv, json, parquet)", format)
	}
}

// Rows converts bars to export rows.
func Rows(bars []model.Bar) []Row {
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{
			Symbol:       b.Symbol,
			Timespan:     string(b.Timespan),
			Multiplier:   int32(b.Multiplier),
			Timestamp:    b.Timestamp,
			Open:         b.Open.InexactFloat64(),
			High:         b.High.InexactFloat64(),
			Low:          b.Low.InexactFloat64(),
			Close:        b.Close.InexactFloat64(),
			Volume:       b.Volume,
			VWAP:         b.VWAP.InexactFloat64(),
			Transactions: b.Transactions,
		}
	}
	return rows
}

// Filename builds the attachment name for a series export.
func Filename(symbol string, timespan model.Timespan, multiplier int, from, to, ext string) string {
	return fmt.Sprintf("%s_%d%s_%s_%s.%s", symbol, multiplier, timespan, from, to, ext)
}

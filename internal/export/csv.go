package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"StockCharts/internal/model"
)

// CSVEncoder writes a header row then one line per bar. Prices keep four decimals.
type CSVEncoder struct{}

func (CSVEncoder) Extension() string   { return "csv" }
func (CSVEncoder) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVEncoder) Encode(w io.Writer, bars []model.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"symbol", "timespan", "multiplier", "t", "o", "h", "l", "c", "v", "vw", "n"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			b.Symbol,
			string(b.Timespan),
			strconv.Itoa(b.Multiplier),
			strconv.FormatInt(b.Timestamp, 10),
			b.Open.StringFixed(model.PriceDecimals),
			b.High.StringFixed(model.PriceDecimals),
			b.Low.StringFixed(model.PriceDecimals),
			b.Close.StringFixed(model.PriceDecimals),
			strconv.FormatInt(b.Volume, 10),
			b.VWAP.StringFixed(model.PriceDecimals),
			strconv.FormatInt(b.Transactions, 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

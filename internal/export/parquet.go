package export

import (
	"io"

	"github.com/parquet-go/parquet-go"

	"StockCharts/internal/model"
)

// ParquetEncoder writes a single parquet file with the Row schema.
type ParquetEncoder struct{}

func (ParquetEncoder) Extension() string   { return "parquet" }
func (ParquetEncoder) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetEncoder) Encode(w io.Writer, bars []model.Bar) error {
	return parquet.Write(w, Rows(bars))
}

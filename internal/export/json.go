package export

import (
	"encoding/json"
	"io"

	"StockCharts/internal/model"
)

// JSONEncoder writes an indented JSON array.
type JSONEncoder struct{}

func (JSONEncoder) Extension() string   { return "json" }
func (JSONEncoder) ContentType() string { return "application/json" }

func (JSONEncoder) Encode(w io.Writer, bars []model.Bar) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(bars))
}

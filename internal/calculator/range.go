package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"StockCharts/internal/model"
)

const (
	smaPeriod = 20
	rsiPeriod = 14
)

// Summary describes a run of bars in timestamp order.
type Summary struct {
	Count     int
	FirstMs   int64
	LastMs    int64
	Open      decimal.Decimal // open of the first bar
	Close     decimal.Decimal // close of the last bar
	High      decimal.Decimal
	Low       decimal.Decimal
	Change    decimal.Decimal
	ChangePct decimal.Decimal
	Volume    int64
	SMA       decimal.Decimal
	HasSMA    bool
	RSI       float64
	RangePos  float64
	SMAPeriod int
	RSIPeriod int
}

// CalculateRange returns the highest high and lowest low of bars.
func CalculateRange(bars []model.Bar) (high, low decimal.Decimal, err error) {
	if len(bars) == 0 {
		return decimal.Zero, decimal.Zero, errors.New("no bars provided")
	}
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High.GreaterThan(high) {
			high = b.High
		}
		if b.Low.LessThan(low) {
			low = b.Low
		}
	}
	return high, low, nil
}

// CalculateRangePosition returns where current sits within [low, high] (0.0~1.0).
func CalculateRangePosition(current, high, low decimal.Decimal) (float64, error) {
	if high.Equal(low) {
		return 0.5, nil
	}
	if high.LessThan(low) {
		return 0, errors.New("high must be >= low")
	}
	pos := current.Sub(low).Div(high.Sub(low)).InexactFloat64()
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// Summarize computes range, change, volume, SMA and RSI for bars.
func Summarize(bars []model.Bar) (*Summary, error) {
	high, low, err := CalculateRange(bars)
	if err != nil {
		return nil, err
	}
	first, last := bars[0], bars[len(bars)-1]

	s := &Summary{
		Count:     len(bars),
		FirstMs:   first.Timestamp,
		LastMs:    last.Timestamp,
		Open:      first.Open,
		Close:     last.Close,
		High:      high,
		Low:       low,
		Change:    last.Close.Sub(first.Open),
		SMAPeriod: smaPeriod,
		RSIPeriod: rsiPeriod,
	}
	if !first.Open.IsZero() {
		s.ChangePct = s.Change.Div(first.Open).Mul(decimal.NewFromInt(100)).Round(2)
	}
	for _, b := range bars {
		s.Volume += b.Volume
	}
	if sma, err := CalculateSMA(extractCloses(bars), smaPeriod); err == nil {
		s.SMA, s.HasSMA = sma, true
	}
	if s.RSI, err = CalculateRSI(bars, rsiPeriod); err != nil {
		return nil, err
	}
	if s.RangePos, err = CalculateRangePosition(s.Close, high, low); err != nil {
		return nil, err
	}
	return s, nil
}

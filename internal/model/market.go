package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the number of decimal places kept for prices (NUMERIC(14,4)).
const PriceDecimals = 4

// Ticker is the exchange symbol bars are traded under.
type Ticker struct {
	ID     int64
	Symbol string
}

func (t Ticker) String() string { return t.Symbol }

// Bar is one OHLCV aggregate for a ticker over a fixed time bucket.
type Bar struct {
	ID           int64
	TickerID     int64
	Symbol       string
	Timespan     Timespan
	Multiplier   int
	Timestamp    int64 // Unix msec, start of the aggregate window
	Transactions int64
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       int64
	VWAP         decimal.Decimal
}

// Time returns the start of the aggregate window.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp)
}

// DT formats the window start as "2006-01-02 15:04" in loc. Empty when the timestamp is unset.
func (b Bar) DT(loc *time.Location) string {
	if b.Timestamp == 0 {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(b.Timestamp/1000, 0).In(loc).Format("2006-01-02 15:04")
}

func (b Bar) String() string {
	return fmt.Sprintf("[%s] %s: o=%s\th=%s\tl=%s\tc=%s",
		b.Symbol, b.DT(time.UTC),
		b.Open.StringFixed(PriceDecimals), b.High.StringFixed(PriceDecimals),
		b.Low.StringFixed(PriceDecimals), b.Close.StringFixed(PriceDecimals))
}

// BarKey is the unique identity of a bar in the store.
type BarKey struct {
	TickerID   int64
	Timespan   Timespan
	Multiplier int
	Timestamp  int64
}

// Key returns the unique identity of b.
func (b Bar) Key() BarKey {
	return BarKey{TickerID: b.TickerID, Timespan: b.Timespan, Multiplier: b.Multiplier, Timestamp: b.Timestamp}
}

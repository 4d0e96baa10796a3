package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBar_DT(t *testing.T) {
	b := Bar{Timestamp: 1672756200000} // 2023-01-03 14:30 UTC
	if got := b.DT(time.UTC); got != "2023-01-03 14:30" {
		t.Errorf("DT = %q, want 2023-01-03 14:30", got)
	}
	ny, err := time.LoadLocation("America/New_York")
	if err == nil {
		if got := b.DT(ny); got != "2023-01-03 09:30" {
			t.Errorf("DT(NY) = %q, want 2023-01-03 09:30", got)
		}
	}
	if got := (Bar{}).DT(time.UTC); got != "" {
		t.Errorf("zero timestamp should format empty, got %q", got)
	}
}

func TestBar_String(t *testing.T) {
	b := Bar{
		Symbol:    "MSFT",
		Timestamp: 1672756200000,
		Open:      decimal.RequireFromString("10"),
		High:      decimal.RequireFromString("12.5"),
		Low:       decimal.RequireFromString("9"),
		Close:     decimal.RequireFromString("11.25"),
	}
	want := "[MSFT] 2023-01-03 14:30: o=10.0000\th=12.5000\tl=9.0000\tc=11.2500"
	if got := b.String(); got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestParseTimespan(t *testing.T) {
	for _, ts := range Timespans {
		got, err := ParseTimespan(string(ts))
		if err != nil || got != ts {
			t.Errorf("ParseTimespan(%q) = %q, %v", ts, got, err)
		}
	}
	if _, err := ParseTimespan("fortnight"); err == nil {
		t.Error("expected error for unknown timespan")
	}
}

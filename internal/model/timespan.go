package model

import "fmt"

// Timespan is the unit of an aggregate window.
type Timespan string

const (
	TimespanMinute  Timespan = "minute"
	TimespanHour    Timespan = "hour"
	TimespanDay     Timespan = "day"
	TimespanWeek    Timespan = "week"
	TimespanMonth   Timespan = "month"
	TimespanQuarter Timespan = "quarter"
	TimespanYear    Timespan = "year"
)

// Timespans lists every unit the aggregates API accepts, smallest first.
var Timespans = []Timespan{
	TimespanMinute,
	TimespanHour,
	TimespanDay,
	TimespanWeek,
	TimespanMonth,
	TimespanQuarter,
	TimespanYear,
}

// ParseTimespan returns the Timespan named by s.
func ParseTimespan(s string) (Timespan, error) {
	for _, ts := range Timespans {
		if string(ts) == s {
			return ts, nil
		}
	}
	return "", fmt.Errorf("unknown timespan %q", s)
}

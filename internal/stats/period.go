package stats

import (
	"errors"
	"time"
)

// ErrInvalidPeriod is returned for any period value outside the fixed set.
// Queries fail closed: an unknown period never falls back to an unbounded
// scan.
var ErrInvalidPeriod = errors.New("stats: invalid period")

// Period is one of the fixed dashboard lookback windows.
type Period struct {
	name     string
	lookback time.Duration
	hourly   bool
}

var periods = map[string]Period{
	"24h": {name: "24h", lookback: 24 * time.Hour, hourly: true},
	"7d":  {name: "7d", lookback: 7 * 24 * time.Hour},
	"30d": {name: "30d", lookback: 30 * 24 * time.Hour},
	"90d": {name: "90d", lookback: 90 * 24 * time.Hour},
}

// ParsePeriod validates a caller-supplied period string.
func ParsePeriod(s string) (Period, error) {
	p, ok := periods[s]
	if !ok {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// Name returns the canonical period label.
func (p Period) Name() string { return p.name }

// Since computes the inclusive start of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	return now.UTC().Add(-p.lookback)
}

// Hourly reports whether timeseries buckets are hours (24h) or days.
func (p Period) Hourly() bool { return p.hourly }

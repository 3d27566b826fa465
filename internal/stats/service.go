package stats

import (
	"context"
	"time"

	"sitepulse/internal/ch"
	"sitepulse/internal/model"
)

const queryTimeout = 10 * time.Second

// Overview is the single-row dashboard summary.
type Overview struct {
	Visitors    int64   `json:"visitors"`
	Pageviews   int64   `json:"pageviews"`
	AvgDuration float64 `json:"avg_duration_ms"`
	BounceRate  float64 `json:"bounce_rate"`
}

// TimePoint is one timeseries bucket, hourly or daily.
type TimePoint struct {
	Bucket    time.Time `json:"bucket"`
	Visitors  int64     `json:"visitors"`
	Pageviews int64     `json:"pageviews"`
}

// Breakdown is one grouped dimension value with its visitor count.
type Breakdown struct {
	Name      string `json:"name"`
	Visitors  int64  `json:"visitors"`
	Pageviews int64  `json:"pageviews,omitempty"`
}

// VitalSummary aggregates one web vital across the window.
type VitalSummary struct {
	Name        string  `json:"name"`
	P75         float64 `json:"p75"`
	P95         float64 `json:"p95"`
	GoodPercent float64 `json:"good_percent"`
}

// Service translates dashboard requests into aggregate ClickHouse queries.
// Every query scopes by site_id and a bounded time predicate; there is no
// cross-site query path.
type Service struct {
	client *ch.Client
	now    func() time.Time
}

// NewService builds the query service on top of the store client.
func NewService(client *ch.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Overview returns unique visitors, pageviews, average view duration and
// bounce rate for the window.
func (s *Service) Overview(ctx context.Context, siteID string, period Period) (Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.client.QueryRow(ctx, `
SELECT
  uniqExact(visitor_id)               AS visitors,
  count()                             AS pageviews,
  avg(duration_ms)                    AS avg_duration,
  countIf(is_bounce = 1) * 100.0 / greatest(count(), 1) AS bounce_rate
FROM events
WHERE site_id = ? AND type = ? AND ts >= ?`,
		siteID, model.TypePageview, period.Since(s.now()))

	var o Overview
	if err := row.Scan(&o.Visitors, &o.Pageviews, &o.AvgDuration, &o.BounceRate); err != nil {
		return Overview{}, err
	}
	return o, nil
}

// Timeseries returns visitors and pageviews per hour (24h period) or per
// day, in ascending time order. Windows with no traffic yield an empty list.
func (s *Service) Timeseries(ctx context.Context, siteID string, period Period) ([]TimePoint, error) {
	bucket := "toDate(ts)"
	if period.Hourly() {
		bucket = "toStartOfHour(ts)"
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.client.Query(ctx, `
SELECT `+bucket+` AS bucket,
  uniqExact(visitor_id) AS visitors,
  count()               AS pageviews
FROM events
WHERE site_id = ? AND type = ? AND ts >= ?
GROUP BY bucket
ORDER BY bucket ASC`,
		siteID, model.TypePageview, period.Since(s.now()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make([]TimePoint, 0)
	for rows.Next() {
		var p TimePoint
		if err := rows.Scan(&p.Bucket, &p.Visitors, &p.Pageviews); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// TopPages groups pageviews by path, ordered by unique visitors descending.
func (s *Service) TopPages(ctx context.Context, siteID string, period Period, limit int) ([]Breakdown, error) {
	return s.breakdown(ctx, "path", siteID, period, clampLimit(limit))
}

// TopSources groups pageviews by resolved referrer source.
func (s *Service) TopSources(ctx context.Context, siteID string, period Period, limit int) ([]Breakdown, error) {
	return s.breakdown(ctx, "referrer_source", siteID, period, clampLimit(limit))
}

// Countries returns unique visitors per country, capped at 50 rows.
func (s *Service) Countries(ctx context.Context, siteID string, period Period) ([]Breakdown, error) {
	return s.breakdown(ctx, "country", siteID, period, 50)
}

// Devices returns unique visitors per device type. Device cardinality is
// inherently small, so no cap is applied.
func (s *Service) Devices(ctx context.Context, siteID string, period Period) ([]Breakdown, error) {
	return s.breakdown(ctx, "device_type", siteID, period, 0)
}

// Vitals returns p75/p95 and the share of "good" samples per vital name.
func (s *Service) Vitals(ctx context.Context, siteID string, period Period) ([]VitalSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.client.Query(ctx, `
SELECT
  vital_name,
  quantile(0.75)(vital_value) AS p75,
  quantile(0.95)(vital_value) AS p95,
  countIf(vital_rating = 'good') * 100.0 / greatest(count(), 1) AS good_percent
FROM events
WHERE site_id = ? AND type = ? AND ts >= ?
GROUP BY vital_name
ORDER BY vital_name ASC`,
		siteID, model.TypeVital, period.Since(s.now()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]VitalSummary, 0)
	for rows.Next() {
		var v VitalSummary
		if err := rows.Scan(&v.Name, &v.P75, &v.P95, &v.GoodPercent); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LiveVisitors counts unique visitors in the trailing five minutes. This is
// the one read not parameterized by period.
func (s *Service) LiveVisitors(ctx context.Context, siteID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.client.QueryRow(ctx, `
SELECT uniqExact(visitor_id)
FROM events
WHERE site_id = ? AND ts >= ?`,
		siteID, s.now().UTC().Add(-5*time.Minute))

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// breakdown is the shared grouped-count query. The column name is one of a
// fixed set chosen by the callers above, never caller input.
func (s *Service) breakdown(ctx context.Context, column, siteID string, period Period, limit int) ([]Breakdown, error) {
	q := `
SELECT ` + column + ` AS name,
  uniqExact(visitor_id) AS visitors,
  count()               AS pageviews
FROM events
WHERE site_id = ? AND type = ? AND ts >= ?
GROUP BY name
ORDER BY visitors DESC`
	args := []any{siteID, model.TypePageview, period.Since(s.now())}
	if limit > 0 {
		q += `
LIMIT ?`
		args = append(args, limit)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.client.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Breakdown, 0)
	for rows.Next() {
		var b Breakdown
		if err := rows.Scan(&b.Name, &b.Visitors, &b.Pageviews); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DefaultLimit applies to top pages/sources when the caller does not set one.
const DefaultLimit = 20

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}

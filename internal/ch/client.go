package ch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"sitepulse/internal/model"
)

// Client wraps a ClickHouse connection.
type Client struct {
	db *sql.DB
}

// New creates a ClickHouse client from a DSN.
func New(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close releases database resources.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Ping ensures the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("clickhouse ping: %w", err)
	}
	return nil
}

// EnsureSchema creates the events table if it does not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS events
(
  site_id          LowCardinality(String),
  type             LowCardinality(String),
  url              String,
  path             String,
  hostname         String,
  referrer         String,
  referrer_source  LowCardinality(String),
  utm_source       LowCardinality(String),
  utm_medium       LowCardinality(String),
  utm_campaign     LowCardinality(String),
  utm_term         LowCardinality(String),
  utm_content      LowCardinality(String),
  country          LowCardinality(String),
  region           LowCardinality(String),
  city             String,
  browser          LowCardinality(String),
  browser_version  LowCardinality(String),
  os               LowCardinality(String),
  os_version       LowCardinality(String),
  device_type      LowCardinality(String),
  visitor_id       FixedString(16),
  session_id       FixedString(16),
  duration_ms      UInt32,
  is_bounce        UInt8,
  is_new           UInt8,
  event_name       LowCardinality(String),
  meta             Map(String, String),
  vital_name       LowCardinality(String),
  vital_value      Float64,
  vital_rating     LowCardinality(String),
  error_message    String,
  ts               DateTime('UTC')
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (site_id, ts, type)`
	_, err := c.db.ExecContext(ctx, ddl)
	return err
}

// InsertEvents writes a batch of normalized rows with a single prepared
// statement. The write is best-effort from the caller's perspective: the
// ingest path logs and drops on failure instead of retrying.
func (c *Client) InsertEvents(ctx context.Context, rows []model.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (
	site_id, type, url, path, hostname, referrer, referrer_source,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	country, region, city,
	browser, browser_version, os, os_version, device_type,
	visitor_id, session_id, duration_ms, is_bounce, is_new,
	event_name, meta, vital_name, vital_value, vital_rating, error_message, ts
) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(
			ctx,
			row.SiteID,
			row.Type,
			row.URL,
			row.Path,
			row.Hostname,
			row.Referrer,
			row.ReferrerSource,
			row.UTMSource,
			row.UTMMedium,
			row.UTMCampaign,
			row.UTMTerm,
			row.UTMContent,
			row.Country,
			row.Region,
			row.City,
			row.Browser,
			row.BrowserVersion,
			row.OS,
			row.OSVersion,
			row.DeviceType,
			row.VisitorID,
			row.SessionID,
			row.DurationMS,
			row.IsBounce,
			row.IsNew,
			row.EventName,
			row.Meta,
			row.VitalName,
			row.VitalValue,
			row.VitalRating,
			row.ErrorMessage,
			row.TS,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query runs an aggregate read and hands the rows to the caller.
func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row aggregate read.
func (c *Client) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// CountEvents returns the total rows for a site, useful for tests.
func (c *Client) CountEvents(ctx context.Context, siteID string) (int64, error) {
	row := c.db.QueryRowContext(ctx, `SELECT count() FROM events WHERE site_id = ?`, siteID)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

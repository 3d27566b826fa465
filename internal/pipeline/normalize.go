package pipeline

import (
	"net/url"
	"strings"
	"time"

	"sitepulse/internal/model"
	"sitepulse/internal/referrer"
	"sitepulse/internal/useragent"
)

// DefaultPlaceholderHost fills the hostname column when an event URL is a
// bare path and carries no host of its own.
const DefaultPlaceholderHost = "unknown.site"

// Identity carries the per-request derivations shared by every event in a
// submission: one visitor, one session, one UA classification, one geo fix.
type Identity struct {
	VisitorID string
	SessionID string
	UA        useragent.Classification
	Country   string
	Region    string
	City      string
}

// Normalizer reshapes raw submissions into ClickHouse-ready rows.
type Normalizer struct {
	placeholderHost string
}

// NewNormalizer builds a Normalizer. An empty placeholderHost selects the
// default.
func NewNormalizer(placeholderHost string) *Normalizer {
	if placeholderHost == "" {
		placeholderHost = DefaultPlaceholderHost
	}
	return &Normalizer{placeholderHost: placeholderHost}
}

// Normalize converts each raw event into one flat row, preserving input
// order. Events whose URL cannot be parsed even with the bare-path fallback
// are skipped; they never fail the batch. The row timestamp is assigned here,
// at ingestion time, with second precision.
func (n *Normalizer) Normalize(siteID string, events []model.RawEvent, id Identity, now time.Time) []model.EventRow {
	rows := make([]model.EventRow, 0, len(events))
	ts := now.UTC().Truncate(time.Second)
	for _, evt := range events {
		path, host, ok := n.splitURL(evt.URL)
		if !ok {
			continue
		}
		utmSource, utmMedium, utmCampaign, utmTerm, utmContent := utmFields(evt)
		meta := evt.Meta
		if meta == nil {
			meta = map[string]string{}
		}
		rows = append(rows, model.EventRow{
			SiteID:         siteID,
			Type:           evt.Type,
			URL:            evt.URL,
			Path:           path,
			Hostname:       host,
			Referrer:       evt.Referrer,
			ReferrerSource: referrer.Resolve(evt.Referrer),
			UTMSource:      utmSource,
			UTMMedium:      utmMedium,
			UTMCampaign:    utmCampaign,
			UTMTerm:        utmTerm,
			UTMContent:     utmContent,
			Country:        id.Country,
			Region:         id.Region,
			City:           id.City,
			Browser:        id.UA.Browser,
			BrowserVersion: id.UA.BrowserVersion,
			OS:             id.UA.OS,
			OSVersion:      id.UA.OSVersion,
			DeviceType:     id.UA.DeviceType,
			VisitorID:      id.VisitorID,
			SessionID:      id.SessionID,
			DurationMS:     evt.DurationMS,
			EventName:      evt.EventName,
			Meta:           meta,
			VitalName:      evt.VitalName,
			VitalValue:     evt.VitalValue,
			VitalRating:    evt.VitalRating,
			ErrorMessage:   evt.ErrorMessage,
			TS:             ts,
		})
	}
	return rows
}

// splitURL extracts path and hostname from an event URL. Values that do not
// look like absolute http(s) URLs get a synthetic scheme and placeholder host
// so extraction cannot fail on bare paths like "/pricing".
func (n *Normalizer) splitURL(raw string) (path, host string, ok bool) {
	candidate := raw
	if !strings.HasPrefix(raw, "http") {
		candidate = "https://" + n.placeholderHost + "/" + strings.TrimPrefix(raw, "/")
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", "", false
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	host = u.Hostname()
	if host == "" {
		host = n.placeholderHost
	}
	return path, host, true
}

// utmFields prefers the explicit event fields and falls back to the page
// URL's query string for anything left empty.
func utmFields(evt model.RawEvent) (source, medium, campaign, term, content string) {
	source = evt.UTMSource
	medium = evt.UTMMedium
	campaign = evt.UTMCampaign
	term = evt.UTMTerm
	content = evt.UTMContent
	if source != "" && medium != "" && campaign != "" && term != "" && content != "" {
		return
	}
	u, err := url.Parse(evt.URL)
	if err != nil {
		return
	}
	q := u.Query()
	if source == "" {
		source = q.Get("utm_source")
	}
	if medium == "" {
		medium = q.Get("utm_medium")
	}
	if campaign == "" {
		campaign = q.Get("utm_campaign")
	}
	if term == "" {
		term = q.Get("utm_term")
	}
	if content == "" {
		content = q.Get("utm_content")
	}
	return
}

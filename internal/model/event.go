package model

import "time"

// Event type tags accepted on the collect endpoint.
const (
	TypePageview = "pageview"
	TypeCustom   = "custom"
	TypeVital    = "vital"
	TypeError    = "error"
)

// Submission is the payload accepted by the public collect API: one site plus
// a batch of raw events. Either SiteID or Domain must be present.
type Submission struct {
	SiteID string     `json:"siteId"`
	Domain string     `json:"domain"`
	Events []RawEvent `json:"events"`
}

// RawEvent is one browser-submitted event. Fields that do not apply to the
// event's type are ignored rather than rejected.
type RawEvent struct {
	Type         string            `json:"type"`
	URL          string            `json:"url"`
	Referrer     string            `json:"referrer"`
	UTMSource    string            `json:"utm_source"`
	UTMMedium    string            `json:"utm_medium"`
	UTMCampaign  string            `json:"utm_campaign"`
	UTMTerm      string            `json:"utm_term"`
	UTMContent   string            `json:"utm_content"`
	DurationMS   uint32            `json:"duration_ms"`
	EventName    string            `json:"event_name"`
	Meta         map[string]string `json:"meta"`
	VitalName    string            `json:"vital_name"`
	VitalValue   float64           `json:"vital_value"`
	VitalRating  string            `json:"vital_rating"`
	ErrorMessage string            `json:"error_message"`
}

// KnownType reports whether the type tag is one of the four accepted kinds.
func (e RawEvent) KnownType() bool {
	switch e.Type {
	case TypePageview, TypeCustom, TypeVital, TypeError:
		return true
	}
	return false
}

// EventRow is the denormalized, self-contained row written to ClickHouse.
// Every column has a typed zero value; nothing is nullable.
type EventRow struct {
	SiteID         string            `json:"site_id"`
	Type           string            `json:"type"`
	URL            string            `json:"url"`
	Path           string            `json:"path"`
	Hostname       string            `json:"hostname"`
	Referrer       string            `json:"referrer"`
	ReferrerSource string            `json:"referrer_source"`
	UTMSource      string            `json:"utm_source"`
	UTMMedium      string            `json:"utm_medium"`
	UTMCampaign    string            `json:"utm_campaign"`
	UTMTerm        string            `json:"utm_term"`
	UTMContent     string            `json:"utm_content"`
	Country        string            `json:"country"`
	Region         string            `json:"region"`
	City           string            `json:"city"`
	Browser        string            `json:"browser"`
	BrowserVersion string            `json:"browser_version"`
	OS             string            `json:"os"`
	OSVersion      string            `json:"os_version"`
	DeviceType     string            `json:"device_type"`
	VisitorID      string            `json:"visitor_id"`
	SessionID      string            `json:"session_id"`
	DurationMS     uint32            `json:"duration_ms"`
	IsBounce       uint8             `json:"is_bounce"`
	IsNew          uint8             `json:"is_new"`
	EventName      string            `json:"event_name"`
	Meta           map[string]string `json:"meta"`
	VitalName      string            `json:"vital_name"`
	VitalValue     float64           `json:"vital_value"`
	VitalRating    string            `json:"vital_rating"`
	ErrorMessage   string            `json:"error_message"`
	TS             time.Time         `json:"ts"`
}

package ingest

// Outcome is the terminal state of one collect request. Every dropped
// variant is externally indistinguishable from Accepted: the endpoint
// acknowledges regardless, so scrapers cannot probe for site existence or
// rate limits.
type Outcome int

const (
	Accepted Outcome = iota
	DroppedMalformed
	DroppedUnknownSite
	DroppedRateLimited
	DroppedBot
)

// String returns the metric/log label for the outcome.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case DroppedMalformed:
		return "malformed"
	case DroppedUnknownSite:
		return "unknown_site"
	case DroppedRateLimited:
		return "rate_limited"
	case DroppedBot:
		return "bot"
	default:
		return "unknown"
	}
}

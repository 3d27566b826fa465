package ingest

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitepulse/internal/geo"
	"sitepulse/internal/httpx"
	"sitepulse/internal/livestream"
	"sitepulse/internal/model"
	"sitepulse/internal/pipeline"
	"sitepulse/internal/privacy"
	"sitepulse/internal/ratelimit"
	"sitepulse/internal/sites"
	"sitepulse/internal/useragent"
)

// maxBodyBytes caps a collect payload; anything larger is malformed.
const maxBodyBytes = 1 << 20

// Handler orchestrates the collect endpoint: shape validation, site
// resolution, rate limiting, bot filtering, identity derivation,
// normalization, async persistence and the live publish.
type Handler struct {
	registry    *sites.Registry
	limiter     *ratelimit.Limiter
	hasher      *privacy.Hasher
	normalizer  *pipeline.Normalizer
	broker      *livestream.Broker
	sink        RowSink
	locator     geo.Locator
	botPatterns []string
	log         *zap.Logger
	now         func() time.Time
}

// NewHandler wires the collect pipeline. A nil locator defaults to the
// core-layer noop.
func NewHandler(
	registry *sites.Registry,
	limiter *ratelimit.Limiter,
	hasher *privacy.Hasher,
	normalizer *pipeline.Normalizer,
	broker *livestream.Broker,
	sink RowSink,
	locator geo.Locator,
	botPatterns []string,
	log *zap.Logger,
) *Handler {
	if locator == nil {
		locator = geo.Noop{}
	}
	return &Handler{
		registry:    registry,
		limiter:     limiter,
		hasher:      hasher,
		normalizer:  normalizer,
		broker:      broker,
		sink:        sink,
		locator:     locator,
		botPatterns: botPatterns,
		log:         log,
		now:         time.Now,
	}
}

// Collect handles POST /v1/collect. The response is 204 for every outcome:
// a malformed, unknown-site, rate-limited or bot request must be
// indistinguishable from an accepted one.
func (h *Handler) Collect(c *gin.Context) {
	outcome := h.process(c)
	submissionsTotal.WithLabelValues(outcome.String()).Inc()
	if outcome != Accepted {
		h.log.Debug("submission dropped", zap.String("reason", outcome.String()))
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) process(c *gin.Context) Outcome {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return DroppedMalformed
	}
	var sub model.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return DroppedMalformed
	}
	if !validShape(sub) {
		return DroppedMalformed
	}

	siteID := sub.SiteID
	if siteID == "" {
		resolved, ok := h.registry.ResolveByDomain(sub.Domain)
		if !ok {
			return DroppedUnknownSite
		}
		siteID = resolved
	} else if _, ok := h.registry.Lookup(siteID); !ok {
		return DroppedUnknownSite
	}

	if !h.limiter.Admit(siteID) {
		return DroppedRateLimited
	}

	ua := c.Request.UserAgent()
	if useragent.IsBot(ua, h.botPatterns) {
		return DroppedBot
	}

	// One IP and one UA per request: identity, classification, and geo are
	// derived once and shared by every event in the batch.
	ip := httpx.ClientIP(c.Request)
	now := h.now()
	loc := h.locator.Locate(c.Request)
	id := pipeline.Identity{
		VisitorID: h.hasher.VisitorID(siteID, ip, ua, now),
		SessionID: h.hasher.SessionID(siteID, ip, ua, now),
		UA:        useragent.Classify(ua, h.botPatterns),
		Country:   loc.Country,
		Region:    loc.Region,
		City:      loc.City,
	}

	rows := h.normalizer.Normalize(siteID, sub.Events, id, now)
	if skipped := len(sub.Events) - len(rows); skipped > 0 {
		eventsSkipped.Add(float64(skipped))
	}
	if len(rows) == 0 {
		return Accepted
	}

	// Fire-and-forget from here on: the response never waits on the store
	// or on slow live subscribers.
	h.sink.AddAll(rows)
	rowsEnqueued.Add(float64(len(rows)))

	for _, row := range rows {
		if row.Type != model.TypePageview {
			continue
		}
		h.broker.Publish(siteID, livestream.PageviewEvent{
			Type:       model.TypePageview,
			Path:       row.Path,
			Country:    row.Country,
			Browser:    row.Browser,
			DeviceType: row.DeviceType,
			TS:         row.TS,
		})
		livePublished.Inc()
		break
	}
	return Accepted
}

// validShape checks the payload contract: a site identifier or domain, plus
// a non-empty batch of well-typed events with URLs.
func validShape(sub model.Submission) bool {
	if sub.SiteID == "" && sub.Domain == "" {
		return false
	}
	if len(sub.Events) == 0 {
		return false
	}
	for _, evt := range sub.Events {
		if !evt.KnownType() || evt.URL == "" {
			return false
		}
	}
	return true
}

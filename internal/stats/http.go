package stats

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitepulse/internal/sites"
)

// Provider is what the HTTP layer needs from the query service.
type Provider interface {
	Overview(ctx context.Context, siteID string, period Period) (Overview, error)
	Timeseries(ctx context.Context, siteID string, period Period) ([]TimePoint, error)
	TopPages(ctx context.Context, siteID string, period Period, limit int) ([]Breakdown, error)
	TopSources(ctx context.Context, siteID string, period Period, limit int) ([]Breakdown, error)
	Countries(ctx context.Context, siteID string, period Period) ([]Breakdown, error)
	Devices(ctx context.Context, siteID string, period Period) ([]Breakdown, error)
	Vitals(ctx context.Context, siteID string, period Period) ([]VitalSummary, error)
	LiveVisitors(ctx context.Context, siteID string) (int64, error)
}

// Handlers serves the authenticated dashboard read endpoints. Unlike the
// collect side, failures here are surfaced as explicit error responses.
type Handlers struct {
	provider Provider
	registry *sites.Registry
	log      *zap.Logger
}

// NewHandlers wires the query service into gin handlers.
func NewHandlers(provider Provider, registry *sites.Registry, log *zap.Logger) *Handlers {
	return &Handlers{provider: provider, registry: registry, log: log}
}

// Register mounts the read endpoints on a router group keyed by site id.
func (h *Handlers) Register(group *gin.RouterGroup) {
	group.GET("/overview", h.overview)
	group.GET("/timeseries", h.timeseries)
	group.GET("/pages", h.pages)
	group.GET("/sources", h.sources)
	group.GET("/countries", h.countries)
	group.GET("/devices", h.devices)
	group.GET("/vitals", h.vitals)
	group.GET("/live", h.live)
}

// siteAndPeriod validates the path site and the period query parameter.
// Invalid periods fail closed with 400.
func (h *Handlers) siteAndPeriod(c *gin.Context) (string, Period, bool) {
	siteID := c.Param("site_id")
	if _, ok := h.registry.Lookup(siteID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return "", Period{}, false
	}
	period, err := ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be one of 24h, 7d, 30d, 90d"})
		return "", Period{}, false
	}
	return siteID, period, true
}

func (h *Handlers) overview(c *gin.Context) {
	siteID, period, ok := h.siteAndPeriod(c)
	if !ok {
		return
	}
	out, err := h.provider.Overview(c.Request.Context(), siteID, period)
	if err != nil {
		h.fail(c, "overview", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) timeseries(c *gin.Context) {
	siteID, period, ok := h.siteAndPeriod(c)
	if !ok {
		return
	}
	out, err := h.provider.Timeseries(c.Request.Context(), siteID, period)
	if err != nil {
		h.fail(c, "timeseries", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period.Name(), "series": out})
}

func (h *Handlers) pages(c *gin.Context) {
	h.topN(c, "pages", h.provider.TopPages)
}

func (h *Handlers) sources(c *gin.Context) {
	h.topN(c, "sources", h.provider.TopSources)
}

func (h *Handlers) topN(c *gin.Context, name string, fn func(context.Context, string, Period, int) ([]Breakdown, error)) {
	siteID, period, ok := h.siteAndPeriod(c)
	if !ok {
		return
	}
	limit := DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	out, err := fn(c.Request.Context(), siteID, period, limit)
	if err != nil {
		h.fail(c, name, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period.Name(), name: out})
}

func (h *Handlers) countries(c *gin.Context) {
	siteID, period, ok := h.siteAndPeriod(c)
	if !ok {
		return
	}
	out, err := h.provider.Countries(c.Request.Context(), siteID, period)
	if err != nil {
		h.fail(c, "countries", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period.Name(), "countries": out})
}

func (h *Handlers) devices(c *gin.Context) {
	siteID, period, ok := h.siteAndPeriod(c)
	if !ok {
		return
	}
	out, err := h.provider.Devices(c.Request.Context(), siteID, period)
	if err != nil {
		h.fail(c, "devices", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period.Name(), "devices": out})
}

func (h *Handlers) vitals(c *gin.Context) {
	siteID, period, ok := h.siteAndPeriod(c)
	if !ok {
		return
	}
	out, err := h.provider.Vitals(c.Request.Context(), siteID, period)
	if err != nil {
		h.fail(c, "vitals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period.Name(), "vitals": out})
}

func (h *Handlers) live(c *gin.Context) {
	siteID := c.Param("site_id")
	if _, ok := h.registry.Lookup(siteID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return
	}
	count, err := h.provider.LiveVisitors(c.Request.Context(), siteID)
	if err != nil {
		h.fail(c, "live", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitors": count})
}

func (h *Handlers) fail(c *gin.Context, query string, err error) {
	h.log.Error("stats query failed",
		zap.String("query", query),
		zap.String("site_id", c.Param("site_id")),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
}

package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitepulse/internal/livestream"
	"sitepulse/internal/model"
	"sitepulse/internal/pipeline"
	"sitepulse/internal/privacy"
	"sitepulse/internal/ratelimit"
	"sitepulse/internal/sites"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fakeSink struct {
	mu   sync.Mutex
	rows []model.EventRow
}

func (f *fakeSink) AddAll(rows []model.EventRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
}

func (f *fakeSink) all() []model.EventRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.EventRow(nil), f.rows...)
}

type fixture struct {
	router  *gin.Engine
	sink    *fakeSink
	broker  *livestream.Broker
	limiter *ratelimit.Limiter
}

func newFixture(t *testing.T, limiterMax int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := sites.NewRegistry()
	registry.Add(sites.Site{ID: "s1", Domain: "acme.com"})

	limiter := ratelimit.New(limiterMax, time.Minute)
	t.Cleanup(limiter.Close)

	sink := &fakeSink{}
	broker := livestream.NewBroker()
	h := NewHandler(
		registry,
		limiter,
		privacy.NewHasher("test-salt"),
		pipeline.NewNormalizer(""),
		broker,
		sink,
		nil,
		nil,
		zap.NewNop(),
	)

	router := gin.New()
	router.POST("/v1/collect", h.Collect)
	return &fixture{router: router, sink: sink, broker: broker, limiter: limiter}
}

func (f *fixture) post(t *testing.T, payload any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	switch v := payload.(type) {
	case string:
		body = []byte(v)
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/collect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func pageviewSubmission() model.Submission {
	return model.Submission{
		SiteID: "s1",
		Events: []model.RawEvent{{
			Type:     model.TypePageview,
			URL:      "https://acme.com/",
			Referrer: "https://www.google.com/",
		}},
	}
}

func TestCollectPageviewWritesRowAndPublishes(t *testing.T) {
	f := newFixture(t, 200)
	sub := f.broker.Subscribe("s1")
	defer sub.Close()

	w := f.post(t, pageviewSubmission(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	rows := f.sink.all()
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, "s1", row.SiteID)
	require.Equal(t, model.TypePageview, row.Type)
	require.Equal(t, "/", row.Path)
	require.Equal(t, "Google", row.ReferrerSource)
	require.Len(t, row.VisitorID, 16)
	require.Len(t, row.SessionID, 16)

	select {
	case evt := <-sub.C:
		require.Equal(t, "pageview", evt.Type)
		require.Equal(t, "/", evt.Path)
		require.Equal(t, "chrome", evt.Browser)
		require.Equal(t, "desktop", evt.DeviceType)
	case <-time.After(time.Second):
		t.Fatal("expected exactly one live-stream message")
	}
	require.Empty(t, sub.C, "only the first pageview of a batch is published")
}

func TestBatchPublishesOnlyFirstPageview(t *testing.T) {
	f := newFixture(t, 200)
	sub := f.broker.Subscribe("s1")
	defer sub.Close()

	payload := model.Submission{
		SiteID: "s1",
		Events: []model.RawEvent{
			{Type: model.TypeVital, URL: "/a", VitalName: "LCP", VitalValue: 2000},
			{Type: model.TypePageview, URL: "/first"},
			{Type: model.TypePageview, URL: "/second"},
		},
	}
	f.post(t, payload, nil)

	require.Len(t, f.sink.all(), 3)
	evt := <-sub.C
	require.Equal(t, "/first", evt.Path)
	require.Empty(t, sub.C)
}

func TestBotTrafficIsDroppedEntirely(t *testing.T) {
	f := newFixture(t, 200)
	sub := f.broker.Subscribe("s1")
	defer sub.Close()

	w := f.post(t, pageviewSubmission(), map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	})

	require.Equal(t, http.StatusNoContent, w.Code, "bots get the same acknowledgment")
	require.Empty(t, f.sink.all(), "no row is written for bot traffic")
	require.Empty(t, sub.C, "no live message is published for bot traffic")
}

func TestMalformedPayloadsAreSilentNoOps(t *testing.T) {
	f := newFixture(t, 200)

	for name, payload := range map[string]any{
		"invalid json":    `{"siteId": "s1", "events": [`,
		"no site":         model.Submission{Events: []model.RawEvent{{Type: model.TypePageview, URL: "/"}}},
		"empty events":    model.Submission{SiteID: "s1"},
		"unknown type":    model.Submission{SiteID: "s1", Events: []model.RawEvent{{Type: "telemetry", URL: "/"}}},
		"missing url":     model.Submission{SiteID: "s1", Events: []model.RawEvent{{Type: model.TypePageview}}},
	} {
		w := f.post(t, payload, nil)
		require.Equal(t, http.StatusNoContent, w.Code, "%s must still be acknowledged", name)
	}
	require.Empty(t, f.sink.all())
}

func TestDomainResolvesToSite(t *testing.T) {
	f := newFixture(t, 200)

	payload := model.Submission{
		Domain: "acme.com",
		Events: []model.RawEvent{{Type: model.TypePageview, URL: "/pricing"}},
	}
	f.post(t, payload, nil)

	rows := f.sink.all()
	require.Len(t, rows, 1)
	require.Equal(t, "s1", rows[0].SiteID)
}

func TestUnknownDomainIsDropped(t *testing.T) {
	f := newFixture(t, 200)

	payload := model.Submission{
		Domain: "evil.example",
		Events: []model.RawEvent{{Type: model.TypePageview, URL: "/"}},
	}
	w := f.post(t, payload, nil)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, f.sink.all())
}

func TestRateLimitedSubmissionIsDroppedButAcknowledged(t *testing.T) {
	f := newFixture(t, 200)

	for i := 0; i < 200; i++ {
		require.Equal(t, http.StatusNoContent, f.post(t, pageviewSubmission(), nil).Code)
	}
	require.Len(t, f.sink.all(), 200)

	// Subscribe only now, so the channel can prove the 201st publish never
	// happens.
	sub := f.broker.Subscribe("s1")
	defer sub.Close()

	w := f.post(t, pageviewSubmission(), nil)
	require.Equal(t, http.StatusNoContent, w.Code, "the 201st caller still gets a success acknowledgment")
	require.Len(t, f.sink.all(), 200, "the 201st submission writes no row")
	require.Empty(t, sub.C, "the 201st submission publishes no live message")
}

func TestDuplicateSubmissionsAreNotDeduplicated(t *testing.T) {
	f := newFixture(t, 200)

	f.post(t, pageviewSubmission(), nil)
	f.post(t, pageviewSubmission(), nil)

	rows := f.sink.all()
	require.Len(t, rows, 2, "no deduplication guarantee: identical payloads produce separate rows")
	require.Equal(t, rows[0].VisitorID, rows[1].VisitorID)
}

func TestVisitorIDVariesWithClientIP(t *testing.T) {
	f := newFixture(t, 200)

	f.post(t, pageviewSubmission(), map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})
	f.post(t, pageviewSubmission(), map[string]string{"X-Forwarded-For": "198.51.100.9"})

	rows := f.sink.all()
	require.Len(t, rows, 2)
	require.NotEqual(t, rows[0].VisitorID, rows[1].VisitorID)
}

func TestUnparseableEventURLDropsOnlyThatEvent(t *testing.T) {
	f := newFixture(t, 200)

	payload := model.Submission{
		SiteID: "s1",
		Events: []model.RawEvent{
			{Type: model.TypePageview, URL: "https://acme.com/ok"},
			{Type: model.TypePageview, URL: "http://bad host/\x7f"},
		},
	}
	w := f.post(t, payload, nil)

	require.Equal(t, http.StatusNoContent, w.Code)
	rows := f.sink.all()
	require.Len(t, rows, 1)
	require.Equal(t, "/ok", rows[0].Path)
}

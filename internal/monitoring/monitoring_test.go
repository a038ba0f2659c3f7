package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLogger_JSONWithTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.DatasetLogger("orders", "file", "sample_orders.csv", 12, 3*time.Millisecond, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Dataset loaded", entry["msg"])
	assert.Equal(t, "orders", entry["kind"])
	assert.Equal(t, float64(12), entry["rows"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "time")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelWarn)

	logger.ExportLogger("csv", "rfm.csv", 3)
	assert.Empty(t, buf.String())

	logger.SetLevel(slog.LevelInfo)
	logger.ExportLogger("csv", "rfm.csv", 3)
	assert.Contains(t, buf.String(), `"format":"csv"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordScoring(true)
	m.RecordScoring(false)
	m.RecordDatasetLoad("file", true)
	m.RecordDatasetLoad("upload", false)
	m.RecordExport("xlsx")
	m.IncrementRateLimitBlock()

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["scoring_runs"])
	assert.Equal(t, int64(1), stats["scoring_failures"])
	assert.Equal(t, map[string]int64{"file": 1, "upload": 1}, stats["dataset_loads"])
	assert.Equal(t, map[string]int64{"upload": 1}, stats["dataset_load_errors"])
	assert.Equal(t, map[string]int64{"xlsx": 1}, stats["exports"])
	assert.Equal(t, int64(1), stats["rate_limit_blocks"])
	assert.Equal(t, float64(0), stats["go_heap_usage_percent"])

	m.Reset()
	assert.Equal(t, int64(0), m.GetStats()["scoring_runs"])
}

func TestMetrics_Percentiles(t *testing.T) {
	m := NewMetrics()
	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}
	assert.Equal(t, 50*time.Millisecond, m.GetPercentileResponseTime(50))
	assert.Equal(t, 100*time.Millisecond, m.GetPercentileResponseTime(100))
}

func TestRecorder_FansOut(t *testing.T) {
	var buf bytes.Buffer
	prom := NewPromRegistry()
	metrics := NewMetrics()
	rec := NewRecorder(NewLoggerTo(&buf, slog.LevelInfo), metrics, prom)

	rec.Scored(OutcomeScored, 42, time.Millisecond)
	rec.Scored(OutcomeInsufficient, 3, time.Millisecond)
	rec.DatasetLoaded("rfm", "upload", "rfm.csv", 42, time.Millisecond, nil)
	rec.DatasetLoaded("orders", "", "", 0, time.Millisecond, errors.New("missing"))
	rec.Exported("csv", "filtered_orders.csv", 10)
	rec.RateLimited()

	assert.Equal(t, 1.0, testutil.ToFloat64(prom.ScoringRuns.WithLabelValues(OutcomeScored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.ScoringRuns.WithLabelValues(OutcomeInsufficient)))
	assert.Equal(t, 42.0, testutil.ToFloat64(prom.ScoredCustomers))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.DatasetLoads.WithLabelValues("orders", "none", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.Exports.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.RateLimited))

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats["scoring_runs"])
	assert.Equal(t, int64(1), stats["scoring_failures"])
	assert.Contains(t, buf.String(), "Dataset load failed")

	var nilRecorder *Recorder
	nilRecorder.Scored(OutcomeScored, 1, 0)
}

func TestPromRegistry_Handler(t *testing.T) {
	prom := NewPromRegistry()
	prom.ObserveRequest("GET", "/api/dashboard", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	prom.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "rfm_dashboard_http_request_duration_seconds")
	assert.Contains(t, body, `route="/api/dashboard"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMonitoringMiddleware(t *testing.T) {
	var buf bytes.Buffer
	metrics := NewMetrics()
	prom := NewPromRegistry()

	router := gin.New()
	router.Use(RequestIDMiddleware(), MonitoringMiddleware(metrics, prom, NewLoggerTo(&buf, slog.LevelInfo)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	for _, path := range []string{"/ok", "/fail", "/missing"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats["total_requests"])
	assert.Equal(t, int64(2), stats["error_count"])
	assert.Equal(t, map[int]int64{200: 1, 422: 1, 404: 1}, stats["status_code_distribution"])
	assert.Equal(t, 3, strings.Count(buf.String(), "HTTP Request"))

	assert.Equal(t, 3, testutil.CollectAndCount(prom.RequestDuration), "ok, fail and unmatched routes")
}

func TestRequestIDMiddleware_KeepsCallerID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestSecurityMonitoringMiddleware(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(SecurityMonitoringMiddleware(NewLoggerTo(&buf, slog.LevelInfo), 1024))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?country=x%27%3B--", nil))
	assert.Empty(t, buf.String(), "encoded query is not matched")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), "suspicious_user_agent")
}

func TestMemoryMonitor_Collect(t *testing.T) {
	metrics := NewMetrics()
	mm := NewMemoryMonitor(time.Minute, 0, metrics, nil)

	stats := mm.Collect()
	assert.NotZero(t, stats.HeapAlloc)
	assert.Equal(t, stats, mm.Last())
	assert.NotZero(t, metrics.GetStats()["go_heap_sys_bytes"])
}

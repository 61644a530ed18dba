package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	e := echo.New()
	e.Use(collector.Middleware())
	e.GET("/api/top", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/api/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "nope") })

	for _, path := range []string{"/api/top?year=2020", "/api/top", "/api/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues("/api/top", "GET", "200")); got != 2 {
		t.Fatalf("requests{/api/top,200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Requests.WithLabelValues("/api/fail", "GET", "400")); got != 1 {
		t.Fatalf("requests{/api/fail,400} = %v, want 1", got)
	}
}

func TestRecordLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.RecordLoad(120, 30, nil)
	collector.RecordLoad(0, 0, errors.New("boom"))

	if got := testutil.ToFloat64(collector.DatasetObservations); got != 120 {
		t.Errorf("observations = %v, want 120", got)
	}
	if got := testutil.ToFloat64(collector.DatasetCountries); got != 30 {
		t.Errorf("countries = %v, want 30", got)
	}
	if got := testutil.ToFloat64(collector.DatasetLoads.WithLabelValues("error")); got != 1 {
		t.Errorf("loads{error} = %v, want 1", got)
	}
}

func TestNewCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	if first.Requests != second.Requests {
		t.Fatal("expected the already registered counter to be reused")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	collector.RecordLoad(1, 1, nil)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "bandwidth_dataset_observations 1") {
		t.Fatalf("metrics output missing gauge:\n%s", body)
	}
}

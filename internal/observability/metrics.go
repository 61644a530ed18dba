package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles Prometheus metrics for the HTTP surface and the currently
// published dataset.
type Collector struct {
	gatherer prometheus.Gatherer

	Requests  *prometheus.CounterVec
	Durations *prometheus.HistogramVec

	DatasetObservations prometheus.Gauge
	DatasetCountries    prometheus.Gauge
	DatasetLoads        *prometheus.CounterVec
}

// NewCollector registers metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandwidth_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "bandwidth_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bandwidth_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route", "method"}), "bandwidth_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	observations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandwidth_dataset_observations",
		Help: "Number of observations in the published dataset.",
	}), "bandwidth_dataset_observations")
	if err != nil {
		return nil, err
	}
	countries, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandwidth_dataset_countries",
		Help: "Number of distinct countries in the published dataset.",
	}), "bandwidth_dataset_countries")
	if err != nil {
		return nil, err
	}

	loads, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandwidth_dataset_loads_total",
		Help: "Dataset load attempts, labeled by result (ok, error).",
	}, []string{"result"}), "bandwidth_dataset_loads_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		Requests:            requests,
		Durations:           durations,
		DatasetObservations: observations,
		DatasetCountries:    countries,
		DatasetLoads:        loads,
	}, nil
}

// Middleware records request counts and durations. Routes are labeled by
// their registered path so query strings do not explode cardinality.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if c == nil {
				return err
			}

			route := ctx.Path()
			if route == "" {
				route = "unknown"
			}
			method := ctx.Request().Method

			code := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				} else {
					code = http.StatusInternalServerError
				}
			}

			c.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			c.Durations.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordLoad counts a load attempt and, on success, updates the dataset gauges.
func (c *Collector) RecordLoad(observations, countries int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.DatasetLoads.WithLabelValues("error").Inc()
		return
	}
	c.DatasetLoads.WithLabelValues("ok").Inc()
	c.DatasetObservations.Set(float64(observations))
	c.DatasetCountries.Set(float64(countries))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

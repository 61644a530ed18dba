package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"bandwidth/internal/engine"
	"bandwidth/internal/logging"
	"bandwidth/internal/observability"
	"bandwidth/internal/report"

	"github.com/labstack/echo/v4"
)

// Loader produces a fresh dataset, e.g. by re-reading the configured source.
type Loader func(ctx context.Context) (*engine.Dataset, error)

type Handler struct {
	live      *engine.Live
	load      Loader
	log       logging.Logger
	metrics   *observability.Collector
	reloading atomic.Bool
}

// NewHandler serves queries against live. load and metrics may be nil; a nil
// load disables POST /api/reload.
func NewHandler(live *engine.Live, load Loader, log logging.Logger, metrics *observability.Collector) *Handler {
	if live == nil {
		live = engine.NewLive(nil)
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Handler{live: live, load: load, log: log, metrics: metrics}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}

	api := e.Group("/api")
	api.GET("/meta", h.withDataset(h.GetMeta))
	api.GET("/observations", h.withDataset(h.GetObservations))
	api.GET("/top", h.withDataset(h.GetTopCountries))
	api.GET("/trend", h.withDataset(h.GetTrend))
	api.GET("/average", h.withDataset(h.GetGlobalAverage))
	api.GET("/growth", h.withDataset(h.GetYoYGrowth))
	api.GET("/fastest", h.withDataset(h.GetFastestGrowing))
	api.GET("/dashboard", h.withDataset(h.GetDashboard))
	api.GET("/export/workbook", h.withDataset(h.ExportWorkbook))
	api.GET("/export/arrow", h.withDataset(h.ExportArrow))
	api.GET("/charts/top.png", h.withDataset(h.GetTopChart))
	api.GET("/charts/trend.png", h.withDataset(h.GetTrendChart))
	api.POST("/reload", h.Reload)
}

// SetData publishes d and updates the dataset gauges.
func (h *Handler) SetData(d *engine.Dataset) {
	h.live.Swap(d)
	if d != nil {
		h.metrics.RecordLoad(d.Len(), len(d.Countries), nil)
	}
}

// LoadNow runs the loader and publishes its result. On failure the current
// dataset, if any, stays in place.
func (h *Handler) LoadNow(ctx context.Context) error {
	if h.load == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "reload is not configured")
	}
	if !h.reloading.CompareAndSwap(false, true) {
		return echo.NewHTTPError(http.StatusConflict, "reload already in progress")
	}
	defer h.reloading.Store(false)

	d, err := h.load(ctx)
	if err != nil {
		h.metrics.RecordLoad(0, 0, err)
		h.log.Error(ctx, "dataset load failed", logging.Err(err))
		return err
	}
	h.SetData(d)
	return nil
}

// --- HELPERS ---

type datasetHandler func(c echo.Context, d *engine.Dataset) error

// withDataset answers 503 until a dataset is published, tags responses with
// the dataset fingerprint and honours If-None-Match.
func (h *Handler) withDataset(next datasetHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		d := h.live.Load()
		if d == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is loading")
		}

		etag := `"` + d.FingerprintHex() + `"`
		c.Response().Header().Set("ETag", etag)
		if match := c.Request().Header.Get("If-None-Match"); match != "" && match == etag {
			return c.NoContent(http.StatusNotModified)
		}
		return next(c, d)
	}
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// getYearParam reads ?year, defaulting to the latest year of d.
func getYearParam(c echo.Context, d *engine.Dataset) (int, error) {
	raw := strings.TrimSpace(c.QueryParam("year"))
	if raw == "" {
		return d.MaxYear, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "year must be an integer")
	}
	return year, nil
}

// getCountriesParam splits ?countries=a,b into trimmed, non-empty names.
func getCountriesParam(c echo.Context) []string {
	var out []string
	for _, part := range strings.Split(c.QueryParam("countries"), ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// --- HANDLERS ---

func (h *Handler) Healthz(c echo.Context) error {
	status := "loading"
	if h.live.Ready() {
		status = "ok"
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) GetMeta(c echo.Context, d *engine.Dataset) error {
	return c.JSON(http.StatusOK, d.Meta())
}

// observations of one year, optionally restricted to ?countries, paginated
func (h *Handler) GetObservations(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}

	rows := d.FilterByCountriesAndYear(getCountriesParam(c), year)
	total := len(rows)
	limit, offset := getPaginationParams(c, total)

	start := offset
	if start > total {
		start = total
	}
	end := total
	if limit < total-start {
		end = start + limit
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   rows[start:end],
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// returns Top 10 countries unless ?limit says otherwise
func (h *Handler) GetTopCountries(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}
	limit, _ := getPaginationParams(c, engine.DefaultTopLimit)
	return c.JSON(http.StatusOK, d.TopCountries(year, limit))
}

func (h *Handler) GetTrend(c echo.Context, d *engine.Dataset) error {
	countries := getCountriesParam(c)
	if len(countries) == 0 {
		countries = engine.TrendCountries(d.TopCountries(d.MaxYear, engine.DefaultTrendSize), nil)
	}
	return c.JSON(http.StatusOK, d.TrendSeries(countries))
}

func (h *Handler) GetGlobalAverage(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"year":           year,
		"global_average": d.GlobalAverage(year),
	})
}

func (h *Handler) GetYoYGrowth(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"year":          year,
		"previous_year": year - 1,
		"yoy_growth":    d.YoYGrowth(year),
	})
}

// returns Top 5 growers unless ?limit says otherwise
func (h *Handler) GetFastestGrowing(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}
	limit, _ := getPaginationParams(c, engine.DefaultGrowthLimit)
	return c.JSON(http.StatusOK, d.FastestGrowing(year, limit))
}

func (h *Handler) GetDashboard(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.Dashboard(year, getCountriesParam(c)))
}

func (h *Handler) ExportWorkbook(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, d.Dashboard(year, getCountriesParam(c))); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="bandwidth_`+strconv.Itoa(year)+`.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) ExportArrow(c echo.Context, d *engine.Dataset) error {
	var buf bytes.Buffer
	if err := report.WriteArrow(&buf, d.Columns()); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/vnd.apache.arrow.stream", buf.Bytes())
}

func (h *Handler) GetTopChart(c echo.Context, d *engine.Dataset) error {
	year, err := getYearParam(c, d)
	if err != nil {
		return err
	}
	limit, _ := getPaginationParams(c, engine.DefaultTopLimit)

	var buf bytes.Buffer
	if err := report.TopChart(&buf, year, d.TopCountries(year, limit)); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) GetTrendChart(c echo.Context, d *engine.Dataset) error {
	countries := getCountriesParam(c)
	if len(countries) == 0 {
		countries = engine.TrendCountries(d.TopCountries(d.MaxYear, engine.DefaultTrendSize), nil)
	}

	var buf bytes.Buffer
	if err := report.TrendChart(&buf, d.TrendSeries(countries)); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) Reload(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.LoadNow(ctx); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadGateway, "dataset load failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, h.live.Load().Meta())
}

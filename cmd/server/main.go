package main

import (
	"bandwidth/internal/api"
	"bandwidth/internal/config"
	"bandwidth/internal/engine"
	"bandwidth/internal/logging"
	"bandwidth/internal/observability"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

func main() {
	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(2)
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	// 1. Initialize Echo (Starts Instantly)
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(gommonlog.WARN)
	e.JSONSerializer = api.JSONSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(collector.Middleware())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	// 2. Initialize Handler with no data
	// The API is "live" but answers 503 (Loading) until the first load lands
	load := func(ctx context.Context) (*engine.Dataset, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
		return engine.LoadDataset(logging.ContextWithLogger(ctx, log), cfg.DataSource)
	}
	h := api.NewHandler(engine.NewLive(nil), load, log, collector)
	h.RegisterRoutes(e)

	// 3. Load the dataset in the background
	go func() {
		log.Info(ctx, "loading dataset", logging.String("source", cfg.DataSource))
		if err := h.LoadNow(ctx); err != nil {
			// Keep serving: the API stays in the loading state and a later
			// POST /api/reload can retry.
			return
		}
		log.Info(ctx, "dataset ready, API is fully live")
	}()

	// 4. Start Server
	go func() {
		log.Info(ctx, "server listening", logging.String("addr", cfg.Addr))
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server exited", logging.Err(err))
			os.Exit(1)
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "shutdown incomplete", logging.Err(err))
	}
}

func requestLogger(log logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logging.Field{
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
				logging.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn(c.Request().Context(), "request failed", append(fields, logging.Err(v.Error))...)
				return nil
			}
			log.Debug(c.Request().Context(), "request", fields...)
			return nil
		},
	})
}

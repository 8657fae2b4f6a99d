package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ecomtel/ussd-bridge/internal/config"
	"github.com/ecomtel/ussd-bridge/internal/forwarder"
	"github.com/ecomtel/ussd-bridge/internal/http/middleware"
	"github.com/ecomtel/ussd-bridge/internal/metrics"
	"github.com/ecomtel/ussd-bridge/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

// NewServer wires the bridge endpoint. clickhouseDB and rds are optional:
// without ClickHouse the reports route is not registered, without Redis the
// rate limiter is a pass-through.
func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, fwd *forwarder.Forwarder) *Server {
	logsRepo := repository.NewSessionLogsRepository(mysqlDB)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// gateway-facing endpoint
	var mws []echo.MiddlewareFunc
	if rds != nil && cfg.RateLimit.RPS > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Redis:          rds,
			RPS:            cfg.RateLimit.RPS,
			KeyPrefix:      "rl:src:",
			Window:         time.Second,
			RetryAfterHint: true,
		}))
	}
	e.POST("/", insertMOHandler(logsRepo, fwd), mws...)

	// read-side reports (ClickHouse, replicated from MySQL)
	if clickhouseDB != nil {
		e.GET("/v1/reports/sessions", listSessionsHandler(repository.NewCHSessionLogsRepository(clickhouseDB)))
	}

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

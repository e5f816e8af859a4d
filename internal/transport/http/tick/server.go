package tickhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tickagent/internal/logger"
	"tickagent/internal/metrics"
	"tickagent/internal/tick"

	"github.com/gin-gonic/gin"
)

// TickProcessor runs one validated tick.
type TickProcessor interface {
	Process(ctx context.Context, payload tick.Payload, tradeID string) (tick.Result, error)
}

type SnapshotReader interface {
	Load() []tick.Position
}

type HistoryReader interface {
	Load() []tick.HistoryEntry
}

// Server is the inbound HTTP boundary.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr            string
	APIKey          string
	AuthHeader      string
	RateLimitPerSec float64
	RateBurst       int
	Processor       TickProcessor
	Snapshot        SnapshotReader
	History         HistoryReader
	Metrics         *metrics.Metrics
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Processor == nil {
		return nil, errors.New("http server requires a tick processor")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("http server requires an api key")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "apikey"
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestID(), gin.CustomRecovery(recoverJSON), requestLogger())
	if err := loadTemplates(router); err != nil {
		return nil, err
	}

	h := &handlers{
		processor: cfg.Processor,
		snapshot:  cfg.Snapshot,
		history:   cfg.History,
		metrics:   cfg.Metrics,
	}
	auth := requireAPIKey(cfg.AuthHeader, cfg.APIKey)

	router.GET("/", h.root)
	router.GET("/healthcheck", auth, h.healthcheck)
	router.POST("/tick/:trade_id", auth, rateLimit(cfg.RateLimitPerSec, cfg.RateBurst), h.tick)
	if cfg.Snapshot != nil && cfg.History != nil {
		router.GET("/dashboard", h.dashboardPage)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "Not Found") })
	router.NoMethod(func(c *gin.Context) { fail(c, http.StatusMethodNotAllowed, "Method Not Allowed") })

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("HTTP server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

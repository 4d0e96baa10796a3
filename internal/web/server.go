package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"StockCharts/internal/charts"
	"StockCharts/internal/collector"
	"StockCharts/internal/config"
	"StockCharts/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the chart form, export and health endpoints.
type Server struct {
	cfg     *config.Config
	svc     *charts.Service
	fetcher collector.Fetcher
	store   store.Store
	log     *slog.Logger
	engine  *gin.Engine
}

// NewServer builds the gin engine and registers routes.
func NewServer(cfg *config.Config, svc *charts.Service, fetcher collector.Fetcher, st store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, svc: svc, fetcher: fetcher, store: st, log: logger}

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())
	r.SetHTMLTemplate(tmpl)
	s.engine = r
	s.RegisterRoutes(r)
	return s, nil
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.handleForm)
	r.GET("/healthz", s.handleHealth)

	g := r.Group("/charts")
	{
		g.GET("", s.handleForm)
		g.POST("", s.handleCharts)
		g.GET("/export", s.handleExport)
	}
}

// Handler exposes the engine for tests and custom servers.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

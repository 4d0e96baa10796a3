package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"StockCharts/internal/charts"
	"StockCharts/internal/collector"
	"StockCharts/internal/config"
	"StockCharts/internal/model"
	"StockCharts/internal/scheduler"
	"StockCharts/internal/slogx"
	"StockCharts/internal/store"
	"StockCharts/internal/web"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slogx.NewDefault(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config validation", "err", err)
		os.Exit(1)
	}
	logger.Info("stock charts starting", "config", cfgPath, "db", cfg.Database.Driver)

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	fetcher := collector.NewPolygonFetcher(collector.PolygonOptions{
		BaseURL:    cfg.Polygon.BaseURL,
		APIKey:     cfg.Polygon.APIKey,
		Unadjusted: cfg.Polygon.Unadjusted,
		Sort:       cfg.Polygon.Sort,
		Timeout:    cfg.Polygon.Timeout,
		Proxy:      cfg.Proxy,
	})
	logger.Info("data source", "name", fetcher.Name())

	svc := charts.NewService(st, cfg.Location(), logger)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Prefetch.Cron != "" {
		ts, _ := model.ParseTimespan(cfg.Prefetch.Timespan)
		sched := scheduler.NewScheduler(ctx, svc, fetcher, scheduler.PrefetchJob{
			Symbols:      cfg.Prefetch.Symbols,
			Timespan:     ts,
			Multiplier:   cfg.Prefetch.Multiplier,
			LookbackDays: cfg.Prefetch.LookbackDays,
			Limit:        cfg.Prefetch.Limit,
		}, logger)
		if err := sched.Register(cfg.Prefetch.Cron); err != nil {
			logger.Error("register prefetch", "err", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			logger.Info("RUN_ON_START enabled, prefetching now")
			go sched.RunNow()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := web.NewServer(cfg, svc, fetcher, st, logger)
	if err != nil {
		logger.Error("init web server", "err", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		logger.Error("http server", "err", err)
		os.Exit(1)
	}
	logger.Info("stock charts stopped")
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"StockCharts/internal/charts"
	"StockCharts/internal/collector"
	"StockCharts/internal/model"
)

// PrefetchJob describes the watchlist pulled on each tick.
type PrefetchJob struct {
	Symbols      []string
	Timespan     model.Timespan
	Multiplier   int
	LookbackDays int
	Limit        int
}

// Scheduler runs the prefetch job on a cron schedule.
type Scheduler struct {
	Cron    *cron.Cron
	Service *charts.Service
	Fetcher collector.Fetcher
	Job     PrefetchJob
	Ctx     context.Context
	Log     *slog.Logger

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *charts.Service, f collector.Fetcher, job PrefetchJob, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:    cron.New(),
		Service: svc,
		Fetcher: f,
		Job:     job,
		Ctx:     ctx,
		Log:     logger,
		now:     time.Now,
	}
}

// Register adds the prefetch task under a standard five-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.prefetchTask); err != nil {
		return fmt.Errorf("register prefetch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunNow executes the prefetch task immediately.
func (s *Scheduler) RunNow() Result {
	return s.prefetch(s.Ctx)
}

// Result counts the outcome of one prefetch run.
type Result struct {
	Symbols int
	Bars    int
	Failed  []string
}

func (s *Scheduler) prefetchTask() {
	s.prefetch(s.Ctx)
}

func (s *Scheduler) prefetch(ctx context.Context) Result {
	to := s.now().In(s.Service.Location())
	from := to.AddDate(0, 0, -s.Job.LookbackDays)
	s.Log.Info("running prefetch", "symbols", len(s.Job.Symbols), "from", from.Format(collector.DateLayout), "to", to.Format(collector.DateLayout))

	var res Result
	for _, symbol := range s.Job.Symbols {
		if ctx.Err() != nil {
			break
		}
		req := collector.AggregatesRequest{
			Ticker:     symbol,
			Timespan:   s.Job.Timespan,
			Multiplier: s.Job.Multiplier,
			From:       from,
			To:         to,
			Limit:      s.Job.Limit,
		}
		_, bars, err := s.Service.Ingest(ctx, s.Fetcher, req)
		if err != nil {
			s.Log.Error("prefetch failed", "symbol", symbol, "err", err)
			res.Failed = append(res.Failed, symbol)
			continue
		}
		res.Symbols++
		res.Bars += len(bars)
	}
	s.Log.Info("prefetch done", "symbols", res.Symbols, "bars", res.Bars, "failed", len(res.Failed))
	return res
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/collectiva/loan-engine/internal/config"
	"github.com/collectiva/loan-engine/internal/repository"
	"github.com/collectiva/loan-engine/internal/service"
	"github.com/collectiva/loan-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting delinquency scheduler")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("connecting to database failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	aggregation := service.NewAggregationService(
		repository.NewLoanRepository(db),
		repository.NewAgentRepository(db),
		repository.NewHolidayRepository(db),
	)

	c := cron.New(cron.WithSeconds())

	_, err = c.AddFunc(cfg.Scheduler.AggregationSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		slog.Info("running delinquency aggregation")
		summary, err := aggregation.Run(ctx, time.Now(), cfg.Scheduler.IncludeInactive)
		if err != nil {
			slog.Error("delinquency aggregation failed", "error", err)
			return
		}
		slog.Info("delinquency aggregation done", "agents", summary.Agents, "failed", summary.Failed)
	})
	if err != nil {
		slog.Error("scheduling aggregation job failed", "error", err)
		os.Exit(1)
	}

	c.Start()
	slog.Info("scheduler started", "spec", cfg.Scheduler.AggregationSpec)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler")
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"CrawlPipe/internal/app"
	"CrawlPipe/internal/config"
	"CrawlPipe/internal/logging"
)

func main() {
	daemon := flag.Bool("daemon", false, "run on the configured cron schedule instead of once")
	purgeDate := flag.String("purge-date", "", "delete stored articles whose key contains this date and exit")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *purgeDate != "" {
		n, err := application.PurgeByDate(ctx, *purgeDate)
		if err != nil {
			logger.Error("purge failed", "date", *purgeDate, "error", err)
			os.Exit(1)
		}
		logger.Info("articles purged", "date", *purgeDate, "rows", n)
		return
	}

	run := application.Run
	if *daemon {
		run = application.RunScheduled
	}

	if err := run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"finvestigator/internal/api"
	"finvestigator/internal/app"
	"finvestigator/internal/config"
	"finvestigator/internal/httpapi"
	"finvestigator/internal/scheduler"
	"finvestigator/internal/util"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("initializing app: %v", err)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.NewScheduler(ctx, a.Controller, a.Controller, logger)
	if err := sched.RegisterAll(cfg.Cache.PurgeCron, cfg.News.CheckCron); err != nil {
		log.Fatalf("registering scheduled tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(
		cfg.Server.Addr(),
		cfg.Server.GRPCAddr(),
		httpapi.NewServer(a.Controller, logger).Handler(),
		api.NewGRPCService(a.Controller),
		logger,
	)

	logger.Info("finvestigator-server starting",
		"http", cfg.Server.Addr(),
		"grpc", cfg.Server.GRPCAddr(),
		"source", a.Loader.SourceName())

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}
	logger.Info("finvestigator-server stopped")
}

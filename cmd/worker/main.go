package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cataloghub/internal/jobs"
	"cataloghub/pkg/database"
	"cataloghub/pkg/logger"
	"cataloghub/pkg/utils"
)

// The worker runs as its own process: it pulls jobs from the queue table and
// emits scheduled heartbeats, fully decoupled from the API server.
func main() {
	cfg := utils.LoadWorkerConfig()
	srvCfg := utils.LoadServerConfig()

	log, err := logger.New(srvCfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	queue := jobs.NewQueue(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := jobs.NewWorker(db, log, queue, cfg.Concurrency, cfg.PollEvery)
	worker.Start(ctx)

	specs := map[string]string{"heartbeat": cfg.HeartbeatSpec}
	if cfg.HeartbeatExtraSpec != "" {
		specs["heartbeat-extra"] = cfg.HeartbeatExtraSpec
	}
	scheduler, err := jobs.NewScheduler(queue, log, specs)
	if err != nil {
		log.Fatal("scheduler init failed", "error", err)
	}
	scheduler.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	scheduler.Stop()
	cancel()
	log.Info("worker stopped")
}

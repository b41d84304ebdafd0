// Command reconciler consumes group reconcile jobs from RabbitMQ and runs the
// periodic membership sweep.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"devpair-be/internal/app"
	"devpair-be/internal/config"
	"devpair-be/internal/logger"
)

func main() {
	once := flag.Bool("once", false, "reconcile every group once and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatal("failed init logger:", err)
	}
	defer logger.Log.Sync()

	a, err := app.New(cfg)
	if err != nil {
		logger.Log.Fatal("failed init app", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		n, err := a.Groups.ReconcileAll(ctx)
		if err != nil {
			logger.Log.Error("sweep failed", zap.Error(err))
			return
		}
		logger.Log.Info("sweep finished", zap.Int("changed", n))
		return
	}

	if cfg.AMQPURL == "" {
		logger.Log.Warn("AMQP_URL not set, only the periodic sweep runs")
	}

	go a.Groups.RunSweeper(ctx, cfg.ReconcileInterval)

	logger.Log.Info("reconciler started", zap.String("queue", cfg.ReconcileQueue))
	if err := a.Queue.Run(ctx, a.Groups.HandleJob); err != nil {
		logger.Log.Error("queue consumer stopped", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"devpair-be/internal/app"
	"devpair-be/internal/config"
	"devpair-be/internal/http/handlers"
	"devpair-be/internal/logger"
	"devpair-be/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DBDSN == "" || cfg.JWTSecret == "" {
		log.Fatal("DB_DSN and JWT_SECRET must be set (see .env)")
	}
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

	// With RabbitMQ the reconciler binary consumes the queue and sweeps.
	if local, ok := a.Queue.(*queue.Local); ok {
		go func() { _ = local.Run(ctx, a.Groups.HandleJob) }()
		go a.Groups.RunSweeper(ctx, cfg.ReconcileInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.Deps{
		Store:                a.Store,
		Graph:                a.Graph,
		Groups:               a.Groups,
		Recorder:             a.Recorder,
		Hub:                  a.Hub,
		JWTSecret:            cfg.JWTSecret,
		WSInsecureSkipVerify: cfg.WSInsecureSkipVerify,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}
	go func() {
		logger.Log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
}

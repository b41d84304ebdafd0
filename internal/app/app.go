// Package app wires the services shared by the api and reconciler binaries.
package app

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"devpair-be/internal/chat"
	"devpair-be/internal/config"
	"devpair-be/internal/database"
	"devpair-be/internal/graph"
	"devpair-be/internal/groups"
	"devpair-be/internal/lock"
	"devpair-be/internal/logger"
	"devpair-be/internal/provider/streamchat"
	"devpair-be/internal/queue"
	"devpair-be/internal/store"
	"devpair-be/internal/ws"
)

type App struct {
	Store    *store.Store
	Graph    *graph.Manager
	Groups   *groups.Synchronizer
	Recorder *chat.Recorder
	Hub      *ws.Hub
	Queue    queue.Queue

	closers []io.Closer
}

var connect = database.Connect

// New connects every backend named in cfg. Redis and RabbitMQ are optional;
// without them the lock and the reconcile queue stay in process.
func New(cfg config.Config) (*App, error) {
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}

	db, err := connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	a := &App{Hub: ws.NewHub(), closers: []io.Closer{sqlDB}}

	if err := database.Migrate(db); err != nil {
		a.Close()
		return nil, err
	}
	st := store.New(db, store.WithRetry(cfg.StoreRetryMax))
	a.Store = st

	p, err := streamchat.New(streamchat.Config{
		APIKey:    cfg.Stream.APIKey,
		APISecret: cfg.Stream.APISecret,
		BaseURL:   cfg.Stream.BaseURL,
		Timeout:   cfg.Stream.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rl, err := lock.Dial(cfg.RedisAddr, cfg.LockTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rl)
		locker = rl
		logger.Log.Info("using redis channel lock", zap.String("addr", cfg.RedisAddr))
	}

	if cfg.AMQPURL != "" {
		mq, err := queue.DialRabbitMQ(cfg.AMQPURL, cfg.ReconcileQueue)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, mq)
		a.Queue = mq
		logger.Log.Info("using rabbitmq reconcile queue", zap.String("queue", cfg.ReconcileQueue))
	} else {
		a.Queue = queue.NewLocal(1024)
	}

	a.Graph = graph.NewManager(st, a.Hub)
	a.Groups = groups.New(st, p,
		groups.WithTimeout(cfg.Stream.Timeout),
		groups.WithLocker(locker),
		groups.WithQueue(a.Queue),
		groups.WithNotifier(a.Hub),
	)
	a.Recorder = chat.NewRecorder(st, p,
		chat.WithTimeout(cfg.Stream.Timeout),
		chat.WithLocker(locker),
		chat.WithNotifier(a.Hub),
	)
	return a, nil
}

// Close releases backends in reverse order of opening; the database goes
// last.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			logger.Log.Warn("close backend", zap.Error(err))
		}
	}
}

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/handler/ws"
	"StockCast/internal/scheduler"
	"StockCast/internal/usecase"
	"StockCast/pkg/cache"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"

	"github.com/redis/go-redis/v9"
)

// Components are the long-running parts of the application. Consumer,
// Queue, Local, Scheduler, Events and Redis may be nil.
type Components struct {
	HTTP      *xhttp.Server
	Runs      *ws.RunsHub
	Consumer  *pkgkafka.Consumer
	Queue     *queue.RedisQueue
	Local     *usecase.LocalSubmitter
	Scheduler *scheduler.Scheduler
	Catalog   domrepo.Catalog
	Events    domrepo.EventPublisher
	Cache     cache.Service
	Redis     *redis.Client
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	c   Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, lgr *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, log: lgr, c: c}
}

// Run starts every component and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches the workers, the consumer, the scheduler and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			return err
		}
		a.log.Info("training queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.DatasetTopic))
	}

	if a.c.Scheduler != nil {
		if err := a.c.Scheduler.Start(ctx); err != nil {
			return err
		}
	}

	return a.c.HTTP.Start()
}

// Shutdown stops intake first, then workers, then closes clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.c.HTTP.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.c.Scheduler != nil {
		if err := a.c.Scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}
	if a.c.Local != nil {
		if err := a.c.Local.Stop(ctx); err != nil {
			a.log.Warn("local trainer stop error", applogger.Error(err))
		}
	}
	if a.c.Runs != nil {
		a.c.Runs.Close()
	}

	// The error digest publishes through the Kafka producer owned by Events.
	a.log.RemoveCollector()
	if a.c.Events != nil {
		if err := a.c.Events.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.c.Cache != nil {
		_ = a.c.Cache.Close()
	}
	if a.c.Redis != nil {
		if err := a.c.Redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}
	if err := a.c.Catalog.Close(); err != nil {
		a.log.Warn("catalog close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/usecase"
	pkgcache "TradePilot/pkg/cache"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	applogger "TradePilot/pkg/logger"
	pkgqueue "TradePilot/pkg/queue"
)

// App encapsulates the entire application lifecycle: the candle stream
// collector, the position monitor, the archive consumers and the HTTP
// command surface.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	collector *usecase.CandleCollector
	monitor   *usecase.PositionMonitor
	consumer  *pkgkafka.Consumer
	archiver  pkgkafka.MessageHandler
	jobQueue  *pkgqueue.RedisQueue
	publisher drepo.Publisher
	chClient  *pkgch.Client
	redis     *pkgcache.RedisCache

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.CandleCollector,
	monitor *usecase.PositionMonitor,
	consumer *pkgkafka.Consumer,
	archiver pkgkafka.MessageHandler,
	jobQueue *pkgqueue.RedisQueue,
	publisher drepo.Publisher,
	chClient *pkgch.Client,
	redis *pkgcache.RedisCache,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		collector:   collector,
		monitor:     monitor,
		consumer:    consumer,
		archiver:    archiver,
		jobQueue:    jobQueue,
		publisher:   publisher,
		chClient:    chClient,
		redis:       redis,
		httpHandler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start candle collector
	if err := a.collector.Start(ctx); err != nil {
		a.log.Error("collector start", applogger.Error(err))
		return err
	}
	a.log.Info("candle collector started", applogger.Strings("symbols", a.cfg.Trading.Symbols))

	// Start position monitor
	a.monitor.Start(ctx)
	a.log.Info("position monitor started")

	// Start signal archive consumer
	if a.consumer != nil && a.archiver != nil {
		a.consumer.RegisterHandler(a.archiver)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.archiver.Topic()))
	}

	// Start closed-trade archive queue
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("job queue start", applogger.Error(err))
			return err
		}
		a.jobQueue.StartRetryProcessor()
		a.log.Info("archive job queue started")
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.monitor.Stop()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.log.Warn("collector stop", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			a.log.Warn("job queue stop", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"RapWatch/pkg/cache"
	pkgch "RapWatch/pkg/clickhouse"
	xhttp "RapWatch/pkg/http"
	"RapWatch/pkg/logger"
)

// Pipeline retries buffered sales in the background.
type Pipeline interface {
	Start(ctx context.Context)
	Stop()
}

type Scheduler interface {
	Start()
	Stop()
}

type Consumer interface {
	Run(ctx context.Context) error
	Close() error
}

type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App owns every long-running component and tears them down in reverse
// dependency order.
type App struct {
	log        *logger.Logger
	http       *xhttp.Server
	pipeline   Pipeline
	scheduler  Scheduler
	publisher  io.Closer
	cache      cache.Service
	consumer   Consumer
	queue      Queue
	digest     *logger.Digest
	clickhouse *pkgch.Client
	redis      io.Closer
}

func New(log *logger.Logger, httpServer *xhttp.Server, pipeline Pipeline, sched Scheduler, publisher io.Closer, c cache.Service) *App {
	return &App{
		log:       log,
		http:      httpServer,
		pipeline:  pipeline,
		scheduler: sched,
		publisher: publisher,
		cache:     c,
	}
}

func (a *App) SetConsumer(c Consumer)     { a.consumer = c }
func (a *App) SetQueue(q Queue)           { a.queue = q }
func (a *App) SetDigest(d *logger.Digest) { a.digest = d }

// SetRedis hands over a Redis client the active cache does not own.
func (a *App) SetRedis(c io.Closer) { a.redis = c }

func (a *App) SetClickHouse(ch *pkgch.Client) { a.clickhouse = ch }

// Run starts everything and blocks until SIGINT/SIGTERM, ctx cancellation or
// a consumer failure, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.pipeline.Start(runCtx)
	if a.queue != nil {
		if err := a.queue.Start(runCtx); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
	}
	a.scheduler.Start()

	consumerErr := make(chan error, 1)
	if a.consumer != nil {
		go func() {
			consumerErr <- a.consumer.Run(runCtx)
		}()
		a.log.Info("kafka.consumer started")
	}

	if err := a.http.Start(); err != nil {
		cancel()
		if a.consumer != nil {
			<-consumerErr
		}
		return errors.Join(err, a.shutdown())
	}

	var runErr error
	consumerDone := a.consumer == nil
	select {
	case <-ctx.Done():
		a.log.Info("app.shutdown signal received")
	case err := <-consumerErr:
		consumerDone = true
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("kafka.consumer stopped", logger.Error(err))
			runErr = err
		}
	}
	cancel()
	if !consumerDone {
		// Close must follow Run
		<-consumerErr
	}
	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.http.ShutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	a.scheduler.Stop()
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.pipeline.Stop()

	// the digest ships through the publisher, so it closes first
	if a.digest != nil {
		a.digest.Close()
	}
	if err := a.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.clickhouse != nil {
		if err := a.clickhouse.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.log.Error("app.shutdown finished with errors", logger.Error(err))
		return err
	}
	a.log.Info("app.shutdown complete")
	return nil
}

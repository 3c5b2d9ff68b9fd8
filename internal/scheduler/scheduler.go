package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/pkg/cache"
	"RapWatch/pkg/logger"
)

// Reporter computes and caches a market report.
type Reporter interface {
	Report(ctx context.Context, itemID string) (*models.MarketReport, error)
}

// Scheduler refreshes reports of tracked items on a cron spec and publishes
// them. A cache lock per item keeps replicas from refreshing the same item
// in the same tick.
type Scheduler struct {
	cron      *cron.Cron
	reporter  Reporter
	publisher domrepo.ReportPublisher
	locks     cache.Service
	metrics   domrepo.Metrics
	log       *logger.Logger

	items   []string
	lockTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(reporter Reporter, publisher domrepo.ReportPublisher, locks cache.Service, metrics domrepo.Metrics, items []string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		reporter:  reporter,
		publisher: publisher,
		locks:     locks,
		metrics:   metrics,
		log:       logger.Nop(),
		items:     items,
		lockTTL:   30 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Scheduler) SetLogger(l *logger.Logger) {
	if l != nil {
		s.log = l
	}
}

// Register schedules the report refresh on spec ("@every 1m", "*/5 * * * *").
func (s *Scheduler) Register(spec string) error {
	return s.Add(spec, "refresh_reports", s.RefreshAll)
}

// Add schedules fn under name. Runs of one job never overlap.
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.wg.Add(1)
		defer s.wg.Done()
		start := time.Now()
		fn(s.ctx)
		s.metrics.RecordLatency("job_"+name, time.Since(start).Seconds())
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler.started", logger.Int("jobs", len(s.cron.Entries())), logger.Int("items", len(s.items)))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler.stopped")
}

// RefreshAll recomputes and publishes the report of every tracked item.
// Failures are logged per item and do not stop the run.
func (s *Scheduler) RefreshAll(ctx context.Context) {
	var ok, failed int
	for _, id := range s.items {
		if ctx.Err() != nil {
			return
		}
		if err := s.refresh(ctx, id); err != nil {
			failed++
			s.metrics.RecordError("refresh")
			s.log.Warn("scheduler.refresh failed", logger.String("item_id", id), logger.Error(err))
			continue
		}
		ok++
	}
	s.log.Info("scheduler.refresh done", logger.Int("ok", ok), logger.Int("failed", failed))
}

func (s *Scheduler) refresh(ctx context.Context, itemID string) error {
	key := cache.Key("lock", "refresh", itemID)
	locked, err := s.locks.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if !locked {
		s.log.Debug("scheduler.refresh skipped, locked elsewhere", logger.String("item_id", itemID))
		return nil
	}
	defer func() { _ = s.locks.Unlock(context.WithoutCancel(ctx), key) }()

	report, err := s.reporter.Report(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.publisher.PublishReport(ctx, report); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

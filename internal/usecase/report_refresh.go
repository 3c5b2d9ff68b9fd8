package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/pkg/cache"
	"RapWatch/pkg/logger"
)

// RefreshJobType is the queue message type for report recomputation.
const RefreshJobType = "report.refresh"

type refreshPayload struct {
	ItemID string `json:"item_id"`
}

// Enqueuer is the producing side of a job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload any) error
}

// RefreshTrigger turns accepted sales into report.refresh jobs. Bursts of
// sales for one item collapse into a single job per debounce window.
type RefreshTrigger struct {
	queue    Enqueuer
	locks    cache.Service
	metrics  domrepo.Metrics
	log      *logger.Logger
	debounce time.Duration
}

func NewRefreshTrigger(q Enqueuer, locks cache.Service, metrics domrepo.Metrics, debounce time.Duration) *RefreshTrigger {
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	return &RefreshTrigger{queue: q, locks: locks, metrics: metrics, log: logger.Nop(), debounce: debounce}
}

func (t *RefreshTrigger) SetLogger(l *logger.Logger) {
	if l != nil {
		t.log = l
	}
}

func (t *RefreshTrigger) SaleAccepted(ctx context.Context, sale models.Sale) {
	ok, err := t.locks.TryLock(ctx, cache.Key("refresh-pending", sale.ItemID), t.debounce)
	if err != nil {
		t.log.Warn("refresh.debounce lock failed", logger.String("item_id", sale.ItemID), logger.Error(err))
		return
	}
	if !ok {
		return
	}
	if err := t.queue.Enqueue(ctx, RefreshJobType, refreshPayload{ItemID: sale.ItemID}); err != nil {
		t.metrics.RecordError("refresh_enqueue")
		t.log.Warn("refresh.enqueue failed", logger.String("item_id", sale.ItemID), logger.Error(err))
	}
}

type reportSource interface {
	Report(ctx context.Context, itemID string) (*models.MarketReport, error)
}

// ReportRefreshJob recomputes and publishes one item's report per message.
type ReportRefreshJob struct {
	reports   reportSource
	publisher domrepo.ReportPublisher
}

func NewReportRefreshJob(reports reportSource, publisher domrepo.ReportPublisher) *ReportRefreshJob {
	return &ReportRefreshJob{reports: reports, publisher: publisher}
}

func (j *ReportRefreshJob) Type() string { return RefreshJobType }

func (j *ReportRefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	var p refreshPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode refresh payload: %w", err)
	}
	if p.ItemID == "" {
		return fmt.Errorf("refresh payload without item id")
	}
	r, err := j.reports.Report(ctx, p.ItemID)
	if err != nil {
		return fmt.Errorf("report %s: %w", p.ItemID, err)
	}
	if err := j.publisher.PublishReport(ctx, r); err != nil {
		return fmt.Errorf("publish %s: %w", p.ItemID, err)
	}
	return nil
}

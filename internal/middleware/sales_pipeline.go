package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/pkg/logger"
)

var (
	ErrInvalidSale = errors.New("invalid sale")
	ErrBufferFull  = errors.New("sales retry buffer full")
)

// SalesPipeline sits between the sales feed and the store. It validates and
// deduplicates sales and writes them through. Sales the store rejects are
// parked in a bounded buffer and retried in the background, so Ingest only
// fails when the sale is invalid or the buffer is full.
type SalesPipeline struct {
	store   domrepo.SalesStore
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
	notify  SaleNotifier

	maxSkew   time.Duration
	dedupeCap int
	retryMin  time.Duration
	retryMax  time.Duration

	mu      sync.Mutex
	seen    map[int64]struct{}
	order   []int64
	pending chan models.Sale

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// SaleNotifier is told about every sale that reached the store.
type SaleNotifier interface {
	SaleAccepted(ctx context.Context, sale models.Sale)
}

type PipelineOption func(*SalesPipeline)

func WithNotifier(n SaleNotifier) PipelineOption {
	return func(p *SalesPipeline) {
		p.notify = n
	}
}

// WithBufferSize bounds the retry buffer.
func WithBufferSize(n int) PipelineOption {
	return func(p *SalesPipeline) {
		if n > 0 {
			p.pending = make(chan models.Sale, n)
		}
	}
}

// WithDedupeWindow sets how many recent sale ids are remembered.
func WithDedupeWindow(n int) PipelineOption {
	return func(p *SalesPipeline) {
		if n > 0 {
			p.dedupeCap = n
		}
	}
}

// WithMaxClockSkew rejects sales dated further than d into the future.
func WithMaxClockSkew(d time.Duration) PipelineOption {
	return func(p *SalesPipeline) {
		p.maxSkew = d
	}
}

func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *SalesPipeline) {
		p.retryMin = min
		p.retryMax = max
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *SalesPipeline) {
		p.now = now
	}
}

func NewSalesPipeline(store domrepo.SalesStore, metrics domrepo.Metrics, opts ...PipelineOption) *SalesPipeline {
	p := &SalesPipeline{
		store:     store,
		metrics:   metrics,
		log:       logger.Nop(),
		now:       time.Now,
		maxSkew:   5 * time.Minute,
		dedupeCap: 100_000,
		retryMin:  50 * time.Millisecond,
		retryMax:  2 * time.Second,
		seen:      make(map[int64]struct{}),
		pending:   make(chan models.Sale, 1000),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SalesPipeline) SetLogger(l *logger.Logger) {
	if l != nil {
		p.log = l
	}
}

// Ingest validates sale and stores it.
func (p *SalesPipeline) Ingest(ctx context.Context, sale models.Sale) error {
	start := p.now()
	if err := p.validate(sale, start); err != nil {
		p.metrics.RecordSaleDropped("invalid")
		return err
	}
	if !p.markSeen(sale.SaleID) {
		p.metrics.RecordSaleDropped("duplicate")
		return nil
	}

	if err := p.store.StoreSales(ctx, []models.Sale{sale}); err != nil {
		p.metrics.RecordError("pipeline_store")
		select {
		case p.pending <- sale:
			p.log.Warn("sales.pipeline store failed, buffered",
				logger.String("item_id", sale.ItemID),
				logger.Int("buffered", len(p.pending)),
				logger.Error(err),
			)
			return nil
		default:
			p.forget(sale.SaleID)
			p.metrics.RecordSaleDropped("buffer_full")
			return fmt.Errorf("%w: %v", ErrBufferFull, err)
		}
	}

	p.accepted(ctx, sale)
	p.metrics.RecordLatency("pipeline_ingest", p.now().Sub(start).Seconds())
	return nil
}

func (p *SalesPipeline) accepted(ctx context.Context, sale models.Sale) {
	p.metrics.RecordSaleIngested(sale.ItemID)
	p.metrics.RecordLastPrice(sale.ItemID, sale.Price)
	if p.notify != nil {
		p.notify.SaleAccepted(ctx, sale)
	}
}

func (p *SalesPipeline) validate(s models.Sale, now time.Time) error {
	if s.ItemID == "" {
		return fmt.Errorf("%w: empty item id", ErrInvalidSale)
	}
	if _, err := strconv.ParseInt(s.ItemID, 10, 64); err != nil {
		return fmt.Errorf("%w: item id %q is not numeric", ErrInvalidSale, s.ItemID)
	}
	if s.SaleID <= 0 {
		return fmt.Errorf("%w: sale id %d", ErrInvalidSale, s.SaleID)
	}
	if s.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidSale)
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidSale)
	}
	if p.maxSkew > 0 && s.Time().After(now.Add(p.maxSkew)) {
		return fmt.Errorf("%w: timestamp in the future", ErrInvalidSale)
	}
	return nil
}

// markSeen reports whether id is new. The oldest ids are evicted once the
// window is full.
func (p *SalesPipeline) markSeen(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[id]; ok {
		return false
	}
	p.seen[id] = struct{}{}
	p.order = append(p.order, id)
	if len(p.order) > p.dedupeCap {
		delete(p.seen, p.order[0])
		p.order = p.order[1:]
	}
	return true
}

func (p *SalesPipeline) forget(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, id)
}

// Buffered is the number of sales waiting for a retry.
func (p *SalesPipeline) Buffered() int {
	return len(p.pending)
}

// Start retries buffered sales until Stop is called.
func (p *SalesPipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.retryLoop(ctx)
	})
}

func (p *SalesPipeline) retryLoop(ctx context.Context) {
	defer close(p.done)
	backoff := p.retryMin
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case sale := <-p.pending:
			if err := p.store.StoreSales(ctx, []models.Sale{sale}); err != nil {
				p.metrics.RecordError("pipeline_retry")
				select {
				case p.pending <- sale:
				default:
					p.forget(sale.SaleID)
					p.metrics.RecordSaleDropped("buffer_full")
					p.log.Error("sales.pipeline dropped sale", logger.Int64("sale_id", sale.SaleID), logger.Error(err))
				}
				if !p.wait(ctx, backoff) {
					return
				}
				backoff = min(backoff*2, p.retryMax)
				continue
			}
			backoff = p.retryMin
			p.accepted(ctx, sale)
		}
	}
}

func (p *SalesPipeline) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop ends the retry loop. Sales still buffered are logged and lost.
func (p *SalesPipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	// never started: nothing will close done
	p.startOnce.Do(func() { close(p.done) })
	<-p.done
	if n := len(p.pending); n > 0 {
		p.log.Warn("sales.pipeline stopped with buffered sales", logger.Int("buffered", n))
	}
}

package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RapWatch/internal/domain/models"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type flakyStore struct {
	mu     sync.Mutex
	fail   int
	stored []models.Sale
}

func (s *flakyStore) StoreSales(_ context.Context, sales []models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("clickhouse unavailable")
	}
	s.stored = append(s.stored, sales...)
	return nil
}

func (s *flakyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

func (s *flakyStore) PriceHistory(context.Context, string, time.Time, time.Time) ([]models.PricePoint, error) {
	return nil, nil
}

func (s *flakyStore) VolumeHistory(context.Context, string, time.Time, time.Time) ([]models.VolumePoint, error) {
	return nil, nil
}

func (s *flakyStore) Health(context.Context) error { return nil }

type recMetrics struct {
	mu       sync.Mutex
	ingested int
	dropped  map[string]int
	last     map[string]float64
}

func newRecMetrics() *recMetrics {
	return &recMetrics{dropped: map[string]int{}, last: map[string]float64{}}
}

func (m *recMetrics) RecordSaleIngested(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested++
}

func (m *recMetrics) RecordSaleDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}

func (m *recMetrics) RecordLastPrice(id string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[id] = price
}

func (m *recMetrics) RecordMessageSent(string)                 {}
func (m *recMetrics) RecordError(string)                       {}
func (m *recMetrics) RecordPrediction(string, string, float64) {}
func (m *recMetrics) RecordLatency(string, float64)            {}

func newSale(id int64, price float64) models.Sale {
	return models.Sale{ItemID: "1028606", SaleID: id, Price: price, Timestamp: now.Add(-time.Minute).Unix()}
}

func TestSalesPipelineRejectsInvalid(t *testing.T) {
	store := &flakyStore{}
	m := newRecMetrics()
	p := NewSalesPipeline(store, m, WithClock(func() time.Time { return now }))

	cases := map[string]models.Sale{
		"empty item":  {SaleID: 1, Price: 1, Timestamp: now.Unix()},
		"non numeric": {ItemID: "abc", SaleID: 1, Price: 1, Timestamp: now.Unix()},
		"no sale id":  {ItemID: "1", Price: 1, Timestamp: now.Unix()},
		"negative":    {ItemID: "1", SaleID: 1, Price: -1, Timestamp: now.Unix()},
		"no ts":       {ItemID: "1", SaleID: 1, Price: 1},
		"future":      {ItemID: "1", SaleID: 1, Price: 1, Timestamp: now.Add(time.Hour).Unix()},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, p.Ingest(context.Background(), s), ErrInvalidSale)
		})
	}
	assert.Zero(t, store.count())
	assert.Equal(t, len(cases), m.dropped["invalid"])
}

func TestSalesPipelineDedupesBySaleID(t *testing.T) {
	store := &flakyStore{}
	m := newRecMetrics()
	p := NewSalesPipeline(store, m, WithClock(func() time.Time { return now }), WithDedupeWindow(2))
	ctx := context.Background()

	require.NoError(t, p.Ingest(ctx, newSale(1, 100)))
	require.NoError(t, p.Ingest(ctx, newSale(1, 100)))
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, m.dropped["duplicate"])
	assert.Equal(t, 100.0, m.last["1028606"])

	// window of two evicts id 1
	require.NoError(t, p.Ingest(ctx, newSale(2, 101)))
	require.NoError(t, p.Ingest(ctx, newSale(3, 102)))
	require.NoError(t, p.Ingest(ctx, newSale(1, 100)))
	assert.Equal(t, 4, store.count())
}

func TestSalesPipelineBuffersAndRetries(t *testing.T) {
	store := &flakyStore{fail: 3}
	m := newRecMetrics()
	p := NewSalesPipeline(store, m,
		WithClock(func() time.Time { return now }),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	)

	require.NoError(t, p.Ingest(context.Background(), newSale(7, 250)))
	assert.Equal(t, 1, p.Buffered())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, m.ingested)
}

func TestSalesPipelineBufferFull(t *testing.T) {
	store := &flakyStore{fail: 10}
	m := newRecMetrics()
	p := NewSalesPipeline(store, m, WithClock(func() time.Time { return now }), WithBufferSize(1))
	ctx := context.Background()

	require.NoError(t, p.Ingest(ctx, newSale(1, 100)))
	err := p.Ingest(ctx, newSale(2, 100))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1, m.dropped["buffer_full"])

	// a redelivery of the rejected sale is not treated as a duplicate
	store.fail = 0
	require.NoError(t, p.Ingest(ctx, newSale(2, 100)))
	assert.Equal(t, 1, store.count())
}

// gatedStore fails the first three writes; the second one, made by the
// retry loop, blocks until release is closed.
type gatedStore struct {
	flakyStore
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) StoreSales(ctx context.Context, sales []models.Sale) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	switch n {
	case 1, 3:
		return errors.New("clickhouse unavailable")
	case 2:
		close(s.entered)
		<-s.release
		return errors.New("clickhouse unavailable")
	}
	return s.flakyStore.StoreSales(ctx, sales)
}

func TestSalesPipelineRetryDropForgetsSaleID(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	m := newRecMetrics()
	p := NewSalesPipeline(store, m,
		WithClock(func() time.Time { return now }),
		WithBufferSize(1),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	)
	ctx := context.Background()

	require.NoError(t, p.Ingest(ctx, newSale(1, 100)))
	p.Start(ctx)
	defer p.Stop()

	// sale 1 is in flight in the retry loop; sale 2 takes the only slot
	<-store.entered
	require.NoError(t, p.Ingest(ctx, newSale(2, 100)))
	close(store.release)

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.dropped["buffer_full"] == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Ingest(ctx, newSale(1, 100)))
	require.Eventually(t, func() bool { return store.count() == 2 }, time.Second, time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Zero(t, m.dropped["duplicate"])
}

func TestSalesPipelineStopWithoutStart(t *testing.T) {
	p := NewSalesPipeline(&flakyStore{}, newRecMetrics())
	done := make(chan struct{})
	go func() {
		p.Stop()
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked")
	}
}

type notifyRecorder struct {
	mu  sync.Mutex
	ids []int64
}

func (n *notifyRecorder) SaleAccepted(_ context.Context, s models.Sale) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, s.SaleID)
}

func TestSalesPipelineNotifiesAccepted(t *testing.T) {
	rec := &notifyRecorder{}
	p := NewSalesPipeline(&flakyStore{}, newRecMetrics(), WithClock(func() time.Time { return now }), WithNotifier(rec))
	ctx := context.Background()

	require.NoError(t, p.Ingest(ctx, newSale(7, 100)))
	require.NoError(t, p.Ingest(ctx, newSale(7, 100)))
	assert.ErrorIs(t, p.Ingest(ctx, models.Sale{ItemID: "1", SaleID: 8}), ErrInvalidSale)

	assert.Equal(t, []int64{7}, rec.ids)
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeItems struct {
	items map[string]models.Item
	err   error
}

func (f *fakeItems) Item(_ context.Context, id string) (*models.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	it, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrItemNotFound, id)
	}
	return &it, nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	dropped     map[string]int
	errors      map[string]int
	predictions map[string]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{dropped: map[string]int{}, errors: map[string]int{}, predictions: map[string]float64{}}
}

func (m *fakeMetrics) RecordSaleIngested(string) {}

func (m *fakeMetrics) RecordSaleDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}

func (m *fakeMetrics) RecordMessageSent(string) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLastPrice(string, float64) {}

func (m *fakeMetrics) RecordPrediction(itemID, horizon string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[itemID+"/"+horizon] = price
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

// dailySales returns one sale per day ending at now.
func dailySales(itemID string, prices ...float64) []models.Sale {
	out := make([]models.Sale, len(prices))
	for i, p := range prices {
		at := now.AddDate(0, 0, i-(len(prices)-1))
		out[i] = models.Sale{ItemID: itemID, SaleID: int64(i + 1), Price: p, Timestamp: at.Unix()}
	}
	return out
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"RapWatch/internal/domain/models"
	"RapWatch/internal/domain/repository"
	"RapWatch/pkg/util"
)

// MemorySalesStore keeps sales in process. Used when ClickHouse is disabled
// and in tests.
type MemorySalesStore struct {
	mu    sync.RWMutex
	items map[string][]models.PricePoint
	seen  map[string]map[int64]struct{}
}

func NewMemorySalesStore() *MemorySalesStore {
	return &MemorySalesStore{
		items: make(map[string][]models.PricePoint),
		seen:  make(map[string]map[int64]struct{}),
	}
}

var _ repository.SalesStore = (*MemorySalesStore)(nil)

// StoreSales ignores sale ids it already holds for the item.
func (s *MemorySalesStore) StoreSales(_ context.Context, sales []models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]bool)
	for _, sale := range sales {
		ids, ok := s.seen[sale.ItemID]
		if !ok {
			ids = make(map[int64]struct{})
			s.seen[sale.ItemID] = ids
		}
		if _, dup := ids[sale.SaleID]; dup {
			continue
		}
		ids[sale.SaleID] = struct{}{}
		s.items[sale.ItemID] = append(s.items[sale.ItemID], models.PricePoint{
			Value:  sale.Price,
			Date:   sale.Time(),
			SaleID: sale.SaleID,
		})
		touched[sale.ItemID] = true
	}

	for id := range touched {
		pts := s.items[id]
		sort.SliceStable(pts, func(i, j int) bool {
			if pts[i].Date.Equal(pts[j].Date) {
				return pts[i].SaleID < pts[j].SaleID
			}
			return pts[i].Date.Before(pts[j].Date)
		})
	}
	return nil
}

func (s *MemorySalesStore) PriceHistory(_ context.Context, itemID string, from, to time.Time) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window(itemID, from, to), nil
}

func (s *MemorySalesStore) VolumeHistory(_ context.Context, itemID string, from, to time.Time) ([]models.VolumePoint, error) {
	s.mu.RLock()
	pts := s.window(itemID, from, to)
	s.mu.RUnlock()

	days := util.GroupByPeriod(pts, util.GroupDay, func(p models.PricePoint) time.Time { return p.Date })
	out := make([]models.VolumePoint, 0, len(days))
	for key, sales := range days {
		day, err := time.Parse(time.DateOnly, key)
		if err != nil {
			continue
		}
		out = append(out, models.VolumePoint{Value: int64(len(sales)), Date: day})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// window returns a copy of the points in [from, to].
func (s *MemorySalesStore) window(itemID string, from, to time.Time) []models.PricePoint {
	// FilterByDateRange is exclusive on both ends
	return util.FilterByDateRange(s.items[itemID], from.Add(-time.Nanosecond), to.Add(time.Nanosecond),
		func(p models.PricePoint) time.Time { return p.Date })
}

func (s *MemorySalesStore) Health(context.Context) error {
	return nil
}

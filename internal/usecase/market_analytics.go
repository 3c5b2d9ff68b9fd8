package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	domsvc "RapWatch/internal/domain/service"
	"RapWatch/internal/services/analytics"
	"RapWatch/pkg/cache"
	"RapWatch/pkg/logger"
)

const (
	reportRSIPeriod  = 14
	reportProjection = 7
)

var reportHorizons = []int{1, 7, 30}

// MarketAnalytics loads an item's history and runs the analytics engine on it.
type MarketAnalytics struct {
	items   domrepo.ItemSource
	store   domrepo.SalesStore
	cache   cache.Service
	metrics domrepo.Metrics
	log     *logger.Logger

	now         func() time.Time
	historyDays int
	reportTTL   time.Duration
	newID       func() string
}

type AnalyticsOption func(*MarketAnalytics)

func WithClock(now func() time.Time) AnalyticsOption {
	return func(m *MarketAnalytics) { m.now = now }
}

// WithHistoryDays bounds the history used for volume rollups and reports.
func WithHistoryDays(days int) AnalyticsOption {
	return func(m *MarketAnalytics) {
		if days > 0 {
			m.historyDays = days
		}
	}
}

func WithReportTTL(ttl time.Duration) AnalyticsOption {
	return func(m *MarketAnalytics) {
		if ttl > 0 {
			m.reportTTL = ttl
		}
	}
}

func NewMarketAnalytics(items domrepo.ItemSource, store domrepo.SalesStore, c cache.Service, metrics domrepo.Metrics, opts ...AnalyticsOption) *MarketAnalytics {
	m := &MarketAnalytics{
		items:       items,
		store:       store,
		cache:       c,
		metrics:     metrics,
		log:         logger.Nop(),
		now:         time.Now,
		historyDays: 365,
		reportTTL:   time.Minute,
		newID:       newReportID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ domsvc.MarketAnalyzer = (*MarketAnalytics)(nil)

func (m *MarketAnalytics) SetLogger(l *logger.Logger) {
	if l != nil {
		m.log = l
	}
}

// history is an item's catalogue entry and its sales in a window. itemErr
// is set when the catalogue failed for a reason other than a missing item;
// the stored series is still usable then.
type history struct {
	item    *models.Item
	itemErr error
	prices  []models.PricePoint
	volumes []models.VolumePoint
}

func (m *MarketAnalytics) load(ctx context.Context, itemID string, from, to time.Time, withVolume bool) (*history, error) {
	h := &history{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		item, err := m.items.Item(gctx, itemID)
		if errors.Is(err, domrepo.ErrItemNotFound) {
			return err
		}
		h.item, h.itemErr = item, err
		return nil
	})
	g.Go(func() error {
		pts, err := m.store.PriceHistory(gctx, itemID, from, to)
		if err != nil {
			return fmt.Errorf("price history: %w", err)
		}
		h.prices = pts
		return nil
	})
	if withVolume {
		g.Go(func() error {
			vols, err := m.store.VolumeHistory(gctx, itemID, from, to)
			if err != nil {
				return fmt.Errorf("volume history: %w", err)
			}
			h.volumes = vols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.metrics.RecordError("history_load")
		return nil, err
	}

	if h.itemErr != nil {
		m.log.Warn("analytics.item lookup failed", logger.String("item_id", itemID), logger.Error(h.itemErr))
		if len(h.prices) == 0 {
			return nil, fmt.Errorf("item %s: %w", itemID, h.itemErr)
		}
	}
	if len(h.prices) == 0 {
		h.prices = fallbackSeries(h.item, to)
	}
	return h, nil
}

// fallbackSeries is the single point the catalogue can vouch for when no
// sale was recorded: the item value, or its RAP when no value is set.
func fallbackSeries(item *models.Item, at time.Time) []models.PricePoint {
	if item == nil {
		return nil
	}
	v := item.Value
	if v <= 0 {
		v = item.RAP
	}
	if v <= 0 {
		return nil
	}
	return []models.PricePoint{{Value: v, Date: at}}
}

func (m *MarketAnalytics) fullRange(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -m.historyDays), now
}

func (m *MarketAnalytics) Item(ctx context.Context, itemID string) (*models.Item, error) {
	return m.items.Item(ctx, itemID)
}

func (m *MarketAnalytics) Stats(ctx context.Context, itemID string, period domrepo.Period) (*models.StatsResult, error) {
	now := m.now()
	from, to := period.Range(now)
	h, err := m.load(ctx, itemID, from, to, false)
	if err != nil {
		return nil, err
	}
	return &models.StatsResult{
		ItemID:      itemID,
		Period:      string(period),
		PeriodLabel: period.Label(),
		Points:      len(h.prices),
		Stats:       analytics.SeriesStatistics(h.prices),
		Change24h:   analytics.CalculatePriceChange(h.prices, 24, now),
		Change7d:    analytics.CalculatePriceChange(h.prices, 24*7, now),
		Change30d:   analytics.CalculatePriceChange(h.prices, 24*30, now),
		AsOf:        now,
	}, nil
}

func (m *MarketAnalytics) Volume(ctx context.Context, itemID string) (*models.VolumeResult, error) {
	now := m.now()
	from, to := m.fullRange(now)
	h, err := m.load(ctx, itemID, from, to, true)
	if err != nil {
		return nil, err
	}
	stats := analytics.CalculateVolumeStats(h.volumes, now)
	return &models.VolumeResult{
		ItemID: itemID,
		Volume: stats,
		Demand: analytics.CalculateDemandLevel(stats.Average),
		AsOf:   now,
	}, nil
}

func (m *MarketAnalytics) Trend(ctx context.Context, itemID string, period domrepo.Period, rsiPeriod int) (*models.TrendResult, error) {
	from, to := period.Range(m.now())
	h, err := m.load(ctx, itemID, from, to, false)
	if err != nil {
		return nil, err
	}
	return &models.TrendResult{
		ItemID:      itemID,
		Period:      string(period),
		PeriodLabel: period.Label(),
		Trend:       analytics.DetectTrend(h.prices),
		Volatility:  analytics.CalculateVolatility(h.prices),
		RSI:         analytics.CalculateRSI(h.prices, rsiPeriod),
		RSIPeriod:   rsiPeriod,
	}, nil
}

func (m *MarketAnalytics) MovingAverage(ctx context.Context, itemID string, period domrepo.Period, window int) (*models.MovingAverageResult, error) {
	from, to := period.Range(m.now())
	h, err := m.load(ctx, itemID, from, to, false)
	if err != nil {
		return nil, err
	}
	res := &models.MovingAverageResult{
		ItemID:      itemID,
		Period:      string(period),
		PeriodLabel: period.Label(),
		Window:      window,
		SMA:         analytics.CalculateMovingAverage(h.prices, window),
	}
	if ema, ok := analytics.CalculateEMA(h.prices, window); ok {
		res.EMA = &ema
	}
	return res, nil
}

func (m *MarketAnalytics) Prediction(ctx context.Context, itemID string, days int) (*models.PredictionResult, error) {
	from, to := m.fullRange(m.now())
	h, err := m.load(ctx, itemID, from, to, false)
	if err != nil {
		return nil, err
	}
	pred := analytics.PredictPrice(h.prices, days)
	if pred.Predicted != nil {
		m.metrics.RecordPrediction(itemID, horizonLabel(days), *pred.Predicted)
	}
	return &models.PredictionResult{
		ItemID:              itemID,
		Days:                days,
		Prediction:          pred,
		IncreaseProbability: analytics.CalculatePriceIncreaseProbability(h.prices),
	}, nil
}

func (m *MarketAnalytics) Projection(ctx context.Context, itemID string, days int) ([]models.ProjectionPoint, error) {
	now := m.now()
	from, to := m.fullRange(now)
	h, err := m.load(ctx, itemID, from, to, false)
	if err != nil {
		return nil, err
	}
	return analytics.GeneratePriceProjection(h.prices, days, now), nil
}

func horizonLabel(days int) string {
	return fmt.Sprintf("%dd", days)
}

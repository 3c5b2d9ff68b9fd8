package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"RapWatch/internal/domain/models"
	"RapWatch/internal/services/analytics"
	"RapWatch/pkg/cache"
	"RapWatch/pkg/logger"
)

func newReportID() string {
	return uuid.NewString()
}

func reportKey(itemID string) string {
	return cache.Key("report", itemID)
}

// Report computes every analytic for the item over its full history and
// caches the result.
func (m *MarketAnalytics) Report(ctx context.Context, itemID string) (*models.MarketReport, error) {
	start := time.Now()
	now := m.now()
	from, to := m.fullRange(now)
	h, err := m.load(ctx, itemID, from, to, true)
	if err != nil {
		return nil, err
	}

	r := buildReport(itemID, h, now)
	r.ID = m.newID()
	for days, p := range r.Predictions {
		if p.Predicted != nil {
			m.metrics.RecordPrediction(itemID, days, *p.Predicted)
		}
	}

	if err := m.cache.Set(ctx, reportKey(itemID), r, m.reportTTL); err != nil {
		m.log.Warn("analytics.report cache write failed", logger.String("item_id", itemID), logger.Error(err))
	}
	m.metrics.RecordLatency("report", time.Since(start).Seconds())
	m.log.Debug("analytics.report ok",
		logger.String("item_id", itemID),
		logger.Int("points", len(h.prices)),
		logger.Duration("took", time.Since(start)),
	)
	return r, nil
}

func (m *MarketAnalytics) CachedReport(ctx context.Context, itemID string) (*models.MarketReport, bool, error) {
	var r models.MarketReport
	if err := m.cache.Get(ctx, reportKey(itemID), &r); err == nil {
		return &r, true, nil
	}
	fresh, err := m.Report(ctx, itemID)
	return fresh, false, err
}

func buildReport(itemID string, h *history, now time.Time) *models.MarketReport {
	volume := analytics.CalculateVolumeStats(h.volumes, now)
	r := &models.MarketReport{
		ItemID:              itemID,
		GeneratedAt:         now,
		Item:                h.item,
		Stats:               analytics.SeriesStatistics(h.prices),
		Change24h:           analytics.CalculatePriceChange(h.prices, 24, now),
		Change7d:            analytics.CalculatePriceChange(h.prices, 24*7, now),
		Change30d:           analytics.CalculatePriceChange(h.prices, 24*30, now),
		Volume:              volume,
		Demand:              analytics.CalculateDemandLevel(volume.Average),
		Trend:               analytics.DetectTrend(h.prices),
		Volatility:          analytics.CalculateVolatility(h.prices),
		RSI:                 analytics.CalculateRSI(h.prices, reportRSIPeriod),
		MA7:                 analytics.CalculateMovingAverage(h.prices, 7),
		MA30:                analytics.CalculateMovingAverage(h.prices, 30),
		Predictions:         make(map[string]models.Prediction, len(reportHorizons)),
		Projection:          analytics.GeneratePriceProjection(h.prices, reportProjection, now),
		IncreaseProbability: analytics.CalculatePriceIncreaseProbability(h.prices),
	}
	for _, days := range reportHorizons {
		r.Predictions[horizonLabel(days)] = analytics.PredictPrice(h.prices, days)
	}
	if h.itemErr != nil {
		r.Errors = map[string]string{"item": h.itemErr.Error()}
	}
	return r
}

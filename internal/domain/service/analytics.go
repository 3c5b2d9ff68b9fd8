package service

import (
	"context"

	"RapWatch/internal/domain/models"
	"RapWatch/internal/domain/repository"
)

// MarketAnalyzer turns an item's stored history into analytics results.
// Every method resolves "now" from its own clock.
type MarketAnalyzer interface {
	Item(ctx context.Context, itemID string) (*models.Item, error)
	Stats(ctx context.Context, itemID string, period repository.Period) (*models.StatsResult, error)
	Volume(ctx context.Context, itemID string) (*models.VolumeResult, error)
	Trend(ctx context.Context, itemID string, period repository.Period, rsiPeriod int) (*models.TrendResult, error)
	MovingAverage(ctx context.Context, itemID string, period repository.Period, window int) (*models.MovingAverageResult, error)
	Prediction(ctx context.Context, itemID string, days int) (*models.PredictionResult, error)
	Projection(ctx context.Context, itemID string, days int) ([]models.ProjectionPoint, error)
	// Report computes a fresh report and caches it.
	Report(ctx context.Context, itemID string) (*models.MarketReport, error)
	// CachedReport serves the cached report, computing it on a miss.
	CachedReport(ctx context.Context, itemID string) (report *models.MarketReport, hit bool, err error)
}

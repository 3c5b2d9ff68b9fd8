package repository

import (
	"context"
	"errors"
	"time"

	"RapWatch/internal/domain/models"
)

// ErrItemNotFound is returned when the catalogue has no entry for an item id.
var ErrItemNotFound = errors.New("item not found")

// SalesStore persists observed sales and serves them back as series.
type SalesStore interface {
	StoreSales(ctx context.Context, sales []models.Sale) error
	// PriceHistory returns sale prices in [from, to], ascending by date.
	PriceHistory(ctx context.Context, itemID string, from, to time.Time) ([]models.PricePoint, error)
	// VolumeHistory returns per-day sale counts in [from, to], ascending.
	VolumeHistory(ctx context.Context, itemID string, from, to time.Time) ([]models.VolumePoint, error)
	Health(ctx context.Context) error
}

// ItemSource resolves catalogue metadata for an item.
type ItemSource interface {
	Item(ctx context.Context, itemID string) (*models.Item, error)
}

type ReportPublisher interface {
	PublishReport(ctx context.Context, report *models.MarketReport) error
	Close() error
}

type Metrics interface {
	RecordSaleIngested(itemID string)
	RecordSaleDropped(reason string)
	RecordMessageSent(topic string)
	RecordError(kind string)
	RecordLastPrice(itemID string, price float64)
	RecordPrediction(itemID, horizon string, price float64)
	RecordLatency(op string, seconds float64)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RapWatch/internal/domain/models"
)

var day0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func sale(id int64, price float64, at time.Time) models.Sale {
	return models.Sale{ItemID: "1028606", SaleID: id, Price: price, Timestamp: at.Unix()}
}

func TestMemorySalesStoreOrdersAndDedupes(t *testing.T) {
	s := NewMemorySalesStore()
	ctx := context.Background()

	require.NoError(t, s.StoreSales(ctx, []models.Sale{
		sale(3, 130, day0.Add(50*time.Hour)),
		sale(1, 100, day0.Add(2*time.Hour)),
	}))
	require.NoError(t, s.StoreSales(ctx, []models.Sale{
		sale(2, 110, day0.Add(3*time.Hour)),
		sale(1, 999, day0.Add(2*time.Hour)),
	}))

	pts, err := s.PriceHistory(ctx, "1028606", day0, day0.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, []float64{100, 110, 130}, []float64{pts[0].Value, pts[1].Value, pts[2].Value})
	assert.Equal(t, int64(1), pts[0].SaleID)
}

func TestMemorySalesStoreRangeIsInclusive(t *testing.T) {
	s := NewMemorySalesStore()
	ctx := context.Background()
	require.NoError(t, s.StoreSales(ctx, []models.Sale{
		sale(1, 100, day0),
		sale(2, 120, day0.Add(time.Hour)),
		sale(3, 140, day0.Add(2*time.Hour)),
	}))

	pts, err := s.PriceHistory(ctx, "1028606", day0, day0.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, pts, 2)

	none, err := s.PriceHistory(ctx, "other", day0, day0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemorySalesStoreVolumeByDay(t *testing.T) {
	s := NewMemorySalesStore()
	ctx := context.Background()
	require.NoError(t, s.StoreSales(ctx, []models.Sale{
		sale(1, 100, day0.Add(1*time.Hour)),
		sale(2, 100, day0.Add(5*time.Hour)),
		sale(3, 100, day0.Add(26*time.Hour)),
		sale(4, 100, day0.Add(74*time.Hour)),
		sale(5, 100, day0.Add(75*time.Hour)),
		sale(6, 100, day0.Add(76*time.Hour)),
	}))

	vols, err := s.VolumeHistory(ctx, "1028606", day0, day0.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, vols, 3)
	assert.Equal(t, models.VolumePoint{Value: 2, Date: day0}, vols[0])
	assert.Equal(t, models.VolumePoint{Value: 1, Date: day0.AddDate(0, 0, 1)}, vols[1])
	assert.Equal(t, models.VolumePoint{Value: 3, Date: day0.AddDate(0, 0, 3)}, vols[2])
}

func TestSalesSchemaNamesDatabase(t *testing.T) {
	stmts := SalesSchema("rw")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE DATABASE IF NOT EXISTS rw")
	assert.Contains(t, stmts[1], "rw.sales")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}

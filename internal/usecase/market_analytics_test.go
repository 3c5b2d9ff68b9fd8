package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/internal/repository"
	"RapWatch/pkg/cache"
)

const itemID = "1365767"

type fixture struct {
	ma      *MarketAnalytics
	items   *fakeItems
	store   *repository.MemorySalesStore
	cache   *cache.MemoryCache
	metrics *fakeMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		items: &fakeItems{items: map[string]models.Item{
			itemID:    {AssetID: itemID, Name: "Valkyrie Helm", RAP: 1450, Value: -1},
			"1028606": {AssetID: "1028606", Name: "Red Baseball Cap", RAP: 1450, Value: 1500},
		}},
		store:   repository.NewMemorySalesStore(),
		cache:   cache.NewMemoryCache(),
		metrics: newFakeMetrics(),
	}
	t.Cleanup(func() { _ = f.cache.Close() })

	ids := 0
	f.ma = NewMarketAnalytics(f.items, f.store, f.cache, f.metrics,
		WithClock(func() time.Time { return now }),
		WithReportTTL(time.Minute),
	)
	f.ma.newID = func() string {
		ids++
		return "report-" + string(rune('0'+ids))
	}
	return f
}

func (f *fixture) seed(t *testing.T, prices ...float64) {
	t.Helper()
	require.NoError(t, f.store.StoreSales(context.Background(), dailySales(itemID, prices...)))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104, 103, 105, 108, 110)

	res, err := f.ma.Stats(context.Background(), itemID, domrepo.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Points)
	assert.Equal(t, models.PriceStats{Min: 100, Max: 110, Average: 105, Median: 104, Current: 110}, res.Stats)
	assert.Equal(t, models.PriceChange{Change: 10, ChangePercent: 10}, res.Change7d)
	assert.Equal(t, "All Time", res.PeriodLabel)
	assert.Equal(t, now, res.AsOf)

	day, err := f.ma.Stats(context.Background(), itemID, domrepo.Period24h)
	require.NoError(t, err)
	assert.Equal(t, 2, day.Points)
}

func TestStatsFallsBackToCatalogueValue(t *testing.T) {
	f := newFixture(t)

	res, err := f.ma.Stats(context.Background(), "1028606", domrepo.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Points)
	assert.Equal(t, 1500.0, res.Stats.Current)

	// value unset: RAP is used
	res, err = f.ma.Stats(context.Background(), itemID, domrepo.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 1450.0, res.Stats.Current)
}

func TestUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.ma.Stats(context.Background(), "42", domrepo.PeriodAll)
	assert.ErrorIs(t, err, domrepo.ErrItemNotFound)
	_, err = f.ma.Report(context.Background(), "42")
	assert.ErrorIs(t, err, domrepo.ErrItemNotFound)
}

func TestCatalogueOutage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104, 103, 105, 108, 110)
	f.items.err = errors.New("rolimons down")

	r, err := f.ma.Report(context.Background(), itemID)
	require.NoError(t, err)
	assert.Nil(t, r.Item)
	assert.Contains(t, r.Errors["item"], "rolimons down")

	_, err = f.ma.Stats(context.Background(), "1028606", domrepo.PeriodAll)
	assert.ErrorContains(t, err, "rolimons down")
}

func TestVolume(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104, 103, 105, 108, 110)

	res, err := f.ma.Volume(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, models.VolumeStats{Total: 7, Average: 1, Last24h: 1, Last7d: 7, Last30d: 7}, res.Volume)
	assert.Equal(t, models.DemandLow, res.Demand)
}

func TestTrendAndMovingAverage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104, 103, 105, 108, 110, 107, 111, 115, 118, 116)

	tr, err := f.ma.Trend(context.Background(), itemID, domrepo.PeriodAll, 5)
	require.NoError(t, err)
	assert.Equal(t, models.TrendRising, tr.Trend)
	assert.Equal(t, 68.75, tr.RSI)
	assert.Equal(t, 5, tr.RSIPeriod)

	ma, err := f.ma.MovingAverage(context.Background(), itemID, domrepo.PeriodAll, 10)
	require.NoError(t, err)
	assert.Len(t, ma.SMA, 3)
	require.NotNil(t, ma.EMA)
	assert.Equal(t, 110.0, *ma.EMA)

	short, err := f.ma.MovingAverage(context.Background(), itemID, domrepo.Period7d, 10)
	require.NoError(t, err)
	assert.Empty(t, short.SMA)
	assert.Nil(t, short.EMA)
}

func TestPredictionAndProjection(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104, 103, 105, 108, 110)

	res, err := f.ma.Prediction(context.Background(), itemID, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Prediction.Predicted)
	assert.Equal(t, 109.0, *res.Prediction.Predicted)
	assert.Equal(t, 83, res.IncreaseProbability)
	assert.Equal(t, 109.0, f.metrics.predictions[itemID+"/1d"])

	pts, err := f.ma.Projection(context.Background(), itemID, 7)
	require.NoError(t, err)
	require.Len(t, pts, 7)
	assert.Equal(t, 111.0, pts[0].Value)
	assert.Equal(t, now.AddDate(0, 0, 1), pts[0].Date)
	assert.True(t, pts[6].IsProjected)
}

func TestReportIsCached(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104, 103, 105, 108, 110)

	r, hit, err := f.ma.CachedReport(context.Background(), itemID)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "report-1", r.ID)
	assert.Equal(t, "Valkyrie Helm", r.Item.Name)
	assert.Equal(t, models.MethodWeightedEnsemble, r.Predictions["1d"].Method)
	assert.Len(t, r.Predictions, 3)
	assert.Len(t, r.MA7, 1)
	assert.Empty(t, r.MA30)
	assert.Len(t, r.Projection, 7)
	assert.Equal(t, 50.0, r.RSI)

	again, hit, err := f.ma.CachedReport(context.Background(), itemID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "report-1", again.ID)
	assert.Equal(t, r.Stats, again.Stats)

	fresh, err := f.ma.Report(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, "report-2", fresh.ID)
}

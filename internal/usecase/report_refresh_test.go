package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RapWatch/internal/domain/models"
	"RapWatch/pkg/cache"
)

type fakeQueue struct {
	jobs []any
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, msgType string, payload any) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, payload)
	return nil
}

type capturePublisher struct {
	reports []*models.MarketReport
}

func (p *capturePublisher) PublishReport(_ context.Context, r *models.MarketReport) error {
	p.reports = append(p.reports, r)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestRefreshTriggerDebouncesPerItem(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	q := &fakeQueue{}
	trig := NewRefreshTrigger(q, c, newFakeMetrics(), 0)
	ctx := context.Background()

	trig.SaleAccepted(ctx, models.Sale{ItemID: "1028606", SaleID: 1})
	trig.SaleAccepted(ctx, models.Sale{ItemID: "1028606", SaleID: 2})
	trig.SaleAccepted(ctx, models.Sale{ItemID: "1365767", SaleID: 3})

	require.Len(t, q.jobs, 2)
	assert.Equal(t, refreshPayload{ItemID: "1028606"}, q.jobs[0])
	assert.Equal(t, refreshPayload{ItemID: "1365767"}, q.jobs[1])
}

func TestRefreshTriggerCountsEnqueueErrors(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	m := newFakeMetrics()
	trig := NewRefreshTrigger(&fakeQueue{err: errors.New("redis down")}, c, m, 0)

	trig.SaleAccepted(context.Background(), models.Sale{ItemID: "1028606", SaleID: 1})
	assert.Equal(t, 1, m.errors["refresh_enqueue"])
}

func TestReportRefreshJob(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 100, 102, 104)
	pub := &capturePublisher{}
	job := NewReportRefreshJob(f.ma, pub)
	assert.Equal(t, RefreshJobType, job.Type())

	payload, _ := json.Marshal(refreshPayload{ItemID: itemID})
	require.NoError(t, job.Handle(context.Background(), payload))
	require.Len(t, pub.reports, 1)
	assert.Equal(t, itemID, pub.reports[0].ItemID)

	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`{}`)))
	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`nope`)))
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T, cfg Config) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg.PollTimeout = 50 * time.Millisecond
	cfg.RetryInterval = 10 * time.Millisecond
	return NewRedisQueue(nil, client, cfg), mr
}

func TestEnqueueAndHandle(t *testing.T) {
	q, _ := newQueue(t, Config{Workers: 2})

	var mu sync.Mutex
	var got []string
	q.Register(JobFunc{Kind: "report.refresh", Fn: func(_ context.Context, p json.RawMessage) error {
		var body struct {
			ItemID string `json:"item_id"`
		}
		if err := json.Unmarshal(p, &body); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		got = append(got, body.ItemID)
		return nil
	}})

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	defer q.Stop(ctx)
	assert.Error(t, q.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, "report.refresh", map[string]string{"item_id": "1365767"}))
	require.NoError(t, q.Enqueue(ctx, "report.refresh", map[string]string{"item_id": "1028606"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"1365767", "1028606"}, got)
}

func TestRetriesThenDeadLetters(t *testing.T) {
	q, _ := newQueue(t, Config{Workers: 1, RetryLimit: 2})

	var mu sync.Mutex
	attempts := 0
	q.Register(JobFunc{Kind: "flaky", Fn: func(context.Context, json.RawMessage) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("catalogue down")
	}})

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	defer q.Stop(ctx)
	require.NoError(t, q.Enqueue(ctx, "flaky", 1))

	var dead []Message
	require.Eventually(t, func() bool {
		var err error
		dead, err = q.DeadLetters(ctx, 10)
		return err == nil && len(dead) == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, dead[0].Attempts)
	assert.Equal(t, "catalogue down", dead[0].LastError)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestUnknownTypeGoesToDeadLetters(t *testing.T) {
	q, _ := newQueue(t, Config{})
	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	defer q.Stop(ctx)

	require.NoError(t, q.Enqueue(ctx, "nobody", "x"))
	require.Eventually(t, func() bool {
		dead, err := q.DeadLetters(ctx, 10)
		return err == nil && len(dead) == 1 && dead[0].Type == "nobody"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopWithoutStart(t *testing.T) {
	q, _ := newQueue(t, Config{})
	assert.NoError(t, q.Stop(context.Background()))
}

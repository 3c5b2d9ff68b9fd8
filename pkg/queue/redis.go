package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"RapWatch/pkg/logger"
)

// RedisQueue is a list-backed job queue. Failed messages wait in a sorted
// set scored by their retry time and end in a dead-letter list once
// RetryLimit is spent.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client *redis.Client

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(log *logger.Logger, client *redis.Client, cfg Config) *RedisQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rapwatch:queue"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisQueue{log: log, cfg: cfg, client: client, jobs: make(map[string]Job)}
}

// Register adds jobs; call before Start.
func (q *RedisQueue) Register(jobs ...Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range jobs {
		q.jobs[j.Type()] = j
	}
}

// Start launches the workers and the retry mover.
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errors.New("queue already running")
	}
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.wg.Add(1)
	go q.retryMover(ctx)

	q.log.Info("queue.started", logger.Int("workers", q.cfg.Workers), logger.Int("jobs", len(q.jobs)))
	return nil
}

// Stop cancels workers and waits for in-flight messages or ctx.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("queue.stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// Enqueue pushes a message of msgType carrying payload as JSON.
func (q *RedisQueue) Enqueue(ctx context.Context, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key("messages"), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// DeadLetters returns up to n messages from the dead-letter list, newest first.
func (q *RedisQueue) DeadLetters(ctx context.Context, n int64) ([]Message, error) {
	raw, err := q.client.LRange(ctx, q.key("dlq"), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (q *RedisQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, q.cfg.PollTimeout, q.key("messages")).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.log.Error("queue.brpop failed", logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			q.log.Error("queue.message undecodable", logger.Error(err))
			continue
		}
		q.process(ctx, msg)
	}
}

func (q *RedisQueue) process(ctx context.Context, msg Message) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.log.Warn("queue.no job for type", logger.String("type", msg.Type))
		q.deadLetter(msg)
		return
	}

	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		// shutting down: put it back for the next run
		q.requeue(msg)
		return
	}

	msg.Attempts++
	msg.LastError = err.Error()
	q.log.Warn("queue.job failed",
		logger.String("type", msg.Type),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err),
	)
	if msg.Attempts > q.cfg.RetryLimit {
		q.deadLetter(msg)
		return
	}
	q.scheduleRetry(msg, time.Now().Add(q.cfg.RetryDelay))
}

func (q *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, _ := json.Marshal(msg)
	err := q.client.ZAdd(context.Background(), q.key("retry"), redis.Z{Score: float64(at.Unix()), Member: data}).Err()
	if err != nil {
		q.log.Error("queue.retry schedule failed", logger.Error(err))
	}
}

func (q *RedisQueue) requeue(msg Message) {
	data, _ := json.Marshal(msg)
	if err := q.client.RPush(context.Background(), q.key("messages"), data).Err(); err != nil {
		q.log.Error("queue.requeue failed", logger.Error(err))
	}
}

func (q *RedisQueue) deadLetter(msg Message) {
	data, _ := json.Marshal(msg)
	if err := q.client.LPush(context.Background(), q.key("dlq"), data).Err(); err != nil {
		q.log.Error("queue.dlq push failed", logger.Error(err))
	}
}

func (q *RedisQueue) retryMover(ctx context.Context) {
	defer q.wg.Done()
	t := time.NewTicker(q.cfg.RetryInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			q.moveDue(ctx)
		}
	}
}

// moveDue pushes retries whose time has come back onto the main list.
func (q *RedisQueue) moveDue(ctx context.Context) {
	due, err := q.client.ZRangeByScore(ctx, q.key("retry"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.log.Error("queue.retry scan failed", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, q.key("retry"), member)
		pipe.LPush(ctx, q.key("messages"), member)
		if _, err := pipe.Exec(ctx); err != nil {
			if ctx.Err() == nil {
				q.log.Error("queue.retry move failed", logger.Error(err))
			}
			return
		}
	}
}

func (q *RedisQueue) key(suffix string) string {
	return q.cfg.KeyPrefix + ":" + suffix
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

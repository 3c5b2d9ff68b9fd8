package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"RapWatch/pkg/logger"
)

// MessageHandler processes the payload of one topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, data []byte) error
}

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fans messages from one reader per topic into a worker pool.
// Messages of one partition always land on the same worker, so per-partition
// order is kept. Offsets are committed after the handler succeeds or the
// message has been parked on the DLQ.
type Consumer struct {
	cfg       ConsumerConfig
	log       *logger.Logger
	handlers  map[string]MessageHandler
	readers   map[string]Reader
	dlq       Writer
	hook      ConsumerHook
	newReader func(topic string) Reader

	queues []chan kafka.Message
	wg     sync.WaitGroup
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewConsumer(handlers []MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		WorkerCount: 4,
		BufferSize:  256,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  5 * time.Second,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("group id is required")
	}

	c := newConsumer(cfg, handlers)
	c.newReader = func(topic string) Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.DLQTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
	}
	return c, nil
}

func newConsumer(cfg ConsumerConfig, handlers []MessageHandler) *Consumer {
	initConsumerMetrics()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	c := &Consumer{
		cfg:      cfg,
		log:      log,
		handlers: make(map[string]MessageHandler, len(handlers)),
		readers:  make(map[string]Reader),
		hook:     HookChain{},
		sleep:    sleepCtx,
	}
	for _, h := range handlers {
		c.handlers[h.Topic()] = h
	}
	return c
}

// SetHook installs the hook run around every handler call.
func (c *Consumer) SetHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) SetLogger(l *logger.Logger) {
	if l != nil {
		c.log = l
	}
}

// Run blocks until ctx is cancelled or a reader fails permanently.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.queues = make([]chan kafka.Message, c.cfg.WorkerCount)
	for i := range c.queues {
		c.queues[i] = make(chan kafka.Message, c.cfg.BufferSize)
		c.wg.Add(1)
		go c.work(ctx, i)
	}

	errCh := make(chan error, len(c.handlers))
	var readers sync.WaitGroup
	for topic := range c.handlers {
		r := c.newReader(topic)
		c.readers[topic] = r
		readers.Add(1)
		go func(topic string, r Reader) {
			defer readers.Done()
			if err := c.fetch(ctx, topic, r); err != nil {
				errCh <- err
				cancel()
			}
		}(topic, r)
	}

	c.log.Info("kafka.consumer started",
		logger.Int("workers", c.cfg.WorkerCount),
		logger.String("group", c.cfg.GroupID),
	)

	readers.Wait()
	for _, q := range c.queues {
		close(q)
	}
	c.wg.Wait()
	close(errCh)
	return <-errCh
}

func (c *Consumer) fetch(ctx context.Context, topic string, r Reader) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			consumerErrors.WithLabelValues(topic, "fetch").Inc()
			c.log.Error("kafka.consumer fetch failed", logger.String("topic", topic), logger.Error(err))
			return fmt.Errorf("fetch %s: %w", topic, err)
		}
		select {
		case c.queues[c.shard(m)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) shard(m kafka.Message) int {
	h := fnv.New32a()
	h.Write([]byte(m.Topic))
	h.Write([]byte(strconv.Itoa(m.Partition)))
	return int(h.Sum32() % uint32(len(c.queues)))
}

func (c *Consumer) work(ctx context.Context, id int) {
	defer c.wg.Done()
	for m := range c.queues[id] {
		c.process(ctx, m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	h, ok := c.handlers[m.Topic]
	if !ok {
		c.commit(ctx, m)
		return
	}

	start := time.Now()
	err := c.handleWithRetry(ctx, h, m)
	consumerLatency.WithLabelValues(m.Topic).Observe(time.Since(start).Seconds())
	if ctx.Err() != nil {
		// uncommitted; the group redelivers after restart
		return
	}

	if err != nil {
		consumerMessages.WithLabelValues(m.Topic, "failed").Inc()
		c.log.Warn("kafka.consumer handler failed",
			logger.String("topic", m.Topic),
			logger.Int("partition", m.Partition),
			logger.Int64("offset", m.Offset),
			logger.Error(err),
		)
		if dlqErr := c.toDLQ(ctx, m, err); dlqErr != nil {
			c.log.Error("kafka.consumer dlq write failed", logger.String("topic", m.Topic), logger.Error(dlqErr))
			return
		}
	} else {
		consumerMessages.WithLabelValues(m.Topic, "ok").Inc()
	}
	c.commit(ctx, m)
}

func (c *Consumer) handleWithRetry(ctx context.Context, h MessageHandler, m kafka.Message) error {
	var err error
	for attempt := 0; attempt <= c.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			consumerRetries.WithLabelValues(m.Topic).Inc()
			if sleepErr := c.sleep(ctx, backoffWithJitter(attempt, c.cfg.BackoffMin, c.cfg.BackoffMax)); sleepErr != nil {
				return sleepErr
			}
		}

		hctx, data, hookErr := c.hook.Before(ctx, m)
		if hookErr != nil {
			c.hook.After(hctx, m, hookErr)
			// rejected by a hook; retrying would reject again
			return hookErr
		}
		err = h.Handle(hctx, data)
		c.hook.After(hctx, m, err)
		if err == nil {
			return nil
		}
	}
	return err
}

func (c *Consumer) toDLQ(ctx context.Context, m kafka.Message, cause error) error {
	if c.dlq == nil {
		return nil
	}
	headers := append([]kafka.Header{}, m.Headers...)
	headers = append(headers,
		kafka.Header{Key: "x-original-topic", Value: []byte(m.Topic)},
		kafka.Header{Key: "x-original-offset", Value: []byte(strconv.FormatInt(m.Offset, 10))},
		kafka.Header{Key: "x-error", Value: []byte(cause.Error())},
	)
	err := c.dlq.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Headers: headers})
	if err == nil {
		consumerMessages.WithLabelValues(m.Topic, "dlq").Inc()
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	r, ok := c.readers[m.Topic]
	if !ok {
		return
	}
	if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		consumerErrors.WithLabelValues(m.Topic, "commit").Inc()
		c.log.Error("kafka.consumer commit failed", logger.String("topic", m.Topic), logger.Error(err))
	}
}

// Close releases readers and the DLQ writer. Call after Run returns.
func (c *Consumer) Close() error {
	var errs []error
	for topic, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader %s: %w", topic, err))
		}
	}
	if c.dlq != nil {
		if err := c.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq: %w", err))
		}
	}
	return errors.Join(errs...)
}

// backoffWithJitter doubles min per attempt up to max and picks a random
// duration in [d/2, d].
func backoffWithJitter(attempt int, min, max time.Duration) time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	consumerOnce     sync.Once
	consumerMessages *prometheus.CounterVec
	consumerRetries  *prometheus.CounterVec
	consumerErrors   *prometheus.CounterVec
	consumerLatency  *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_kafka_consumer_messages_total",
			Help: "Consumed messages by outcome (ok, failed, dlq)",
		}, []string{"topic", "outcome"})
		consumerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_kafka_consumer_retries_total",
			Help: "Handler retries",
		}, []string{"topic"})
		consumerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_kafka_consumer_errors_total",
			Help: "Fetch and commit errors",
		}, []string{"topic", "stage"})
		consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rapwatch_kafka_consumer_handle_seconds",
			Help:    "Handler latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

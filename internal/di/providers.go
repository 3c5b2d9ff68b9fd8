package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/internal/handler/api"
	mid "RapWatch/internal/middleware"
	internalrepo "RapWatch/internal/repository"
	"RapWatch/internal/scheduler"
	svcmetrics "RapWatch/internal/service/metrics"
	"RapWatch/internal/service/ratelimit"
	"RapWatch/internal/service/rolimons"
	"RapWatch/internal/usecase"
	"RapWatch/pkg/cache"
	pkgch "RapWatch/pkg/clickhouse"
	"RapWatch/pkg/config"
	xhttp "RapWatch/pkg/http"
	pkgkafka "RapWatch/pkg/kafka"
	"RapWatch/pkg/logger"
	"RapWatch/pkg/metrics"
	"RapWatch/pkg/queue"
	"RapWatch/pkg/server"
)

// cache namespaces cleared when cache.version changes
var versionedNamespaces = []string{"report", "rolimons"}

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&cfg.Log)
}

func ProvideMetrics() *metrics.Recorder {
	svcmetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient connects and migrates the sales schema. Returns nil
// when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, log *logger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, time.Hour),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.Migrate(ctx, internalrepo.SalesSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log.Info("clickhouse.ready", logger.String("database", cfg.ClickHouse.Database))
	return client, nil
}

// ProvideSalesStore falls back to the in-memory store without ClickHouse.
func ProvideSalesStore(cfg *config.Config, ch *pkgch.Client) domrepo.SalesStore {
	if ch == nil {
		return internalrepo.NewMemorySalesStore()
	}
	return internalrepo.NewClickHouseSalesStore(ch.DB(), cfg.ClickHouse.Database)
}

func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix("rapwatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

func ProvideCache(cfg *config.Config, rc *cache.RedisCache, log *logger.Logger) (cache.Service, error) {
	mem := func() *cache.MemoryCache {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		)
	}

	var c cache.Service
	switch cfg.Cache.Backend {
	case "redis":
		c = rc
	case "layered":
		c = cache.NewLayeredCache(mem(), rc, cfg.Tracker.ReportTTL/2)
	default:
		c = mem()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ns := range versionedNamespaces {
		cleared, err := cache.EnsureVersion(ctx, c, ns, cfg.Cache.Version)
		if err != nil {
			return nil, fmt.Errorf("cache version %s: %w", ns, err)
		}
		if cleared {
			log.Info("cache.namespace cleared", logger.String("namespace", ns), logger.String("version", cfg.Cache.Version))
		}
	}
	return c, nil
}

func ProvideItemSource(cfg *config.Config, c cache.Service, log *logger.Logger) *rolimons.Client {
	httpClient := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Rolimons.Timeout),
		xhttp.WithUserAgent(cfg.Rolimons.UserAgent),
	)
	client := rolimons.NewClient(cfg.Rolimons.BaseURL, httpClient, c, cfg.Cache.TTL)
	client.SetLogger(log.With(logger.String("component", "rolimons")))
	return client
}

func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Compression),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideReportPublisher(cfg *config.Config, producer *pkgkafka.Producer, m *metrics.Recorder) domrepo.ReportPublisher {
	if producer == nil {
		return internalrepo.NoopReportPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.ReportsTopic, cfg.Kafka.LogsTopic, m)
}

// ProvideDigest attaches a log digest when reports go to Kafka; nil otherwise.
func ProvideDigest(cfg *config.Config, log *logger.Logger, pub domrepo.ReportPublisher) *logger.Digest {
	dp, ok := pub.(logger.DigestPublisher)
	if !cfg.Digest.Enabled || !ok {
		return nil
	}
	d := logger.NewDigest(logger.DigestConfig{
		Interval:  cfg.Digest.Interval,
		Threshold: cfg.Digest.Threshold,
		Publisher: dp,
	})
	log.AttachDigest(d)
	return d
}

func ProvideMarketAnalytics(cfg *config.Config, items *rolimons.Client, store domrepo.SalesStore, c cache.Service, m *metrics.Recorder, log *logger.Logger) *usecase.MarketAnalytics {
	ma := usecase.NewMarketAnalytics(items, store, c, m,
		usecase.WithHistoryDays(cfg.Tracker.HistoryDays),
		usecase.WithReportTTL(cfg.Tracker.ReportTTL),
	)
	ma.SetLogger(log.With(logger.String("component", "analytics")))
	return ma
}

// ProvideQueue builds the report refresh queue; nil when disabled.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, ma *usecase.MarketAnalytics, pub domrepo.ReportPublisher, log *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(log.With(logger.String("component", "queue")), rc.Client(), queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	})
	q.Register(usecase.NewReportRefreshJob(ma, pub))
	return q
}

func ProvideSalesPipeline(cfg *config.Config, store domrepo.SalesStore, m *metrics.Recorder, q *queue.RedisQueue, c cache.Service, log *logger.Logger) *mid.SalesPipeline {
	var opts []mid.PipelineOption
	if q != nil {
		trigger := usecase.NewRefreshTrigger(q, c, m, cfg.Queue.Debounce)
		trigger.SetLogger(log.With(logger.String("component", "refresh")))
		opts = append(opts, mid.WithNotifier(trigger))
	}
	p := mid.NewSalesPipeline(store, m, opts...)
	p.SetLogger(log.With(logger.String("component", "pipeline")))
	return p
}

// ProvideKafkaConsumer subscribes the pipeline to the sales topic; nil when
// Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, p *mid.SalesPipeline, m *metrics.Recorder, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		[]pkgkafka.MessageHandler{usecase.NewSalesHandler(cfg.Kafka.SalesTopic, p, m)},
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers, kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
		pkgkafka.WithConsumerLogger(log.With(logger.String("component", "kafka"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

func ProvideScheduler(cfg *config.Config, ma *usecase.MarketAnalytics, pub domrepo.ReportPublisher, c cache.Service, m *metrics.Recorder, limiter *ratelimit.Limiter, log *logger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(ma, pub, c, m, cfg.Tracker.Items)
	s.SetLogger(log.With(logger.String("component", "scheduler")))
	if err := s.Register(cfg.Tracker.Schedule); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", cfg.Tracker.Schedule, err)
	}
	err := s.Add("@every 10m", "ratelimit-sweep", func(context.Context) {
		if n := limiter.Sweep(30 * time.Minute); n > 0 {
			log.Debug("ratelimit.sweep", logger.Int("removed", n))
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, ma *usecase.MarketAnalytics, limiter *ratelimit.Limiter, store domrepo.SalesStore, rc *cache.RedisCache) *xhttp.Server {
	stream := api.NewStreamHandler(log, ma, cfg.Tracker.StreamEvery, cfg.Server.CORSOrigins)
	items := api.NewItemsHandler(log, ma, stream, ratelimit.Middleware(limiter))

	checks := map[string]api.Checker{"store": store}
	if rc != nil {
		checks["redis"] = api.CheckerFunc(func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		})
	}
	health := api.NewHealthHandler(checks)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log, []xhttp.Handler{items, health},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
	)
}

func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	pipeline *mid.SalesPipeline,
	consumer *pkgkafka.Consumer,
	sched *scheduler.Scheduler,
	q *queue.RedisQueue,
	pub domrepo.ReportPublisher,
	digest *logger.Digest,
	c cache.Service,
	rc *cache.RedisCache,
	ch *pkgch.Client,
) *server.App {
	a := server.New(log, httpServer, pipeline, sched, pub, c)
	if consumer != nil {
		a.SetConsumer(consumer)
	}
	if q != nil {
		a.SetQueue(q)
	}
	if digest != nil {
		a.SetDigest(digest)
	}
	if ch != nil {
		a.SetClickHouse(ch)
	}
	// redis and layered caches close the client themselves
	if rc != nil && cfg.Cache.Backend == "memory" {
		a.SetRedis(rc)
	}
	return a
}

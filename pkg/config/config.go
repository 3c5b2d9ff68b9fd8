package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"RapWatch/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Log         logger.Config `yaml:"log"`
	Server      Server        `yaml:"server"`
	Metrics     Metrics       `yaml:"metrics"`
	Rolimons    Rolimons      `yaml:"rolimons"`
	Tracker     Tracker       `yaml:"tracker"`
	Kafka       Kafka         `yaml:"kafka"`
	ClickHouse  ClickHouse    `yaml:"clickhouse"`
	Redis       Redis         `yaml:"redis"`
	Cache       Cache         `yaml:"cache"`
	Queue       Queue         `yaml:"queue"`
	Digest      Digest        `yaml:"digest"`
}

type Server struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       struct {
		RPS   float64 `yaml:"rps" default:"20" validate:"gt=0"`
		Burst int     `yaml:"burst" default:"40" validate:"gt=0"`
	} `yaml:"rate_limit"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// Rolimons points at the item catalogue API.
type Rolimons struct {
	BaseURL   string        `yaml:"base_url" default:"https://api.rolimons.com" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" default:"10s"`
	UserAgent string        `yaml:"user_agent" default:"rapwatch/1.0"`
}

// Tracker drives the periodic report refresh.
type Tracker struct {
	Items       []string      `yaml:"items" validate:"dive,numeric"`
	Schedule    string        `yaml:"schedule" default:"@every 1m" validate:"required"`
	HistoryDays int           `yaml:"history_days" default:"365" validate:"gt=0"`
	ReportTTL   time.Duration `yaml:"report_ttl" default:"1m" validate:"gt=0"`
	StreamEvery time.Duration `yaml:"stream_every" default:"1m" validate:"gt=0"`
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled" default:"true"`
	Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
	SalesTopic   string   `yaml:"sales_topic" default:"rapwatch.sales"`
	ReportsTopic string   `yaml:"reports_topic" default:"rapwatch.reports"`
	LogsTopic    string   `yaml:"logs_topic" default:"rapwatch.logs"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"rapwatch-sales"`
		Workers    int           `yaml:"workers" default:"4" validate:"gt=0"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"rapwatch.sales.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Enabled          bool          `yaml:"enabled" default:"true"`
	Host             string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"rapwatch"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Cache selects where computed responses are kept. Bumping Version clears the
// rapwatch namespace at startup.
type Cache struct {
	Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
	TTL     time.Duration `yaml:"ttl" default:"5m"`
	MaxSize int           `yaml:"max_size" default:"10000"`
	Version string        `yaml:"version" default:"6"`
}

// Queue moves report recomputation onto Redis-backed workers, triggered by
// accepted sales. Needs redis.enabled.
type Queue struct {
	Enabled    bool          `yaml:"enabled"`
	Workers    int           `yaml:"workers" default:"2" validate:"gt=0"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	Debounce   time.Duration `yaml:"debounce" default:"30s"`
}

// Digest batches repeated warnings and errors onto the Kafka logs topic.
type Digest struct {
	Enabled   bool          `yaml:"enabled" default:"true"`
	Interval  time.Duration `yaml:"interval" default:"30s"`
	Threshold int           `yaml:"threshold" default:"100"`
}

var validate = validator.New()

// Load fills the config from default tags, overlays the YAML file and
// validates the result. A missing file is not an error: defaults then stand alone.
func Load(path string) (*Config, error) {
	var c Config
	// defaults go first so that explicit zero values in the file survive
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (when present) and the YAML file, then lets
// environment variables override selected keys.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ROLIMONS_BASE_URL"); v != "" {
		c.Rolimons.BaseURL = v
	}
	if v := getenv("TRACKED_ITEMS"); v != "" {
		c.Tracker.Items = splitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Cache.Backend != "memory" && !c.Redis.Enabled {
		return fmt.Errorf("cache.backend %q requires redis.enabled", c.Cache.Backend)
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return errors.New("queue.enabled requires redis.enabled")
	}
	return nil
}

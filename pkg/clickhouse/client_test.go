package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := ClientConfig{
		Port:     9000,
		Database: "default",
		User:     "default",
	}
	for _, opt := range []ClientOption{
		WithAddr("ch.internal", 9440),
		WithDatabase("rapwatch"),
		WithCredentials("rw", "secret"),
		WithAsyncInsert(true, true),
		WithMaxExecutionTime(90 * time.Second),
		WithTimeouts(2*time.Second, 20*time.Second),
	} {
		opt(&cfg)
	}

	o := options(cfg)
	assert.Equal(t, []string{"ch.internal:9440"}, o.Addr)
	assert.Equal(t, "rapwatch", o.Auth.Database)
	assert.Equal(t, "rw", o.Auth.Username)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, 90, o.Settings["max_execution_time"])
	assert.Equal(t, 1, o.Settings["async_insert"])
	assert.Equal(t, 1, o.Settings["wait_for_async_insert"])
	assert.Equal(t, 2*time.Second, o.DialTimeout)
}

func TestOptionsHTTPWithoutAsync(t *testing.T) {
	cfg := ClientConfig{Host: "localhost", Port: 8123}
	WithHTTP(true)(&cfg)

	o := options(cfg)
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.NotContains(t, o.Settings, "async_insert")
	assert.NotContains(t, o.Settings, "max_execution_time")
}

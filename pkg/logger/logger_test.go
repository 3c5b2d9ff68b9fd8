package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{zl: zerolog.New(&buf)}

	l.With(String("item_id", "1028606")).Info("analytics.report ok",
		Int("points", 7),
		Float64("volatility", 3.06),
		Bool("cached", false),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1028606", got["item_id"])
	assert.Equal(t, float64(7), got["points"])
	assert.Equal(t, 3.06, got["volatility"])
	assert.Equal(t, false, got["cached"])
	assert.Equal(t, float64(1500), got["took"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "analytics.report ok", got["message"])
}

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]DigestEntry
}

func (p *capturePublisher) PublishDigest(_ context.Context, entries []DigestEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, entries)
	return nil
}

func TestDigestCollapsesRepeats(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDigest(DigestConfig{Interval: time.Hour, Threshold: 10, Publisher: pub})

	l := Nop()
	l.AttachDigest(d)
	for i := 0; i < 3; i++ {
		l.Error("rolimons.fetch failed", String("item_id", "1"))
	}
	l.Warn("rolimons.fetch slow", String("item_id", "1"))
	l.Info("ignored")
	d.Close()

	require.Len(t, pub.batches, 1)
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"rolimons.fetch failed": 3, "rolimons.fetch slow": 1}, counts)
}

func TestDigestFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDigest(DigestConfig{Interval: time.Hour, Threshold: 2, Publisher: pub})

	l := Nop()
	l.AttachDigest(d)
	l.Error("a")
	l.Error("b")
	l.Error("c")
	d.Close()

	require.Len(t, pub.batches, 2)
	assert.Len(t, pub.batches[0], 2)
	assert.Len(t, pub.batches[1], 1)
}

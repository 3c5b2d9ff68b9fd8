package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// DigestPublisher ships a batch of aggregated entries somewhere durable.
type DigestPublisher interface {
	PublishDigest(ctx context.Context, entries []DigestEntry) error
}

type DigestConfig struct {
	Interval  time.Duration
	Threshold int // distinct entries that force an early flush
	Publisher DigestPublisher
}

// DigestEntry is one distinct warning or error with its repeat count.
type DigestEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Count     int            `json:"count"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
}

// Digest collapses repeated warnings and errors and flushes them in batches,
// so a failing upstream polled every minute yields one entry with a count.
type Digest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	closed  bool
	flushed chan []DigestEntry
	stop    chan struct{}
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 100
	}
	d := &Digest{
		cfg:     cfg,
		entries: make(map[string]*DigestEntry),
		flushed: make(chan []DigestEntry, 16),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	d.wg.Add(2)
	go d.tick()
	go d.ship()
	return d
}

func (d *Digest) record(level, msg string, fields []Field) {
	if d == nil {
		return
	}

	values := make(map[string]any, len(fields))
	for _, f := range fields {
		k, v := f.KeyValue()
		values[k] = v
	}
	key := digestKey(level, msg, values)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	d.entries[key] = &DigestEntry{
		Level:     level,
		Message:   msg,
		Fields:    values,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if len(d.entries) >= d.cfg.Threshold {
		d.flushLocked()
	}
}

func digestKey(level, msg string, fields map[string]any) string {
	raw, _ := json.Marshal(struct {
		L string         `json:"l"`
		M string         `json:"m"`
		F map[string]any `json:"f"`
	}{level, msg, fields})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (d *Digest) flushLocked() {
	if d.closed || len(d.entries) == 0 {
		return
	}
	batch := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		batch = append(batch, *e)
	}
	d.entries = make(map[string]*DigestEntry)

	select {
	case d.flushed <- batch:
	default:
		// shipper is behind; drop rather than block the logging caller
	}
}

func (d *Digest) tick() {
	defer d.wg.Done()
	t := time.NewTicker(d.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
		case <-d.stop:
			d.mu.Lock()
			d.flushLocked()
			d.closed = true
			d.mu.Unlock()
			close(d.flushed)
			return
		}
	}
}

func (d *Digest) ship() {
	defer d.wg.Done()
	for batch := range d.flushed {
		if d.cfg.Publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = d.cfg.Publisher.PublishDigest(ctx, batch)
		cancel()
	}
}

// Close flushes what is pending and waits for the last batch to ship.
func (d *Digest) Close() {
	close(d.stop)
	d.wg.Wait()
}

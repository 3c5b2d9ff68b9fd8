package repository

import (
	"context"
	"fmt"

	"RapWatch/internal/domain/models"
	"RapWatch/internal/domain/repository"
	pkgkafka "RapWatch/pkg/kafka"
	"RapWatch/pkg/logger"
)

// KafkaPublisher writes market reports and log digests through one producer.
type KafkaPublisher struct {
	producer     *pkgkafka.Producer
	reportsTopic string
	logsTopic    string
	metrics      repository.Metrics
}

func NewKafkaPublisher(p *pkgkafka.Producer, reportsTopic, logsTopic string, m repository.Metrics) *KafkaPublisher {
	return &KafkaPublisher{producer: p, reportsTopic: reportsTopic, logsTopic: logsTopic, metrics: m}
}

var (
	_ repository.ReportPublisher = (*KafkaPublisher)(nil)
	_ logger.DigestPublisher     = (*KafkaPublisher)(nil)
)

// PublishReport keys the report by item id so one item's reports stay ordered.
func (k *KafkaPublisher) PublishReport(ctx context.Context, report *models.MarketReport) error {
	if report == nil {
		return nil
	}
	if err := k.producer.Publish(ctx, k.reportsTopic, []byte(report.ItemID), report); err != nil {
		k.recordError("publish_report")
		return fmt.Errorf("publish report %s: %w", report.ItemID, err)
	}
	if k.metrics != nil {
		k.metrics.RecordMessageSent(k.reportsTopic)
	}
	return nil
}

func (k *KafkaPublisher) PublishDigest(ctx context.Context, entries []logger.DigestEntry) error {
	msgs := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(e.Level), Value: e})
	}
	if err := k.producer.PublishBatch(ctx, k.logsTopic, msgs); err != nil {
		k.recordError("publish_digest")
		return err
	}
	if k.metrics != nil && len(msgs) > 0 {
		k.metrics.RecordMessageSent(k.logsTopic)
	}
	return nil
}

func (k *KafkaPublisher) recordError(kind string) {
	if k.metrics != nil {
		k.metrics.RecordError(kind)
	}
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

// NoopReportPublisher drops reports. Used when Kafka is disabled.
type NoopReportPublisher struct{}

func (NoopReportPublisher) PublishReport(context.Context, *models.MarketReport) error { return nil }
func (NoopReportPublisher) Close() error                                              { return nil }

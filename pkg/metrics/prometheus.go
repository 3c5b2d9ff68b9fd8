package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics on Prometheus.
type Recorder struct {
	salesIngested *prometheus.CounterVec
	salesDropped  *prometheus.CounterVec
	messagesSent  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	predicted     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		salesIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_sales_ingested_total",
			Help: "Sales accepted into the store",
		}, []string{"item_id"}),
		salesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_sales_dropped_total",
			Help: "Sales rejected before storage",
		}, []string{"reason"}),
		messagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_messages_sent_total",
			Help: "Messages published to Kafka",
		}, []string{"topic"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rapwatch_errors_total",
			Help: "Errors by kind",
		}, []string{"type"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rapwatch_last_price",
			Help: "Most recent sale price per item",
		}, []string{"item_id"}),
		predicted: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rapwatch_predicted_price",
			Help: "Latest ensemble prediction per item and horizon",
		}, []string{"item_id", "horizon"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rapwatch_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordSaleIngested(itemID string) {
	r.salesIngested.WithLabelValues(itemID).Inc()
}

func (r *Recorder) RecordSaleDropped(reason string) {
	r.salesDropped.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordMessageSent(topic string) {
	r.messagesSent.WithLabelValues(topic).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(itemID string, price float64) {
	r.lastPrice.WithLabelValues(itemID).Set(price)
}

func (r *Recorder) RecordPrediction(itemID, horizon string, price float64) {
	r.predicted.WithLabelValues(itemID, horizon).Set(price)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

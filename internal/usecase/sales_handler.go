package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/internal/middleware"
	pkgkafka "RapWatch/pkg/kafka"
	"RapWatch/pkg/util"
)

// SaleIngester is what the handler hands decoded sales to.
type SaleIngester interface {
	Ingest(ctx context.Context, sale models.Sale) error
}

// SalesHandler decodes sale events from Kafka and feeds the pipeline.
type SalesHandler struct {
	topic    string
	pipeline SaleIngester
	metrics  domrepo.Metrics
}

func NewSalesHandler(topic string, pipeline SaleIngester, metrics domrepo.Metrics) *SalesHandler {
	return &SalesHandler{topic: topic, pipeline: pipeline, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*SalesHandler)(nil)

func (h *SalesHandler) Topic() string { return h.topic }

// saleEvent is the wire form of a sale. ts is unix seconds, unix
// milliseconds or an ISO-8601 string.
type saleEvent struct {
	ItemID string          `json:"item_id"`
	SaleID int64           `json:"sale_id"`
	Price  float64         `json:"price"`
	TS     json.RawMessage `json:"ts"`
}

// Handle accepts {item_id, sale_id, price, ts}. Invalid payloads are
// acknowledged without a retry since redelivery cannot fix them.
func (h *SalesHandler) Handle(ctx context.Context, b []byte) error {
	var ev saleEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordSaleDropped("malformed")
		return nil
	}
	ts, ok := parseSaleTime(ev.TS)
	if !ok {
		h.metrics.RecordSaleDropped("malformed")
		return nil
	}
	sale := models.Sale{ItemID: ev.ItemID, SaleID: ev.SaleID, Price: ev.Price, Timestamp: ts}

	err := h.pipeline.Ingest(ctx, sale)
	if errors.Is(err, middleware.ErrInvalidSale) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingest sale %d: %w", sale.SaleID, err)
	}
	return nil
}

// parseSaleTime returns unix seconds. A missing ts yields 0 and is left to
// the pipeline to reject.
func parseSaleTime(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, ok := util.ParseTime(s)
		if !ok {
			return 0, false
		}
		return t.Unix(), true
	}
	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false
	}
	ts := int64(n)
	if ts > 1e11 { // ms
		ts /= 1000
	}
	return ts, true
}

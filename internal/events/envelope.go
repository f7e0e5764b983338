package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventStockReserved = "StockReserved"
	EventStockRejected = "StockRejected"
	EventStockMovement = "StockMovement"
)

// Envelope is the versioned wrapper every published event rides in.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually order_id or stock_id
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope fills the boilerplate fields for a v1 event.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload []byte) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// ---- Per-event payloads ----

type VariantQty struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

type OrderItem struct {
	StockID     string `json:"stock_id"`
	VariantID   string `json:"variant_id,omitempty"`
	ProductType string `json:"product_type"`
	Qty         int    `json:"qty"`
	PriceCents  int    `json:"price_cents"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	ExternalID string      `json:"external_id"`
	UserID     string      `json:"user_id"`
	Items      []OrderItem `json:"items"`
	TotalCents int         `json:"total_cents"`
}

type StockReservedPayload struct {
	OrderID string       `json:"order_id"`
	Items   []VariantQty `json:"items"`
}

type StockRejectedDetail struct {
	VariantID string `json:"variant_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

type StockRejectedPayload struct {
	OrderID string                `json:"order_id"`
	Reason  string                `json:"reason"` // e.g. OUT_OF_STOCK
	Details []StockRejectedDetail `json:"details,omitempty"`
}

// StockMovementPayload mirrors one audit-trail row onto the event bus,
// with the post-operation bucket state for downstream projections.
type StockMovementPayload struct {
	StockID   string `json:"stock_id"`
	VariantID string `json:"variant_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Movement  string `json:"movement"` // Receive|Place|Cancel|Fulfill|Restock
	Qty       int    `json:"qty"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	OnHold    int    `json:"on_hold"`
	Exhausted int    `json:"exhausted"`
}

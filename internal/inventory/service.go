package inventory

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vendora/stock-ledger/internal/events"
	kafkax "github.com/vendora/stock-ledger/internal/kafka"
	"github.com/vendora/stock-ledger/internal/orders"
)

// Reserver is the slice of orders.HoldRepo the worker needs.
type Reserver interface {
	AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error)
	ReserveAll(ctx context.Context, orderID string, items []events.VariantQty) (bool, []events.StockRejectedDetail, error)
}

// Deduper drops redelivered events by event id.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service consumes order.created events and places holds against the
// variant ledger, publishing the reservation outcome.
type Service struct {
	Repo           Reserver
	Dedup          Deduper
	ProducerOK     Publisher // stock.reserved
	ProducerReject Publisher // stock.rejected
	ServiceName    string
}

// HandleOrderCreated is installed as the consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventOrderCreated {
		return nil
	}

	if seen, _ := s.Dedup.Seen(ctx, env.EventID); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	// Only standard items with a selected variant touch the ledger.
	var items []events.VariantQty
	for _, it := range p.Items {
		if it.ProductType == orders.ProductTypeStandard && it.VariantID != "" {
			items = append(items, events.VariantQty{VariantID: it.VariantID, Qty: it.Qty})
		}
	}
	if len(items) == 0 {
		s.publishReserved(p.OrderID, nil, env.TraceID)
		return s.Dedup.Mark(ctx, env.EventID)
	}

	// Short-circuit when the API already placed the holds in the order
	// transaction; re-publishing the outcome is harmless.
	if ok, _ := s.Repo.AlreadyReserved(ctx, p.OrderID, len(items)); ok {
		s.publishReserved(p.OrderID, items, env.TraceID)
		return s.Dedup.Mark(ctx, env.EventID)
	}

	ok, details, err := s.Repo.ReserveAll(ctx, p.OrderID, items)
	if err != nil {
		// Not marked: the redelivered event must run the reservation again.
		return err
	}
	if ok {
		s.publishReserved(p.OrderID, items, env.TraceID)
	} else {
		s.publishRejected(p.OrderID, details, env.TraceID)
	}
	return s.Dedup.Mark(ctx, env.EventID)
}

func (s *Service) publishReserved(orderID string, items []events.VariantQty, trace string) {
	payload := kafkax.MustMarshal(events.StockReservedPayload{OrderID: orderID, Items: items})
	env := events.NewEnvelope(events.EventStockReserved, s.ServiceName, trace, orderID, payload)
	s.ProducerOK.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventStockReserved)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishRejected(orderID string, details []events.StockRejectedDetail, trace string) {
	payload := kafkax.MustMarshal(events.StockRejectedPayload{
		OrderID: orderID, Reason: "OUT_OF_STOCK", Details: details,
	})
	env := events.NewEnvelope(events.EventStockRejected, s.ServiceName, trace, orderID, payload)
	s.ProducerReject.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

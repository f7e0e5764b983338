package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vendora/stock-ledger/internal/events"
	kafkax "github.com/vendora/stock-ledger/internal/kafka"
)

type fakeReserver struct {
	alreadyReserved bool
	reserveOK       bool
	reserveErr      error
	details         []events.StockRejectedDetail
	reserveCalls    int
	gotItems        []events.VariantQty
}

func (f *fakeReserver) AlreadyReserved(ctx context.Context, orderID string, n int) (bool, error) {
	return f.alreadyReserved, nil
}

func (f *fakeReserver) ReserveAll(ctx context.Context, orderID string, items []events.VariantQty) (bool, []events.StockRejectedDetail, error) {
	f.reserveCalls++
	f.gotItems = items
	return f.reserveOK, f.details, f.reserveErr
}

type fakeDedup struct {
	seen   map[string]bool
	marked []string
}

func (f *fakeDedup) Seen(ctx context.Context, id string) (bool, error) { return f.seen[id], nil }
func (f *fakeDedup) Mark(ctx context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

type fakePublisher struct{ messages [][]byte }

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.messages = append(f.messages, value)
}

func orderCreatedMessage(t *testing.T, eventID string, items []events.OrderItem) kafkago.Message {
	t.Helper()
	payload := kafkax.MustMarshal(events.OrderCreatedPayload{
		OrderID: "ord-1",
		UserID:  "user-1",
		Items:   items,
	})
	env := events.NewEnvelope(events.EventOrderCreated, "test", "", "ord-1", payload)
	env.EventID = eventID
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func decodeEnvelope(t *testing.T, b []byte) events.Envelope {
	t.Helper()
	var env events.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func newService(repo *fakeReserver, dedup *fakeDedup) (*Service, *fakePublisher, *fakePublisher) {
	ok := &fakePublisher{}
	rj := &fakePublisher{}
	return &Service{
		Repo:           repo,
		Dedup:          dedup,
		ProducerOK:     ok,
		ProducerReject: rj,
		ServiceName:    "test-worker",
	}, ok, rj
}

func TestHandleOrderCreatedReserves(t *testing.T) {
	repo := &fakeReserver{reserveOK: true}
	svc, ok, rj := newService(repo, &fakeDedup{seen: map[string]bool{}})

	m := orderCreatedMessage(t, "ev-1", []events.OrderItem{
		{StockID: "s1", VariantID: "v1", ProductType: "standard", Qty: 3},
		{StockID: "s2", ProductType: "designable", Qty: 1}, // no ledger hold
	})
	if err := svc.HandleOrderCreated(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if repo.reserveCalls != 1 {
		t.Fatalf("expected one reserve call, got %d", repo.reserveCalls)
	}
	if len(repo.gotItems) != 1 || repo.gotItems[0].VariantID != "v1" || repo.gotItems[0].Qty != 3 {
		t.Fatalf("wrong items reserved: %+v", repo.gotItems)
	}
	if len(ok.messages) != 1 || len(rj.messages) != 0 {
		t.Fatalf("expected one reserved event, got ok=%d rj=%d", len(ok.messages), len(rj.messages))
	}
	env := decodeEnvelope(t, ok.messages[0])
	if env.EventType != events.EventStockReserved || env.CorrelationID != "ord-1" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestHandleOrderCreatedRejectsOnShortfall(t *testing.T) {
	repo := &fakeReserver{
		reserveOK: false,
		details:   []events.StockRejectedDetail{{VariantID: "v1", Required: 5, Available: 2}},
	}
	svc, ok, rj := newService(repo, &fakeDedup{seen: map[string]bool{}})

	m := orderCreatedMessage(t, "ev-2", []events.OrderItem{
		{StockID: "s1", VariantID: "v1", ProductType: "standard", Qty: 5},
	})
	if err := svc.HandleOrderCreated(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ok.messages) != 0 || len(rj.messages) != 1 {
		t.Fatalf("expected one rejected event, got ok=%d rj=%d", len(ok.messages), len(rj.messages))
	}
	env := decodeEnvelope(t, rj.messages[0])
	p, err := kafkax.UnwrapPayload[events.StockRejectedPayload](env.Payload)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if p.Reason != "OUT_OF_STOCK" || len(p.Details) != 1 || p.Details[0].Available != 2 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

// A transient reservation failure must not consume the event: the id is
// only marked after an outcome is published, so the redelivery runs the
// reservation again instead of being dropped as a duplicate.
func TestReserveFailureLeavesEventUnmarked(t *testing.T) {
	repo := &fakeReserver{reserveErr: errors.New("db down")}
	dedup := &fakeDedup{seen: map[string]bool{}}
	svc, ok, rj := newService(repo, dedup)

	m := orderCreatedMessage(t, "ev-5", []events.OrderItem{
		{StockID: "s1", VariantID: "v1", ProductType: "standard", Qty: 2},
	})
	if err := svc.HandleOrderCreated(context.Background(), m); err == nil {
		t.Fatal("expected error from failed reservation")
	}
	if len(dedup.marked) != 0 {
		t.Fatalf("event marked despite failed reservation: %v", dedup.marked)
	}
	if len(ok.messages) != 0 || len(rj.messages) != 0 {
		t.Fatal("outcome published despite failed reservation")
	}

	// Redelivery after the fault clears completes the reservation.
	repo.reserveErr = nil
	repo.reserveOK = true
	if err := svc.HandleOrderCreated(context.Background(), m); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if repo.reserveCalls != 2 {
		t.Fatalf("expected reservation retried, got %d calls", repo.reserveCalls)
	}
	if len(ok.messages) != 1 {
		t.Fatalf("expected reserved event on redelivery, got %d", len(ok.messages))
	}
	if len(dedup.marked) != 1 || dedup.marked[0] != "ev-5" {
		t.Fatalf("event not marked after outcome: %v", dedup.marked)
	}
}

func TestHandleOrderCreatedDedup(t *testing.T) {
	repo := &fakeReserver{reserveOK: true}
	svc, ok, _ := newService(repo, &fakeDedup{seen: map[string]bool{"ev-3": true}})

	m := orderCreatedMessage(t, "ev-3", []events.OrderItem{
		{StockID: "s1", VariantID: "v1", ProductType: "standard", Qty: 1},
	})
	if err := svc.HandleOrderCreated(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if repo.reserveCalls != 0 || len(ok.messages) != 0 {
		t.Fatalf("duplicate event was processed")
	}
}

func TestHandleOrderCreatedShortCircuitsWhenAlreadyReserved(t *testing.T) {
	repo := &fakeReserver{alreadyReserved: true}
	svc, ok, _ := newService(repo, &fakeDedup{seen: map[string]bool{}})

	m := orderCreatedMessage(t, "ev-4", []events.OrderItem{
		{StockID: "s1", VariantID: "v1", ProductType: "standard", Qty: 1},
	})
	if err := svc.HandleOrderCreated(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if repo.reserveCalls != 0 {
		t.Fatal("reserve called despite existing holds")
	}
	if len(ok.messages) != 1 {
		t.Fatalf("expected reserved event republished, got %d", len(ok.messages))
	}
}

func TestHandleIgnoresOtherEventTypes(t *testing.T) {
	repo := &fakeReserver{}
	svc, ok, rj := newService(repo, &fakeDedup{seen: map[string]bool{}})

	env := events.NewEnvelope(events.EventStockMovement, "test", "", "s1", []byte(`{}`))
	m := kafkago.Message{Value: kafkax.MustMarshal(env)}
	if err := svc.HandleOrderCreated(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if repo.reserveCalls != 0 || len(ok.messages) != 0 || len(rj.messages) != 0 {
		t.Fatal("foreign event type was processed")
	}
}

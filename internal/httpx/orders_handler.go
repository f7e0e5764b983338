package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/vendora/stock-ledger/internal/events"
	kafkax "github.com/vendora/stock-ledger/internal/kafka"
	"github.com/vendora/stock-ledger/internal/orders"
	"github.com/vendora/stock-ledger/internal/redisx"
)

type OrdersHandler struct {
	Repo     *orders.Repo
	Holds    *orders.HoldRepo
	Producer Publisher // order.created feed
	Redis    *redis.Client
	Service  string
}

type CreateOrderReq struct {
	ExternalID string             `json:"external_id"`
	UserID     string             `json:"user_id"`
	Items      []orders.ItemInput `json:"items"`
}

type CreateOrderResp struct {
	Success    bool   `json:"success"`
	OrderID    string `json:"order_id"`
	TotalCents int    `json:"total_cents"`
	Idempotent bool   `json:"idempotent"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Post("/api/orders/{id}/cancel", h.cancelOrder)
	r.Post("/api/orders/{id}/complete", h.completeOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
		return
	}
	if req.ExternalID == "" || req.UserID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, total, existed, err := h.Repo.CreateOrderTx(ctx, req.ExternalID, req.UserID, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Redis != nil {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		_ = h.Redis.Set(ctx, idemKey, orderID, redisx.TTLIdempotency).Err()
		// status cache fills on first GET; the order may already be
		// STOCK_RESERVED when holds were placed in the same transaction
	}

	if h.Producer != nil && !existed {
		payload := kafkax.MustMarshal(events.OrderCreatedPayload{
			OrderID:    orderID,
			ExternalID: req.ExternalID,
			UserID:     req.UserID,
			Items:      toEventItems(req.Items),
			TotalCents: total,
		})
		env := events.NewEnvelope(events.EventOrderCreated, h.Service,
			r.Header.Get("X-Request-Id"), orderID, payload)
		h.Producer.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(env),
			kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusAccepted, CreateOrderResp{
		Success: true, OrderID: orderID, TotalCents: total, Idempotent: existed,
	})
}

func toEventItems(items []orders.ItemInput) []events.OrderItem {
	out := make([]events.OrderItem, 0, len(items))
	for _, it := range items {
		pt := it.ProductType
		if pt == "" {
			pt = orders.ProductTypeStandard
		}
		out = append(out, events.OrderItem{
			StockID:     it.StockID,
			VariantID:   it.VariantID,
			ProductType: pt,
			Qty:         it.Qty,
			PriceCents:  it.PriceCents,
		})
	}
	return out
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, orders.StatusCancelled)
}

func (h *OrdersHandler) completeOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, orders.StatusCompleted)
}

// transition releases or consumes the order's holds, then moves the
// status. Cancelling returns held units to available; completing
// fulfills them out of tracked inventory.
func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request, to orders.Status) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cur, err := h.Repo.GetOrderStatus(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}
	if !orders.CanTransition(cur, to) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"success": false, "message": fmt.Sprintf("cannot move %s order to %s", cur, to),
		})
		return
	}

	switch to {
	case orders.StatusCancelled:
		err = h.Holds.ReleaseAll(ctx, orderID)
	case orders.StatusCompleted:
		err = h.Holds.ConsumeAll(ctx, orderID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.SetStatus(ctx, orderID, to); err != nil {
		writeError(w, err)
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order_id": orderID, "status": to})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": json.RawMessage(s)})
			return
		}
	}

	status, err := h.Repo.GetOrderStatus(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}
	body := map[string]any{"status": status}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, kafkax.MustMarshal(body), redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": body})
}

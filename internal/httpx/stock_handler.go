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
	"github.com/vendora/stock-ledger/internal/ledger"
	"github.com/vendora/stock-ledger/internal/redisx"
)

// StockService is the slice of ledger.Repo the handler uses.
type StockService interface {
	CreateStock(ctx context.Context, in ledger.CreateStockInput) (*ledger.Stock, error)
	PlaceOrder(ctx context.Context, variantID string, qty int) (*ledger.OpResult, error)
	CancelOrder(ctx context.Context, variantID string, qty int) (*ledger.OpResult, error)
	FulfillOrder(ctx context.Context, variantID string, qty int) (*ledger.OpResult, error)
	RestockVariant(ctx context.Context, variantID string, qty int) (*ledger.OpResult, error)
	GetStock(ctx context.Context, id string) (*ledger.Stock, error)
	ListStocks(ctx context.Context, vendorID string) ([]ledger.Stock, error)
	ListTransactions(ctx context.Context, stockID string) ([]ledger.Transaction, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type StockHandler struct {
	Service     StockService
	Movements   Publisher // stock.movement feed, may be nil
	Redis       *redis.Client
	ServiceName string
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Post("/api/stock", h.createStock)
	r.Get("/api/stock", h.listStocks)
	r.Get("/api/stock/{id}", h.getStock)
	r.Get("/api/stock/{id}/transactions", h.listTransactions)
	r.Post("/api/stock/place-order", h.op(ledger.OpPlace))
	r.Post("/api/stock/cancel-order", h.op(ledger.OpCancel))
	r.Post("/api/stock/fulfill-order", h.op(ledger.OpFulfill))
	r.Post("/api/stock/restock", h.op(ledger.OpRestock))
}

func (h *StockHandler) createStock(w http.ResponseWriter, r *http.Request) {
	var in ledger.CreateStockInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
		return
	}
	if in.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "missing title"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Service.CreateStock(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "stock": st})
}

type opReq struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// op builds the handler for one ledger mutation endpoint. All four share
// the same request/response shape.
func (h *StockHandler) op(op ledger.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req opReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
			return
		}
		if req.VariantID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "missing variant_id"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			res *ledger.OpResult
			err error
		)
		switch op {
		case ledger.OpPlace:
			res, err = h.Service.PlaceOrder(ctx, req.VariantID, req.Quantity)
		case ledger.OpCancel:
			res, err = h.Service.CancelOrder(ctx, req.VariantID, req.Quantity)
		case ledger.OpFulfill:
			res, err = h.Service.FulfillOrder(ctx, req.VariantID, req.Quantity)
		case ledger.OpRestock:
			res, err = h.Service.RestockVariant(ctx, req.VariantID, req.Quantity)
		}
		if err != nil {
			writeError(w, err)
			return
		}

		h.invalidateSnapshot(ctx, res.Stock.ID)
		h.publishMovement(r, op, req.Quantity, res)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"stock":   res.Stock,
			"variant": res.Variant,
		})
	}
}

func (h *StockHandler) publishMovement(r *http.Request, op ledger.Op, qty int, res *ledger.OpResult) {
	if h.Movements == nil {
		return
	}
	payload := kafkax.MustMarshal(events.StockMovementPayload{
		StockID:   res.Stock.ID,
		VariantID: res.Variant.ID,
		Size:      res.Variant.Size,
		Color:     res.Variant.Color,
		Movement:  string(ledger.TxnTypeFor(op)),
		Qty:       qty,
		Total:     res.Variant.Total,
		Available: res.Variant.Available,
		OnHold:    res.Variant.OnHold,
		Exhausted: res.Variant.Exhausted,
	})
	env := events.NewEnvelope(events.EventStockMovement, h.ServiceName,
		r.Header.Get("X-Request-Id"), res.Stock.ID, payload)
	h.Movements.Publish(events.PartitionKey(res.Stock.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventStockMovement)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *StockHandler) getStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// snapshot cache first
	key := fmt.Sprintf(redisx.KeyStockSnapshot, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "stock": json.RawMessage(s)})
			return
		}
	}

	st, err := h.Service.GetStock(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, kafkax.MustMarshal(st), redisx.TTLStockCache).Err()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stock": st})
}

func (h *StockHandler) invalidateSnapshot(ctx context.Context, stockID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyStockSnapshot, stockID)).Err()
}

func (h *StockHandler) listStocks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stocks, err := h.Service.ListStocks(ctx, r.URL.Query().Get("vendor_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stocks": stocks})
}

func (h *StockHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	txns, err := h.Service.ListTransactions(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transactions": txns})
}

package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vendora/stock-ledger/internal/consignment"
)

// ConsignmentService is the slice of consignment.Repo the handler uses.
type ConsignmentService interface {
	CreateConsignment(ctx context.Context, in consignment.CreateInput) (*consignment.Consignment, error)
	GetConsignment(ctx context.Context, number string) (*consignment.Consignment, error)
}

type ConsignmentHandler struct {
	Service ConsignmentService
}

func (h *ConsignmentHandler) Register(r *chi.Mux) {
	r.Post("/api/consignments", h.create)
	r.Get("/api/consignments/{number}", h.get)
}

type createConsignmentReq struct {
	SupplierID    string                  `json:"supplier_id"`
	TransporterID string                  `json:"transporter_id"`
	ReceivedOn    string                  `json:"received_on"` // YYYY-MM-DD
	Items         []consignment.ItemInput `json:"items"`
}

func (h *ConsignmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createConsignmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid json"})
		return
	}
	if req.SupplierID == "" || req.TransporterID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "missing fields"})
		return
	}
	receivedOn := time.Now().UTC()
	if req.ReceivedOn != "" {
		d, err := time.Parse("2006-01-02", req.ReceivedOn)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid received_on"})
			return
		}
		receivedOn = d
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Service.CreateConsignment(ctx, consignment.CreateInput{
		SupplierID:    req.SupplierID,
		TransporterID: req.TransporterID,
		ReceivedOn:    receivedOn,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "consignment": c})
}

func (h *ConsignmentHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Service.GetConsignment(ctx, chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "consignment": c})
}

package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vendora/stock-ledger/internal/consignment"
	"github.com/vendora/stock-ledger/internal/ledger"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"success": false, "message": err.Error()})
}

// statusFor maps service errors to HTTP codes by sentinel, never by
// message text.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrStockNotFound),
		errors.Is(err, ledger.ErrVariantNotFound),
		errors.Is(err, consignment.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrInsufficientHold),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrNoVariants),
		errors.Is(err, ledger.ErrDuplicateVariant),
		errors.Is(err, consignment.ErrNoItems):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

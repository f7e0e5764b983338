package ledger

import "time"

type StockType string

const (
	TypeStandard   StockType = "Standard"
	TypeDesignable StockType = "Designable"
)

// Stock is one inventory batch. Its buckets are the arithmetic sum of its
// variants' buckets; the repo maintains that under row locks.
type Stock struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	StockType  StockType `json:"stock_type"`
	HSNCode    string    `json:"hsn_code"`
	GSTPercent float64   `json:"gst_percent"`
	VendorID   string    `json:"vendor_id"`
	Buckets
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Variants  []StockVariant `json:"variants,omitempty"`
}

// StockVariant is one (size, color) combination within a Stock.
type StockVariant struct {
	ID      string `json:"id"`
	StockID string `json:"stock_id"`
	Size    string `json:"size"`
	Color   string `json:"color"`
	Buckets
}

// Transaction is one row of the append-only audit trail. Receive rows come
// from consignments and carry prices; ledger operations write the rest.
type Transaction struct {
	ID                 string    `json:"id"`
	StockID            string    `json:"stock_id"`
	VariantID          string    `json:"variant_id"`
	Size               string    `json:"size"`
	Color              string    `json:"color"`
	Qty                int       `json:"qty"`
	PurchasePriceCents int       `json:"purchase_price_cents"`
	SellPriceCents     int       `json:"sell_price_cents"`
	Type               TxnType   `json:"txn_type"`
	Reference          string    `json:"reference"`
	OccurredAt         time.Time `json:"occurred_at"`
}

type TxnType string

const (
	TxnReceive TxnType = "Receive"
	TxnPlace   TxnType = "Place"
	TxnCancel  TxnType = "Cancel"
	TxnFulfill TxnType = "Fulfill"
	TxnRestock TxnType = "Restock"
)

// TxnTypeFor maps a ledger op to its audit row type.
func TxnTypeFor(op Op) TxnType {
	switch op {
	case OpPlace:
		return TxnPlace
	case OpCancel:
		return TxnCancel
	case OpFulfill:
		return TxnFulfill
	case OpRestock:
		return TxnRestock
	}
	return ""
}

// VariantInput is the caller-facing shape for creating stock.
type VariantInput struct {
	Size          string `json:"size"`
	Color         string `json:"color"`
	TotalQuantity int    `json:"total_quantity"`
}

type CreateStockInput struct {
	Title      string         `json:"title"`
	Category   string         `json:"category"`
	StockType  StockType      `json:"stock_type"`
	HSNCode    string         `json:"hsn_code"`
	GSTPercent float64        `json:"gst_percent"`
	VendorID   string         `json:"vendor_id"`
	Variants   []VariantInput `json:"variants"`
}

// OpResult is the post-commit state returned by a ledger mutation.
type OpResult struct {
	Stock   Stock        `json:"stock"`
	Variant StockVariant `json:"variant"`
}

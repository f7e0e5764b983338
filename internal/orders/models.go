package orders

import "time"

const (
	ProductTypeStandard   = "standard"
	ProductTypeDesignable = "designable"
)

type Order struct {
	ID         string
	ExternalID string
	UserID     string
	Status     Status
	TotalCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	ID          string
	OrderID     string
	StockID     string
	VariantID   string
	ProductType string
	Qty         int
	PriceCents  int
}

// ItemInput is the request shape for one order line. Standard items with a
// selected variant place a hold on that variant; designable items do not
// touch the ledger.
type ItemInput struct {
	StockID     string `json:"stock_id"`
	VariantID   string `json:"variant_id,omitempty"`
	ProductType string `json:"product_type"`
	Qty         int    `json:"qty"`
	PriceCents  int    `json:"price_cents"`
}

// Hold records one placed reservation for an order line, keyed by
// (order, variant) so replays are idempotent.
type Hold struct {
	OrderID   string
	VariantID string
	Qty       int
	Status    string // RESERVED | RELEASED | CONSUMED
	CreatedAt time.Time
}

const (
	HoldReserved = "RESERVED"
	HoldReleased = "RELEASED"
	HoldConsumed = "CONSUMED"
)

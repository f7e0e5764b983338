package consignment

import "time"

type Consignment struct {
	Number        string    `json:"number"`
	SupplierID    string    `json:"supplier_id"`
	TransporterID string    `json:"transporter_id"`
	ReceivedOn    time.Time `json:"received_on"`
	CreatedAt     time.Time `json:"created_at"`
	Details       []Detail  `json:"details,omitempty"`
}

type Detail struct {
	ID                string `json:"id"`
	ConsignmentNumber string `json:"consignment_number"`
	StockID           string `json:"stock_id"`
	VariantID         string `json:"variant_id"`
	Size              string `json:"size"`
	Color             string `json:"color"`
	Qty               int    `json:"qty"`
}

type ItemInput struct {
	StockID            string `json:"stock_id"`
	Size               string `json:"size"`
	Color              string `json:"color"`
	Qty                int    `json:"qty"`
	PurchasePriceCents int    `json:"purchase_price_cents"`
	SellPriceCents     int    `json:"sell_price_cents"`
}

type CreateInput struct {
	SupplierID    string      `json:"supplier_id"`
	TransporterID string      `json:"transporter_id"`
	ReceivedOn    time.Time   `json:"received_on"`
	Items         []ItemInput `json:"items"`
}

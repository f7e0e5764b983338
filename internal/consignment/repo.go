package consignment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendora/stock-ledger/internal/ledger"
)

var (
	ErrNoItems  = errors.New("consignment requires at least one item")
	ErrNotFound = errors.New("consignment not found")
)

type Repo struct{ DB *pgxpool.Pool }

// CreateConsignment records incoming goods in one transaction: for every
// line item the variant is resolved by (stock, size, color), restocked
// through the ledger, and a detail row plus a Receive audit row are written.
// Any unresolvable item rolls the whole consignment back.
func (r *Repo) CreateConsignment(ctx context.Context, in CreateInput) (*Consignment, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range in.Items {
		if it.Qty <= 0 {
			return nil, fmt.Errorf("%w: %s %s/%s", ledger.ErrInvalidQuantity, it.StockID, it.Size, it.Color)
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := Consignment{
		Number:        uuid.NewString(),
		SupplierID:    in.SupplierID,
		TransporterID: in.TransporterID,
		ReceivedOn:    in.ReceivedOn,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO consignments(number, supplier_id, transporter_id, received_on)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		c.Number, c.SupplierID, c.TransporterID, c.ReceivedOn,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, err
	}

	// Resolve every variant before taking any row lock, then apply in
	// sorted variant-id order so concurrent multi-variant transactions
	// cannot deadlock.
	type line struct {
		variant *ledger.StockVariant
		item    ItemInput
	}
	lines := make([]line, 0, len(in.Items))
	for _, it := range in.Items {
		v, err := ledger.FindVariantTx(ctx, tx, it.StockID, it.Size, it.Color)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line{variant: v, item: it})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].variant.ID < lines[j].variant.ID })

	for _, ln := range lines {
		res, err := ledger.ApplyTx(ctx, tx, ledger.OpRestock, ln.variant.ID, ln.item.Qty)
		if err != nil {
			return nil, err
		}
		if err := ledger.RecordTransaction(ctx, tx, ledger.Transaction{
			StockID:            res.Variant.StockID,
			VariantID:          res.Variant.ID,
			Size:               res.Variant.Size,
			Color:              res.Variant.Color,
			Qty:                ln.item.Qty,
			PurchasePriceCents: ln.item.PurchasePriceCents,
			SellPriceCents:     ln.item.SellPriceCents,
			Type:               ledger.TxnReceive,
			Reference:          c.Number,
		}); err != nil {
			return nil, err
		}

		d := Detail{
			ID:                uuid.NewString(),
			ConsignmentNumber: c.Number,
			StockID:           res.Variant.StockID,
			VariantID:         res.Variant.ID,
			Size:              res.Variant.Size,
			Color:             res.Variant.Color,
			Qty:               ln.item.Qty,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO consignment_details(id, consignment_number, stock_id, variant_id, size, color, qty)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			d.ID, d.ConsignmentNumber, d.StockID, d.VariantID, d.Size, d.Color, d.Qty,
		); err != nil {
			return nil, err
		}
		c.Details = append(c.Details, d)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetConsignment(ctx context.Context, number string) (*Consignment, error) {
	var c Consignment
	err := r.DB.QueryRow(ctx, `
		SELECT number, supplier_id, transporter_id, received_on, created_at
		FROM consignments WHERE number=$1`, number,
	).Scan(&c.Number, &c.SupplierID, &c.TransporterID, &c.ReceivedOn, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, consignment_number, stock_id, variant_id, size, color, qty
		FROM consignment_details WHERE consignment_number=$1`, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.ConsignmentNumber, &d.StockID, &d.VariantID,
			&d.Size, &d.Color, &d.Qty); err != nil {
			return nil, err
		}
		c.Details = append(c.Details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

package orders

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendora/stock-ledger/internal/events"
	"github.com/vendora/stock-ledger/internal/ledger"
)

// HoldRepo tracks per-order reservations against the variant ledger.
type HoldRepo struct{ DB *pgxpool.Pool }

// AlreadyReserved reports whether every item of the order already has a
// RESERVED hold (idempotency short-circuit for redelivered events).
func (r *HoldRepo) AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM order_holds
		WHERE order_id = $1 AND status = $2`, orderID, HoldReserved).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == itemCount, nil
}

// ReserveAll places a hold for every item in one transaction. If any
// variant falls short nothing is committed and the shortfalls are returned.
func (r *HoldRepo) ReserveAll(ctx context.Context, orderID string, items []events.VariantQty) (ok bool, details []events.StockRejectedDetail, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rejects, err := reserveItemsTx(ctx, tx, orderID, items)
	if err != nil {
		return false, nil, err
	}
	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// reserveItemsTx does the shared hold-placement work inside the caller's
// transaction: ledger place per variant in sorted id order, an audit row,
// and an idempotent hold row. Shortfalls are collected, not fatal; the
// caller decides to roll back.
func reserveItemsTx(ctx context.Context, tx pgx.Tx, orderID string, items []events.VariantQty) ([]events.StockRejectedDetail, error) {
	sorted := make([]events.VariantQty, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })

	var rejects []events.StockRejectedDetail
	for _, it := range sorted {
		res, err := ledger.ApplyTx(ctx, tx, ledger.OpPlace, it.VariantID, it.Qty)
		if errors.Is(err, ledger.ErrInsufficientStock) {
			var avail int
			if qerr := tx.QueryRow(ctx, `SELECT available FROM stock_variants WHERE id=$1`,
				it.VariantID).Scan(&avail); qerr != nil {
				return nil, qerr
			}
			rejects = append(rejects, events.StockRejectedDetail{
				VariantID: it.VariantID, Required: it.Qty, Available: avail,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := ledger.RecordTransaction(ctx, tx, ledger.Transaction{
			StockID:   res.Variant.StockID,
			VariantID: res.Variant.ID,
			Size:      res.Variant.Size,
			Color:     res.Variant.Color,
			Qty:       it.Qty,
			Type:      ledger.TxnPlace,
			Reference: orderID,
		}); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_holds(order_id, variant_id, qty, status)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (order_id, variant_id) DO NOTHING`,
			orderID, it.VariantID, it.Qty, HoldReserved,
		); err != nil {
			return nil, err
		}
	}
	return rejects, nil
}

// ReleaseAll cancels every RESERVED hold of the order, returning the held
// units to available.
func (r *HoldRepo) ReleaseAll(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	holds, err := reservedHolds(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, h := range holds {
		res, err := ledger.ApplyTx(ctx, tx, ledger.OpCancel, h.VariantID, h.Qty)
		if err != nil {
			return err
		}
		if err := ledger.RecordTransaction(ctx, tx, ledger.Transaction{
			StockID:   res.Variant.StockID,
			VariantID: res.Variant.ID,
			Size:      res.Variant.Size,
			Color:     res.Variant.Color,
			Qty:       h.Qty,
			Type:      ledger.TxnCancel,
			Reference: orderID,
		}); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE order_holds SET status=$3 WHERE order_id=$1 AND status=$2`,
		orderID, HoldReserved, HoldReleased,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ConsumeAll fulfills every RESERVED hold of the order: held units become
// exhausted and leave tracked inventory.
func (r *HoldRepo) ConsumeAll(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	holds, err := reservedHolds(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, h := range holds {
		res, err := ledger.ApplyTx(ctx, tx, ledger.OpFulfill, h.VariantID, h.Qty)
		if err != nil {
			return err
		}
		if err := ledger.RecordTransaction(ctx, tx, ledger.Transaction{
			StockID:   res.Variant.StockID,
			VariantID: res.Variant.ID,
			Size:      res.Variant.Size,
			Color:     res.Variant.Color,
			Qty:       h.Qty,
			Type:      ledger.TxnFulfill,
			Reference: orderID,
		}); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE order_holds SET status=$3 WHERE order_id=$1 AND status=$2`,
		orderID, HoldReserved, HoldConsumed,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// reservedHolds loads the order's RESERVED holds in sorted variant order.
func reservedHolds(ctx context.Context, tx pgx.Tx, orderID string) ([]Hold, error) {
	rows, err := tx.Query(ctx, `
		SELECT variant_id, qty FROM order_holds
		WHERE order_id=$1 AND status=$2 ORDER BY variant_id`, orderID, HoldReserved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hold
	for rows.Next() {
		var h Hold
		if err := rows.Scan(&h.VariantID, &h.Qty); err != nil {
			return nil, err
		}
		h.OrderID = orderID
		out = append(out, h)
	}
	return out, rows.Err()
}

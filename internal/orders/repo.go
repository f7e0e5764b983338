package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendora/stock-ledger/internal/events"
	"github.com/vendora/stock-ledger/internal/ledger"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrderTx inserts the order plus its line items and places a hold for
// every standard item with a selected variant, all in one transaction.
// Idempotent on external_id: an existing order is returned as-is. A
// shortfall on any variant rolls the whole order back.
func (r *Repo) CreateOrderTx(ctx context.Context, externalID, userID string, items []ItemInput) (orderID string, total int, existed bool, err error) {
	row := r.DB.QueryRow(ctx, `SELECT id, total_cents FROM orders WHERE external_id=$1`, externalID)
	if err = row.Scan(&orderID, &total); err == nil {
		return orderID, total, true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", 0, false, err
	}

	total = 0
	for _, it := range items {
		if it.Qty <= 0 {
			return "", 0, false, fmt.Errorf("%w: stock %s", ledger.ErrInvalidQuantity, it.StockID)
		}
		total += it.PriceCents * it.Qty
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID = uuid.NewString()
	if _, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, status, total_cents)
		VALUES ($1,$2,$3,$4,$5)`,
		orderID, externalID, userID, string(StatusCreated), total,
	); err != nil {
		// A concurrent create with the same external_id can win the race
		// between the lookup above and this insert; the unique violation
		// means the order now exists, so return it idempotently.
		if isUniqueViolation(err) {
			_ = tx.Rollback(ctx)
			row := r.DB.QueryRow(ctx, `SELECT id, total_cents FROM orders WHERE external_id=$1`, externalID)
			if err = row.Scan(&orderID, &total); err != nil {
				return "", 0, false, err
			}
			return orderID, total, true, nil
		}
		return "", 0, false, err
	}

	var toHold []events.VariantQty
	for _, it := range items {
		pt := it.ProductType
		if pt == "" {
			pt = ProductTypeStandard
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, stock_id, variant_id, product_type, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			uuid.NewString(), orderID, it.StockID, it.VariantID, pt, it.Qty, it.PriceCents,
		); err != nil {
			return "", 0, false, err
		}
		if pt == ProductTypeStandard && it.VariantID != "" {
			toHold = append(toHold, events.VariantQty{VariantID: it.VariantID, Qty: it.Qty})
		}
	}

	if len(toHold) > 0 {
		rejects, err := reserveItemsTx(ctx, tx, orderID, toHold)
		if err != nil {
			return "", 0, false, err
		}
		if len(rejects) > 0 {
			d := rejects[0]
			return "", 0, false, fmt.Errorf("%w: variant %s requires %d, available %d",
				ledger.ErrInsufficientStock, d.VariantID, d.Required, d.Available)
		}
		if _, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
			orderID, string(StatusStockReserved)); err != nil {
			return "", 0, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", 0, false, err
	}
	return orderID, total, false, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

func (r *Repo) SetStatus(ctx context.Context, orderID string, to Status) error {
	var cur string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&cur)
	if err != nil {
		return err
	}
	if !CanTransition(Status(cur), to) {
		return fmt.Errorf("invalid transition %s -> %s", cur, to)
	}
	_, err = r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, string(to))
	return err
}

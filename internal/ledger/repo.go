package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateStock inserts one stock row plus its variants in a single
// transaction. Aggregate buckets are the sum of variant buckets; everything
// starts available.
func (r *Repo) CreateStock(ctx context.Context, in CreateStockInput) (*Stock, error) {
	if len(in.Variants) == 0 {
		return nil, ErrNoVariants
	}
	seen := map[[2]string]bool{}
	total := 0
	for _, v := range in.Variants {
		if v.TotalQuantity < 0 {
			return nil, ErrInvalidQuantity
		}
		key := [2]string{v.Size, v.Color}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateVariant, v.Size, v.Color)
		}
		seen[key] = true
		total += v.TotalQuantity
	}
	if in.StockType == "" {
		in.StockType = TypeStandard
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	st := Stock{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Category:   in.Category,
		StockType:  in.StockType,
		HSNCode:    in.HSNCode,
		GSTPercent: in.GSTPercent,
		VendorID:   in.VendorID,
		Buckets:    NewBuckets(total),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO stocks(id, title, category, stock_type, hsn_code, gst_percent, vendor_id,
		                   total, available, on_hold, exhausted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,0)
		RETURNING created_at, updated_at`,
		st.ID, st.Title, st.Category, string(st.StockType), st.HSNCode, st.GSTPercent, st.VendorID,
		st.Total, st.Available,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, v := range in.Variants {
		sv := StockVariant{
			ID:      uuid.NewString(),
			StockID: st.ID,
			Size:    v.Size,
			Color:   v.Color,
			Buckets: NewBuckets(v.TotalQuantity),
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_variants(id, stock_id, size, color, total, available, on_hold, exhausted)
			VALUES ($1,$2,$3,$4,$5,$6,0,0)`,
			sv.ID, sv.StockID, sv.Size, sv.Color, sv.Total, sv.Available,
		); err != nil {
			return nil, err
		}
		st.Variants = append(st.Variants, sv)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *Repo) PlaceOrder(ctx context.Context, variantID string, qty int) (*OpResult, error) {
	return r.apply(ctx, OpPlace, variantID, qty)
}

func (r *Repo) CancelOrder(ctx context.Context, variantID string, qty int) (*OpResult, error) {
	return r.apply(ctx, OpCancel, variantID, qty)
}

func (r *Repo) FulfillOrder(ctx context.Context, variantID string, qty int) (*OpResult, error) {
	return r.apply(ctx, OpFulfill, variantID, qty)
}

func (r *Repo) RestockVariant(ctx context.Context, variantID string, qty int) (*OpResult, error) {
	return r.apply(ctx, OpRestock, variantID, qty)
}

// apply runs one ledger operation plus its audit row in a fresh transaction.
func (r *Repo) apply(ctx context.Context, op Op, variantID string, qty int) (*OpResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := ApplyTx(ctx, tx, op, variantID, qty)
	if err != nil {
		return nil, err
	}
	if err := RecordTransaction(ctx, tx, Transaction{
		StockID:   res.Variant.StockID,
		VariantID: res.Variant.ID,
		Size:      res.Variant.Size,
		Color:     res.Variant.Color,
		Qty:       qty,
		Type:      TxnTypeFor(op),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyTx mutates one variant and its parent stock inside the caller's
// transaction. Both rows are taken FOR UPDATE, variant first, so concurrent
// operations on the same variant serialize instead of losing updates.
// Callers touching multiple variants must process them in sorted id order.
func ApplyTx(ctx context.Context, tx pgx.Tx, op Op, variantID string, qty int) (*OpResult, error) {
	var v StockVariant
	err := tx.QueryRow(ctx, `
		SELECT id, stock_id, size, color, total, available, on_hold, exhausted
		FROM stock_variants WHERE id=$1 FOR UPDATE`, variantID,
	).Scan(&v.ID, &v.StockID, &v.Size, &v.Color, &v.Total, &v.Available, &v.OnHold, &v.Exhausted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, variantID)
	}
	if err != nil {
		return nil, err
	}

	var st Stock
	err = tx.QueryRow(ctx, `
		SELECT id, title, category, stock_type, hsn_code, gst_percent, vendor_id,
		       total, available, on_hold, exhausted, created_at, updated_at
		FROM stocks WHERE id=$1 FOR UPDATE`, v.StockID,
	).Scan(&st.ID, &st.Title, &st.Category, &st.StockType, &st.HSNCode, &st.GSTPercent,
		&st.VendorID, &st.Total, &st.Available, &st.OnHold, &st.Exhausted,
		&st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, v.StockID)
	}
	if err != nil {
		return nil, err
	}

	if err := v.Buckets.Apply(op, qty); err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.ID, err)
	}
	if err := st.Buckets.Apply(op, qty); err != nil {
		return nil, fmt.Errorf("stock %s: %w", st.ID, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE stock_variants SET total=$2, available=$3, on_hold=$4, exhausted=$5
		WHERE id=$1`,
		v.ID, v.Total, v.Available, v.OnHold, v.Exhausted,
	); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE stocks SET total=$2, available=$3, on_hold=$4, exhausted=$5, updated_at=now()
		WHERE id=$1`,
		st.ID, st.Total, st.Available, st.OnHold, st.Exhausted,
	); err != nil {
		return nil, err
	}
	return &OpResult{Stock: st, Variant: v}, nil
}

// RecordTransaction appends one audit row. Rows are never updated or deleted.
func RecordTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_transactions(id, stock_id, variant_id, size, color, qty,
		                               purchase_price_cents, sell_price_cents, txn_type, reference)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.StockID, t.VariantID, t.Size, t.Color, t.Qty,
		t.PurchasePriceCents, t.SellPriceCents, string(t.Type), t.Reference,
	)
	return err
}

// FindVariantTx resolves a variant by (stock, size, color) inside the
// caller's transaction. Used by the consignment receipt flow.
func FindVariantTx(ctx context.Context, tx pgx.Tx, stockID, size, color string) (*StockVariant, error) {
	var v StockVariant
	err := tx.QueryRow(ctx, `
		SELECT id, stock_id, size, color, total, available, on_hold, exhausted
		FROM stock_variants WHERE stock_id=$1 AND size=$2 AND color=$3`,
		stockID, size, color,
	).Scan(&v.ID, &v.StockID, &v.Size, &v.Color, &v.Total, &v.Available, &v.OnHold, &v.Exhausted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s/%s", ErrVariantNotFound, stockID, size, color)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) GetStock(ctx context.Context, id string) (*Stock, error) {
	var st Stock
	err := r.DB.QueryRow(ctx, `
		SELECT id, title, category, stock_type, hsn_code, gst_percent, vendor_id,
		       total, available, on_hold, exhausted, created_at, updated_at
		FROM stocks WHERE id=$1`, id,
	).Scan(&st.ID, &st.Title, &st.Category, &st.StockType, &st.HSNCode, &st.GSTPercent,
		&st.VendorID, &st.Total, &st.Available, &st.OnHold, &st.Exhausted,
		&st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, stock_id, size, color, total, available, on_hold, exhausted
		FROM stock_variants WHERE stock_id=$1 ORDER BY size, color`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v StockVariant
		if err := rows.Scan(&v.ID, &v.StockID, &v.Size, &v.Color,
			&v.Total, &v.Available, &v.OnHold, &v.Exhausted); err != nil {
			return nil, err
		}
		st.Variants = append(st.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *Repo) ListStocks(ctx context.Context, vendorID string) ([]Stock, error) {
	q := `SELECT id, title, category, stock_type, hsn_code, gst_percent, vendor_id,
	             total, available, on_hold, exhausted, created_at, updated_at
	      FROM stocks`
	args := []any{}
	if vendorID != "" {
		q += ` WHERE vendor_id=$1`
		args = append(args, vendorID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		var st Stock
		if err := rows.Scan(&st.ID, &st.Title, &st.Category, &st.StockType, &st.HSNCode,
			&st.GSTPercent, &st.VendorID, &st.Total, &st.Available, &st.OnHold,
			&st.Exhausted, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *Repo) ListTransactions(ctx context.Context, stockID string) ([]Transaction, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, stock_id, variant_id, size, color, qty,
		       purchase_price_cents, sell_price_cents, txn_type, reference, occurred_at
		FROM stock_transactions WHERE stock_id=$1 ORDER BY occurred_at`, stockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.StockID, &t.VariantID, &t.Size, &t.Color, &t.Qty,
			&t.PurchasePriceCents, &t.SellPriceCents, &t.Type, &t.Reference,
			&t.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

package consignment

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendora/stock-ledger/internal/ledger"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			if _, err := pool.Exec(ctx, s); err != nil {
				t.Fatalf("apply schema: %v", err)
			}
		}
	}
	return pool
}

func TestCreateConsignmentRestocksVariants(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	lr := &ledger.Repo{DB: pool}
	cr := &Repo{DB: pool}

	st, err := lr.CreateStock(ctx, ledger.CreateStockInput{
		Title: "tee",
		Variants: []ledger.VariantInput{
			{Size: "M", Color: "Black", TotalQuantity: 10},
			{Size: "L", Color: "White", TotalQuantity: 0},
		},
	})
	if err != nil {
		t.Fatalf("create stock: %v", err)
	}

	c, err := cr.CreateConsignment(ctx, CreateInput{
		SupplierID:    "sup-1",
		TransporterID: "trn-1",
		ReceivedOn:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Items: []ItemInput{
			{StockID: st.ID, Size: "M", Color: "Black", Qty: 5, PurchasePriceCents: 300, SellPriceCents: 500},
			{StockID: st.ID, Size: "L", Color: "White", Qty: 8, PurchasePriceCents: 320, SellPriceCents: 550},
		},
	})
	if err != nil {
		t.Fatalf("create consignment: %v", err)
	}
	if len(c.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(c.Details))
	}

	after, err := lr.GetStock(ctx, st.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if after.Total != 23 || after.Available != 23 {
		t.Fatalf("expected 23 available after receipt, got %+v", after.Buckets)
	}

	txns, err := lr.ListTransactions(ctx, st.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 Receive rows, got %d", len(txns))
	}
	for _, txn := range txns {
		if txn.Type != ledger.TxnReceive {
			t.Errorf("expected Receive, got %s", txn.Type)
		}
		if txn.Reference != c.Number {
			t.Errorf("expected reference %s, got %s", c.Number, txn.Reference)
		}
		if txn.PurchasePriceCents == 0 || txn.SellPriceCents == 0 {
			t.Errorf("prices not recorded: %+v", txn)
		}
	}

	got, err := cr.GetConsignment(ctx, c.Number)
	if err != nil {
		t.Fatalf("get consignment: %v", err)
	}
	if got.SupplierID != "sup-1" || len(got.Details) != 2 {
		t.Fatalf("unexpected consignment: %+v", got)
	}
}

func TestCreateConsignmentRollsBackOnUnknownVariant(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	lr := &ledger.Repo{DB: pool}
	cr := &Repo{DB: pool}

	st, err := lr.CreateStock(ctx, ledger.CreateStockInput{
		Title:    "tee",
		Variants: []ledger.VariantInput{{Size: "M", Color: "Black", TotalQuantity: 10}},
	})
	if err != nil {
		t.Fatalf("create stock: %v", err)
	}

	_, err = cr.CreateConsignment(ctx, CreateInput{
		SupplierID:    "sup-1",
		TransporterID: "trn-1",
		ReceivedOn:    time.Now().UTC(),
		Items: []ItemInput{
			{StockID: st.ID, Size: "M", Color: "Black", Qty: 5},
			{StockID: st.ID, Size: "XXL", Color: "Green", Qty: 1}, // not in the allowed set
		},
	})
	if !errors.Is(err, ledger.ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}

	after, err := lr.GetStock(ctx, st.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if after.Buckets != st.Buckets {
		t.Fatalf("partial receipt committed: %+v -> %+v", st.Buckets, after.Buckets)
	}
	txns, err := lr.ListTransactions(ctx, st.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("expected no audit rows after rollback, got %d", len(txns))
	}
}

func TestCreateConsignmentValidation(t *testing.T) {
	pool := testPool(t)
	cr := &Repo{DB: pool}
	ctx := context.Background()

	if _, err := cr.CreateConsignment(ctx, CreateInput{SupplierID: "s", TransporterID: "t"}); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
	_, err := cr.CreateConsignment(ctx, CreateInput{
		SupplierID: "s", TransporterID: "t",
		Items: []ItemInput{{StockID: "x", Size: "M", Color: "Black", Qty: 0}},
	})
	if !errors.Is(err, ledger.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
